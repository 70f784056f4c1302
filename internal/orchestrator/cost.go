package orchestrator

import (
	"strings"

	"genstudio/internal/pricing"
)

// Disabled-state reasons shown next to the Generate action.
const (
	ReasonNoModel   = "select a model first"
	ReasonUploading = "wait for uploads to finish"
	ReasonNoTasks   = "add at least one ready task"
	ReasonNeedsRefs = "every task with a prompt needs a reference image"
)

// Capabilities are the inputs the selected model asks for.
type Capabilities struct {
	RequiresPrompt   bool
	RequiresImage    bool
	SupportsEndImage bool
}

// Capabilities returns what the selected model needs. With no model every
// flag is false.
func (o *Orchestrator) Capabilities() Capabilities {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.capabilities()
}

func (o *Orchestrator) capabilities() Capabilities {
	m := o.sel.Model
	if m == nil {
		return Capabilities{}
	}
	return Capabilities{
		RequiresPrompt:   !m.PromptOptional,
		RequiresImage:    m.RequiresImage,
		SupportsEndImage: m.SupportsEndImage,
	}
}

func hasText(s string) bool { return strings.TrimSpace(s) != "" }

func (c Capabilities) singleReady(t SingleTask) bool {
	if c.RequiresPrompt && !hasText(t.Prompt) {
		return false
	}
	if c.RequiresImage && !t.Start.Resolved() {
		return false
	}
	return hasText(t.Prompt) || t.Start.Resolved()
}

// sequenceReady holds for the whole sequence: every frame resolved and
// every transition described.
func (c Capabilities) sequenceReady(nodes []FrameNode) bool {
	if len(nodes) < MinFrames {
		return false
	}
	for i, n := range nodes {
		if !n.Frame.Resolved() {
			return false
		}
		if i < len(nodes)-1 && c.RequiresPrompt && !hasText(n.Prompt) {
			return false
		}
	}
	return true
}

func (c Capabilities) autoReady(t AutoTask) bool {
	if !hasText(t.Prompt) {
		return false
	}
	return !c.RequiresImage || t.Start.Resolved()
}

// incompleteAuto reports whether some auto task has a prompt but cannot be
// sent. TotalCost prices every prompted task, so such a task blocks
// submission instead of being dropped from the charge.
func (o *Orchestrator) incompleteAuto(caps Capabilities) bool {
	for _, t := range o.autoView() {
		if hasText(t.Prompt) && !caps.autoReady(t) {
			return true
		}
	}
	return false
}

// ReadyCount returns how many tasks of the active mode are ready. A
// sequence counts as one.
func (o *Orchestrator) ReadyCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.readyCount()
}

func (o *Orchestrator) readyCount() int {
	caps := o.capabilities()
	switch o.mode {
	case ModeMulti:
		if caps.sequenceReady(o.framesView()) {
			return 1
		}
		return 0
	case ModeAuto:
		n := 0
		for _, t := range o.autoView() {
			if caps.autoReady(t) {
				n++
			}
		}
		return n
	}
	if caps.singleReady(o.effectiveSingle()) {
		return 1
	}
	return 0
}

func (o *Orchestrator) framesView() []FrameNode {
	nodes := o.multi.Nodes()
	for i := range nodes {
		nodes[i].Frame = o.view(SlotKey{TaskID: nodes[i].ID, Slot: SlotFrame}, nodes[i].Frame)
	}
	return nodes
}

func (o *Orchestrator) autoView() []AutoTask {
	tasks := o.auto.Tasks()
	for i := range tasks {
		tasks[i].Start = o.view(SlotKey{TaskID: tasks[i].ID, Slot: SlotStart}, tasks[i].Start)
		tasks[i].End = o.view(SlotKey{TaskID: tasks[i].ID, Slot: SlotEnd}, tasks[i].End)
	}
	return tasks
}

// option returns the matrix key priced for the selection.
func (o *Orchestrator) option() string {
	return pricing.OptionFor(o.sel.Model.Pricing, o.sel.Resolution, o.sel.Option, o.sel.ModeLabel)
}

// UnitCost is the price of one generation for the current selection, or 0
// without a model.
func (o *Orchestrator) UnitCost() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unitCost()
}

func (o *Orchestrator) unitCost() float64 {
	if o.sel.Model == nil {
		return 0
	}
	return pricing.ResolveCost(o.sel.Model.Pricing, o.sel.Resolution, o.option())
}

// TotalCost is the price of generating the active mode's tasks.
func (o *Orchestrator) TotalCost() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalCost()
}

func (o *Orchestrator) totalCost() float64 {
	unit := o.unitCost()
	switch o.mode {
	case ModeMulti:
		return unit * float64(len(o.multi.nodes)-1)
	case ModeAuto:
		return unit * float64(o.auto.nonEmptyPrompts())
	}
	return unit * float64(o.single.task.Quantity)
}

// GenerateState reports whether Generate is disabled and why. It reads
// local state only.
func (o *Orchestrator) GenerateState() (disabled bool, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generateState()
}

func (o *Orchestrator) generateState() (bool, string) {
	if o.sel.Model == nil {
		return true, ReasonNoModel
	}
	if o.uploading(o.active()) {
		return true, ReasonUploading
	}
	if o.readyCount() == 0 {
		return true, ReasonNoTasks
	}
	if o.mode == ModeAuto && o.incompleteAuto(o.capabilities()) {
		return true, ReasonNeedsRefs
	}
	return false, ""
}
