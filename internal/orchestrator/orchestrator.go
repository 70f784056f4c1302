// Package orchestrator holds the generation studio session: the active
// mode with one task list per mode, the model selection, reference image
// uploads, cost and readiness, and submission of the active tasks.
package orchestrator

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"genstudio/internal/jobs"
	"genstudio/internal/logging"
	"genstudio/internal/models"
	"genstudio/internal/pricing"
)

var (
	// ErrLastFrame is returned when setting a transition prompt on the last
	// node of a sequence.
	ErrLastFrame = errors.New("the last frame has no outgoing transition")

	// ErrTaskNotFound is returned for an unknown task or node id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrSlotNotFound is returned for an upload to a slot the task does not
	// have.
	ErrSlotNotFound = errors.New("reference slot not found")

	// ErrNoModel is returned when a selection is changed before a model is
	// chosen.
	ErrNoModel = errors.New("no model selected")

	// ErrSubmissionBlocked wraps the reason generation is disabled.
	ErrSubmissionBlocked = errors.New("generation is disabled")
)

// Options wires the orchestrator to its collaborators.
type Options struct {
	Uploader  Uploader
	Submitter jobs.Submitter

	// DefaultAspectRatios applies to models without their own allow-list.
	DefaultAspectRatios []string
}

// Selection is the chosen model configuration.
type Selection struct {
	Model       *models.PricingModel
	Resolution  string
	Option      string
	ModeLabel   string
	AspectRatio string
}

// Orchestrator is one studio session. It is safe for concurrent use;
// uploads run without holding the lock.
type Orchestrator struct {
	uploader      Uploader
	submitter     jobs.Submitter
	defaultRatios []string
	logger        *logging.Logger

	mu       sync.Mutex
	mode     Mode
	single   *SingleWorkspace
	multi    *MultiWorkspace
	auto     *AutoWorkspace
	sel      Selection
	inflight map[SlotKey]int
}

// New creates a session in single mode with an empty batch and a two node
// sequence.
func New(opts Options) *Orchestrator {
	ratios := opts.DefaultAspectRatios
	if len(ratios) == 0 {
		ratios = models.DefaultAspectRatios
	}
	return &Orchestrator{
		uploader:      opts.Uploader,
		submitter:     opts.Submitter,
		defaultRatios: append([]string(nil), ratios...),
		logger:        logging.NewLogger("orchestrator"),
		mode:          ModeSingle,
		single:        newSingleWorkspace(),
		multi:         newMultiWorkspace(),
		auto:          newAutoWorkspace(),
		inflight:      map[SlotKey]int{},
	}
}

//
// Mode
//

// Mode returns the active mode.
func (o *Orchestrator) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// SetMode switches the active mode. The other modes keep their lists.
func (o *Orchestrator) SetMode(m Mode) error {
	switch m {
	case ModeSingle, ModeMulti, ModeAuto:
	default:
		return fmt.Errorf("unknown mode %v", m)
	}
	o.mu.Lock()
	o.mode = m
	o.mu.Unlock()
	return nil
}

// active must be called with mu held.
func (o *Orchestrator) active() Workspace {
	switch o.mode {
	case ModeMulti:
		return o.multi
	case ModeAuto:
		return o.auto
	}
	return o.single
}

func (o *Orchestrator) workspaces() []Workspace {
	return []Workspace{o.single, o.multi, o.auto}
}

//
// Model selection
//

// SelectModel chooses a model and resets the configuration to its
// defaults: first resolution, no option, first mode label and first
// allowed aspect ratio.
func (o *Orchestrator) SelectModel(m *models.PricingModel) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if m == nil {
		o.sel = Selection{}
		return
	}
	m = m.Clone()
	sel := Selection{Model: m, ModeLabel: m.DefaultMode()}
	if res := pricing.ListResolutions(m.Pricing); len(res) > 0 {
		sel.Resolution = res[0]
	}
	if ratios := o.allowedRatios(m); len(ratios) > 0 {
		sel.AspectRatio = ratios[0]
	}
	o.sel = sel
}

// Selection returns a copy of the current selection.
func (o *Orchestrator) Selection() Selection {
	o.mu.Lock()
	defer o.mu.Unlock()
	sel := o.sel
	if sel.Model != nil {
		sel.Model = sel.Model.Clone()
	}
	return sel
}

// AllowedAspectRatios returns the ratios offered for the selected model.
func (o *Orchestrator) AllowedAspectRatios() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sel.Model == nil {
		return append([]string(nil), o.defaultRatios...)
	}
	return append([]string(nil), o.allowedRatios(o.sel.Model)...)
}

func (o *Orchestrator) allowedRatios(m *models.PricingModel) []string {
	if len(m.AspectRatios) > 0 {
		return m.AspectRatios
	}
	return o.defaultRatios
}

// SetResolution selects a priced resolution. An option that is not priced
// under the new resolution is cleared.
func (o *Orchestrator) SetResolution(resolution string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sel.Model == nil {
		return ErrNoModel
	}
	if !o.sel.Model.Pricing.Has(resolution) {
		return fmt.Errorf("resolution %q is not priced for %s", resolution, o.sel.Model.Name)
	}
	o.sel.Resolution = resolution
	if o.sel.Option != "" && !slices.Contains(pricing.ListOptionsForResolution(o.sel.Model.Pricing, resolution), o.sel.Option) {
		o.sel.Option = ""
	}
	return nil
}

// SetDuration selects a duration/mode option of the current resolution.
// An empty option falls back to the first priced one.
func (o *Orchestrator) SetDuration(option string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sel.Model == nil {
		return ErrNoModel
	}
	if option != "" && !slices.Contains(pricing.ListOptionsForResolution(o.sel.Model.Pricing, o.sel.Resolution), option) {
		return fmt.Errorf("option %q is not priced for %s", option, o.sel.Resolution)
	}
	o.sel.Option = option
	return nil
}

// SetModeLabel selects one of the model's operating modes.
func (o *Orchestrator) SetModeLabel(label string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sel.Model == nil {
		return ErrNoModel
	}
	if !slices.Contains([]string(o.sel.Model.Modes), label) {
		return fmt.Errorf("mode %q is not offered by %s", label, o.sel.Model.Name)
	}
	o.sel.ModeLabel = label
	return nil
}

// SetAspectRatio selects one of the allowed aspect ratios.
func (o *Orchestrator) SetAspectRatio(ratio string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sel.Model == nil {
		return ErrNoModel
	}
	if !slices.Contains(o.allowedRatios(o.sel.Model), ratio) {
		return fmt.Errorf("aspect ratio %q is not allowed for %s", ratio, o.sel.Model.Name)
	}
	o.sel.AspectRatio = ratio
	return nil
}

//
// SINGLE
//

// Single returns a copy of the single mode task.
func (o *Orchestrator) Single() SingleTask {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.effectiveSingle()
}

func (o *Orchestrator) effectiveSingle() SingleTask {
	t := o.single.Task()
	t.Start = o.view(SlotKey{TaskID: t.ID, Slot: SlotStart}, t.Start)
	t.End = o.view(SlotKey{TaskID: t.ID, Slot: SlotEnd}, t.End)
	return t
}

func (o *Orchestrator) SetPrompt(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.single.task.Prompt = text
}

// SetQuantity stores the clamped quantity and returns it.
func (o *Orchestrator) SetQuantity(q float64) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.single.task.Quantity = ClampQuantity(q)
	return o.single.task.Quantity
}

// SetQuantityText stores a typed quantity, clamped, and returns it.
func (o *Orchestrator) SetQuantityText(text string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.single.task.Quantity = ParseQuantity(text)
	return o.single.task.Quantity
}

//
// MULTI
//

// Frames returns a copy of the sequence.
func (o *Orchestrator) Frames() []FrameNode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.framesView()
}

// AddFrame appends a trailing node and returns its id.
func (o *Orchestrator) AddFrame() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.multi.add()
}

// RemoveFrame removes a node. It is a no-op returning false when the
// sequence would drop below MinFrames or the id is unknown.
func (o *Orchestrator) RemoveFrame(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.multi.remove(id)
}

// SetFramePrompt sets the transition prompt from node id to the next one.
func (o *Orchestrator) SetFramePrompt(id, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.multi.setPrompt(id, text)
}

//
// AUTO
//

// AutoTasks returns a copy of the batch.
func (o *Orchestrator) AutoTasks() []AutoTask {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.autoView()
}

// BulkImport replaces the batch with one task per non-empty line and
// returns the number of tasks.
func (o *Orchestrator) BulkImport(text string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.auto.importLines(text)
}

// AddTask appends an empty task and returns its id.
func (o *Orchestrator) AddTask() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.auto.add()
}

// RemoveTask removes a task and reports whether it existed.
func (o *Orchestrator) RemoveTask(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.auto.remove(id)
}

func (o *Orchestrator) SetTaskPrompt(id, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.auto.setPrompt(id, text)
}
