package orchestrator

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	MinQuantity = 1
	MaxQuantity = 4

	// MinFrames is the shortest multi-frame sequence.
	MinFrames = 2
)

// ClampQuantity floors q into [MinQuantity, MaxQuantity]. NaN yields
// MinQuantity.
func ClampQuantity(q float64) int {
	if math.IsNaN(q) {
		return MinQuantity
	}
	q = math.Floor(q)
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return int(q)
}

// ParseQuantity clamps a typed quantity; text that is not a number yields
// MinQuantity.
func ParseQuantity(text string) int {
	q, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return MinQuantity
	}
	return ClampQuantity(q)
}

// Workspace is the task list of one mode.
type Workspace interface {
	Mode() Mode
	// slots lists every reference slot the workspace currently holds.
	slots() []SlotKey
	// ref returns the slot's reference, or nil when the workspace has no
	// such slot.
	ref(key SlotKey) *MediaRef
}

//
// SINGLE
//

// SingleTask is the one configuration of single mode.
type SingleTask struct {
	ID       string
	Prompt   string
	Start    MediaRef
	End      MediaRef
	Quantity int
}

// SingleWorkspace holds the single mode task.
type SingleWorkspace struct {
	task SingleTask
}

func newSingleWorkspace() *SingleWorkspace {
	return &SingleWorkspace{task: SingleTask{ID: uuid.NewString(), Quantity: MinQuantity}}
}

func (w *SingleWorkspace) Mode() Mode { return ModeSingle }

// Task returns a copy of the task.
func (w *SingleWorkspace) Task() SingleTask { return w.task }

func (w *SingleWorkspace) slots() []SlotKey {
	return []SlotKey{{TaskID: w.task.ID, Slot: SlotStart}, {TaskID: w.task.ID, Slot: SlotEnd}}
}

func (w *SingleWorkspace) ref(key SlotKey) *MediaRef {
	if key.TaskID != w.task.ID {
		return nil
	}
	switch key.Slot {
	case SlotStart:
		return &w.task.Start
	case SlotEnd:
		return &w.task.End
	}
	return nil
}

//
// MULTI
//

// FrameNode is one element of a multi-frame sequence. Prompt describes the
// transition to the next node and is ignored on the last node.
type FrameNode struct {
	ID     string
	Prompt string
	Frame  MediaRef
}

// MultiWorkspace holds an ordered sequence of at least MinFrames nodes.
type MultiWorkspace struct {
	nodes []FrameNode
}

func newMultiWorkspace() *MultiWorkspace {
	w := &MultiWorkspace{}
	for i := 0; i < MinFrames; i++ {
		w.add()
	}
	return w
}

func (w *MultiWorkspace) Mode() Mode { return ModeMulti }

// Nodes returns a copy of the sequence.
func (w *MultiWorkspace) Nodes() []FrameNode {
	return append([]FrameNode(nil), w.nodes...)
}

func (w *MultiWorkspace) add() string {
	id := uuid.NewString()
	w.nodes = append(w.nodes, FrameNode{ID: id})
	return id
}

func (w *MultiWorkspace) index(id string) int {
	for i, n := range w.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (w *MultiWorkspace) remove(id string) bool {
	if len(w.nodes) <= MinFrames {
		return false
	}
	i := w.index(id)
	if i < 0 {
		return false
	}
	w.nodes = append(w.nodes[:i], w.nodes[i+1:]...)
	return true
}

func (w *MultiWorkspace) setPrompt(id, text string) error {
	i := w.index(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	if i == len(w.nodes)-1 {
		return ErrLastFrame
	}
	w.nodes[i].Prompt = text
	return nil
}

func (w *MultiWorkspace) slots() []SlotKey {
	keys := make([]SlotKey, 0, len(w.nodes))
	for _, n := range w.nodes {
		keys = append(keys, SlotKey{TaskID: n.ID, Slot: SlotFrame})
	}
	return keys
}

func (w *MultiWorkspace) ref(key SlotKey) *MediaRef {
	if key.Slot != SlotFrame {
		return nil
	}
	if i := w.index(key.TaskID); i >= 0 {
		return &w.nodes[i].Frame
	}
	return nil
}

//
// AUTO
//

// AutoTask is one independent entry of a batch.
type AutoTask struct {
	ID     string
	Prompt string
	Start  MediaRef
	End    MediaRef
}

// AutoWorkspace holds the batch.
type AutoWorkspace struct {
	tasks []AutoTask
}

func newAutoWorkspace() *AutoWorkspace {
	return &AutoWorkspace{}
}

func (w *AutoWorkspace) Mode() Mode { return ModeAuto }

// Tasks returns a copy of the batch.
func (w *AutoWorkspace) Tasks() []AutoTask {
	return append([]AutoTask(nil), w.tasks...)
}

// SplitLines splits text on line breaks, trims every line and drops the
// empty ones.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (w *AutoWorkspace) importLines(text string) int {
	lines := SplitLines(text)
	w.tasks = make([]AutoTask, 0, len(lines))
	for _, line := range lines {
		w.tasks = append(w.tasks, AutoTask{ID: uuid.NewString(), Prompt: line})
	}
	return len(w.tasks)
}

func (w *AutoWorkspace) add() string {
	id := uuid.NewString()
	w.tasks = append(w.tasks, AutoTask{ID: id})
	return id
}

func (w *AutoWorkspace) index(id string) int {
	for i, t := range w.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (w *AutoWorkspace) remove(id string) bool {
	i := w.index(id)
	if i < 0 {
		return false
	}
	w.tasks = append(w.tasks[:i], w.tasks[i+1:]...)
	return true
}

func (w *AutoWorkspace) setPrompt(id, text string) error {
	i := w.index(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	w.tasks[i].Prompt = text
	return nil
}

func (w *AutoWorkspace) slots() []SlotKey {
	keys := make([]SlotKey, 0, 2*len(w.tasks))
	for _, t := range w.tasks {
		keys = append(keys, SlotKey{TaskID: t.ID, Slot: SlotStart}, SlotKey{TaskID: t.ID, Slot: SlotEnd})
	}
	return keys
}

func (w *AutoWorkspace) ref(key SlotKey) *MediaRef {
	i := w.index(key.TaskID)
	if i < 0 {
		return nil
	}
	switch key.Slot {
	case SlotStart:
		return &w.tasks[i].Start
	case SlotEnd:
		return &w.tasks[i].End
	}
	return nil
}

// nonEmptyPrompts counts tasks whose prompt has text.
func (w *AutoWorkspace) nonEmptyPrompts() int {
	n := 0
	for _, t := range w.tasks {
		if strings.TrimSpace(t.Prompt) != "" {
			n++
		}
	}
	return n
}
