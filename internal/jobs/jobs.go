// Package jobs hands generation tasks to the asynchronous generation
// backend: credits are debited, one descriptor per task is queued and a
// dispatcher forwards queued descriptors to the generator.
package jobs

import (
	"context"
	"errors"
	"time"

	"genstudio/internal/queue"
)

var (
	// ErrEmptySubmission is returned when a submission carries no task.
	ErrEmptySubmission = errors.New("submission has no tasks")

	// ErrRateLimited is returned when the user submitted too often.
	ErrRateLimited = errors.New("too many submissions, try again later")

	// ErrNoGenerator is returned by the placeholder generator used when
	// no generation backend is configured.
	ErrNoGenerator = errors.New("no generation backend configured")

	// ErrQueueClosed is returned once the job queue has been closed.
	ErrQueueClosed = queue.ErrQueueClosed
)

// Media slot names carried by descriptors.
const (
	SlotStart = "start"
	SlotEnd   = "end"
	SlotFrame = "frame"
)

// MediaInput is a resolved reference image attached to a task.
type MediaInput struct {
	Slot    string `json:"slot"`
	Index   int    `json:"index"`
	MediaID string `json:"mediaId"`
}

// Descriptor is one unit of generation work.
type Descriptor struct {
	ID           string       `json:"id"`
	SubmissionID string       `json:"submissionId"`
	UserID       string       `json:"userId"`
	Mode         string       `json:"mode"`
	ModelID      string       `json:"modelId"`
	ModelKey     string       `json:"modelKey"`
	Resolution   string       `json:"resolution,omitempty"`
	Option       string       `json:"option,omitempty"`
	ModeLabel    string       `json:"modeLabel,omitempty"`
	AspectRatio  string       `json:"aspectRatio,omitempty"`
	Prompts      []string     `json:"prompts"`
	Media        []MediaInput `json:"media,omitempty"`
	Quantity     int          `json:"quantity"`
	Cost         float64      `json:"cost"`
	// Attempt counts admin retries. Each one is a separate charge, so it
	// is part of the refund reference.
	Attempt   int       `json:"attempt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Submission is a batch of descriptors from one Generate action.
type Submission struct {
	UserID      string       `json:"userId"`
	Descriptors []Descriptor `json:"descriptors"`
}

// TotalCost sums the descriptor costs.
func (s Submission) TotalCost() float64 {
	var total float64
	for _, d := range s.Descriptors {
		total += d.Cost
	}
	return total
}

// Receipt acknowledges a submission.
type Receipt struct {
	SubmissionID string   `json:"submissionId"`
	JobIDs       []string `json:"jobIds"`
	Charged      float64  `json:"charged"`
	Balance      float64  `json:"balance"`
}

// Submitter accepts submissions.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (Receipt, error)
}
