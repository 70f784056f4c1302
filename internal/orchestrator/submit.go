package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genstudio/internal/jobs"
)

// ErrNoSubmitter is returned when the session was built without a job
// submitter.
var ErrNoSubmitter = errors.New("no job submitter configured")

// Descriptors builds the job descriptors of the active mode: one for single
// mode carrying the quantity, one for the whole sequence in multi mode and
// one per prompted task in auto mode. Other modes' lists are never included.
func (o *Orchestrator) Descriptors(userID string) ([]jobs.Descriptor, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.descriptors(userID)
}

func (o *Orchestrator) descriptors(userID string) ([]jobs.Descriptor, error) {
	if disabled, reason := o.generateState(); disabled {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionBlocked, reason)
	}

	unit := o.unitCost()
	caps := o.capabilities()
	base := jobs.Descriptor{
		UserID:      userID,
		Mode:        o.mode.String(),
		ModelID:     o.sel.Model.ID,
		ModelKey:    o.sel.Model.ModelKey,
		Resolution:  o.sel.Resolution,
		Option:      o.option(),
		ModeLabel:   o.sel.ModeLabel,
		AspectRatio: o.sel.AspectRatio,
		CreatedAt:   time.Now().UTC(),
	}

	switch o.mode {
	case ModeMulti:
		nodes := o.framesView()
		d := base
		d.Quantity = 1
		d.Cost = unit * float64(len(nodes)-1)
		for i, n := range nodes {
			d.Media = append(d.Media, jobs.MediaInput{Slot: jobs.SlotFrame, Index: i, MediaID: n.Frame.MediaID})
			if i < len(nodes)-1 {
				d.Prompts = append(d.Prompts, n.Prompt)
			}
		}
		return []jobs.Descriptor{d}, nil

	case ModeAuto:
		var out []jobs.Descriptor
		for _, t := range o.autoView() {
			if !caps.autoReady(t) {
				continue
			}
			d := base
			d.Quantity = 1
			d.Cost = unit
			d.Prompts = []string{t.Prompt}
			d.Media = taskMedia(caps, t.Start, t.End)
			out = append(out, d)
		}
		return out, nil
	}

	t := o.effectiveSingle()
	d := base
	d.Quantity = t.Quantity
	d.Cost = unit * float64(t.Quantity)
	d.Prompts = []string{t.Prompt}
	d.Media = taskMedia(caps, t.Start, t.End)
	return []jobs.Descriptor{d}, nil
}

func taskMedia(caps Capabilities, start, end MediaRef) []jobs.MediaInput {
	var media []jobs.MediaInput
	if start.Resolved() {
		media = append(media, jobs.MediaInput{Slot: jobs.SlotStart, MediaID: start.MediaID})
	}
	if caps.SupportsEndImage && end.Resolved() {
		media = append(media, jobs.MediaInput{Slot: jobs.SlotEnd, MediaID: end.MediaID})
	}
	return media
}

// Submit hands the active mode's descriptors to the job submitter. Task
// lists are left as they are so a failed submission can be retried.
func (o *Orchestrator) Submit(ctx context.Context, userID string) (jobs.Receipt, error) {
	if o.submitter == nil {
		return jobs.Receipt{}, ErrNoSubmitter
	}
	descriptors, err := o.Descriptors(userID)
	if err != nil {
		return jobs.Receipt{}, err
	}

	receipt, err := o.submitter.Submit(ctx, jobs.Submission{UserID: userID, Descriptors: descriptors})
	if err != nil {
		o.logger.Warn("Submission failed", "user", userID, "tasks", len(descriptors), "error", err)
		return jobs.Receipt{}, fmt.Errorf("failed to submit generation: %w", err)
	}
	o.logger.Info("Submitted generation", "user", userID, "submission", receipt.SubmissionID, "jobs", len(receipt.JobIDs), "charged", receipt.Charged)
	return receipt, nil
}
