package orchestrator

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoUploader is returned when the session was built without a file
// store.
var ErrNoUploader = errors.New("no uploader configured")

// findRef must be called with mu held.
func (o *Orchestrator) findRef(key SlotKey) *MediaRef {
	for _, w := range o.workspaces() {
		if ref := w.ref(key); ref != nil {
			return ref
		}
	}
	return nil
}

// view overlays the in-flight state on a stored reference. Must be called
// with mu held.
func (o *Orchestrator) view(key SlotKey, stored MediaRef) MediaRef {
	if o.inflight[key] > 0 {
		stored.State = MediaUploading
	}
	return stored
}

// Ref returns the current reference of a slot.
func (o *Orchestrator) Ref(key SlotKey) (MediaRef, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ref := o.findRef(key)
	if ref == nil {
		return MediaRef{}, fmt.Errorf("%w: %s/%s", ErrSlotNotFound, key.TaskID, key.Slot)
	}
	return o.view(key, *ref), nil
}

// Upload stores a reference image for a slot. The slot reads as uploading
// until the last upload started for it lands; that last response decides
// the final state. A failed upload leaves the slot unset. Results for a
// task removed meanwhile are dropped.
func (o *Orchestrator) Upload(ctx context.Context, key SlotKey, file File) (MediaRef, error) {
	if o.uploader == nil {
		return MediaRef{}, ErrNoUploader
	}

	o.mu.Lock()
	if o.findRef(key) == nil {
		o.mu.Unlock()
		return MediaRef{}, fmt.Errorf("%w: %s/%s", ErrSlotNotFound, key.TaskID, key.Slot)
	}
	o.inflight[key]++
	o.mu.Unlock()

	uploaded, err := o.uploader.Upload(ctx, file)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inflight[key]--; o.inflight[key] <= 0 {
		delete(o.inflight, key)
	}

	ref := o.findRef(key)
	if ref == nil {
		o.logger.Debug("Dropping upload for removed task", "task", key.TaskID, "slot", key.Slot)
		if err != nil {
			return MediaRef{}, fmt.Errorf("failed to upload %s: %w", file.Name, err)
		}
		return MediaRef{}, fmt.Errorf("%w: %s/%s", ErrSlotNotFound, key.TaskID, key.Slot)
	}

	if err != nil {
		o.logger.Warn("Reference upload failed", "task", key.TaskID, "slot", key.Slot, "error", err)
		*ref = MediaRef{}
		return o.view(key, *ref), fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}
	if uploaded.MediaID == "" {
		*ref = MediaRef{}
		return o.view(key, *ref), fmt.Errorf("failed to upload %s: empty media id", file.Name)
	}

	*ref = MediaRef{State: MediaResolved, MediaID: uploaded.MediaID, PreviewURL: uploaded.PreviewURL}
	return o.view(key, *ref), nil
}

// ClearReference resets a slot to unset.
func (o *Orchestrator) ClearReference(key SlotKey) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	ref := o.findRef(key)
	if ref == nil {
		return fmt.Errorf("%w: %s/%s", ErrSlotNotFound, key.TaskID, key.Slot)
	}
	*ref = MediaRef{}
	return nil
}

// uploading reports whether any slot of w has an upload in flight. Must be
// called with mu held.
func (o *Orchestrator) uploading(w Workspace) bool {
	for _, key := range w.slots() {
		if o.inflight[key] > 0 {
			return true
		}
	}
	return false
}
