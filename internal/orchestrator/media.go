package orchestrator

import (
	"context"
	"io"
)

// MediaState is the lifecycle of a reference image slot:
// unset -> uploading -> resolved, or back to unset when the upload fails.
type MediaState int

const (
	MediaUnset MediaState = iota
	MediaUploading
	MediaResolved
)

func (s MediaState) String() string {
	switch s {
	case MediaUploading:
		return "uploading"
	case MediaResolved:
		return "resolved"
	}
	return "unset"
}

// MediaRef is a reference image attached to a task slot.
type MediaRef struct {
	State      MediaState
	MediaID    string
	PreviewURL string
}

// Resolved reports whether the reference points at an uploaded file.
func (r MediaRef) Resolved() bool {
	return r.State == MediaResolved && r.MediaID != ""
}

// Slot names a reference position on a task.
type Slot string

const (
	SlotStart Slot = "start"
	SlotEnd   Slot = "end"
	SlotFrame Slot = "frame"
)

// SlotKey addresses one slot of one task, so uploads of different tasks
// never collide.
type SlotKey struct {
	TaskID string
	Slot   Slot
}

// File is a reference image picked by the user.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Uploaded is what the file store returns for a stored file.
type Uploaded struct {
	MediaID    string
	PreviewURL string
}

// Uploader stores reference images. It is provided by the host application.
type Uploader interface {
	Upload(ctx context.Context, file File) (Uploaded, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, file File) (Uploaded, error)

func (f UploaderFunc) Upload(ctx context.Context, file File) (Uploaded, error) {
	return f(ctx, file)
}
