package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoMedia is returned when a generation or polling call completes without
// a usable media payload. Distinct from a poll timeout.
var ErrNoMedia = errors.New("provider returned no media payload")

// MediaResult is a generated media descriptor.
type MediaResult struct {
	Bytes    []byte // Decoded media bytes
	MIMEType string // e.g. image/png, video/mp4
}

// OperationStatus is a provider-agnostic view of a long-running operation.
type OperationStatus struct {
	Name  string       // Canonical operation name, when the provider reports one
	Done  bool         // Whether the operation has finished
	Media *MediaResult // Generated media, present only when Done with a payload
}

// MediaGenerator is the capability interface for image and video generation.
// StartVideo returns an opaque operation handle; GetOperation queries status
// by canonical name when one is known, otherwise by the original handle.
type MediaGenerator interface {
	GenerateImage(ctx context.Context, model, prompt string) (*MediaResult, error)
	StartVideo(ctx context.Context, model, prompt string, durationSeconds int32) (any, error)
	GetOperation(ctx context.Context, handle any, name string) (*OperationStatus, error)
}

// namer is implemented by operation handles that know their canonical name.
type namer interface {
	OperationName() string
}

// NormalizeHandle extracts a canonical operation name from the shapes
// providers are known to return: a bare string, an object with a name field,
// a wrapper with an operation string, or a wrapper with a nested named
// operation. Returns "" for opaque handles.
func NormalizeHandle(handle any) string {
	switch h := handle.(type) {
	case nil:
		return ""
	case string:
		return h
	case namer:
		return h.OperationName()
	case map[string]any:
		if name, ok := h["name"].(string); ok && name != "" {
			return name
		}
		switch op := h["operation"].(type) {
		case string:
			return op
		case map[string]any:
			if name, ok := op["name"].(string); ok {
				return name
			}
		}
		return ""
	default:
		return ""
	}
}

// PollTimeoutError is returned when an operation does not complete within the
// attempt budget. It retains the last-known operation name so the caller
// could resume polling later instead of restarting generation.
type PollTimeoutError struct {
	OperationName string // Last-known canonical name, may be ""
	Attempts      int    // Attempts consumed
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("operation polling timed out after %d attempts (operation %q)", e.Attempts, e.OperationName)
}
