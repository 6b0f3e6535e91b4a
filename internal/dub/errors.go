package dub

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no utterance has the requested id.
	ErrNotFound = errors.New("utterance not found")
	// ErrInvalidSpan is returned for negative times or end before start.
	ErrInvalidSpan = errors.New("invalid span")
	// ErrMuted is returned when retiming a muted utterance interactively.
	ErrMuted = errors.New("utterance is muted")
	// ErrSharedVoice is returned when speakers sharing a voice are
	// reassigned to different voices.
	ErrSharedVoice = errors.New("speakers share a voice")
)

// ConflictError reports the temporal conflicts that block finalization.
type ConflictError struct {
	Overlapping  []string
	ZeroDuration []string
}

func (e *ConflictError) Error() string {
	var parts []string
	if n := len(e.Overlapping); n > 0 {
		parts = append(parts, fmt.Sprintf("%d overlapping", n))
	}
	if n := len(e.ZeroDuration); n > 0 {
		parts = append(parts, fmt.Sprintf("%d zero-duration", n))
	}
	return "timeline conflicts: " + strings.Join(parts, ", ")
}
