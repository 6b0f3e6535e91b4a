package app

import (
	"errors"
	"fmt"

	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/db"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
)

// UserMessage maps an error to the text shown in the error bar.
func UserMessage(err error) string {
	var conflict *dub.ConflictError
	var transport *collab.TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, collab.ErrPayloadTooLarge):
		return "The media file is too large for the pipeline service. Try a shorter or smaller clip."
	case errors.Is(err, regen.ErrEmptyResult):
		return "Dubbing returned no audio. The segment is now zero-length and blocks finalizing."
	case errors.As(err, &conflict):
		return fmt.Sprintf("Cannot finalize: %d overlapping, %d zero-length segment(s).",
			len(conflict.Overlapping), len(conflict.ZeroDuration))
	case errors.As(err, &transport):
		if transport.Status != 0 {
			return fmt.Sprintf("Pipeline service failed (%s, status %d).", transport.Op, transport.Status)
		}
		return fmt.Sprintf("Pipeline service unreachable (%s).", transport.Op)
	case errors.Is(err, dub.ErrMuted):
		return "Muted segments keep their original timing."
	case errors.Is(err, dub.ErrInvalidSpan):
		return "End time must not be before start time, and times must not be negative."
	case errors.Is(err, dub.ErrSharedVoice):
		return "Speakers sharing a voice must all move to the same new voice."
	case errors.Is(err, dub.ErrNotFound):
		return "That segment no longer exists."
	case errors.Is(err, db.ErrSessionNotFound):
		return "Session not found in the database."
	}
	return err.Error()
}
