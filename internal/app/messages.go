package app

import (
	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
)

// RegeneratedMsg is sent when a single-segment regeneration settles.
type RegeneratedMsg struct {
	ID        string
	Kind      regen.Kind
	Utterance dub.Utterance
	Err       error
}

// BatchDoneMsg is sent once every call of a settings change has settled.
type BatchDoneMsg struct {
	Report regen.Report
	Err    error
}

// FinalVideoMsg carries the result of the finalize action.
type FinalVideoMsg struct {
	Video collab.FinalVideo
	Err   error
}

// SessionSavedMsg is sent after the session was written to the database.
type SessionSavedMsg struct {
	Err error
}

// ExportedMsg is sent after subtitles were written.
type ExportedMsg struct {
	Path string
	Err  error
}

// CopiedMsg is sent after text was copied to the clipboard.
type CopiedMsg struct {
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
