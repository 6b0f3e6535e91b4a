// Package editor implements the scoped, revertible editing session over one
// utterance, including its single-segment regeneration actions.
package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
)

// Fields are the editable values of an utterance.
type Fields struct {
	OriginalText   string
	TranslatedText string
	Instructions   string
	Speaker        string
	Start          float64
	End            float64
}

func fieldsOf(u dub.Utterance) Fields {
	return Fields{
		OriginalText:   u.OriginalText,
		TranslatedText: u.TranslatedText,
		Instructions:   u.Instructions,
		Speaker:        u.Speaker,
		Start:          u.Translated.Start,
		End:            u.Translated.End,
	}
}

// Editor is an open editing session. Its methods are safe to call from a
// regeneration goroutine while the UI reads it.
type Editor struct {
	store  *dub.Store
	engine *regen.Engine
	id     string

	mu       sync.Mutex
	snapshot Fields
	working  Fields
	closed   bool
}

// Open snapshots the utterance with the given id.
func Open(store *dub.Store, engine *regen.Engine, id string) (*Editor, error) {
	u, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	f := fieldsOf(u)
	return &Editor{store: store, engine: engine, id: id, snapshot: f, working: f}, nil
}

// ID returns the utterance id being edited.
func (e *Editor) ID() string { return e.id }

// Fields returns the working values.
func (e *Editor) Fields() Fields {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working
}

func (e *Editor) set(fn func(*Fields)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.working)
}

func (e *Editor) SetOriginalText(s string)   { e.set(func(f *Fields) { f.OriginalText = s }) }
func (e *Editor) SetTranslatedText(s string) { e.set(func(f *Fields) { f.TranslatedText = s }) }
func (e *Editor) SetInstructions(s string)   { e.set(func(f *Fields) { f.Instructions = s }) }
func (e *Editor) SetSpeaker(voiceID string)  { e.set(func(f *Fields) { f.Speaker = voiceID }) }
func (e *Editor) SetStart(t float64)         { e.set(func(f *Fields) { f.Start = t }) }
func (e *Editor) SetEnd(t float64)           { e.set(func(f *Fields) { f.End = t }) }

// HasChanges reports whether any working value differs from the snapshot.
func (e *Editor) HasChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working != e.snapshot
}

// Closed reports whether the session has been closed.
func (e *Editor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close ends the session. With unsaved changes, confirm is asked whether to
// discard them; a refusal keeps the session open. Discarding never writes
// to the store.
func (e *Editor) Close(confirm func() bool) bool {
	if e.HasChanges() && (confirm == nil || !confirm()) {
		return false
	}
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return true
}

// Save writes the changed working values to the store and takes a new
// snapshot. Only fields that differ from the snapshot are patched.
func (e *Editor) Save() (dub.Utterance, error) {
	e.mu.Lock()
	w, s := e.working, e.snapshot
	e.mu.Unlock()

	var p dub.Patch
	if w.OriginalText != s.OriginalText {
		p.OriginalText = &w.OriginalText
	}
	if w.TranslatedText != s.TranslatedText {
		p.TranslatedText = &w.TranslatedText
	}
	if w.Instructions != s.Instructions {
		p.Instructions = &w.Instructions
	}
	if w.Speaker != s.Speaker {
		p.Speaker = &w.Speaker
	}
	if w.Start != s.Start || w.End != s.End {
		p.Start, p.End = &w.Start, &w.End
	}

	u, err := e.store.Update(e.id, p)
	if err != nil {
		return dub.Utterance{}, err
	}
	f := fieldsOf(u)
	e.mu.Lock()
	e.working, e.snapshot = f, f
	e.mu.Unlock()
	return u, nil
}

// MirrorTimes receives provisional drag times. The drag already wrote them
// to the store, so the snapshot follows as well. Other ids are ignored.
func (e *Editor) MirrorTimes(id string, start, end float64) {
	if id != e.id {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.working.Start, e.working.End = start, end
	e.snapshot.Start, e.snapshot.End = start, end
}

// Working returns the stored utterance with the working values applied.
func (e *Editor) Working() (dub.Utterance, error) {
	u, err := e.store.Get(e.id)
	if err != nil {
		return dub.Utterance{}, err
	}
	f := e.Fields()
	u.OriginalText = f.OriginalText
	u.TranslatedText = f.TranslatedText
	u.Instructions = f.Instructions
	u.Speaker = f.Speaker
	if !u.Muted {
		u.Translated = dub.Span{Start: f.Start, End: f.End}
	}
	return u, nil
}

// Absorb takes u, as stored after a regeneration of the given kind, as the
// new snapshot. The end time always follows, and for a translation so does
// the translated text. Other working values follow only if they were not
// edited, so unsaved edits survive.
func (e *Editor) Absorb(u dub.Utterance, kind regen.Kind) {
	if u.ID != e.id {
		return
	}
	stored := fieldsOf(u)
	e.mu.Lock()
	defer e.mu.Unlock()
	w, s := &e.working, e.snapshot
	follow(&w.OriginalText, s.OriginalText, stored.OriginalText)
	follow(&w.Instructions, s.Instructions, stored.Instructions)
	follow(&w.Speaker, s.Speaker, stored.Speaker)
	follow(&w.Start, s.Start, stored.Start)
	if kind == regen.KindTranslation {
		w.TranslatedText = stored.TranslatedText
	} else {
		follow(&w.TranslatedText, s.TranslatedText, stored.TranslatedText)
	}
	w.End = stored.End
	e.snapshot = stored
}

func follow[T comparable](working *T, snapshot, stored T) {
	if *working == snapshot {
		*working = stored
	}
}

// RegenerateTranslation asks for a new translation of the working values.
// On success the working values it was built from are stored with the
// result. On failure nothing changes.
func (e *Editor) RegenerateTranslation(ctx context.Context, instructions string) (dub.Utterance, error) {
	return e.regenerate(ctx, regen.KindTranslation, instructions)
}

// RegenerateDubbing asks for new audio for the working values, which are
// stored with the result as in RegenerateTranslation. A zero
// duration still lands in the store and the editor, and regen.ErrEmptyResult
// is returned.
func (e *Editor) RegenerateDubbing(ctx context.Context, instructions string) (dub.Utterance, error) {
	return e.regenerate(ctx, regen.KindDubbing, instructions)
}

func (e *Editor) regenerate(ctx context.Context, kind regen.Kind, instructions string) (dub.Utterance, error) {
	working, err := e.Working()
	if err != nil {
		return dub.Utterance{}, err
	}
	_, runErr := e.engine.Run(ctx, kind, e.id, instructions, &working)
	if runErr != nil && !errors.Is(runErr, regen.ErrEmptyResult) {
		return dub.Utterance{}, runErr
	}

	u, err := e.store.Get(e.id)
	if err != nil {
		return dub.Utterance{}, err
	}
	e.Absorb(u, kind)
	return u, runErr
}
