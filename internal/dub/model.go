// Package dub holds the dubbing session model: utterances, speakers, the
// in-memory utterance store and the temporal validator.
package dub

import (
	"fmt"

	"github.com/google/uuid"
)

// Span is a time range in seconds.
type Span struct {
	Start float64
	End   float64
}

// Duration returns End - Start.
func (s Span) Duration() float64 { return s.End - s.Start }

func (s Span) valid() bool {
	return s.Start >= 0 && s.End >= s.Start
}

// Utterance is one timed speech segment with original and translated text/timing.
type Utterance struct {
	ID             string
	OriginalText   string
	TranslatedText string

	// Original is fixed once the utterance is created.
	Original Span
	// Translated is the span the dubbed audio occupies.
	Translated Span
	// Initial is the translated span captured at creation, used for revert.
	Initial Span
	// Unmuted holds the translated span to restore when Muted is cleared.
	Unmuted Span

	// Speaker is a voice id, resolved against the session speaker registry.
	Speaker      string
	Instructions string
	AudioRef     string

	Muted   bool
	Removed bool
}

// Speaker is an entry in the session speaker registry.
type Speaker struct {
	ID          string
	DisplayName string
	VoiceID     string
	Gender      string
}

// Session is a snapshot of a dubbing session.
type Session struct {
	ID                string
	MediaPath         string
	MediaDuration     float64
	OriginalLanguage  string
	TranslateLanguage string
	Instructions      string
	Speakers          []Speaker
	Utterances        []Utterance
}

// Duration returns the media duration when known, otherwise the latest end
// time across original and translated spans.
func (s Session) Duration() float64 {
	if s.MediaDuration > 0 {
		return s.MediaDuration
	}
	return spanExtent(s.Utterances)
}

// HasPendingEdits reports whether any translated span differs from its initial snapshot.
func (s Session) HasPendingEdits() bool {
	for _, u := range s.Utterances {
		if u.Translated != u.Initial {
			return true
		}
	}
	return false
}

func spanExtent(us []Utterance) float64 {
	var end float64
	for _, u := range us {
		end = max(end, u.Original.End, u.Translated.End)
	}
	return end
}

// UtteranceParams carries the fields accepted by NewUtterance. Optional fields
// default to their zero value.
type UtteranceParams struct {
	ID             string
	OriginalText   string
	TranslatedText string
	Original       Span
	Translated     Span
	Speaker        string
	Instructions   string
	AudioRef       string
	Muted          bool
	Removed        bool
}

// NewUtterance validates p and returns an utterance with its initial span
// captured. An empty ID gets a fresh UUIDv7.
func NewUtterance(p UtteranceParams) (Utterance, error) {
	if !p.Original.valid() {
		return Utterance{}, fmt.Errorf("original span %v: %w", p.Original, ErrInvalidSpan)
	}
	if !p.Translated.valid() {
		return Utterance{}, fmt.Errorf("translated span %v: %w", p.Translated, ErrInvalidSpan)
	}
	if p.Muted && p.Removed {
		return Utterance{}, fmt.Errorf("utterance cannot be both muted and removed")
	}

	id := p.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	u := Utterance{
		ID:             id,
		OriginalText:   p.OriginalText,
		TranslatedText: p.TranslatedText,
		Original:       p.Original,
		Translated:     p.Translated,
		Initial:        p.Translated,
		Unmuted:        p.Translated,
		Speaker:        p.Speaker,
		Instructions:   p.Instructions,
		AudioRef:       p.AudioRef,
		Muted:          p.Muted,
		Removed:        p.Removed,
	}
	if u.Muted {
		u.Translated = u.Original
	}
	return u, nil
}

// Patch is a field-wise update for Store.Update. Nil fields are left untouched.
type Patch struct {
	OriginalText   *string
	TranslatedText *string
	Start          *float64
	End            *float64
	// Duration sets End to the start time in effect at merge time plus the
	// given duration. It is applied after Start and overrides End.
	Duration     *float64
	Speaker      *string
	Instructions *string
	AudioRef     *string
}

// Ptr returns a pointer to v. Convenience for building patches.
func Ptr[T any](v T) *T { return &v }
