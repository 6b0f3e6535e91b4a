// Package collab provides the client and wire types for the AI pipeline
// service: full processing, single-segment regeneration and final rendering.
package collab

import (
	"fmt"

	"github.com/jwulff/redub/internal/dub"
)

// Utterance is the wire form of a dubbing segment.
type Utterance struct {
	ID                  string  `json:"id,omitempty"`
	OriginalText        string  `json:"original_text"`
	TranslatedText      string  `json:"translated_text"`
	OriginalStartTime   float64 `json:"original_start_time"`
	OriginalEndTime     float64 `json:"original_end_time"`
	TranslatedStartTime float64 `json:"translated_start_time"`
	TranslatedEndTime   float64 `json:"translated_end_time"`
	Speaker             string  `json:"speaker"`
	Instructions        string  `json:"instructions,omitempty"`
	AudioReference      string  `json:"audio_reference,omitempty"`
	Muted               bool    `json:"muted,omitempty"`
	Removed             bool    `json:"removed,omitempty"`
}

// Speaker is the wire form of a speaker registry entry.
type Speaker struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	VoiceID     string `json:"voice_id"`
	Gender      string `json:"gender,omitempty"`
}

// SessionPayload is the session sent along with every regeneration request.
type SessionPayload struct {
	ID                string      `json:"id,omitempty"`
	OriginalLanguage  string      `json:"original_language"`
	TranslateLanguage string      `json:"translate_language"`
	Speakers          []Speaker   `json:"speakers"`
	Utterances        []Utterance `json:"utterances"`
}

// ProcessRequest drives the full pipeline for one media file.
type ProcessRequest struct {
	MediaPath         string
	OriginalLanguage  string
	TranslateLanguage string
	Speakers          []Speaker
	Instructions      string
}

// ProcessResult is the full pipeline response.
type ProcessResult struct {
	Utterances    []Utterance `json:"utterances"`
	Speakers      []Speaker   `json:"speakers"`
	MediaDuration float64     `json:"media_duration,omitempty"`
}

// RegenerateRequest is the body of both single-segment regeneration calls.
type RegenerateRequest struct {
	Session        SessionPayload `json:"session"`
	UtteranceIndex int            `json:"utterance_index"`
	Instructions   string         `json:"instructions,omitempty"`
}

// TranslationResult is returned by RegenerateTranslation.
type TranslationResult struct {
	TranslatedText string  `json:"translated_text"`
	Duration       float64 `json:"duration"`
	AudioReference string  `json:"audio_reference,omitempty"`
}

// DubbingResult is returned by RegenerateDubbing.
type DubbingResult struct {
	AudioReference string  `json:"audio_reference"`
	Duration       float64 `json:"duration"`
}

// FinalVideo is returned by GenerateFinalVideo.
type FinalVideo struct {
	VideoReference       string `json:"video_reference"`
	VocalsReference      string `json:"vocals_reference"`
	MergedAudioReference string `json:"merged_audio_reference"`
}

// FromSession converts a session snapshot to its wire form.
func FromSession(s dub.Session) SessionPayload {
	p := SessionPayload{
		ID:                s.ID,
		OriginalLanguage:  s.OriginalLanguage,
		TranslateLanguage: s.TranslateLanguage,
		Speakers:          FromSpeakers(s.Speakers),
		Utterances:        make([]Utterance, len(s.Utterances)),
	}
	for i, u := range s.Utterances {
		p.Utterances[i] = FromUtterance(u)
	}
	return p
}

// FromUtterance converts one utterance to its wire form.
func FromUtterance(u dub.Utterance) Utterance {
	return Utterance{
		ID:                  u.ID,
		OriginalText:        u.OriginalText,
		TranslatedText:      u.TranslatedText,
		OriginalStartTime:   u.Original.Start,
		OriginalEndTime:     u.Original.End,
		TranslatedStartTime: u.Translated.Start,
		TranslatedEndTime:   u.Translated.End,
		Speaker:             u.Speaker,
		Instructions:        u.Instructions,
		AudioReference:      u.AudioRef,
		Muted:               u.Muted,
		Removed:             u.Removed,
	}
}

// FromSpeakers converts the speaker registry to its wire form.
func FromSpeakers(sp []dub.Speaker) []Speaker {
	out := make([]Speaker, len(sp))
	for i, s := range sp {
		out[i] = Speaker{ID: s.ID, DisplayName: s.DisplayName, VoiceID: s.VoiceID, Gender: s.Gender}
	}
	return out
}

// ToSpeakers converts wire speakers back to the registry form.
func ToSpeakers(sp []Speaker) []dub.Speaker {
	out := make([]dub.Speaker, len(sp))
	for i, s := range sp {
		out[i] = dub.Speaker{ID: s.ID, DisplayName: s.DisplayName, VoiceID: s.VoiceID, Gender: s.Gender}
	}
	return out
}

// ToUtterances validates wire utterances and builds fresh session records
// with their initial spans captured.
func ToUtterances(us []Utterance) ([]dub.Utterance, error) {
	out := make([]dub.Utterance, 0, len(us))
	for i, w := range us {
		u, err := dub.NewUtterance(dub.UtteranceParams{
			ID:             w.ID,
			OriginalText:   w.OriginalText,
			TranslatedText: w.TranslatedText,
			Original:       dub.Span{Start: w.OriginalStartTime, End: w.OriginalEndTime},
			Translated:     dub.Span{Start: w.TranslatedStartTime, End: w.TranslatedEndTime},
			Speaker:        w.Speaker,
			Instructions:   w.Instructions,
			AudioRef:       w.AudioReference,
			Muted:          w.Muted,
			Removed:        w.Removed,
		})
		if err != nil {
			return nil, fmt.Errorf("utterance %d: %w", i, err)
		}
		out = append(out, u)
	}
	return out, nil
}
