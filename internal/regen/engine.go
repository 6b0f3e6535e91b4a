// Package regen decides and performs AI regeneration for dubbing segments:
// single-segment translation and dubbing, and settings-driven batches.
package regen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/dub"
)

// ErrEmptyResult is returned when dubbing succeeded at the transport level
// but produced zero-length audio.
var ErrEmptyResult = errors.New("regeneration produced empty audio")

// Kind names a single-segment regeneration action.
type Kind string

const (
	KindTranslation Kind = "translation"
	KindDubbing     Kind = "dubbing"
)

// Engine runs single-segment regenerations against a store.
type Engine struct {
	store  *dub.Store
	client collab.Client
	log    *slog.Logger
}

// NewEngine returns an engine writing results into store.
func NewEngine(store *dub.Store, client collab.Client, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, client: client, log: log}
}

// Store returns the store the engine writes into.
func (e *Engine) Store() *dub.Store { return e.store }

// Client returns the collaborator the engine calls.
func (e *Engine) Client() collab.Client { return e.client }

// Translation regenerates the translated text of id. working, when non-nil,
// replaces the stored utterance in the request (unsaved editor values) and is
// committed along with the result. On success the text is replaced, the end
// time becomes start + duration and the audio reference is stored if one was
// returned. On failure nothing changes.
func (e *Engine) Translation(ctx context.Context, id, instructions string, working *dub.Utterance) (dub.Utterance, error) {
	payload, index, err := e.payload(id, instructions, working)
	if err != nil {
		return dub.Utterance{}, err
	}

	res, err := e.client.RegenerateTranslation(ctx, payload, index, instructions)
	if err != nil {
		e.log.Warn("translation regeneration failed", "utterance", id, "err", err)
		return dub.Utterance{}, fmt.Errorf("regenerate translation: %w", err)
	}
	if res.Duration < 0 {
		return dub.Utterance{}, fmt.Errorf("regenerate translation: duration %v: %w", res.Duration, dub.ErrInvalidSpan)
	}

	patch := dub.Patch{
		TranslatedText: &res.TranslatedText,
		Duration:       &res.Duration,
	}
	if res.AudioReference != "" {
		patch.AudioRef = &res.AudioReference
	}
	commitWorking(&patch, working, KindTranslation)
	u, err := e.store.Update(id, patch)
	if err != nil {
		return dub.Utterance{}, fmt.Errorf("apply translation: %w", err)
	}
	e.log.Info("translation regenerated", "utterance", id, "duration", res.Duration)
	return u, nil
}

// Dubbing regenerates the synthesized audio of id. working is handled as in
// Translation, including its translated text. A zero duration is still
// written, so the zero-duration conflict shows, and ErrEmptyResult is
// returned alongside the updated utterance.
func (e *Engine) Dubbing(ctx context.Context, id, instructions string, working *dub.Utterance) (dub.Utterance, error) {
	payload, index, err := e.payload(id, instructions, working)
	if err != nil {
		return dub.Utterance{}, err
	}

	res, err := e.client.RegenerateDubbing(ctx, payload, index, instructions)
	if err != nil {
		e.log.Warn("dubbing regeneration failed", "utterance", id, "err", err)
		return dub.Utterance{}, fmt.Errorf("regenerate dubbing: %w", err)
	}
	if res.Duration < 0 {
		return dub.Utterance{}, fmt.Errorf("regenerate dubbing: duration %v: %w", res.Duration, dub.ErrInvalidSpan)
	}

	patch := dub.Patch{
		AudioRef: &res.AudioReference,
		Duration: &res.Duration,
	}
	commitWorking(&patch, working, KindDubbing)
	u, err := e.store.Update(id, patch)
	if err != nil {
		return dub.Utterance{}, fmt.Errorf("apply dubbing: %w", err)
	}
	if res.Duration == 0 {
		e.log.Warn("dubbing returned empty audio", "utterance", id)
		return u, fmt.Errorf("utterance %s: %w", id, ErrEmptyResult)
	}
	e.log.Info("dubbing regenerated", "utterance", id, "duration", res.Duration)
	return u, nil
}

// Run dispatches to Translation or Dubbing by kind.
func (e *Engine) Run(ctx context.Context, kind Kind, id, instructions string, working *dub.Utterance) (dub.Utterance, error) {
	switch kind {
	case KindTranslation:
		return e.Translation(ctx, id, instructions, working)
	case KindDubbing:
		return e.Dubbing(ctx, id, instructions, working)
	}
	return dub.Utterance{}, fmt.Errorf("unknown regeneration kind %q", kind)
}

// commitWorking adds the working values a result was generated from to p, so
// the stored text, timing and audio describe the same segment. A muted
// segment keeps its pinned span.
func commitWorking(p *dub.Patch, w *dub.Utterance, kind Kind) {
	if w == nil {
		return
	}
	p.OriginalText = &w.OriginalText
	p.Speaker = &w.Speaker
	if kind == KindDubbing {
		p.TranslatedText = &w.TranslatedText
	}
	if !w.Muted {
		p.Start = &w.Translated.Start
	}
}

func (e *Engine) payload(id, instructions string, working *dub.Utterance) (collab.SessionPayload, int, error) {
	snap := e.store.Snapshot()
	index := slices.IndexFunc(snap.Utterances, func(u dub.Utterance) bool { return u.ID == id })
	if index < 0 {
		return collab.SessionPayload{}, 0, fmt.Errorf("regenerate %q: %w", id, dub.ErrNotFound)
	}
	if working != nil {
		snap.Utterances[index] = *working
	}
	snap.Utterances[index].Instructions = instructions
	return collab.FromSession(snap), index, nil
}
