package regen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/jwulff/redub/internal/dub"
)

// Strategy is the regeneration plan chosen for a settings change.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyDubbing
	StrategyTranslation
	StrategyFull
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyDubbing:
		return "dubbing-batch"
	case StrategyTranslation:
		return "translation-batch"
	case StrategyFull:
		return "full"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Settings are the session-level values whose change drives regeneration.
type Settings struct {
	OriginalLanguage  string
	TranslateLanguage string
	// Voices maps speaker id to voice id.
	Voices map[string]string
}

// CurrentSettings reads the settings in effect in store.
func CurrentSettings(store *dub.Store) Settings {
	orig, tr := store.Languages()
	s := Settings{OriginalLanguage: orig, TranslateLanguage: tr, Voices: map[string]string{}}
	for _, sp := range store.Speakers() {
		s.Voices[sp.ID] = sp.VoiceID
	}
	return s
}

// Reassignment is one speaker moving from one voice to another.
type Reassignment struct {
	SpeakerID string
	From      string
	To        string
}

// Diff is the set of changes between two settings.
type Diff struct {
	OriginalLanguage  bool
	TranslateLanguage bool
	Reassigned        []Reassignment
}

// Compare returns the changes from old to next. Speakers absent from next keep their voice.
func Compare(old, next Settings) Diff {
	d := Diff{
		OriginalLanguage:  old.OriginalLanguage != next.OriginalLanguage,
		TranslateLanguage: old.TranslateLanguage != next.TranslateLanguage,
	}
	for _, id := range slices.Sorted(maps.Keys(next.Voices)) {
		to := next.Voices[id]
		from, ok := old.Voices[id]
		if ok && from != to {
			d.Reassigned = append(d.Reassigned, Reassignment{SpeakerID: id, From: from, To: to})
		}
	}
	return d
}

// Strategy classifies the diff. Priority: full, translation, dubbing, none.
func (d Diff) Strategy() Strategy {
	switch {
	case d.OriginalLanguage:
		return StrategyFull
	case d.TranslateLanguage:
		return StrategyTranslation
	case len(d.Reassigned) > 0:
		return StrategyDubbing
	}
	return StrategyNone
}

// ItemResult is the outcome of one utterance in a batch.
type ItemResult struct {
	ID        string
	Utterance dub.Utterance
	Err       error
}

// Report describes what Apply did.
type Report struct {
	Strategy Strategy
	Items    []ItemResult
	// SkippedVoices lists voice changes whose dubbing was not scheduled
	// because a higher-priority strategy ran instead.
	SkippedVoices []Reassignment
	// Replaced is the utterance count after a full reprocess.
	Replaced int
}

// Failed returns the batch items that did not succeed, including empty results.
func (r Report) Failed() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Err joins the per-item errors.
func (r Report) Err() error {
	var errs []error
	for _, it := range r.Failed() {
		errs = append(errs, it.Err)
	}
	return errors.Join(errs...)
}

// Dispatcher applies settings changes with the cheapest sufficient regeneration.
type Dispatcher struct {
	engine *Engine
	log    *slog.Logger
	limit  int
}

// NewDispatcher returns a dispatcher running at most limit collaborator calls
// at once. A limit <= 0 means no limit.
func NewDispatcher(engine *Engine, limit int, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{engine: engine, log: log, limit: limit}
}

// Apply classifies next against the current settings and runs the matching
// strategy. The returned error is non-nil only when a full reprocess failed
// or the settings could not be committed; batch failures are per item.
func (d *Dispatcher) Apply(ctx context.Context, next Settings) (Report, error) {
	store := d.engine.Store()
	diff := Compare(CurrentSettings(store), next)
	report := Report{Strategy: diff.Strategy()}

	log := d.log.With("strategy", report.Strategy.String())
	if report.Strategy > StrategyDubbing && len(diff.Reassigned) > 0 {
		report.SkippedVoices = diff.Reassigned
		log.Warn("voice changes not dubbed separately", "count", len(diff.Reassigned))
	}

	switch report.Strategy {
	case StrategyNone:
		return report, nil

	case StrategyFull:
		n, err := d.reprocess(ctx, next)
		if err != nil {
			return report, err
		}
		report.Replaced = n
		log.Info("session reprocessed", "utterances", n)
		return report, nil
	}

	if err := commit(store, next, diff); err != nil {
		return report, err
	}

	var ids []string
	kind := KindTranslation
	if report.Strategy == StrategyDubbing {
		kind = KindDubbing
		changed := map[string]bool{}
		for _, r := range diff.Reassigned {
			changed[r.To] = true
		}
		for _, u := range store.List() {
			if changed[u.Speaker] {
				ids = append(ids, u.ID)
			}
		}
	} else {
		for _, u := range store.List() {
			ids = append(ids, u.ID)
		}
	}

	report.Items = d.batch(ctx, kind, ids)
	log.Info("batch regeneration settled", "items", len(report.Items), "failed", len(report.Failed()))
	return report, nil
}

// batch regenerates every id concurrently and waits for all of them. One
// item's failure never cancels its siblings.
func (d *Dispatcher) batch(ctx context.Context, kind Kind, ids []string) []ItemResult {
	results := make([]ItemResult, len(ids))

	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			// Each utterance carries its own instructions.
			instructions := ""
			if u, err := d.engine.Store().Get(id); err == nil {
				instructions = u.Instructions
			}
			u, err := d.engine.Run(ctx, kind, id, instructions, nil)
			results[i] = ItemResult{ID: id, Utterance: u, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

func (d *Dispatcher) reprocess(ctx context.Context, next Settings) (int, error) {
	store := d.engine.Store()
	base := store.Snapshot()
	base.OriginalLanguage = next.OriginalLanguage
	base.TranslateLanguage = next.TranslateLanguage
	base.Speakers = withVoices(base.Speakers, next.Voices)

	sess, err := Process(ctx, d.engine.Client(), base)
	if err != nil {
		return 0, fmt.Errorf("full reprocess: %w", err)
	}
	if err := store.Replace(sess); err != nil {
		return 0, fmt.Errorf("full reprocess: %w", err)
	}
	return len(sess.Utterances), nil
}

func commit(store *dub.Store, next Settings, diff Diff) error {
	voices := map[string]string{}
	for _, r := range diff.Reassigned {
		voices[r.SpeakerID] = r.To
	}
	if _, err := store.ReassignVoices(voices); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	store.SetLanguages(next.OriginalLanguage, next.TranslateLanguage)
	return nil
}

func withVoices(speakers []dub.Speaker, voices map[string]string) []dub.Speaker {
	out := slices.Clone(speakers)
	for i, sp := range out {
		if v, ok := voices[sp.ID]; ok {
			out[i].VoiceID = v
		}
	}
	return out
}
