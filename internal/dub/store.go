package dub

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Store is the canonical in-memory collection of utterances and speakers for
// one session. Each operation is an atomic merge; concurrent writers resolve
// last-write-wins per field.
type Store struct {
	mu      sync.RWMutex
	session Session
	index   map[string]int
}

// NewStore validates s and returns a store holding a private copy of it.
func NewStore(s Session) (*Store, error) {
	st := &Store{}
	if err := st.Replace(s); err != nil {
		return nil, err
	}
	return st, nil
}

// Replace atomically swaps the whole session. Used by full reprocessing.
func (s *Store) Replace(sess Session) error {
	index := make(map[string]int, len(sess.Utterances))
	for i, u := range sess.Utterances {
		if u.ID == "" {
			return fmt.Errorf("utterance %d: missing id", i)
		}
		if _, dup := index[u.ID]; dup {
			return fmt.Errorf("utterance %d: duplicate id %q", i, u.ID)
		}
		if !u.Translated.valid() || !u.Original.valid() {
			return fmt.Errorf("utterance %q: %w", u.ID, ErrInvalidSpan)
		}
		if u.Muted && u.Removed {
			return fmt.Errorf("utterance %q: cannot be both muted and removed", u.ID)
		}
		index[u.ID] = i
	}

	sess.Utterances = slices.Clone(sess.Utterances)
	sess.Speakers = slices.Clone(sess.Speakers)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	s.index = index
	return nil
}

// Snapshot returns a copy of the full session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.session
	sess.Utterances = slices.Clone(s.session.Utterances)
	sess.Speakers = slices.Clone(s.session.Speakers)
	return sess
}

// Get returns the utterance with the given id.
func (s *Store) Get(id string) (Utterance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Utterance{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return s.session.Utterances[i], nil
}

// Index returns the position of id in the session order.
func (s *Store) Index(id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return -1, fmt.Errorf("index %q: %w", id, ErrNotFound)
	}
	return i, nil
}

// List returns the utterances in session order.
func (s *Store) List() []Utterance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.session.Utterances)
}

// Len returns the number of utterances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.session.Utterances)
}

// Update merges p into the utterance with the given id. The merge is all or
// nothing: an invalid resulting span leaves the utterance untouched.
func (s *Store) Update(id string, p Patch) (Utterance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Utterance{}, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	u := s.session.Utterances[i]

	if p.OriginalText != nil {
		u.OriginalText = *p.OriginalText
	}
	if p.TranslatedText != nil {
		u.TranslatedText = *p.TranslatedText
	}
	if p.Speaker != nil {
		u.Speaker = *p.Speaker
	}
	if p.Instructions != nil {
		u.Instructions = *p.Instructions
	}
	if p.AudioRef != nil {
		u.AudioRef = *p.AudioRef
	}

	// A muted utterance keeps its original span; timing edits land on the
	// span restored at unmute.
	span := &u.Translated
	if u.Muted {
		span = &u.Unmuted
	}
	if p.Start != nil {
		span.Start = *p.Start
	}
	if p.End != nil {
		span.End = *p.End
	}
	if p.Duration != nil {
		span.End = span.Start + *p.Duration
	}
	if !span.valid() {
		return Utterance{}, fmt.Errorf("update %q: span %v: %w", id, *span, ErrInvalidSpan)
	}

	s.session.Utterances[i] = u
	return u, nil
}

// SetMuted toggles mute. Muting clears Removed and snaps the translated span
// to the original span; unmuting restores the span held before muting.
func (s *Store) SetMuted(id string, muted bool) (Utterance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Utterance{}, fmt.Errorf("mute %q: %w", id, ErrNotFound)
	}
	u := s.session.Utterances[i]
	switch {
	case muted && !u.Muted:
		u.Unmuted = u.Translated
		u.Translated = u.Original
		u.Muted = true
		u.Removed = false
	case !muted && u.Muted:
		u.Translated = u.Unmuted
		u.Muted = false
	}
	s.session.Utterances[i] = u
	return u, nil
}

// SetRemoved toggles removal. Removing clears Muted (restoring the pre-mute
// span). The utterance stays in the sequence either way.
func (s *Store) SetRemoved(id string, removed bool) (Utterance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Utterance{}, fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	u := s.session.Utterances[i]
	if removed && u.Muted {
		u.Translated = u.Unmuted
		u.Muted = false
	}
	u.Removed = removed
	s.session.Utterances[i] = u
	return u, nil
}

// HasPendingEdits reports whether any translated span differs from its initial snapshot.
func (s *Store) HasPendingEdits() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.HasPendingEdits()
}

// RevertTimeline restores every translated span to its initial snapshot and
// returns the ids that changed. Muted utterances keep the original span; only
// their restore span is reset.
func (s *Store) RevertTimeline() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for i, u := range s.session.Utterances {
		if u.Muted {
			u.Unmuted = u.Initial
			s.session.Utterances[i] = u
			continue
		}
		if u.Translated == u.Initial {
			continue
		}
		u.Translated = u.Initial
		u.Unmuted = u.Initial
		s.session.Utterances[i] = u
		changed = append(changed, u.ID)
	}
	return changed
}

// Duration returns the session timeline length in seconds.
func (s *Store) Duration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Duration()
}

// Languages returns the original and translation languages.
func (s *Store) Languages() (original, translate string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.OriginalLanguage, s.session.TranslateLanguage
}

// SetLanguages updates the session language pair.
func (s *Store) SetLanguages(original, translate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.OriginalLanguage = original
	s.session.TranslateLanguage = translate
}

// Speakers returns the speaker registry.
func (s *Store) Speakers() []Speaker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.session.Speakers)
}

// SpeakerForVoice returns the first registered speaker using voiceID.
func (s *Store) SpeakerForVoice(voiceID string) (Speaker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sp := range s.session.Speakers {
		if sp.VoiceID == voiceID {
			return sp, true
		}
	}
	return Speaker{}, false
}

// ReassignVoices points each speaker id in voices at its new voice id.
// Utterances holding a reassigned speaker's previous voice follow it, since
// utterances reference voices. All moves are computed against the voices in
// effect before the call, so swaps work. When speakers share a voice, they
// must all move to the same new voice; otherwise ErrSharedVoice is returned
// and nothing changes. The ids of moved utterances are returned.
func (s *Store) ReassignVoices(voices map[string]string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	speakers := slices.Clone(s.session.Speakers)
	for _, speakerID := range slices.Sorted(maps.Keys(voices)) {
		pos := slices.IndexFunc(speakers, func(sp Speaker) bool { return sp.ID == speakerID })
		if pos < 0 {
			return nil, fmt.Errorf("speaker %q not found", speakerID)
		}
		speakers[pos].VoiceID = voices[speakerID]
	}

	moves := map[string]string{}
	for i, sp := range s.session.Speakers {
		prev, next := sp.VoiceID, speakers[i].VoiceID
		to, seen := moves[prev]
		switch {
		case !seen:
			moves[prev] = next
		case to != next:
			return nil, fmt.Errorf("voice %q: speakers would move to %q and %q: %w", prev, to, next, ErrSharedVoice)
		}
	}
	s.session.Speakers = speakers

	var moved []string
	for i, u := range s.session.Utterances {
		if to, ok := moves[u.Speaker]; ok && to != u.Speaker {
			s.session.Utterances[i].Speaker = to
			moved = append(moved, u.ID)
		}
	}
	return moved, nil
}
