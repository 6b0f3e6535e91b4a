// Package collabtest provides an in-memory collab.Client for tests.
package collabtest

import (
	"context"
	"errors"
	"sync"

	"github.com/jwulff/redub/internal/collab"
)

// Call records one regeneration request seen by a Stub.
type Call struct {
	Op           string
	Session      collab.SessionPayload
	Index        int
	Instructions string
}

// Stub is a collab.Client whose responses come from its func fields. A nil
// field fails the call with collab.ErrTransport.
type Stub struct {
	Process     func(req collab.ProcessRequest) (collab.ProcessResult, error)
	Translation func(session collab.SessionPayload, index int) (collab.TranslationResult, error)
	Dubbing     func(session collab.SessionPayload, index int) (collab.DubbingResult, error)
	Final       func(session collab.SessionPayload) (collab.FinalVideo, error)

	mu    sync.Mutex
	calls []Call
}

var _ collab.Client = (*Stub)(nil)

var errNotStubbed = &collab.TransportError{Op: "stub", Err: errors.New("not stubbed")}

func (s *Stub) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// Calls returns the requests seen so far.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many calls of op were made.
func (s *Stub) Count(op string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (s *Stub) ProcessVideo(ctx context.Context, req collab.ProcessRequest) (collab.ProcessResult, error) {
	s.record(Call{Op: "process", Instructions: req.Instructions})
	if s.Process == nil {
		return collab.ProcessResult{}, errNotStubbed
	}
	return s.Process(req)
}

func (s *Stub) RegenerateTranslation(ctx context.Context, session collab.SessionPayload, index int, instructions string) (collab.TranslationResult, error) {
	s.record(Call{Op: "translation", Session: session, Index: index, Instructions: instructions})
	if s.Translation == nil {
		return collab.TranslationResult{}, errNotStubbed
	}
	return s.Translation(session, index)
}

func (s *Stub) RegenerateDubbing(ctx context.Context, session collab.SessionPayload, index int, instructions string) (collab.DubbingResult, error) {
	s.record(Call{Op: "dubbing", Session: session, Index: index, Instructions: instructions})
	if s.Dubbing == nil {
		return collab.DubbingResult{}, errNotStubbed
	}
	return s.Dubbing(session, index)
}

func (s *Stub) GenerateFinalVideo(ctx context.Context, session collab.SessionPayload) (collab.FinalVideo, error) {
	s.record(Call{Op: "final", Session: session})
	if s.Final == nil {
		return collab.FinalVideo{}, errNotStubbed
	}
	return s.Final(session)
}
