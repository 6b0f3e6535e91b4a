package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/collab/collabtest"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
)

func setup(t *testing.T, stub *collabtest.Stub) (*dub.Store, *regen.Engine) {
	t.Helper()
	a, err := dub.NewUtterance(dub.UtteranceParams{
		ID:             "a",
		OriginalText:   "hola",
		TranslatedText: "hello",
		Original:       dub.Span{Start: 2, End: 4},
		Translated:     dub.Span{Start: 2, End: 4},
		Speaker:        "voice-a",
	})
	if err != nil {
		t.Fatalf("NewUtterance: %v", err)
	}
	st, err := dub.NewStore(dub.Session{
		Speakers:   []dub.Speaker{{ID: "spk-1", DisplayName: "Ana", VoiceID: "voice-a"}},
		Utterances: []dub.Utterance{a},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if stub == nil {
		stub = &collabtest.Stub{}
	}
	return st, regen.NewEngine(st, stub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOpenUnknownID(t *testing.T) {
	st, eng := setup(t, nil)
	if _, err := Open(st, eng, "missing"); !errors.Is(err, dub.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHasChangesIsFieldWise(t *testing.T) {
	st, eng := setup(t, nil)
	ed, err := Open(st, eng, "a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ed.HasChanges() {
		t.Fatal("fresh editor should have no changes")
	}
	ed.SetTranslatedText("hi")
	if !ed.HasChanges() {
		t.Fatal("expected changes after edit")
	}
	ed.SetTranslatedText("hello")
	if ed.HasChanges() {
		t.Error("restoring the value should clear changes")
	}
}

func TestCloseDiscardWritesNothing(t *testing.T) {
	st, eng := setup(t, nil)
	ed, _ := Open(st, eng, "a")
	ed.SetTranslatedText("discard me")
	ed.SetEnd(9)

	asked := 0
	if ed.Close(func() bool { asked++; return false }) {
		t.Fatal("refused confirmation must keep the editor open")
	}
	if !ed.Close(func() bool { asked++; return true }) {
		t.Fatal("confirmed discard should close")
	}
	if asked != 2 {
		t.Errorf("confirm asked %d times, want 2", asked)
	}
	u, _ := st.Get("a")
	if u.TranslatedText != "hello" || u.Translated.End != 4 {
		t.Errorf("store changed by discard: %+v", u)
	}
}

func TestCloseWithoutChangesSkipsConfirm(t *testing.T) {
	st, eng := setup(t, nil)
	ed, _ := Open(st, eng, "a")
	if !ed.Close(func() bool { t.Error("confirm should not be asked"); return false }) {
		t.Error("unchanged editor should close")
	}
	if !ed.Closed() {
		t.Error("Closed() = false")
	}
}

func TestSaveCommitsAndResetsSnapshot(t *testing.T) {
	st, eng := setup(t, nil)
	ed, _ := Open(st, eng, "a")
	ed.SetTranslatedText("hi there")
	ed.SetInstructions("whisper")
	ed.SetStart(3)
	ed.SetEnd(5)

	u, err := ed.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if u.TranslatedText != "hi there" || u.Instructions != "whisper" {
		t.Errorf("saved = %+v", u)
	}
	if u.Translated != (dub.Span{Start: 3, End: 5}) {
		t.Errorf("span = %v, want {3 5}", u.Translated)
	}
	if ed.HasChanges() {
		t.Error("save should reset the snapshot")
	}
}

func TestSaveInvalidSpanKeepsWorking(t *testing.T) {
	st, eng := setup(t, nil)
	ed, _ := Open(st, eng, "a")
	ed.SetEnd(1)

	if _, err := ed.Save(); !errors.Is(err, dub.ErrInvalidSpan) {
		t.Fatalf("err = %v, want ErrInvalidSpan", err)
	}
	if !ed.HasChanges() {
		t.Error("failed save should keep the unsaved edit")
	}
	u, _ := st.Get("a")
	if u.Translated.End != 4 {
		t.Errorf("end = %v, want 4", u.Translated.End)
	}
}

func TestMirrorTimesIgnoresOtherIDs(t *testing.T) {
	st, eng := setup(t, nil)
	ed, _ := Open(st, eng, "a")

	ed.MirrorTimes("other", 10, 12)
	if f := ed.Fields(); f.Start != 2 || f.End != 4 {
		t.Errorf("fields = %+v, other id must be ignored", f)
	}

	ed.MirrorTimes("a", 6, 8)
	if f := ed.Fields(); f.Start != 6 || f.End != 8 {
		t.Errorf("fields = %+v, want mirrored 6..8", f)
	}
	if ed.HasChanges() {
		t.Error("mirrored drag times are already stored, not unsaved")
	}
}

func TestRegenerateTranslationUsesWorkingValues(t *testing.T) {
	var sent collab.Utterance
	stub := &collabtest.Stub{
		Translation: func(s collab.SessionPayload, i int) (collab.TranslationResult, error) {
			sent = s.Utterances[i]
			return collab.TranslationResult{TranslatedText: "hey", Duration: 1.5, AudioReference: "audio/a.wav"}, nil
		},
	}
	st, eng := setup(t, stub)
	ed, _ := Open(st, eng, "a")
	ed.SetOriginalText("buenas")
	ed.SetInstructions("casual")

	u, err := ed.RegenerateTranslation(context.Background(), "casual")
	if err != nil {
		t.Fatalf("RegenerateTranslation: %v", err)
	}
	if sent.OriginalText != "buenas" || sent.Instructions != "casual" {
		t.Errorf("sent = %+v", sent)
	}
	if u.Translated != (dub.Span{Start: 2, End: 3.5}) || u.AudioRef != "audio/a.wav" {
		t.Errorf("utterance = %+v", u)
	}
	f := ed.Fields()
	if f.TranslatedText != "hey" || f.End != 3.5 {
		t.Errorf("fields = %+v", f)
	}
	if stored, _ := st.Get("a"); stored.OriginalText != "buenas" {
		t.Errorf("stored original text = %q, want the text the translation came from", stored.OriginalText)
	}
	// The instructions edit is still unsaved.
	if !ed.HasChanges() {
		t.Error("unsaved instructions should remain a change")
	}
}

func TestRegenerateDubbingKeepsUnsavedTextAndTimes(t *testing.T) {
	stub := &collabtest.Stub{
		Dubbing: func(collab.SessionPayload, int) (collab.DubbingResult, error) {
			return collab.DubbingResult{AudioReference: "new.wav", Duration: 3}, nil
		},
	}
	st, eng := setup(t, stub)
	ed, _ := Open(st, eng, "a")
	ed.SetTranslatedText("hello there")
	ed.SetStart(10)
	ed.SetEnd(12)

	if _, err := ed.RegenerateDubbing(context.Background(), ""); err != nil {
		t.Fatalf("RegenerateDubbing: %v", err)
	}
	if got := stub.Calls()[0].Session.Utterances[0].TranslatedText; got != "hello there" {
		t.Errorf("sent text = %q, want hello there", got)
	}

	stored, _ := st.Get("a")
	if stored.TranslatedText != "hello there" || stored.AudioRef != "new.wav" {
		t.Errorf("stored = %q, %q; want the audio with its text", stored.TranslatedText, stored.AudioRef)
	}
	if stored.Translated != (dub.Span{Start: 10, End: 13}) {
		t.Errorf("stored span = %v, want {10 13}", stored.Translated)
	}
	want := Fields{OriginalText: "hola", TranslatedText: "hello there", Speaker: "voice-a", Start: 10, End: 13}
	if f := ed.Fields(); f != want {
		t.Errorf("fields = %+v, want %+v", f, want)
	}
	if ed.HasChanges() {
		t.Error("everything the audio was made from is stored")
	}
}

func TestRegenerateTranslationKeepsUnsavedStart(t *testing.T) {
	stub := &collabtest.Stub{
		Translation: func(collab.SessionPayload, int) (collab.TranslationResult, error) {
			return collab.TranslationResult{TranslatedText: "hey", Duration: 1.5}, nil
		},
	}
	st, eng := setup(t, stub)
	ed, _ := Open(st, eng, "a")
	ed.SetTranslatedText("draft")
	ed.SetStart(6)
	ed.SetEnd(20)

	if _, err := ed.RegenerateTranslation(context.Background(), ""); err != nil {
		t.Fatalf("RegenerateTranslation: %v", err)
	}
	stored, _ := st.Get("a")
	if stored.TranslatedText != "hey" || stored.Translated != (dub.Span{Start: 6, End: 7.5}) {
		t.Errorf("stored = %q %v, want hey {6 7.5}", stored.TranslatedText, stored.Translated)
	}
	if f := ed.Fields(); f.TranslatedText != "hey" || f.Start != 6 || f.End != 7.5 {
		t.Errorf("fields = %+v", f)
	}
	if ed.HasChanges() {
		t.Error("editor should match the store")
	}
}

func TestAbsorbKeepsEditsTheActionDidNotReplace(t *testing.T) {
	stub := &collabtest.Stub{
		Dubbing: func(collab.SessionPayload, int) (collab.DubbingResult, error) {
			return collab.DubbingResult{AudioReference: "batch.wav", Duration: 3}, nil
		},
		Translation: func(collab.SessionPayload, int) (collab.TranslationResult, error) {
			return collab.TranslationResult{TranslatedText: "bonjour", Duration: 1}, nil
		},
	}
	st, eng := setup(t, stub)
	ed, _ := Open(st, eng, "a")
	ed.SetTranslatedText("draft")
	ed.SetInstructions("slower")

	u, err := eng.Run(context.Background(), regen.KindDubbing, "a", "", nil)
	if err != nil {
		t.Fatalf("Run dubbing: %v", err)
	}
	ed.Absorb(u, regen.KindDubbing)
	if f := ed.Fields(); f.TranslatedText != "draft" || f.Instructions != "slower" || f.End != 5 {
		t.Errorf("after dubbing fields = %+v", f)
	}
	if !ed.HasChanges() {
		t.Error("unsaved text should remain a change")
	}

	u, err = eng.Run(context.Background(), regen.KindTranslation, "a", "", nil)
	if err != nil {
		t.Fatalf("Run translation: %v", err)
	}
	ed.Absorb(u, regen.KindTranslation)
	if f := ed.Fields(); f.TranslatedText != "bonjour" || f.Instructions != "slower" || f.End != 3 {
		t.Errorf("after translation fields = %+v", f)
	}
}

func TestRegenerateTranslationFailureChangesNothing(t *testing.T) {
	st, eng := setup(t, nil)
	ed, _ := Open(st, eng, "a")

	_, err := ed.RegenerateTranslation(context.Background(), "")
	if !errors.Is(err, collab.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if f := ed.Fields(); f.TranslatedText != "hello" || f.End != 4 {
		t.Errorf("fields = %+v", f)
	}
}

func TestRegenerateDubbingZeroDuration(t *testing.T) {
	stub := &collabtest.Stub{
		Dubbing: func(collab.SessionPayload, int) (collab.DubbingResult, error) {
			return collab.DubbingResult{AudioReference: "audio/a.wav"}, nil
		},
	}
	st, eng := setup(t, stub)
	ed, _ := Open(st, eng, "a")

	u, err := ed.RegenerateDubbing(context.Background(), "")
	if !errors.Is(err, regen.ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
	if u.Translated != (dub.Span{Start: 2, End: 2}) {
		t.Errorf("span = %v, want {2 2}", u.Translated)
	}
	if f := ed.Fields(); f.End != 2 {
		t.Errorf("editor end = %v, want 2", f.End)
	}
	if err := dub.CanFinalize(st.List()); err == nil {
		t.Error("finalize should be blocked")
	}
}
