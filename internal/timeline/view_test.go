package timeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/jwulff/redub/internal/dub"
)

func mustUtterance(t *testing.T, id string, start, end float64, voice string) dub.Utterance {
	t.Helper()
	u, err := dub.NewUtterance(dub.UtteranceParams{
		ID:             id,
		TranslatedText: "line " + id,
		Original:       dub.Span{Start: start, End: end},
		Translated:     dub.Span{Start: start, End: end},
		Speaker:        voice,
	})
	if err != nil {
		t.Fatalf("NewUtterance(%s): %v", id, err)
	}
	return u
}

// newTestView returns a 100-cell view over a 50 second session (scale 2).
func newTestView(t *testing.T, us ...dub.Utterance) (*View, *dub.Store) {
	t.Helper()
	st, err := dub.NewStore(dub.Session{
		MediaDuration: 50,
		Speakers: []dub.Speaker{
			{ID: "spk-1", DisplayName: "Ana", VoiceID: "voice-a"},
			{ID: "spk-2", DisplayName: "Ben", VoiceID: "voice-b"},
			{ID: "spk-3", DisplayName: "Cat", VoiceID: "voice-a"},
		},
		Utterances: us,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return New(st, 100), st
}

type mirrorRecorder struct {
	id         string
	start, end float64
	calls      int
}

func (m *mirrorRecorder) MirrorTimes(id string, start, end float64) {
	m.id, m.start, m.end = id, start, end
	m.calls++
}

func TestScale(t *testing.T) {
	v, _ := newTestView(t, mustUtterance(t, "a", 0, 5, "voice-a"))
	if got := v.Scale(); got != 2 {
		t.Errorf("Scale() = %v, want 2", got)
	}
}

func TestDragShiftsStartByDxOverScale(t *testing.T) {
	v, st := newTestView(t, mustUtterance(t, "a", 3, 8, "voice-a"))

	if err := v.BeginDrag("a", 20); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	u, err := v.MoveDrag(30)
	if err != nil {
		t.Fatalf("MoveDrag: %v", err)
	}
	if u.Translated != (dub.Span{Start: 8, End: 13}) {
		t.Errorf("span = %v, want {8 13}", u.Translated)
	}
	c, err := v.EndDrag()
	if err != nil {
		t.Fatalf("EndDrag: %v", err)
	}
	if c.ID != "a" || c.Span != (dub.Span{Start: 8, End: 13}) {
		t.Errorf("change = %+v", c)
	}
	got, _ := st.Get("a")
	if got.Translated.Duration() != 5 {
		t.Errorf("duration = %v, want 5", got.Translated.Duration())
	}
	if got.Original != (dub.Span{Start: 3, End: 8}) {
		t.Errorf("original moved: %v", got.Original)
	}
}

func TestDragClampsToTrack(t *testing.T) {
	tests := []struct {
		name string
		dx   int
		want dub.Span
	}{
		{"left edge", -100, dub.Span{Start: 0, End: 5}},
		{"right edge", 500, dub.Span{Start: 45, End: 50}},
		{"inside", -2, dub.Span{Start: 9, End: 14}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newTestView(t, mustUtterance(t, "a", 10, 15, "voice-a"))
			c, err := v.Nudge("a", tt.dx)
			if err != nil {
				t.Fatalf("Nudge: %v", err)
			}
			if c.Span != tt.want {
				t.Errorf("span = %v, want %v", c.Span, tt.want)
			}
		})
	}
}

func TestDragRecomputesOverlapLive(t *testing.T) {
	v, _ := newTestView(t, mustUtterance(t, "a", 0, 5, "voice-a"), mustUtterance(t, "b", 6, 11, "voice-b"))
	if !v.Report().Clean() {
		t.Fatalf("initial report = %+v, want clean", v.Report())
	}

	if err := v.BeginDrag("b", 0); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	if _, err := v.MoveDrag(-6); err != nil { // b -> [3,8]
		t.Fatalf("MoveDrag: %v", err)
	}
	r := v.Report()
	if !r.Overlapping["a"] || !r.Overlapping["b"] {
		t.Errorf("overlapping = %v, want a and b", r.Overlapping)
	}

	if _, err := v.MoveDrag(0); err != nil { // back to [6,11]
		t.Fatalf("MoveDrag: %v", err)
	}
	if !v.Report().Clean() {
		t.Errorf("report = %+v, want clean after moving back", v.Report())
	}
	v.EndDrag()
}

func TestDragMirrorsIntoEditor(t *testing.T) {
	v, _ := newTestView(t, mustUtterance(t, "a", 2, 4, "voice-a"))
	m := &mirrorRecorder{}
	v.SetMirror(m)

	if _, err := v.Nudge("a", 4); err != nil {
		t.Fatalf("Nudge: %v", err)
	}
	if m.calls != 1 || m.id != "a" || m.start != 4 || m.end != 6 {
		t.Errorf("mirror = %+v", m)
	}
}

func TestDragNotifiesOnRelease(t *testing.T) {
	v, _ := newTestView(t, mustUtterance(t, "a", 2, 4, "voice-a"))
	var got []Change
	v.OnChange(func(c Change) { got = append(got, c) })

	v.BeginDrag("a", 0)
	v.MoveDrag(1)
	v.MoveDrag(2)
	if len(got) != 0 {
		t.Fatalf("notified %d times before release", len(got))
	}
	v.EndDrag()
	if len(got) != 1 || got[0].Span != (dub.Span{Start: 3, End: 5}) {
		t.Errorf("changes = %+v", got)
	}
	if _, dragging := v.Dragging(); dragging {
		t.Error("drag should be finished")
	}
}

func TestMutedBlockIsPinned(t *testing.T) {
	v, st := newTestView(t, mustUtterance(t, "a", 2, 4, "voice-a"))
	st.SetMuted("a", true)

	err := v.BeginDrag("a", 0)
	if !errors.Is(err, dub.ErrMuted) {
		t.Errorf("err = %v, want ErrMuted", err)
	}
	if _, err := v.MoveDrag(5); err == nil {
		t.Error("MoveDrag without a drag should fail")
	}
}

func TestLanesGroupByVoice(t *testing.T) {
	v, _ := newTestView(t,
		mustUtterance(t, "a", 0, 1, "voice-b"),
		mustUtterance(t, "b", 1, 2, "voice-a"),
		mustUtterance(t, "c", 2, 3, "voice-b"),
		mustUtterance(t, "d", 3, 4, "voice-x"),
	)
	lanes := v.Lanes()
	if len(lanes) != 3 {
		t.Fatalf("lanes = %d, want 3", len(lanes))
	}
	want := []struct {
		voice, label string
		blocks       int
	}{
		{"voice-b", "Ben", 2},
		{"voice-a", "Ana", 1},
		{"voice-x", "voice-x", 1},
	}
	for i, w := range want {
		if lanes[i].VoiceID != w.voice || lanes[i].Label != w.label || len(lanes[i].Blocks) != w.blocks {
			t.Errorf("lane %d = %s/%s/%d, want %s/%s/%d", i,
				lanes[i].VoiceID, lanes[i].Label, len(lanes[i].Blocks), w.voice, w.label, w.blocks)
		}
	}
}

func TestHitTest(t *testing.T) {
	v, _ := newTestView(t, mustUtterance(t, "a", 0, 5, "voice-a"), mustUtterance(t, "b", 10, 12, "voice-b"))

	if id, ok := v.HitTest(0, 9); !ok || id != "a" {
		t.Errorf("HitTest(0, 9) = %q, %v, want a", id, ok)
	}
	if _, ok := v.HitTest(0, 10); ok {
		t.Error("HitTest(0, 10) should miss, block ends at cell 10")
	}
	if id, ok := v.HitTest(1, 21); !ok || id != "b" {
		t.Errorf("HitTest(1, 21) = %q, %v, want b", id, ok)
	}
	if _, ok := v.HitTest(5, 0); ok {
		t.Error("HitTest on a missing lane should miss")
	}
}

func TestRenderShowsLanesAndZeroMarker(t *testing.T) {
	v, st := newTestView(t, mustUtterance(t, "a", 0, 5, "voice-a"), mustUtterance(t, "b", 10, 12, "voice-b"))
	st.Update("b", dub.Patch{Duration: dub.Ptr(0.0)})
	v.Refresh()

	if !v.Report().ZeroDuration["b"] {
		t.Fatal("expected zero-duration b")
	}
	out := v.Render("a")
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want ruler + 2 lanes:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "Ana") || !strings.Contains(lines[2], "Ben") {
		t.Errorf("lane labels missing:\n%s", out)
	}
	if !strings.Contains(lines[2], "|") {
		t.Errorf("zero-duration marker missing:\n%s", out)
	}
}
