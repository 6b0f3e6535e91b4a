package mcptools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/collab/collabtest"
	"github.com/jwulff/redub/internal/db"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
)

func utterance(t *testing.T, id string, start, end float64, voice string) dub.Utterance {
	t.Helper()
	u, err := dub.NewUtterance(dub.UtteranceParams{
		ID:             id,
		OriginalText:   "hola " + id,
		TranslatedText: "hello " + id,
		Original:       dub.Span{Start: start, End: end},
		Translated:     dub.Span{Start: start, End: end},
		Speaker:        voice,
		Instructions:   "calm",
	})
	if err != nil {
		t.Fatalf("NewUtterance(%s): %v", id, err)
	}
	return u
}

func newTools(t *testing.T, stub *collabtest.Stub, sessions *db.Store) *Tools {
	t.Helper()
	st, err := dub.NewStore(dub.Session{
		ID:                "sess-1",
		MediaPath:         "clip.mp4",
		OriginalLanguage:  "es",
		TranslateLanguage: "en",
		Speakers: []dub.Speaker{
			{ID: "spk-1", DisplayName: "Ana", VoiceID: "voice-a"},
			{ID: "spk-2", DisplayName: "Ben", VoiceID: "voice-b"},
		},
		Utterances: []dub.Utterance{
			utterance(t, "a", 0, 2, "voice-a"),
			utterance(t, "b", 3, 5, "voice-b"),
		},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if stub == nil {
		stub = &collabtest.Stub{}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := regen.NewEngine(st, stub, log)
	return New(eng, regen.NewDispatcher(eng, 2, log), sessions, log)
}

func call(t *testing.T, tools *Tools, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	for _, st := range tools.ServerTools() {
		if st.Tool.Name != name {
			continue
		}
		res, err := st.Handler(context.Background(), mcp.CallToolRequest{
			Params: mcp.CallToolParams{Name: name, Arguments: args},
		})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return res
	}
	t.Fatalf("no tool named %q", name)
	return nil
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("content is %T, want text", res.Content[0])
	}
	return tc.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", text(t, res))
	}
	var v T
	if err := json.Unmarshal([]byte(text(t, res)), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestServerRegistersEveryTool(t *testing.T) {
	s := NewServer(newTools(t, nil, nil), "test")
	for _, name := range []string{
		"list_utterances", "check_conflicts", "retime_utterance", "set_muted", "set_removed",
		"regenerate_translation", "regenerate_dubbing", "apply_settings", "revert_timeline",
		"save_session", "export_vtt",
	} {
		if s.GetTool(name) == nil {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestListUtterances(t *testing.T) {
	tools := newTools(t, nil, nil)
	got := decode[[]utteranceView](t, call(t, tools, "list_utterances", nil))
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].ID != "b" || got[1].Translated.Start != 3 {
		t.Errorf("second = %+v", got[1])
	}
}

func TestRetimeKeepsDurationAndReportsOverlap(t *testing.T) {
	tools := newTools(t, nil, nil)

	got := decode[utteranceView](t, call(t, tools, "retime_utterance", map[string]any{"id": "a", "start": 2.5}))
	if got.Translated.Start != 2.5 || got.Translated.End != 4.5 {
		t.Errorf("span = %+v, want [2.5,4.5]", got.Translated)
	}
	if !got.Overlapping {
		t.Error("a should overlap b")
	}

	c := decode[conflictsView](t, call(t, tools, "check_conflicts", nil))
	if c.Clean {
		t.Error("conflicts should not be clean")
	}
	if strings.Join(c.Overlapping, ",") != "a,b" {
		t.Errorf("overlapping = %v, want [a b]", c.Overlapping)
	}
}

func TestRetimeWithEndAndDuration(t *testing.T) {
	tools := newTools(t, nil, nil)

	got := decode[utteranceView](t, call(t, tools, "retime_utterance", map[string]any{"id": "a", "start": 0.5, "end": 1.0}))
	if got.Translated.End != 1.0 {
		t.Errorf("end = %v, want 1", got.Translated.End)
	}
	got = decode[utteranceView](t, call(t, tools, "retime_utterance", map[string]any{"id": "a", "start": 0.0, "duration": 0.0}))
	if !got.ZeroDuration {
		t.Error("zero duration should be reported")
	}
}

func TestRetimeErrors(t *testing.T) {
	tools := newTools(t, nil, nil)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing id", map[string]any{"start": 1.0}, `"id"`},
		{"missing start", map[string]any{"id": "a"}, `"start"`},
		{"unknown id", map[string]any{"id": "zz", "start": 1.0}, "not found"},
		{"end before start", map[string]any{"id": "a", "start": 3.0, "end": 1.0}, "invalid span"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, tools, "retime_utterance", tt.args)
			if !res.IsError {
				t.Fatal("expected a tool error")
			}
			if got := text(t, res); !strings.Contains(got, tt.want) {
				t.Errorf("error = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestSetMutedAndRemoved(t *testing.T) {
	tools := newTools(t, nil, nil)

	got := decode[utteranceView](t, call(t, tools, "set_muted", map[string]any{"id": "a", "muted": true}))
	if !got.Muted {
		t.Error("a should be muted")
	}
	got = decode[utteranceView](t, call(t, tools, "set_removed", map[string]any{"id": "b", "removed": true}))
	if !got.Removed {
		t.Error("b should be removed")
	}
}

func TestRegenerateTranslationUsesStoredInstructions(t *testing.T) {
	stub := &collabtest.Stub{
		Translation: func(collab.SessionPayload, int) (collab.TranslationResult, error) {
			return collab.TranslationResult{TranslatedText: "hi", Duration: 1}, nil
		},
	}
	tools := newTools(t, stub, nil)

	got := decode[utteranceView](t, call(t, tools, "regenerate_translation", map[string]any{"id": "b"}))
	if got.TranslatedText != "hi" || got.Translated.End != 4 {
		t.Errorf("result = %+v", got)
	}
	calls := stub.Calls()
	if len(calls) != 1 || calls[0].Instructions != "calm" || calls[0].Index != 1 {
		t.Errorf("calls = %+v", calls)
	}
}

func TestRegenerateDubbingEmptyResult(t *testing.T) {
	stub := &collabtest.Stub{
		Dubbing: func(collab.SessionPayload, int) (collab.DubbingResult, error) {
			return collab.DubbingResult{AudioReference: "a.wav", Duration: 0}, nil
		},
	}
	tools := newTools(t, stub, nil)

	res := call(t, tools, "regenerate_dubbing", map[string]any{"id": "a", "instructions": "slower"})
	if !res.IsError {
		t.Fatal("empty audio should be a tool error")
	}
	if got := text(t, res); !strings.Contains(got, "zero-length") {
		t.Errorf("error = %q", got)
	}
	if calls := stub.Calls(); calls[0].Instructions != "slower" {
		t.Errorf("instructions = %q, want %q", calls[0].Instructions, "slower")
	}
}

func TestApplySettingsVoiceChange(t *testing.T) {
	stub := &collabtest.Stub{
		Dubbing: func(collab.SessionPayload, int) (collab.DubbingResult, error) {
			return collab.DubbingResult{AudioReference: "new.wav", Duration: 1.5}, nil
		},
	}
	tools := newTools(t, stub, nil)

	got := decode[reportView](t, call(t, tools, "apply_settings", map[string]any{
		"voices": map[string]any{"spk-2": "voice-c"},
	}))
	if got.Strategy != "dubbing-batch" {
		t.Errorf("strategy = %q, want dubbing-batch", got.Strategy)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "b" || got.Failed != 0 {
		t.Errorf("items = %+v", got.Items)
	}
}

func TestApplySettingsRejectsBadVoices(t *testing.T) {
	tools := newTools(t, nil, nil)
	res := call(t, tools, "apply_settings", map[string]any{"voices": "voice-c"})
	if !res.IsError {
		t.Error("expected a tool error")
	}
}

func TestRevertTimeline(t *testing.T) {
	tools := newTools(t, nil, nil)
	call(t, tools, "retime_utterance", map[string]any{"id": "b", "start": 10.0})

	got := decode[revertView](t, call(t, tools, "revert_timeline", nil))
	if len(got.Reverted) != 1 || got.Reverted[0] != "b" {
		t.Errorf("reverted = %v, want [b]", got.Reverted)
	}
	u, _ := tools.store().Get("b")
	if u.Translated.Start != 3 {
		t.Errorf("start = %v, want 3", u.Translated.Start)
	}
}

func TestSaveSession(t *testing.T) {
	res := call(t, newTools(t, nil, nil), "save_session", nil)
	if !res.IsError {
		t.Error("save without a database should fail")
	}

	sessions, err := db.Open(filepath.Join(t.TempDir(), "redub.sqlite"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	defer sessions.Close()

	res = call(t, newTools(t, nil, sessions), "save_session", nil)
	if res.IsError {
		t.Fatalf("save_session: %s", text(t, res))
	}
	if _, err := sessions.LoadSession("sess-1"); err != nil {
		t.Errorf("LoadSession: %v", err)
	}
}

func TestExportVTT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.vtt")
	res := call(t, newTools(t, nil, nil), "export_vtt", map[string]any{"path": path})
	if res.IsError {
		t.Fatalf("export_vtt: %s", text(t, res))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(b), "WEBVTT") {
		t.Errorf("output = %q", b)
	}
}
