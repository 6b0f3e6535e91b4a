// Package mcptools exposes a dubbing session as MCP tools, so an assistant
// can inspect the timeline, retime segments and trigger regenerations.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/redub/internal/db"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
)

// Tools holds the session the handlers operate on.
type Tools struct {
	engine     *regen.Engine
	dispatcher *regen.Dispatcher
	sessions   *db.Store
	log        *slog.Logger
}

// New returns tools over engine's store. sessions may be nil, in which case
// save_session fails.
func New(engine *regen.Engine, dispatcher *regen.Dispatcher, sessions *db.Store, log *slog.Logger) *Tools {
	if log == nil {
		log = slog.Default()
	}
	return &Tools{engine: engine, dispatcher: dispatcher, sessions: sessions, log: log}
}

// NewServer returns an MCP server with every tool registered.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("redub", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Edit a dubbing session: list segments, fix timing conflicts, regenerate translations and dubbed audio."),
	)
	s.AddTools(t.ServerTools()...)
	return s
}

// ServerTools returns the tool definitions paired with their handlers.
func (t *Tools) ServerTools() []server.ServerTool {
	id := mcp.WithString("id", mcp.Required(), mcp.Description("Utterance id"))
	instructions := mcp.WithString("instructions", mcp.Description("Guidance for the pipeline. Defaults to the segment's stored instructions."))

	return []server.ServerTool{
		{
			Tool: mcp.NewTool("list_utterances",
				mcp.WithDescription("List every segment in session order with its timing and conflict state."),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: t.listUtterances,
		},
		{
			Tool: mcp.NewTool("check_conflicts",
				mcp.WithDescription("Report overlapping and zero-length segments. Finalizing is blocked until both lists are empty."),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: t.checkConflicts,
		},
		{
			Tool: mcp.NewTool("retime_utterance",
				mcp.WithDescription("Set the dubbed start time of a segment, and optionally its end or duration."),
				id,
				mcp.WithNumber("start", mcp.Required(), mcp.Min(0), mcp.Description("Start time in seconds")),
				mcp.WithNumber("end", mcp.Min(0), mcp.Description("End time in seconds")),
				mcp.WithNumber("duration", mcp.Min(0), mcp.Description("Duration in seconds; overrides end")),
			),
			Handler: t.retimeUtterance,
		},
		{
			Tool: mcp.NewTool("set_muted",
				mcp.WithDescription("Mute or unmute a segment. A muted segment plays the original audio at its original time."),
				id,
				mcp.WithBoolean("muted", mcp.Required()),
			),
			Handler: t.setMuted,
		},
		{
			Tool: mcp.NewTool("set_removed",
				mcp.WithDescription("Remove or restore a segment. Removed segments are left out of conflicts and output."),
				id,
				mcp.WithBoolean("removed", mcp.Required()),
			),
			Handler: t.setRemoved,
		},
		{
			Tool: mcp.NewTool("regenerate_translation",
				mcp.WithDescription("Retranslate one segment and re-synthesize its audio. Keeps the start time."),
				id, instructions,
				mcp.WithOpenWorldHintAnnotation(true),
			),
			Handler: t.regenerate(regen.KindTranslation),
		},
		{
			Tool: mcp.NewTool("regenerate_dubbing",
				mcp.WithDescription("Re-synthesize the audio of one segment from its current translated text."),
				id, instructions,
				mcp.WithOpenWorldHintAnnotation(true),
			),
			Handler: t.regenerate(regen.KindDubbing),
		},
		{
			Tool: mcp.NewTool("apply_settings",
				mcp.WithDescription("Change languages or speaker voices and run the cheapest regeneration that covers the change."),
				mcp.WithString("original_language", mcp.Description("Source language code")),
				mcp.WithString("translate_language", mcp.Description("Target language code")),
				mcp.WithObject("voices", mcp.Description("Map of speaker id to voice id")),
				mcp.WithOpenWorldHintAnnotation(true),
			),
			Handler: t.applySettings,
		},
		{
			Tool: mcp.NewTool("revert_timeline",
				mcp.WithDescription("Restore every segment to the timing it had when the session was created."),
				mcp.WithDestructiveHintAnnotation(true),
			),
			Handler: t.revertTimeline,
		},
		{
			Tool: mcp.NewTool("save_session",
				mcp.WithDescription("Persist the session to the local database."),
				mcp.WithIdempotentHintAnnotation(true),
			),
			Handler: t.saveSession,
		},
		{
			Tool: mcp.NewTool("export_vtt",
				mcp.WithDescription("Write the translated segments as WebVTT subtitles."),
				mcp.WithString("path", mcp.Required(), mcp.Description("Output file path")),
			),
			Handler: t.exportVTT,
		},
	}
}

func (t *Tools) store() *dub.Store { return t.engine.Store() }

func (t *Tools) listUtterances(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	us := t.store().List()
	r := dub.Validate(us)
	out := make([]utteranceView, len(us))
	for i, u := range us {
		out[i] = viewOf(u, r)
	}
	return mcp.NewToolResultJSON(out)
}

func (t *Tools) checkConflicts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(conflictsOf(dub.Validate(t.store().List())))
}

func (t *Tools) retimeUtterance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireFloat("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := dub.Patch{Start: &start}
	args := req.GetArguments()
	if _, ok := args["duration"]; ok {
		p.Duration = dub.Ptr(req.GetFloat("duration", 0))
	} else if _, ok := args["end"]; ok {
		p.End = dub.Ptr(req.GetFloat("end", 0))
	} else {
		// Keep the current duration.
		u, err := t.store().Get(id)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("retime failed", err), nil
		}
		span := u.Translated
		if u.Muted {
			span = u.Unmuted
		}
		p.Duration = dub.Ptr(span.Duration())
	}

	u, err := t.store().Update(id, p)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("retime failed", err), nil
	}
	t.log.Info("utterance retimed", "utterance", id, "start", u.Translated.Start, "end", u.Translated.End)
	return t.utteranceResult(u)
}

func (t *Tools) setMuted(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	muted, err := req.RequireBool("muted")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	u, err := t.store().SetMuted(id, muted)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("set_muted failed", err), nil
	}
	return t.utteranceResult(u)
}

func (t *Tools) setRemoved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	removed, err := req.RequireBool("removed")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	u, err := t.store().SetRemoved(id, removed)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("set_removed failed", err), nil
	}
	return t.utteranceResult(u)
}

func (t *Tools) regenerate(kind regen.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cur, err := t.store().Get(id)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("regenerate failed", err), nil
		}
		instructions := req.GetString("instructions", cur.Instructions)

		u, err := t.engine.Run(ctx, kind, id, instructions, nil)
		if errors.Is(err, regen.ErrEmptyResult) {
			return mcp.NewToolResultErrorf("regenerate %s: %v; segment %s is now zero-length", kind, err, id), nil
		}
		if err != nil {
			return mcp.NewToolResultErrorFromErr(fmt.Sprintf("regenerate %s failed", kind), err), nil
		}
		return t.utteranceResult(u)
	}
}

func (t *Tools) applySettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	next := regen.CurrentSettings(t.store())
	next.OriginalLanguage = req.GetString("original_language", next.OriginalLanguage)
	next.TranslateLanguage = req.GetString("translate_language", next.TranslateLanguage)

	if raw, ok := req.GetArguments()["voices"]; ok {
		voices, ok := raw.(map[string]any)
		if !ok {
			return mcp.NewToolResultError("voices must be an object of speaker id to voice id"), nil
		}
		for speaker, v := range voices {
			voice, ok := v.(string)
			if !ok {
				return mcp.NewToolResultErrorf("voice for speaker %q must be a string", speaker), nil
			}
			next.Voices[speaker] = voice
		}
	}

	report, err := t.dispatcher.Apply(ctx, next)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("apply_settings failed", err), nil
	}
	return mcp.NewToolResultJSON(reportOf(report))
}

func (t *Tools) revertTimeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	changed := t.store().RevertTimeline()
	if changed == nil {
		changed = []string{}
	}
	return mcp.NewToolResultJSON(revertView{Reverted: changed})
}

func (t *Tools) saveSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.sessions == nil {
		return mcp.NewToolResultError("no session database configured"), nil
	}
	snap := t.store().Snapshot()
	if err := t.sessions.SaveSession(snap); err != nil {
		return mcp.NewToolResultErrorFromErr("save_session failed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved session %s (%d utterances).", snap.ID, len(snap.Utterances))), nil
}

func (t *Tools) exportVTT(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("export_vtt failed", err), nil
	}
	err = dub.WriteVTT(f, t.store().List())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return mcp.NewToolResultErrorFromErr("export_vtt failed", err), nil
	}
	return mcp.NewToolResultText("Wrote " + path), nil
}

func (t *Tools) utteranceResult(u dub.Utterance) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(viewOf(u, dub.Validate(t.store().List())))
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
