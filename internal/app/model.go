package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/db"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/editor"
	"github.com/jwulff/redub/internal/regen"
	"github.com/jwulff/redub/internal/timeline"
	"github.com/jwulff/redub/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Mode selects which dispatch table handles keys.
type Mode int

const (
	ModeTimeline Mode = iota
	ModeEditor
	ModeSettings
	ModeConfirm
)

// First screen row of the timeline lanes: header, status, divider, ruler.
const timelineTop = 4

// Options wires a Model to one session.
type Options struct {
	Context    context.Context
	Engine     *regen.Engine
	Dispatcher *regen.Dispatcher
	// Sessions is optional; without it the save action reports an error.
	Sessions *db.Store
	Log      *slog.Logger
	// VTTPath is where subtitles are exported. Defaults next to the media file.
	VTTPath string
}

type confirmation struct {
	prompt string
	yes    action
	back   Mode
}

// moves collects the timeline's change notifications until the next revert.
// The status bar and the revert prompt read it.
type moves struct {
	ids  map[string]bool
	last timeline.Change
}

func (mv *moves) record(c timeline.Change) {
	mv.ids[c.ID] = true
	mv.last = c
}

func (mv *moves) reset() { clear(mv.ids) }

// Model is the root bubbletea model for the redub TUI.
type Model struct {
	ctx        context.Context
	store      *dub.Store
	engine     *regen.Engine
	dispatcher *regen.Dispatcher
	sessions   *db.Store
	log        *slog.Logger
	vttPath    string

	// Timeline
	timeline *timeline.View
	moves    *moves
	selected string

	// Editing
	mode     Mode
	editor   *editor.Editor
	form     form
	settings []string // speaker ids behind the settings voice fields
	confirm  *confirmation

	// In-flight work
	inflight   map[string]regen.Kind
	batch      bool
	finalizing bool
	spinner    spinner.Model

	// UI state
	width    int
	height   int
	help     help.Model
	showHelp bool

	// Errors
	errorMessage   string
	errorTransient bool

	// Status
	statusText string
}

// New creates a Model over the engine's store.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	store := opts.Engine.Store()
	if opts.VTTPath == "" {
		opts.VTTPath = defaultVTTPath(store.Snapshot().MediaPath)
	}

	tl := timeline.New(store, 80-timeline.LabelWidth)
	log := opts.Log
	mv := &moves{ids: map[string]bool{}}
	tl.OnChange(func(c timeline.Change) {
		log.Info("timeline changed", "utterance", c.ID, "start", c.Span.Start, "end", c.Span.End)
		mv.record(c)
	})

	m := Model{
		ctx:        opts.Context,
		store:      store,
		engine:     opts.Engine,
		dispatcher: opts.Dispatcher,
		sessions:   opts.Sessions,
		log:        opts.Log,
		vttPath:    opts.VTTPath,
		timeline:   tl,
		moves:      mv,
		inflight:   map[string]regen.Kind{},
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(ui.SpinnerStyle)),
		help:       help.New(),
		statusText: "Ready",
	}
	if us := store.List(); len(us) > 0 {
		m.selected = us[0].ID
	}
	return m
}

func defaultVTTPath(media string) string {
	if media == "" {
		return "redub.vtt"
	}
	return strings.TrimSuffix(media, filepath.Ext(media)) + ".vtt"
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("redub")
}

// regenerateCmd runs a single-segment regeneration. With an editor open on
// the same utterance, its working values are sent and the result absorbed.
func regenerateCmd(ctx context.Context, engine *regen.Engine, ed *editor.Editor, kind regen.Kind, id, instructions string) tea.Cmd {
	return func() tea.Msg {
		var u dub.Utterance
		var err error
		switch {
		case ed != nil && kind == regen.KindTranslation:
			u, err = ed.RegenerateTranslation(ctx, instructions)
		case ed != nil:
			u, err = ed.RegenerateDubbing(ctx, instructions)
		default:
			u, err = engine.Run(ctx, kind, id, instructions, nil)
		}
		return RegeneratedMsg{ID: id, Kind: kind, Utterance: u, Err: err}
	}
}

// applySettingsCmd runs the dispatcher and reports once everything settled.
func applySettingsCmd(ctx context.Context, d *regen.Dispatcher, next regen.Settings) tea.Cmd {
	return func() tea.Msg {
		report, err := d.Apply(ctx, next)
		return BatchDoneMsg{Report: report, Err: err}
	}
}

// finalizeCmd asks the pipeline to render the final video.
func finalizeCmd(ctx context.Context, engine *regen.Engine) tea.Cmd {
	return func() tea.Msg {
		v, err := engine.Client().GenerateFinalVideo(ctx, collab.FromSession(engine.Store().Snapshot()))
		return FinalVideoMsg{Video: v, Err: err}
	}
}

// saveSessionCmd writes the session snapshot to SQLite.
func saveSessionCmd(sessions *db.Store, store *dub.Store) tea.Cmd {
	return func() tea.Msg {
		return SessionSavedMsg{Err: sessions.SaveSession(store.Snapshot())}
	}
}

// exportCmd writes WebVTT subtitles for the non-removed utterances.
func exportCmd(path string, store *dub.Store) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return ExportedMsg{Path: path, Err: err}
		}
		err = dub.WriteVTT(f, store.List())
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return ExportedMsg{Path: path, Err: err}
	}
}

// copyCmd puts text on the system clipboard.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Err: clipboard.WriteAll(text)}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.timeline.Resize(max(10, msg.Width-timeline.LabelWidth))
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RegeneratedMsg:
		delete(m.inflight, msg.ID)
		m.timeline.Refresh()
		m.pullEditorFields()
		if msg.Err != nil {
			m.log.Warn("regeneration failed", "utterance", msg.ID, "kind", msg.Kind, "err", msg.Err)
			return m, m.showError(msg.Err)
		}
		m.statusText = fmt.Sprintf("Regenerated %s", msg.Kind)
		return m, nil

	case BatchDoneMsg:
		m.batch = false
		m.timeline.Refresh()
		if msg.Err != nil {
			m.log.Error("settings change failed", "strategy", msg.Report.Strategy.String(), "err", msg.Err)
			return m, m.showError(msg.Err)
		}
		m.afterBatch(msg.Report)
		if failed := msg.Report.Failed(); len(failed) > 0 {
			m.errorMessage = fmt.Sprintf("%d of %d segment(s) failed: %s",
				len(failed), len(msg.Report.Items), UserMessage(failed[0].Err))
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		return m, nil

	case FinalVideoMsg:
		m.finalizing = false
		if msg.Err != nil {
			return m, m.showError(msg.Err)
		}
		m.statusText = "Final video: " + msg.Video.VideoReference
		m.log.Info("final video generated", "video", msg.Video.VideoReference,
			"vocals", msg.Video.VocalsReference, "merged", msg.Video.MergedAudioReference)
		return m, nil

	case SessionSavedMsg:
		if msg.Err != nil {
			return m, m.showError(msg.Err)
		}
		m.statusText = "Session saved"
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			return m, m.showError(msg.Err)
		}
		m.statusText = "Subtitles written to " + msg.Path
		return m, nil

	case CopiedMsg:
		if msg.Err != nil {
			return m, m.showError(msg.Err)
		}
		m.statusText = "Copied translation"
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// afterBatch re-anchors selection and the editor after a settings change.
// A full reprocess replaces every id.
func (m *Model) afterBatch(r regen.Report) {
	if _, err := m.store.Get(m.selected); err != nil {
		m.selected = ""
		if us := m.store.List(); len(us) > 0 {
			m.selected = us[0].ID
		}
	}
	if m.editor != nil {
		u, err := m.store.Get(m.editor.ID())
		switch {
		case err != nil:
			m.closeEditor()
		case regenerated(r, u.ID):
			kind := regen.KindDubbing
			if r.Strategy == regen.StrategyTranslation {
				kind = regen.KindTranslation
			}
			m.editor.Absorb(u, kind)
			m.pullEditorFields()
		}
	}

	switch r.Strategy {
	case regen.StrategyNone:
		m.statusText = "Settings unchanged"
	case regen.StrategyFull:
		m.moves.reset()
		m.statusText = fmt.Sprintf("Reprocessed: %d segment(s)", r.Replaced)
	default:
		m.statusText = fmt.Sprintf("%s: %d ok, %d failed", r.Strategy, len(r.Items)-len(r.Failed()), len(r.Failed()))
	}
	if len(r.SkippedVoices) > 0 {
		m.statusText += fmt.Sprintf(" (%d voice change(s) not redubbed)", len(r.SkippedVoices))
	}
}

// regenerated reports whether the batch in r wrote a result for id. Empty
// dubbing output is written too.
func regenerated(r regen.Report, id string) bool {
	for _, it := range r.Items {
		if it.ID == id {
			return it.Err == nil || errors.Is(it.Err, regen.ErrEmptyResult)
		}
	}
	return false
}

func (m Model) busy() bool {
	return m.batch || m.finalizing || len(m.inflight) > 0
}

func (m *Model) showError(err error) tea.Cmd {
	m.errorMessage = UserMessage(err)
	m.errorTransient = true
	return clearTransientErrorCmd()
}

// handleKey looks the key up in the current mode's dispatch table. Unbound
// keys go to the focused form field in the editor and settings modes.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if do, ok := actionsFor(m.mode)[msg.String()]; ok {
		return do(m)
	}
	switch m.mode {
	case ModeEditor:
		var cmd tea.Cmd
		m.form, cmd = m.form.update(msg)
		m.pushEditorFields()
		return m, cmd
	case ModeSettings:
		var cmd tea.Cmd
		m.form, cmd = m.form.update(msg)
		return m, cmd
	}
	return m, nil
}

// handleMouse maps presses on a block to a drag. Motion and release are
// only meaningful while a drag is in progress.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	x := msg.X - timeline.LabelWidth
	_, dragging := m.timeline.Dragging()

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		id, ok := m.timeline.HitTest(msg.Y-timelineTop, x)
		if !ok {
			return m, nil
		}
		m.selected = id
		if err := m.timeline.BeginDrag(id, x); err != nil {
			return m, m.showError(err)
		}

	case tea.MouseActionMotion:
		if !dragging {
			return m, nil
		}
		if _, err := m.timeline.MoveDrag(x); err != nil {
			return m, m.showError(err)
		}
		m.pullEditorFields()

	case tea.MouseActionRelease:
		if !dragging {
			return m, nil
		}
		if _, err := m.timeline.EndDrag(); err != nil {
			return m, m.showError(err)
		}
		m.pullEditorFields()
		m.statusText = fmt.Sprintf("Moved to %s", formatSpan(m.moves.last.Span))
	}
	return m, nil
}
