package app

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/editor"
	"github.com/jwulff/redub/internal/regen"

	tea "github.com/charmbracelet/bubbletea"
)

// action is one entry of a dispatch table.
type action func(m Model) (tea.Model, tea.Cmd)

type binding struct {
	key key.Binding
	do  action
}

// table expands bindings into a map from key string to action.
func table(bs ...binding) map[string]action {
	t := map[string]action{}
	for _, b := range bs {
		for _, k := range b.key.Keys() {
			t[k] = b.do
		}
	}
	return t
}

var (
	timelineActions = table(
		binding{KeyQuit, quit},
		binding{KeyNext, selectBy(1)},
		binding{KeyPrev, selectBy(-1)},
		binding{KeyLeft, nudge(-1)},
		binding{KeyRight, nudge(1)},
		binding{KeyLeftFar, nudge(-10)},
		binding{KeyRightFar, nudge(10)},
		binding{KeyEdit, openEditor},
		binding{KeyMute, toggleMute},
		binding{KeyRemove, toggleRemove},
		binding{KeyTranslate, regenerate(regen.KindTranslation)},
		binding{KeyDub, regenerate(regen.KindDubbing)},
		binding{KeySettings, openSettings},
		binding{KeyRevert, askRevert},
		binding{KeySave, saveSession},
		binding{KeyYank, yank},
		binding{KeyExport, export},
		binding{KeyFinalize, finalize},
		binding{KeyHelp, toggleHelp},
	)

	editorActions = table(
		binding{KeyField, moveField(1)},
		binding{KeyFieldBack, moveField(-1)},
		binding{KeyCommit, saveEditor},
		binding{KeyCancel, cancelEditor},
		binding{KeyEdTrans, regenerate(regen.KindTranslation)},
		binding{KeyEdDub, regenerate(regen.KindDubbing)},
		binding{key.NewBinding(key.WithKeys("ctrl+c")), quit},
	)

	settingsActions = table(
		binding{KeyField, moveField(1)},
		binding{KeyFieldBack, moveField(-1)},
		binding{KeyApply, applySettings},
		binding{KeyCancel, cancelSettings},
		binding{key.NewBinding(key.WithKeys("ctrl+c")), quit},
	)

	confirmActions = table(
		binding{KeyYes, confirmYes},
		binding{KeyNo, confirmNo},
	)
)

func actionsFor(mode Mode) map[string]action {
	switch mode {
	case ModeEditor:
		return editorActions
	case ModeSettings:
		return settingsActions
	case ModeConfirm:
		return confirmActions
	}
	return timelineActions
}

func quit(m Model) (tea.Model, tea.Cmd) {
	return m, tea.Quit
}

func toggleHelp(m Model) (tea.Model, tea.Cmd) {
	m.showHelp = !m.showHelp
	m.help.ShowAll = m.showHelp
	return m, nil
}

func selectBy(delta int) action {
	return func(m Model) (tea.Model, tea.Cmd) {
		us := m.store.List()
		if len(us) == 0 {
			return m, nil
		}
		i := slices.IndexFunc(us, func(u dub.Utterance) bool { return u.ID == m.selected })
		i = min(max(i+delta, 0), len(us)-1)
		m.selected = us[i].ID
		return m, nil
	}
}

func nudge(dx int) action {
	return func(m Model) (tea.Model, tea.Cmd) {
		if m.selected == "" {
			return m, nil
		}
		if _, err := m.timeline.Nudge(m.selected, dx); err != nil {
			return m, m.showError(err)
		}
		m.pullEditorFields()
		m.statusText = fmt.Sprintf("Moved to %s", formatSpan(m.moves.last.Span))
		return m, nil
	}
}

func toggleMute(m Model) (tea.Model, tea.Cmd) {
	u, err := m.store.Get(m.selected)
	if err != nil {
		return m, nil
	}
	if _, err := m.store.SetMuted(u.ID, !u.Muted); err != nil {
		return m, m.showError(err)
	}
	m.timeline.Refresh()
	return m, nil
}

func toggleRemove(m Model) (tea.Model, tea.Cmd) {
	u, err := m.store.Get(m.selected)
	if err != nil {
		return m, nil
	}
	if _, err := m.store.SetRemoved(u.ID, !u.Removed); err != nil {
		return m, m.showError(err)
	}
	m.timeline.Refresh()
	return m, nil
}

// regenerate starts a single-segment regeneration for the selected
// utterance, or the edited one in editor mode. A second request for a
// segment already in flight is ignored.
func regenerate(kind regen.Kind) action {
	return func(m Model) (tea.Model, tea.Cmd) {
		id := m.selected
		var ed *editor.Editor
		instructions := ""
		if m.mode == ModeEditor && m.editor != nil {
			ed = m.editor
			id = ed.ID()
			instructions = ed.Fields().Instructions
		} else {
			u, err := m.store.Get(id)
			if err != nil {
				return m, nil
			}
			instructions = u.Instructions
		}
		if _, running := m.inflight[id]; running {
			return m, nil
		}
		m.inflight[id] = kind
		m.statusText = fmt.Sprintf("Regenerating %s...", kind)
		return m, tea.Batch(regenerateCmd(m.ctx, m.engine, ed, kind, id, instructions), m.spinner.Tick)
	}
}

func openEditor(m Model) (tea.Model, tea.Cmd) {
	ed, err := editor.Open(m.store, m.engine, m.selected)
	if err != nil {
		return m, m.showError(err)
	}
	m.editor = ed
	m.timeline.SetMirror(ed)
	m.form = newForm(
		[]string{"Original", "Translation", "Instructions", "Voice", "Start", "End"},
		editorValues(ed.Fields()),
	)
	m.mode = ModeEditor
	return m, nil
}

const (
	fieldOriginal = iota
	fieldTranslated
	fieldInstructions
	fieldSpeaker
	fieldStart
	fieldEnd
)

func editorValues(f editor.Fields) []string {
	return []string{
		f.OriginalText,
		f.TranslatedText,
		f.Instructions,
		f.Speaker,
		formatSeconds(f.Start),
		formatSeconds(f.End),
	}
}

// pushEditorFields copies form values into the editor. Times that do not
// parse yet are left alone until they do.
func (m *Model) pushEditorFields() {
	if m.editor == nil || m.mode != ModeEditor {
		return
	}
	m.editor.SetOriginalText(m.form.value(fieldOriginal))
	m.editor.SetTranslatedText(m.form.value(fieldTranslated))
	m.editor.SetInstructions(m.form.value(fieldInstructions))
	m.editor.SetSpeaker(m.form.value(fieldSpeaker))
	if v, err := strconv.ParseFloat(m.form.value(fieldStart), 64); err == nil {
		m.editor.SetStart(v)
	}
	if v, err := strconv.ParseFloat(m.form.value(fieldEnd), 64); err == nil {
		m.editor.SetEnd(v)
	}
}

// pullEditorFields refreshes the form from the editor after a drag or a
// regeneration changed its values.
func (m *Model) pullEditorFields() {
	if m.editor == nil || m.mode != ModeEditor {
		return
	}
	for i, v := range editorValues(m.editor.Fields()) {
		if i == fieldStart || i == fieldEnd {
			// Keep the typed text when it already means the same time.
			if cur, err := strconv.ParseFloat(m.form.value(i), 64); err == nil && formatSeconds(cur) == v {
				continue
			}
		}
		m.form.setValue(i, v)
	}
}

func moveField(delta int) action {
	return func(m Model) (tea.Model, tea.Cmd) {
		m.form = m.form.move(delta)
		return m, nil
	}
}

func saveEditor(m Model) (tea.Model, tea.Cmd) {
	if m.editor == nil {
		return m, nil
	}
	if _, err := m.editor.Save(); err != nil {
		return m, m.showError(err)
	}
	m.timeline.Refresh()
	m.pullEditorFields()
	m.statusText = "Segment saved"
	return m, nil
}

func cancelEditor(m Model) (tea.Model, tea.Cmd) {
	if m.editor == nil {
		m.mode = ModeTimeline
		return m, nil
	}
	if !m.editor.HasChanges() {
		m.editor.Close(nil)
		m.closeEditor()
		return m, nil
	}
	m.confirm = &confirmation{
		prompt: "Discard unsaved changes?",
		back:   ModeEditor,
		yes: func(m Model) (tea.Model, tea.Cmd) {
			if m.editor != nil {
				m.editor.Close(func() bool { return true })
			}
			m.closeEditor()
			return m, nil
		},
	}
	m.mode = ModeConfirm
	return m, nil
}

func (m *Model) closeEditor() {
	m.editor = nil
	m.timeline.SetMirror(nil)
	m.form = form{}
	m.mode = ModeTimeline
}

func openSettings(m Model) (tea.Model, tea.Cmd) {
	orig, tr := m.store.Languages()
	labels := []string{"Original language", "Translate language"}
	values := []string{orig, tr}
	m.settings = nil
	for _, sp := range m.store.Speakers() {
		name := sp.DisplayName
		if name == "" {
			name = sp.ID
		}
		labels = append(labels, "Voice: "+name)
		values = append(values, sp.VoiceID)
		m.settings = append(m.settings, sp.ID)
	}
	m.form = newForm(labels, values)
	m.mode = ModeSettings
	return m, nil
}

func cancelSettings(m Model) (tea.Model, tea.Cmd) {
	m.form = form{}
	m.mode = ModeTimeline
	return m, nil
}

func applySettings(m Model) (tea.Model, tea.Cmd) {
	if m.batch {
		return m, m.showError(errors.New("a settings change is still running"))
	}
	next := regen.Settings{
		OriginalLanguage:  m.form.value(0),
		TranslateLanguage: m.form.value(1),
		Voices:            map[string]string{},
	}
	for i, id := range m.settings {
		next.Voices[id] = m.form.value(2 + i)
	}
	strategy := regen.Compare(regen.CurrentSettings(m.store), next).Strategy()

	m.form = form{}
	m.mode = ModeTimeline
	if strategy == regen.StrategyNone {
		m.statusText = "Settings unchanged"
		return m, nil
	}
	m.batch = true
	m.statusText = fmt.Sprintf("Running %s...", strategy)
	return m, tea.Batch(applySettingsCmd(m.ctx, m.dispatcher, next), m.spinner.Tick)
}

func askRevert(m Model) (tea.Model, tea.Cmd) {
	if !m.store.HasPendingEdits() {
		m.statusText = "Nothing to revert"
		return m, nil
	}
	prompt := "Revert every segment to its original timing?"
	if n := len(m.moves.ids); n > 0 {
		prompt = fmt.Sprintf("Revert every segment to its original timing? %d moved by drag.", n)
	}
	m.confirm = &confirmation{
		prompt: prompt,
		back:   ModeTimeline,
		yes: func(m Model) (tea.Model, tea.Cmd) {
			changed := m.store.RevertTimeline()
			m.moves.reset()
			m.timeline.Refresh()
			m.mode = ModeTimeline
			m.statusText = fmt.Sprintf("Reverted %d segment(s)", len(changed))
			return m, nil
		},
	}
	m.mode = ModeConfirm
	return m, nil
}

func confirmYes(m Model) (tea.Model, tea.Cmd) {
	c := m.confirm
	m.confirm = nil
	if c == nil {
		m.mode = ModeTimeline
		return m, nil
	}
	return c.yes(m)
}

func confirmNo(m Model) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		m.mode = m.confirm.back
	} else {
		m.mode = ModeTimeline
	}
	m.confirm = nil
	return m, nil
}

func saveSession(m Model) (tea.Model, tea.Cmd) {
	if m.sessions == nil {
		return m, m.showError(errors.New("no session database configured"))
	}
	return m, saveSessionCmd(m.sessions, m.store)
}

func yank(m Model) (tea.Model, tea.Cmd) {
	u, err := m.store.Get(m.selected)
	if err != nil {
		return m, nil
	}
	return m, copyCmd(u.TranslatedText)
}

func export(m Model) (tea.Model, tea.Cmd) {
	return m, exportCmd(m.vttPath, m.store)
}

// finalize is blocked while any conflict remains.
func finalize(m Model) (tea.Model, tea.Cmd) {
	if err := dub.CanFinalize(m.store.List()); err != nil {
		return m, m.showError(err)
	}
	if m.finalizing {
		return m, nil
	}
	m.finalizing = true
	m.statusText = "Rendering final video..."
	return m, tea.Batch(finalizeCmd(m.ctx, m.engine), m.spinner.Tick)
}
