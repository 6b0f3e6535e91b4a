package app

import (
	"github.com/charmbracelet/bubbles/key"
)

// Key bindings. Each mode's dispatch table is built from these.
var (
	KeyQuit      = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
	KeyNext      = key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "select"))
	KeyPrev      = key.NewBinding(key.WithKeys("k", "up"))
	KeyLeft      = key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/l", "nudge"))
	KeyRight     = key.NewBinding(key.WithKeys("l", "right"))
	KeyLeftFar   = key.NewBinding(key.WithKeys("H", "shift+left"), key.WithHelp("H/L", "nudge ×10"))
	KeyRightFar  = key.NewBinding(key.WithKeys("L", "shift+right"))
	KeyEdit      = key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("e", "edit"))
	KeyMute      = key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute"))
	KeyRemove    = key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove"))
	KeyTranslate = key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "retranslate"))
	KeyDub       = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "redub"))
	KeySettings  = key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "settings"))
	KeyRevert    = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "revert"))
	KeySave      = key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save"))
	KeyYank      = key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy"))
	KeyExport    = key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "vtt"))
	KeyFinalize  = key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "finalize"))
	KeyHelp      = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help"))

	KeyField     = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field"))
	KeyFieldBack = key.NewBinding(key.WithKeys("shift+tab"))
	KeyCommit    = key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save"))
	KeyApply     = key.NewBinding(key.WithKeys("ctrl+s", "enter"), key.WithHelp("enter", "apply"))
	KeyCancel    = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close"))
	KeyEdTrans   = key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "retranslate"))
	KeyEdDub     = key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "redub"))

	KeyYes = key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes"))
	KeyNo  = key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "no"))
)

// keyMap implements help.KeyMap for the current mode.
type keyMap struct {
	mode Mode
}

func (k keyMap) ShortHelp() []key.Binding {
	switch k.mode {
	case ModeEditor:
		return []key.Binding{KeyField, KeyCommit, KeyEdTrans, KeyEdDub, KeyCancel}
	case ModeSettings:
		return []key.Binding{KeyField, KeyApply, KeyCancel}
	case ModeConfirm:
		return []key.Binding{KeyYes, KeyNo}
	}
	return []key.Binding{KeyNext, KeyLeft, KeyEdit, KeyMute, KeyTranslate, KeyDub, KeySave, KeyHelp, KeyQuit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	if k.mode != ModeTimeline {
		return [][]key.Binding{k.ShortHelp()}
	}
	return [][]key.Binding{
		{KeyNext, KeyLeft, KeyLeftFar, KeyEdit},
		{KeyMute, KeyRemove, KeyTranslate, KeyDub},
		{KeySettings, KeyRevert, KeyFinalize},
		{KeySave, KeyYank, KeyExport, KeyHelp, KeyQuit},
	}
}
