package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/jwulff/redub/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// form is a vertical list of labelled text inputs with one focused field.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm(labels, values []string) form {
	f := form{labels: labels, inputs: make([]textinput.Model, len(labels))}
	for i := range labels {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 2000
		if i < len(values) {
			in.SetValue(values[i])
		}
		f.inputs[i] = in
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func (f form) value(i int) string {
	if i < 0 || i >= len(f.inputs) {
		return ""
	}
	return f.inputs[i].Value()
}

func (f *form) setValue(i int, v string) {
	if i >= 0 && i < len(f.inputs) && f.inputs[i].Value() != v {
		f.inputs[i].SetValue(v)
	}
}

func (f form) move(delta int) form {
	if len(f.inputs) == 0 {
		return f
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
	return f
}

func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	if len(f.inputs) == 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f form) view(width int) string {
	labelW := 0
	for _, l := range f.labels {
		labelW = max(labelW, len([]rune(l)))
	}
	var lines []string
	for i, in := range f.inputs {
		in.Width = max(10, width-labelW-4)
		label := padRight(f.labels[i], labelW)
		if i == f.focus {
			label = ui.SelectedStyle.Render("> " + label)
		} else {
			label = ui.DimStyle.Render("  " + label)
		}
		lines = append(lines, label+"  "+in.View())
	}
	return strings.Join(lines, "\n")
}
