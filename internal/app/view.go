package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/ui"
)

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	// Header
	sections = append(sections, m.renderHeader())

	// Status bar
	sections = append(sections, m.renderStatusBar())

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Timeline: ruler then one line per voice lane
	sections = append(sections, m.timeline.Render(m.selected))

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Detail panel for the current mode
	sections = append(sections, m.renderPanel())

	// Error bar
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	// Footer
	sections = append(sections, m.help.View(keyMap{mode: m.mode}))

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("REDUB")
	snap := m.store.Snapshot()

	var media string
	if snap.MediaPath != "" {
		media = ui.DimStyle.Render(" — " + snap.MediaPath)
	}

	orig, tr := m.store.Languages()
	langs := ui.DimStyle.Render(fmt.Sprintf(" [%s → %s]", orig, tr))

	return truncateToWidth(title+media+langs, m.width)
}

func (m Model) renderStatusBar() string {
	r := m.timeline.Report()

	var badge string
	if r.Clean() {
		badge = ui.CleanBadgeStyle.Render("● READY")
	} else {
		badge = ui.WarnTextStyle.Render(fmt.Sprintf("▲ %d overlap, %d zero", len(r.Overlapping), len(r.ZeroDuration)))
	}

	var pending string
	if m.store.HasPendingEdits() {
		label := "EDITED"
		if n := len(m.moves.ids); n > 0 {
			label = fmt.Sprintf("EDITED · %d moved", n)
		}
		pending = "  " + ui.PendingBadgeStyle.Render(label)
	}

	var work string
	if m.busy() {
		work = "  " + m.spinner.View()
	}

	return badge + pending + work + "  " + ui.StatusStyle.Render(m.statusText)
}

func (m Model) renderPanel() string {
	switch m.mode {
	case ModeEditor:
		var lines []string
		title := "EDIT " + m.editor.ID()
		if m.editor.HasChanges() {
			title += " *"
		}
		lines = append(lines, ui.PanelTitleActiveStyle.Render(title))
		lines = append(lines, m.form.view(m.width))
		return strings.Join(lines, "\n")

	case ModeSettings:
		return ui.PanelTitleActiveStyle.Render("SETTINGS") + "\n" + m.form.view(m.width)

	case ModeConfirm:
		prompt := ""
		if m.confirm != nil {
			prompt = m.confirm.prompt
		}
		return ui.WarnTextStyle.Render(prompt) + ui.DimStyle.Render(" [y/n]")
	}
	return m.renderDetail()
}

// renderDetail describes the selected utterance.
func (m Model) renderDetail() string {
	u, err := m.store.Get(m.selected)
	if err != nil {
		return ui.DimStyle.Render("  No segment selected")
	}

	speaker := u.Speaker
	if sp, ok := m.store.SpeakerForVoice(u.Speaker); ok && sp.DisplayName != "" {
		speaker = sp.DisplayName + " (" + u.Speaker + ")"
	}

	var flags []string
	r := m.timeline.Report()
	if r.Overlapping[u.ID] {
		flags = append(flags, ui.ErrorTextStyle.Render("overlap"))
	}
	if r.ZeroDuration[u.ID] {
		flags = append(flags, ui.ErrorTextStyle.Render("zero-length"))
	}
	if u.Muted {
		flags = append(flags, ui.DimStyle.Render("muted"))
	}
	if u.Removed {
		flags = append(flags, ui.DimStyle.Render("removed"))
	}
	if kind, ok := m.inflight[u.ID]; ok {
		flags = append(flags, ui.SpinnerStyle.Render(string(kind)+"..."))
	}

	header := ui.PanelTitleStyle.Render(u.ID) + "  " + speaker
	if len(flags) > 0 {
		header += "  " + strings.Join(flags, " ")
	}

	textW := max(10, m.width-14)
	lines := []string{truncateToWidth(header, m.width)}
	lines = append(lines, detailRow("Original", formatSpan(u.Original), u.OriginalText, textW)...)
	lines = append(lines, detailRow("Dubbed", formatSpan(u.Translated), u.TranslatedText, textW)...)
	if u.Instructions != "" {
		lines = append(lines, ui.DimStyle.Render(padRight("  Notes", 12))+truncateToWidth(u.Instructions, textW))
	}
	return strings.Join(lines, "\n")
}

func detailRow(label, span, text string, width int) []string {
	lines := []string{ui.DimStyle.Render(padRight("  "+label, 12)) + ui.TimestampStyle.Render(span)}
	for _, wl := range wrapText(text, width) {
		lines = append(lines, strings.Repeat(" ", 12)+wl)
	}
	return lines
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

// Helpers

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 2, 64)
}

func formatSpan(s dub.Span) string {
	return fmt.Sprintf("%ss–%ss", formatSeconds(s.Start), formatSeconds(s.End))
}

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
