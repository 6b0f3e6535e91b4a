package timeline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwulff/redub/internal/ui"
)

// LabelWidth is the width of the lane label column left of the track.
const LabelWidth = 12

type cell struct {
	r     rune
	style *lipgloss.Style
}

// Render draws a time ruler and every lane. selected highlights one block.
func (v *View) Render(selected string) string {
	lanes := v.Lanes()
	lines := []string{v.ruler()}
	if len(lanes) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No utterances"))
		return strings.Join(lines, "\n")
	}
	for _, lane := range lanes {
		label := truncate(lane.Label, LabelWidth-1)
		label = ui.LaneLabelStyle.Render(label) + strings.Repeat(" ", LabelWidth-lipgloss.Width(label))
		lines = append(lines, label+v.track(lane, selected))
	}
	return strings.Join(lines, "\n")
}

func (v *View) track(lane Lane, selected string) string {
	cells := make([]cell, v.width)
	for i := range cells {
		cells[i] = cell{r: '·', style: &ui.TrackStyle}
	}

	for _, b := range lane.Blocks {
		r, style := '█', &ui.BlockStyle
		switch {
		case b.Removed:
			r, style = '─', &ui.BlockRemovedStyle
		case b.Muted:
			r, style = '░', &ui.BlockMutedStyle
		case b.Overlap:
			style = &ui.BlockOverlapStyle
		}
		if b.ID == selected {
			style = &ui.BlockSelectedStyle
		}
		for x := b.X; x < b.X+b.Width && x < len(cells); x++ {
			if x >= 0 {
				cells[x] = cell{r: r, style: style}
			}
		}
		if b.Zero && b.X >= 0 && b.X < len(cells) {
			cells[b.X] = cell{r: '|', style: &ui.ZeroMarkerStyle}
		}
	}

	// Render runs of equal style together to keep escape sequences short.
	var sb strings.Builder
	for i := 0; i < len(cells); {
		j := i
		var run []rune
		for j < len(cells) && cells[j].style == cells[i].style {
			run = append(run, cells[j].r)
			j++
		}
		sb.WriteString(cells[i].style.Render(string(run)))
		i = j
	}
	return sb.String()
}

// ruler labels the track with a tick roughly every ten cells.
func (v *View) ruler() string {
	scale := v.Scale()
	row := []rune(strings.Repeat(" ", LabelWidth+v.width))
	if scale > 0 {
		for x := 0; x < v.width; x += 10 {
			label := []rune(fmt.Sprintf("%.0fs", float64(x)/scale))
			copy(row[LabelWidth+x:], label)
		}
	}
	return ui.TimestampStyle.Render(strings.TrimRight(string(row), " "))
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
