// Package timeline maps utterance times onto a terminal track and implements
// drag-to-retime over a dub.Store.
package timeline

import (
	"fmt"
	"math"

	"github.com/jwulff/redub/internal/dub"
)

// Mirror receives provisional times while a block is dragged. The editor
// implements it and ignores ids other than its own.
type Mirror interface {
	MirrorTimes(id string, start, end float64)
}

// Change is emitted when a drag is released.
type Change struct {
	ID   string
	Span dub.Span
}

// Block is one utterance placed on its lane, in track cells.
type Block struct {
	ID      string
	X       int
	Width   int
	Overlap bool
	Zero    bool
	Muted   bool
	Removed bool
}

// Lane groups the blocks of every utterance sharing a voice.
type Lane struct {
	VoiceID string
	Label   string
	Blocks  []Block
}

type drag struct {
	id       string
	pointerX int
	offset   float64 // block offset at BeginDrag
	width    float64 // block width, fixed for the whole drag
	scale    float64
	span     dub.Span // last provisional span
}

// View is the timeline view-model. It holds only utterance ids between
// calls; every read goes through the store.
type View struct {
	store  *dub.Store
	width  int
	mirror Mirror
	notify func(Change)
	drag   *drag
	report dub.Report
}

// New returns a view drawing store onto a track trackWidth cells wide.
func New(store *dub.Store, trackWidth int) *View {
	v := &View{store: store, width: max(trackWidth, 1)}
	v.Refresh()
	return v
}

// Resize changes the track width. An in-flight drag keeps its scale.
func (v *View) Resize(trackWidth int) { v.width = max(trackWidth, 1) }

// Width returns the track width in cells.
func (v *View) Width() int { return v.width }

// SetMirror sets the editor mirror; nil disables mirroring.
func (v *View) SetMirror(m Mirror) { v.mirror = m }

// OnChange registers the drag-release notification.
func (v *View) OnChange(fn func(Change)) { v.notify = fn }

// Scale returns cells per second. It is 0 for an empty session.
func (v *View) Scale() float64 {
	d := v.store.Duration()
	if d <= 0 {
		return 0
	}
	return float64(v.width) / d
}

// Refresh recomputes the conflict state from the store.
func (v *View) Refresh() { v.report = dub.Validate(v.store.List()) }

// Report returns the conflict state as of the last refresh or drag move.
func (v *View) Report() dub.Report { return v.report }

// Dragging returns the id of the block being dragged, if any.
func (v *View) Dragging() (string, bool) {
	if v.drag == nil {
		return "", false
	}
	return v.drag.id, true
}

// Lanes returns one lane per distinct voice id in first-appearance order.
// Speakers sharing a voice share a lane, labelled with the first registered
// speaker's display name.
func (v *View) Lanes() []Lane {
	scale := v.Scale()
	var lanes []Lane
	pos := map[string]int{}
	for _, u := range v.store.List() {
		i, ok := pos[u.Speaker]
		if !ok {
			label := u.Speaker
			if sp, found := v.store.SpeakerForVoice(u.Speaker); found && sp.DisplayName != "" {
				label = sp.DisplayName
			}
			i = len(lanes)
			pos[u.Speaker] = i
			lanes = append(lanes, Lane{VoiceID: u.Speaker, Label: label})
		}
		lanes[i].Blocks = append(lanes[i].Blocks, Block{
			ID:      u.ID,
			X:       int(math.Round(u.Translated.Start * scale)),
			Width:   max(1, int(math.Round(u.Translated.Duration()*scale))),
			Overlap: v.report.Overlapping[u.ID],
			Zero:    v.report.ZeroDuration[u.ID],
			Muted:   u.Muted,
			Removed: u.Removed,
		})
	}
	return lanes
}

// HitTest returns the utterance whose block covers cell x on lane. Later
// blocks win where blocks overlap.
func (v *View) HitTest(lane, x int) (string, bool) {
	lanes := v.Lanes()
	if lane < 0 || lane >= len(lanes) {
		return "", false
	}
	blocks := lanes[lane].Blocks
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		if x >= b.X && x < b.X+b.Width {
			return b.ID, true
		}
	}
	return "", false
}

// BeginDrag starts dragging id with the pointer at pointerX. Muted
// utterances are pinned to their original span and cannot be dragged.
func (v *View) BeginDrag(id string, pointerX int) error {
	u, err := v.store.Get(id)
	if err != nil {
		return err
	}
	if u.Muted {
		return fmt.Errorf("drag %q: %w", id, dub.ErrMuted)
	}
	scale := v.Scale()
	if scale <= 0 {
		return fmt.Errorf("drag %q: empty timeline", id)
	}
	v.drag = &drag{
		id:       id,
		pointerX: pointerX,
		offset:   u.Translated.Start * scale,
		width:    u.Translated.Duration() * scale,
		scale:    scale,
		span:     u.Translated,
	}
	return nil
}

// MoveDrag moves the dragged block with the pointer. The offset is clamped
// to the track, the provisional span is written to the store with its
// duration held, conflicts are recomputed and the times are mirrored into
// the editor.
func (v *View) MoveDrag(pointerX int) (dub.Utterance, error) {
	d := v.drag
	if d == nil {
		return dub.Utterance{}, fmt.Errorf("move: no drag in progress")
	}

	offset := d.offset + float64(pointerX-d.pointerX)
	offset = min(offset, float64(v.width)-d.width)
	offset = max(offset, 0)

	duration := d.span.Duration()
	start := offset / d.scale
	end := start + duration
	u, err := v.store.Update(d.id, dub.Patch{Start: &start, End: &end})
	if err != nil {
		return dub.Utterance{}, err
	}
	d.span = u.Translated
	v.Refresh()
	if v.mirror != nil {
		v.mirror.MirrorTimes(d.id, u.Translated.Start, u.Translated.End)
	}
	return u, nil
}

// EndDrag releases the block. The last provisional span stands; there is no
// cancel. The change notification fires once per drag.
func (v *View) EndDrag() (Change, error) {
	d := v.drag
	if d == nil {
		return Change{}, fmt.Errorf("release: no drag in progress")
	}
	v.drag = nil
	v.Refresh()
	c := Change{ID: d.id, Span: d.span}
	if v.notify != nil {
		v.notify(c)
	}
	return c, nil
}

// Nudge drags id by dx cells in one step, as the keyboard does.
func (v *View) Nudge(id string, dx int) (Change, error) {
	if err := v.BeginDrag(id, 0); err != nil {
		return Change{}, err
	}
	if _, err := v.MoveDrag(dx); err != nil {
		v.drag = nil
		return Change{}, err
	}
	return v.EndDrag()
}
