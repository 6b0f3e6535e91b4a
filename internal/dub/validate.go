package dub

// ViolationKind classifies a temporal conflict.
type ViolationKind int

const (
	ViolationOverlap ViolationKind = iota
	ViolationZeroDuration
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationOverlap:
		return "overlap"
	case ViolationZeroDuration:
		return "zero-duration"
	}
	return "unknown"
}

// Violation marks a conflict on UtteranceID. For overlaps, OtherID names the
// first conflicting neighbour found.
type Violation struct {
	Kind        ViolationKind
	UtteranceID string
	OtherID     string
}

// CheckOverlap reports whether u's translated span intersects any other
// non-removed utterance in all. Intervals are half-open, so abutting spans do
// not conflict. The search stops at the first match: the result holds at most
// one marker.
func CheckOverlap(u Utterance, all []Utterance) []Violation {
	if u.Removed {
		return nil
	}
	for _, o := range all {
		if o.ID == u.ID || o.Removed {
			continue
		}
		if u.Translated.Start < o.Translated.End && o.Translated.Start < u.Translated.End {
			return []Violation{{Kind: ViolationOverlap, UtteranceID: u.ID, OtherID: o.ID}}
		}
	}
	return nil
}

// IsZeroDuration reports whether a non-removed utterance has an empty translated span.
func IsZeroDuration(u Utterance) bool {
	return !u.Removed && u.Translated.Duration() == 0
}

// Report is the validation state of a whole session, keyed by utterance id.
type Report struct {
	Overlapping  map[string]bool
	ZeroDuration map[string]bool
}

// Clean reports whether nothing blocks finalization.
func (r Report) Clean() bool {
	return len(r.Overlapping) == 0 && len(r.ZeroDuration) == 0
}

// Validate computes overlap and zero-duration state for every utterance.
func Validate(all []Utterance) Report {
	r := Report{
		Overlapping:  map[string]bool{},
		ZeroDuration: map[string]bool{},
	}
	for _, u := range all {
		if len(CheckOverlap(u, all)) > 0 {
			r.Overlapping[u.ID] = true
		}
		if IsZeroDuration(u) {
			r.ZeroDuration[u.ID] = true
		}
	}
	return r
}

// CanFinalize returns a *ConflictError when any conflict remains.
func CanFinalize(all []Utterance) error {
	r := Validate(all)
	if r.Clean() {
		return nil
	}
	err := &ConflictError{}
	// Session order keeps the listing stable.
	for _, u := range all {
		if r.Overlapping[u.ID] {
			err.Overlapping = append(err.Overlapping, u.ID)
		}
		if r.ZeroDuration[u.ID] {
			err.ZeroDuration = append(err.ZeroDuration, u.ID)
		}
	}
	return err
}
