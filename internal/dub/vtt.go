package dub

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// WriteVTT renders the translated text of every non-removed utterance as a
// WebVTT document, in session order.
func WriteVTT(w io.Writer, utterances []Utterance) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "WEBVTT\n")
	for _, u := range utterances {
		if u.Removed {
			continue
		}
		fmt.Fprintf(bw, "\n%s --> %s\n%s\n",
			vttTimestamp(u.Translated.Start), vttTimestamp(u.Translated.End), u.TranslatedText)
	}
	return bw.Flush()
}

func vttTimestamp(sec float64) string {
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
