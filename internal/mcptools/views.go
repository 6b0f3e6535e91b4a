package mcptools

import (
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
)

type spanView struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type utteranceView struct {
	ID             string   `json:"id"`
	Speaker        string   `json:"speaker"`
	OriginalText   string   `json:"original_text"`
	TranslatedText string   `json:"translated_text"`
	Original       spanView `json:"original"`
	Translated     spanView `json:"translated"`
	Instructions   string   `json:"instructions,omitempty"`
	Muted          bool     `json:"muted"`
	Removed        bool     `json:"removed"`
	Overlapping    bool     `json:"overlapping"`
	ZeroDuration   bool     `json:"zero_duration"`
}

func viewOf(u dub.Utterance, r dub.Report) utteranceView {
	return utteranceView{
		ID:             u.ID,
		Speaker:        u.Speaker,
		OriginalText:   u.OriginalText,
		TranslatedText: u.TranslatedText,
		Original:       spanView{u.Original.Start, u.Original.End},
		Translated:     spanView{u.Translated.Start, u.Translated.End},
		Instructions:   u.Instructions,
		Muted:          u.Muted,
		Removed:        u.Removed,
		Overlapping:    r.Overlapping[u.ID],
		ZeroDuration:   r.ZeroDuration[u.ID],
	}
}

type conflictsView struct {
	Clean        bool     `json:"clean"`
	Overlapping  []string `json:"overlapping"`
	ZeroDuration []string `json:"zero_duration"`
}

func conflictsOf(r dub.Report) conflictsView {
	return conflictsView{
		Clean:        r.Clean(),
		Overlapping:  sortedKeys(r.Overlapping),
		ZeroDuration: sortedKeys(r.ZeroDuration),
	}
}

type itemView struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type voiceChangeView struct {
	Speaker string `json:"speaker"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type reportView struct {
	Strategy      string            `json:"strategy"`
	Items         []itemView        `json:"items"`
	Failed        int               `json:"failed"`
	SkippedVoices []voiceChangeView `json:"skipped_voices,omitempty"`
	Replaced      int               `json:"replaced,omitempty"`
}

func reportOf(r regen.Report) reportView {
	v := reportView{
		Strategy: r.Strategy.String(),
		Items:    make([]itemView, len(r.Items)),
		Failed:   len(r.Failed()),
		Replaced: r.Replaced,
	}
	for i, it := range r.Items {
		v.Items[i] = itemView{ID: it.ID}
		if it.Err != nil {
			v.Items[i].Error = it.Err.Error()
		}
	}
	for _, s := range r.SkippedVoices {
		v.SkippedVoices = append(v.SkippedVoices, voiceChangeView{Speaker: s.SpeakerID, From: s.From, To: s.To})
	}
	return v
}

type revertView struct {
	Reverted []string `json:"reverted"`
}
