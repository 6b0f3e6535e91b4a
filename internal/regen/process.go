package regen

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/dub"
)

// Process runs the full pipeline for base.MediaPath with base's languages,
// speakers and instructions, and returns the session it produced. base's id
// is kept; an empty id gets a fresh UUIDv7. Speakers returned by the service
// replace base's registry.
func Process(ctx context.Context, client collab.Client, base dub.Session) (dub.Session, error) {
	if base.MediaPath == "" {
		return dub.Session{}, fmt.Errorf("process: no media path")
	}
	res, err := client.ProcessVideo(ctx, collab.ProcessRequest{
		MediaPath:         base.MediaPath,
		OriginalLanguage:  base.OriginalLanguage,
		TranslateLanguage: base.TranslateLanguage,
		Speakers:          collab.FromSpeakers(base.Speakers),
		Instructions:      base.Instructions,
	})
	if err != nil {
		return dub.Session{}, err
	}

	us, err := collab.ToUtterances(res.Utterances)
	if err != nil {
		return dub.Session{}, err
	}

	sess := base
	if sess.ID == "" {
		sess.ID = uuid.Must(uuid.NewV7()).String()
	}
	sess.Utterances = us
	if len(res.Speakers) > 0 {
		sess.Speakers = collab.ToSpeakers(res.Speakers)
	}
	if res.MediaDuration > 0 {
		sess.MediaDuration = res.MediaDuration
	}
	return sess, nil
}
