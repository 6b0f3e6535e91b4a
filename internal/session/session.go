// Package session resolves which dubbing session a binary works on.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/db"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
)

// ErrNoSession is returned when nothing was requested and the database is empty.
var ErrNoSession = errors.New("no saved session; pass a media file to start one")

// Source selects a session. Media wins over ID; with neither, the most
// recently saved session is opened.
type Source struct {
	Media             string
	ID                string
	OriginalLanguage  string
	TranslateLanguage string
	Instructions      string
}

// Open returns the selected session. A new session processed from Media is
// saved before it is returned.
func Open(ctx context.Context, sessions *db.Store, client collab.Client, src Source) (dub.Session, error) {
	if src.Media != "" {
		if src.OriginalLanguage == "" || src.TranslateLanguage == "" {
			return dub.Session{}, fmt.Errorf("new session for %s: both languages are required", src.Media)
		}
		sess, err := regen.Process(ctx, client, dub.Session{
			MediaPath:         src.Media,
			OriginalLanguage:  src.OriginalLanguage,
			TranslateLanguage: src.TranslateLanguage,
			Instructions:      src.Instructions,
		})
		if err != nil {
			return dub.Session{}, fmt.Errorf("process %s: %w", src.Media, err)
		}
		if err := sessions.SaveSession(sess); err != nil {
			return dub.Session{}, err
		}
		return sess, nil
	}

	id := src.ID
	if id == "" {
		latest, err := sessions.LatestSession()
		if err != nil {
			return dub.Session{}, err
		}
		if latest == nil {
			return dub.Session{}, ErrNoSession
		}
		id = latest.ID
	}
	return sessions.LoadSession(id)
}
