// Package db persists dubbing sessions in SQLite.
package db

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo summarizes a stored session for listings.
type SessionInfo struct {
	ID                string
	MediaPath         string
	OriginalLanguage  string
	TranslateLanguage string
	Utterances        int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
