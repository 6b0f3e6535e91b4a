package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwulff/redub/internal/dub"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		mediaPath TEXT NOT NULL,
		mediaDuration REAL NOT NULL DEFAULT 0,
		originalLanguage TEXT NOT NULL,
		translateLanguage TEXT NOT NULL,
		instructions TEXT NOT NULL DEFAULT '',
		createdAt REAL NOT NULL,
		updatedAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS speakers (
		sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		displayName TEXT NOT NULL,
		voiceId TEXT NOT NULL,
		gender TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (sessionId, id)
	);

	CREATE TABLE IF NOT EXISTS utterances (
		sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		originalText TEXT NOT NULL,
		translatedText TEXT NOT NULL,
		originalStart REAL NOT NULL,
		originalEnd REAL NOT NULL,
		translatedStart REAL NOT NULL,
		translatedEnd REAL NOT NULL,
		initialStart REAL NOT NULL,
		initialEnd REAL NOT NULL,
		unmutedStart REAL NOT NULL,
		unmutedEnd REAL NOT NULL,
		speaker TEXT NOT NULL,
		instructions TEXT NOT NULL DEFAULT '',
		audioRef TEXT NOT NULL DEFAULT '',
		muted INTEGER NOT NULL DEFAULT 0,
		removed INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (sessionId, id)
	);
`

// Store reads and writes dubbing sessions.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "redub", "redub.sqlite")
}

// Open opens the database at path with WAL, creating it and its schema if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession writes sess, replacing its speakers and utterances.
func (s *Store) SaveSession(sess dub.Session) error {
	if sess.ID == "" {
		return errors.New("save session: missing id")
	}
	now := unixFromTime(time.Now())

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO sessions (id, mediaPath, mediaDuration, originalLanguage, translateLanguage, instructions, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mediaPath = excluded.mediaPath,
			mediaDuration = excluded.mediaDuration,
			originalLanguage = excluded.originalLanguage,
			translateLanguage = excluded.translateLanguage,
			instructions = excluded.instructions,
			updatedAt = excluded.updatedAt
	`, sess.ID, sess.MediaPath, sess.MediaDuration, sess.OriginalLanguage, sess.TranslateLanguage,
		sess.Instructions, now, now); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	for _, table := range []string{"speakers", "utterances"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE sessionId = ?`, sess.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, sp := range sess.Speakers {
		if _, err := tx.Exec(`
			INSERT INTO speakers (sessionId, position, id, displayName, voiceId, gender)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sess.ID, i, sp.ID, sp.DisplayName, sp.VoiceID, sp.Gender); err != nil {
			return fmt.Errorf("insert speaker %q: %w", sp.ID, err)
		}
	}

	for i, u := range sess.Utterances {
		if _, err := tx.Exec(`
			INSERT INTO utterances (sessionId, position, id, originalText, translatedText,
				originalStart, originalEnd, translatedStart, translatedEnd,
				initialStart, initialEnd, unmutedStart, unmutedEnd,
				speaker, instructions, audioRef, muted, removed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, sess.ID, i, u.ID, u.OriginalText, u.TranslatedText,
			u.Original.Start, u.Original.End, u.Translated.Start, u.Translated.End,
			u.Initial.Start, u.Initial.End, u.Unmuted.Start, u.Unmuted.End,
			u.Speaker, u.Instructions, u.AudioRef, u.Muted, u.Removed); err != nil {
			return fmt.Errorf("insert utterance %q: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadSession reads the session with the given id.
func (s *Store) LoadSession(id string) (dub.Session, error) {
	var sess dub.Session
	err := s.db.QueryRow(`
		SELECT id, mediaPath, mediaDuration, originalLanguage, translateLanguage, instructions
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.MediaPath, &sess.MediaDuration,
		&sess.OriginalLanguage, &sess.TranslateLanguage, &sess.Instructions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dub.Session{}, fmt.Errorf("load %q: %w", id, ErrSessionNotFound)
		}
		return dub.Session{}, fmt.Errorf("scan session: %w", err)
	}

	if sess.Speakers, err = s.speakers(id); err != nil {
		return dub.Session{}, err
	}
	if sess.Utterances, err = s.utterances(id); err != nil {
		return dub.Session{}, err
	}
	return sess, nil
}

func (s *Store) speakers(sessionID string) ([]dub.Speaker, error) {
	rows, err := s.db.Query(`
		SELECT id, displayName, voiceId, gender
		FROM speakers
		WHERE sessionId = ?
		ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query speakers: %w", err)
	}
	defer rows.Close()

	var out []dub.Speaker
	for rows.Next() {
		var sp dub.Speaker
		if err := rows.Scan(&sp.ID, &sp.DisplayName, &sp.VoiceID, &sp.Gender); err != nil {
			return nil, fmt.Errorf("scan speaker: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) utterances(sessionID string) ([]dub.Utterance, error) {
	rows, err := s.db.Query(`
		SELECT id, originalText, translatedText,
			originalStart, originalEnd, translatedStart, translatedEnd,
			initialStart, initialEnd, unmutedStart, unmutedEnd,
			speaker, instructions, audioRef, muted, removed
		FROM utterances
		WHERE sessionId = ?
		ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query utterances: %w", err)
	}
	defer rows.Close()

	var out []dub.Utterance
	for rows.Next() {
		var u dub.Utterance
		if err := rows.Scan(&u.ID, &u.OriginalText, &u.TranslatedText,
			&u.Original.Start, &u.Original.End, &u.Translated.Start, &u.Translated.End,
			&u.Initial.Start, &u.Initial.End, &u.Unmuted.Start, &u.Unmuted.End,
			&u.Speaker, &u.Instructions, &u.AudioRef, &u.Muted, &u.Removed); err != nil {
			return nil, fmt.Errorf("scan utterance: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// LatestSession returns the most recently saved session, or nil if there is none.
func (s *Store) LatestSession() (*SessionInfo, error) {
	infos, err := s.list(1)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, nil
	}
	return &infos[0], nil
}

// ListSessions returns all sessions, most recently saved first.
func (s *Store) ListSessions() ([]SessionInfo, error) {
	return s.list(-1)
}

func (s *Store) list(limit int) ([]SessionInfo, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.mediaPath, s.originalLanguage, s.translateLanguage,
			(SELECT COUNT(*) FROM utterances u WHERE u.sessionId = s.id),
			s.createdAt, s.updatedAt
		FROM sessions s
		ORDER BY s.updatedAt DESC, s.id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var createdAt, updatedAt float64
		if err := rows.Scan(&info.ID, &info.MediaPath, &info.OriginalLanguage, &info.TranslateLanguage,
			&info.Utterances, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.CreatedAt = timeFromUnix(createdAt)
		info.UpdatedAt = timeFromUnix(updatedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
