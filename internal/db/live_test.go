package db

import (
	"fmt"
	"os"
	"testing"
)

// TestLiveDatabase opens the real redub database and lists its sessions.
// Skipped if the database doesn't exist.
func TestLiveDatabase(t *testing.T) {
	dbPath := DefaultDBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Skip("database not found at", dbPath)
	}

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions in database")
		return
	}

	for i, s := range sessions {
		fmt.Printf("  %d. %s %s→%s (%d utterances) saved %s\n", i+1, s.ID,
			s.OriginalLanguage, s.TranslateLanguage, s.Utterances,
			s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	sess, err := store.LoadSession(sessions[0].ID)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	fmt.Printf("Latest: %s, %d speakers, pending edits: %v\n",
		sess.MediaPath, len(sess.Speakers), sess.HasPendingEdits())
}
