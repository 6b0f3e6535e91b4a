package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/config"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"

	tea "github.com/charmbracelet/bubbletea"
)

// TestLiveTUIFlow processes a real clip through a running pipeline service,
// then drives the model through one regeneration.
// Skipped unless REDUB_COLLAB_URL and REDUB_LIVE_MEDIA are set.
func TestLiveTUIFlow(t *testing.T) {
	baseURL := os.Getenv(config.EnvCollabURL)
	media := os.Getenv("REDUB_LIVE_MEDIA")
	if baseURL == "" || media == "" {
		t.Skip("pipeline service not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client := collab.NewHTTPClient(baseURL, os.Getenv(config.EnvAPIToken), 5*time.Minute)
	sess, err := regen.Process(ctx, client, dub.Session{
		MediaPath:         media,
		OriginalLanguage:  "es",
		TranslateLanguage: "en",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	fmt.Printf("Processed: %d utterance(s), %d speaker(s)\n", len(sess.Utterances), len(sess.Speakers))

	store, err := dub.NewStore(sess)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	eng := regen.NewEngine(store, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m := New(Options{Context: ctx, Engine: eng, Dispatcher: regen.NewDispatcher(eng, 2, nil)})
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	fmt.Println("=== Initial View ===")
	fmt.Println(m.View())

	if m.selected == "" {
		t.Fatal("expected at least one utterance")
	}
	msg := regenerateCmd(ctx, eng, nil, regen.KindTranslation, m.selected, "")()
	m, _ = applyUpdate(m, msg)
	if m.errorMessage != "" {
		t.Errorf("regenerate: %s", m.errorMessage)
	}

	fmt.Println("\n=== After Regeneration ===")
	fmt.Println(m.View())
}
