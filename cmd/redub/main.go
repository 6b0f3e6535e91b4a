// Command redub is a terminal editor for machine-dubbed video sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/redub/internal/app"
	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/config"
	"github.com/jwulff/redub/internal/db"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/regen"
	"github.com/jwulff/redub/internal/session"
)

type cliFlags struct {
	ConfigPath   string
	SessionID    string
	Media        string
	From         string
	To           string
	Instructions string
	VTTPath      string
	List         bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ConfigPath, "config", config.DefaultPath(), "config file")
	flag.StringVar(&f.SessionID, "session", "", "open a saved session by id (default: most recent)")
	flag.StringVar(&f.Media, "media", "", "start a new session by processing this media file")
	flag.StringVar(&f.From, "from", "", "source language of -media")
	flag.StringVar(&f.To, "to", "", "target language of -media")
	flag.StringVar(&f.Instructions, "instructions", "", "session-wide guidance for the pipeline")
	flag.StringVar(&f.VTTPath, "vtt", "", "subtitle export path (default: next to the media file)")
	flag.BoolVar(&f.List, "list", false, "list saved sessions and exit")
	flag.Parse()
	return f
}

func main() {
	if err := run(parseFlags()); err != nil {
		fmt.Fprintln(os.Stderr, "redub:", app.UserMessage(err))
		os.Exit(1)
	}
}

func run(flags cliFlags) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	log, closeLog, err := cfg.OpenLog()
	if err != nil {
		return err
	}
	defer closeLog()

	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = db.DefaultDBPath()
	}
	sessions, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	if flags.List {
		return listSessions(sessions)
	}

	token, err := config.NewTokenSource(os.Stderr).Token()
	if err != nil {
		return err
	}
	client := collab.NewHTTPClient(cfg.Collaborator.BaseURL, token, cfg.Collaborator.Timeout)

	// Root context cancelled on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.Media != "" {
		fmt.Fprintf(os.Stderr, "Processing %s...\n", flags.Media)
	}
	sess, err := session.Open(ctx, sessions, client, session.Source{
		Media:             flags.Media,
		ID:                flags.SessionID,
		OriginalLanguage:  flags.From,
		TranslateLanguage: flags.To,
		Instructions:      flags.Instructions,
	})
	if err != nil {
		return err
	}
	log.Info("session opened", "session", sess.ID, "media", sess.MediaPath, "utterances", len(sess.Utterances))

	store, err := dub.NewStore(sess)
	if err != nil {
		return err
	}
	engine := regen.NewEngine(store, client, log)
	model := app.New(app.Options{
		Context:    ctx,
		Engine:     engine,
		Dispatcher: regen.NewDispatcher(engine, cfg.Regeneration.Concurrency, log),
		Sessions:   sessions,
		Log:        log,
		VTTPath:    flags.VTTPath,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	log.Info("session closed", "session", sess.ID, "pending_edits", store.HasPendingEdits())
	return nil
}

func listSessions(sessions *db.Store) error {
	infos, err := sessions.ListSessions()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMEDIA\tLANG\tSEGMENTS\tUPDATED")
	for _, s := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s→%s\t%d\t%s\n", s.ID, s.MediaPath, s.OriginalLanguage, s.TranslateLanguage,
			s.Utterances, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
