// Command redub-mcp serves a dubbing session over MCP on stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/redub/internal/collab"
	"github.com/jwulff/redub/internal/config"
	"github.com/jwulff/redub/internal/db"
	"github.com/jwulff/redub/internal/dub"
	"github.com/jwulff/redub/internal/mcptools"
	"github.com/jwulff/redub/internal/regen"
	"github.com/jwulff/redub/internal/session"
)

var version = "dev"

func main() {
	configPath := flag.String("config", config.DefaultPath(), "config file")
	sessionID := flag.String("session", "", "saved session id (default: most recent)")
	flag.Parse()

	if err := run(*configPath, *sessionID); err != nil {
		fmt.Fprintln(os.Stderr, "redub-mcp:", err)
		os.Exit(1)
	}
}

func run(configPath, sessionID string) error {
	cfg, err := config.Load(configPath)
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

	// stdin carries the protocol, so the token cannot be prompted for.
	ts := config.NewTokenSource(os.Stderr)
	ts.Prompt = nil
	token, err := ts.Token()
	if err != nil {
		return err
	}
	client := collab.NewHTTPClient(cfg.Collaborator.BaseURL, token, cfg.Collaborator.Timeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := session.Open(ctx, sessions, client, session.Source{ID: sessionID})
	if err != nil {
		return err
	}
	store, err := dub.NewStore(sess)
	if err != nil {
		return err
	}
	log.Info("mcp server starting", "session", sess.ID, "utterances", len(sess.Utterances))

	engine := regen.NewEngine(store, client, log)
	tools := mcptools.New(engine, regen.NewDispatcher(engine, cfg.Regeneration.Concurrency, log), sessions, log)
	stop()

	// ServeStdio handles SIGINT and SIGTERM itself.
	return server.ServeStdio(mcptools.NewServer(tools, version),
		server.WithErrorLogger(slog.NewLogLogger(log.Handler(), slog.LevelError)))
}
