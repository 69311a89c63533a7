package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgajardo/backdesk/internal/bulk"
	"github.com/mgajardo/backdesk/internal/config"
	"github.com/mgajardo/backdesk/internal/directory"
	"github.com/mgajardo/backdesk/internal/domain/session"
	"github.com/mgajardo/backdesk/internal/httpapi"
	"github.com/mgajardo/backdesk/internal/outcome"
	"github.com/mgajardo/backdesk/internal/state"
)

// app holds the wired client stack. Commands receive it already
// connected through the root command's PersistentPreRunE.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *state.DB
	journal *state.Journal
	store   *session.Store
	query   *directory.Query
	editor  *directory.Editor
	engine  *bulk.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "backdesk",
		Short:         "Back-office client for the customer directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeactivateCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// connect loads configuration and wires the stack. Logs go to logDst so
// stdout stays clean for command output.
func (a *app) connect(logDst io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewTextHandler(logDst, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureStateDir(cfg.State.Path); err != nil {
		return fmt.Errorf("failed to prepare state path: %w", err)
	}

	db, err := state.New(cfg.State.Path)
	if err != nil {
		return err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return err
	}
	a.db = db

	keeper, err := state.LoadKeeper(cfg.State.KeyPath)
	if err != nil {
		db.Close()
		return err
	}

	repo := state.NewSessionRepository(db, keeper)
	a.journal = state.NewJournal(db, a.logger)
	sink := outcome.Multi{outcome.NewLogger(a.logger), a.journal}

	// The client and the store reference each other: the client pulls
	// tokens from the store and tells it about 401s, the store calls the
	// auth endpoints. The closures read a.store at call time, after it
	// is assigned below.
	client := httpapi.NewClient(httpapi.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.RequestTimeout(),
		Tokens: httpapi.TokenSourceFunc(func() (string, bool) {
			return a.store.Token()
		}),
		OnUnauthorized: func() {
			a.store.Invalidate(context.Background())
		},
		Logger: a.logger,
	})

	a.store = session.NewStore(client, repo, sink, a.logger)
	a.query = directory.NewQuery(client, a.store, 0, a.logger)
	a.editor = directory.NewEditor(client, a.store, a.query, sink, a.logger)
	a.engine = bulk.NewEngine(client, a.store, a.query, sink, a.logger)
	return nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing state store", "error", err)
		}
	}
}

// ensureSession restores the persisted session when none is active yet.
// A revalidation failure that is not a concrete rejection keeps the
// stored session usable, matching what the store does.
func (a *app) ensureSession(ctx context.Context) error {
	if _, ok := a.store.Current(); ok {
		return nil
	}
	active, err := a.store.Restore(ctx)
	switch {
	case active && err != nil:
		a.logger.Warn("session revalidation failed, proceeding with stored session", "error", err)
		return nil
	case err != nil:
		return err
	case !active:
		return fmt.Errorf("%w: run \"backdesk login\" first", session.ErrNotAuthenticated)
	}
	return nil
}

func ensureStateDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o700)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
