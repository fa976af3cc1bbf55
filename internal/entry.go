// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/hagal/internal/api"
	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/doctor"
	"github.com/starford/hagal/internal/index"
	"github.com/starford/hagal/internal/mcpserver"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/noteservice"
	"github.com/starford/hagal/internal/prompt"
	"github.com/starford/hagal/internal/sse"
	"github.com/starford/hagal/internal/workspace"
)

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *application) validate() error {
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	return nil
}

// openWorkspace opens the configured workspace root, or discovers one above
// the working directory.
func (a *application) openWorkspace() (*workspace.Workspace, error) {
	if root := a.config.Workspace.Root; root != "" {
		return workspace.Open(root)
	}
	dir := a.workDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("workspace: %w: %w", apperr.ErrConfiguration, err)
		}
		dir = wd
	}
	return workspace.Discover(dir)
}

// DoctorParams are the command-line arguments of one doctor run.
type DoctorParams struct {
	Action string
	Scope  string
	// Note designates the file-scope note as vault/fname.
	Note      string
	Installed []string
	AssumeYes bool
	JSON      bool
}

// RunDoctor runs one doctor action against the workspace and prints the
// summary. Confirmation is asked on the terminal.
func RunDoctor(ctx context.Context, p DoctorParams, opts ...Option) error {
	app := newApplication(opts)
	if err := app.validate(); err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(app.stderr, cfg.App.LogLevel)

	action, err := doctor.ParseAction(p.Action)
	if err != nil {
		return err
	}
	scope, err := doctor.ParseScope(p.Scope)
	if err != nil {
		return err
	}
	ws, err := app.openWorkspace()
	if err != nil {
		return err
	}

	term := prompt.NewTerminal(p.AssumeYes)
	if p.JSON {
		term.Out = app.stderr
	} else {
		term.Out = app.stdout
	}

	dopts := []doctor.Option{
		doctor.WithLogger(logger),
		doctor.WithConfirmer(term),
	}
	if len(p.Installed) > 0 {
		dopts = append(dopts, doctor.WithInventory(doctor.StaticInventory(p.Installed)))
	} else {
		dopts = append(dopts, doctor.WithInventory(prompt.EditorInventory{Command: cfg.Doctor.EditorCommand}))
	}
	if p.Note != "" {
		ref, ok := workspace.ParseRef(p.Note)
		if !ok {
			return fmt.Errorf("doctor: bad note address %q, want vault/fname", p.Note)
		}
		dopts = append(dopts, doctor.WithActiveNote(doctor.FixedNote(ref)))
	}

	res, err := doctor.New(ws, dopts...).Run(ctx, action, scope)
	if err != nil {
		return err
	}

	if p.JSON {
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = fmt.Fprint(app.stdout, prompt.RenderSummary(res))
	return err
}

// RunMCP serves the MCP tools on stdin/stdout until stdin is closed. The
// index is kept fresh by a watcher for the lifetime of the session.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if err := app.validate(); err != nil {
		return err
	}
	cfg := app.config
	// stdout carries the protocol, so logs go to stderr.
	logger := newLogger(app.stderr, cfg.App.LogLevel)

	ws, err := app.openWorkspace()
	if err != nil {
		return err
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, ws, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := noteservice.NewService(ws, db, nil, logger)
	srv := mcpserver.New(svc)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.Watch(gCtx, db, ws, logger, nil)
	})
	g.Go(func() error {
		defer cancel()
		return srv.ServeStdio()
	})
	return g.Wait()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if err := app.validate(); err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app.stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	ws, err := app.openWorkspace()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_root", ws.Root()),
		slog.Int("vaults", len(ws.Vaults())),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, ws, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := noteservice.NewService(ws, db, broker, logger,
		doctor.WithInventory(prompt.EditorInventory{Command: cfg.Doctor.EditorCommand}))
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, db, ws, logger, func(kind string, ref models.NoteRef) {
			broker.PublishNoteEvent(kind, ref, ws.Path(ref))
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		cancel()

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
