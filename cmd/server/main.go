package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yangwenmai/storeops/internal/api"
	"github.com/yangwenmai/storeops/internal/catalog"
	"github.com/yangwenmai/storeops/internal/chat"
	"github.com/yangwenmai/storeops/internal/config"
	"github.com/yangwenmai/storeops/internal/engine"
	"github.com/yangwenmai/storeops/internal/logging"
	"github.com/yangwenmai/storeops/internal/scan"
	"github.com/yangwenmai/storeops/internal/store"
	"github.com/yangwenmai/storeops/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "storeops-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadEnvFiles(config.DefaultEnvFiles...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	db, err := store.OpenMemory()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	pipeline, err := engine.NewPipeline(s, cat,
		engine.WithLogger(log),
		engine.WithInitialState(cfg.Category, cfg.Persona),
	)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	if err := pipeline.Seed(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	scans, err := scan.NewAnalyzer(cat.Scenarios,
		scan.WithDelay(cfg.ScanDelay),
		scan.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("init analyzer: %w", err)
	}

	session := chat.NewSession(ctx, cat.Matcher(), cat.Chat.Welcome,
		chat.WithReplyDelay(cfg.ChatReplyDelay, cfg.ChatReplyJitter),
		chat.WithSerialize(cfg.ChatSerialize),
		chat.WithLogger(log),
	)
	defer session.Close()

	srv := api.New(api.Deps{
		Store:           s,
		Pipeline:        pipeline,
		Scans:           scans,
		Chat:            session,
		Prompts:         cat.Chat.Prompts,
		SuggestionLimit: cfg.SuggestionLimit,
		CORSOrigin:      cfg.CORSOrigin,
		Logger:          log,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("version", version).Str("port", cfg.Port).
			Str("category", string(cfg.Category)).Str("persona", string(cfg.Persona)).
			Msg("storeops server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		drainTurns(gctx, log, session)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("storeops stopped")
	return nil
}

// drainTurns consumes the session's turn stream so new turns are logged.
// HTTP clients poll the transcript instead.
func drainTurns(ctx context.Context, log zerolog.Logger, s *chat.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case turn, ok := <-s.Turns():
			if !ok {
				return
			}
			log.Debug().Str(logging.ChatSessionKey, s.ID()).
				Str("turn_id", turn.ID).Str("sender", string(turn.Sender)).
				Msg("chat turn")
		}
	}
}
