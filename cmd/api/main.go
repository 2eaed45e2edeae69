package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/mindwell/backend/internal/config"
	"github.com/zhouzirui/mindwell/backend/internal/handler"
	"github.com/zhouzirui/mindwell/backend/internal/logger"
	"github.com/zhouzirui/mindwell/backend/internal/model/resource"
	"github.com/zhouzirui/mindwell/backend/internal/service/reply"
	"github.com/zhouzirui/mindwell/backend/internal/service/triage"
	"github.com/zhouzirui/mindwell/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.New(cfg.Env.IsProduction(), cfg.Env.LogLevel)
	log.Logger = lg
	if envErr != nil {
		lg.Debug().Err(envErr).Msg("no .env file, continuing with system environment variables only")
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN(), store.WithTimeout(cfg.Store.Timeout))
	if err != nil {
		lg.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open conversation store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			lg.Warn().Err(err).Msg("failed to close conversation store")
		}
	}()
	lg.Info().Str("driver", st.Driver()).Msg("conversation store ready")

	resources := resource.NewMemoryStore(resource.Seed())

	var selector *reply.Selector
	if seed := cfg.Triage.RandomSeed; seed != nil {
		selector = reply.NewSeededSelector(*seed, resources)
		lg.Info().Uint64("seed", *seed).Msg("reply selection is reproducible")
	} else {
		selector = reply.NewSelector(nil, resources)
	}

	engine := triage.NewEngine(st, selector, triage.Config{
		DefaultConversation: cfg.Triage.DefaultConversation,
		TypingDelay:         cfg.Triage.TypingDelay,
		TypingJitter:        cfg.Triage.TypingJitter,
	}, triage.WithLogger(lg.With().Str("component", "triage").Logger()))

	router := handler.NewRouter(handler.Dependencies{
		Engine:         engine,
		Store:          st,
		Resources:      resources,
		Logger:         lg,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	startServer(ctx, lg, cfg.Server, router)
}

func startServer(ctx context.Context, lg zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	lg.Info().Str("addr", addr).Msg("MindWell backend listening")
	if err := runServer(ctx, srv); err != nil {
		lg.Error().Err(err).Msg("server error")
	}
	lg.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
