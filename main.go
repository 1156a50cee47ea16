package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricelens/pricelens/config"
	"github.com/pricelens/pricelens/internal/analysis"
	"github.com/pricelens/pricelens/internal/condition"
	"github.com/pricelens/pricelens/internal/imaging"
	"github.com/pricelens/pricelens/internal/pricing"
	"github.com/pricelens/pricelens/internal/recognition"
	"github.com/pricelens/pricelens/internal/server"
	"github.com/pricelens/pricelens/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline, store, err := buildPipeline(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build analysis pipeline")
	}
	if store != nil {
		defer store.Close()
	}

	handler := server.NewHandler(pipeline)
	router := server.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().
		Str("port", cfg.Server.Port).
		Str("environment", cfg.Server.Environment).
		Str("recognitionMode", cfg.Recognition.Mode).
		Int("batchSize", cfg.Batch.Size).
		Msg("pricelens server listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

// buildPipeline wires the configured adapters into an analysis pipeline. The
// returned store is non-nil when caching is enabled and must be closed by
// the caller.
func buildPipeline(ctx context.Context, cfg *config.Config) (*analysis.Pipeline, storage.Store, error) {
	var store storage.Store
	if cfg.Cache.Enabled {
		s, err := storage.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		store = s
		log.Info().Str("path", cfg.Cache.Path).Msg("adapter cache enabled")
	}

	var recognizer recognition.Recognizer
	switch cfg.Recognition.Mode {
	case recognition.ModeWebLabel:
		recognizer = recognition.NewWebLabelRecognizer(recognition.ClientOpts{
			BaseURL: cfg.Recognition.BaseURL,
			APIKey:  cfg.Recognition.APIKey,
		})
	case recognition.ModeVisualMatch:
		recognizer = recognition.NewVisualMatchRecognizer(recognition.ClientOpts{
			BaseURL: cfg.Recognition.BaseURL,
			APIKey:  cfg.Recognition.APIKey,
		})
	}
	if store != nil {
		recognizer = recognition.NewCachedRecognizer(recognizer, cfg.Recognition.Mode, store)
	}

	var pricer analysis.Pricer
	if cfg.Recognition.Mode == recognition.ModeWebLabel {
		pricer = pricing.NewClient(pricing.ClientOpts{
			BaseURL: cfg.Pricing.BaseURL,
			APIKey:  cfg.Pricing.APIKey,
		})
	}

	var assessor condition.Assessor
	if cfg.Condition.Enabled {
		apiKey := cfg.Condition.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		gemini, err := condition.NewGeminiAssessor(ctx, apiKey)
		if err != nil {
			return nil, nil, err
		}
		assessor = gemini
		if store != nil {
			assessor = condition.NewCachedAssessor(assessor, store)
		}
		log.Info().Msg("condition assessor initialized")
	}

	pre := imaging.NewPreprocessor(cfg.Imaging.MaxEdge)
	return analysis.NewPipeline(pre, recognizer, pricer, assessor, cfg.Recognition.Mode), store, nil
}
