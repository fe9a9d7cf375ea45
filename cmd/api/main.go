package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jayanth922/carbontrace/internal/anchor"
	"github.com/jayanth922/carbontrace/internal/api"
	"github.com/jayanth922/carbontrace/internal/auth"
	"github.com/jayanth922/carbontrace/internal/config"
	"github.com/jayanth922/carbontrace/internal/domain"
	"github.com/jayanth922/carbontrace/internal/logging"
	"github.com/jayanth922/carbontrace/internal/outbox"
	persistence "github.com/jayanth922/carbontrace/internal/persistence/postgres"
	"github.com/jayanth922/carbontrace/internal/receipt"
	"github.com/jayanth922/carbontrace/internal/speech"
	httptransport "github.com/jayanth922/carbontrace/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatalw("failed to connect to postgres", "error", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, logger)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	// The reconciler patches through a service without an anchorer so an
	// AttachAnchor call can never re-trigger anchoring.
	patchService := domain.NewService(repo, nil)
	anchorClient := anchor.NewClient(cfg.AnchorServiceURL, cfg.AnchorTimeout)
	reconciler := anchor.NewReconciler(anchorClient, patchService, logger, cfg.AnchorTimeout)

	service := domain.NewService(repo, reconciler)

	var receipts api.ReceiptParser
	if cfg.VisionAPIKey != "" && cfg.GroqAPIKey != "" {
		receipts = receipt.NewClient(receipt.Config{
			VisionAPIKey: cfg.VisionAPIKey,
			GroqAPIKey:   cfg.GroqAPIKey,
			GroqModelID:  cfg.GroqModelID,
		})
	}

	var tts api.SpeechSynthesizer
	if cfg.ElevenLabsAPIKey != "" && cfg.ElevenLabsVoiceID != "" {
		tts = speech.NewClient(speech.Config{
			APIKey:  cfg.ElevenLabsAPIKey,
			VoiceID: cfg.ElevenLabsVoiceID,
		})
	}

	handler := api.NewHandler(service, receipts, tts)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	requestLog := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debugw("request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	})

	// CORS runs outermost so browser preflights are answered before auth.
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.HTTPAddress,
	}, cors(authMiddleware.Wrap(requestLog(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infow("carbontrace api listening", "address", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server error", "error", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err)
	}

	reconciler.Wait()
	dispatcher.Wait()
}
