// Command chat serves the conversation API: each POST is one turn, carrying
// the user message and the caller-owned history, and returns the signed
// assistant reply.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vivekavani/gita-engine/engine/rag"
	"github.com/vivekavani/gita-engine/engine/semantic"
	"github.com/vivekavani/gita-engine/pkg/llm"
	"github.com/vivekavani/gita-engine/pkg/metrics"
	"github.com/vivekavani/gita-engine/pkg/mid"
	"github.com/vivekavani/gita-engine/pkg/resilience"
)

var met = metrics.New()

var (
	mTurnsTotal  = met.Counter("gita_chat_turns_total", "Conversation turns served")
	mTurnErrors  = met.Counter("gita_chat_turn_errors_total", "Turns that failed")
	mTurnDur     = met.Histogram("gita_chat_turn_duration_seconds", "End-to-end turn time", nil)
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	QdrantURL  string
	Collection string
	CORSOrigin string
	TopK       int
}

func loadConfig() Config {
	topK := 5
	if v := os.Getenv("GITA_TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			slog.Warn("ignoring invalid GITA_TOP_K", "value", v)
		} else {
			topK = n
		}
	}
	return Config{
		Port:       envOr("PORT", "8080"),
		QdrantURL:  envOr("QDRANT_URL", "localhost:6334"),
		Collection: envOr("QDRANT_COLLECTION", "bhagavat_gita"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		TopK:       topK,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met.CollectRuntime("gita_chat", 15*time.Second)
	met.ServeAsync(9092)

	vs, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return err
	}
	defer vs.Close()

	client, err := llm.New(llm.DefaultConfig(os.Getenv("OPENAI_API_KEY")))
	if err != nil {
		return err
	}

	breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)
	retriever := rag.NewRetriever(client, vs, breaker, logger)
	svc := rag.New(retriever, client, rag.Options{TopK: cfg.TopK}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/chat", handleChat(svc, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("gita-chat"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("chat API starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message string        `json:"message"`
	History []llm.Message `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func handleChat(svc *rag.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
			http.Error(w, `{"error":"message required"}`, http.StatusBadRequest)
			return
		}

		start := time.Now()
		reply, err := svc.HandleTurn(r.Context(), req.Message, req.History)
		mTurnDur.Since(start)
		if err != nil {
			mTurnErrors.Inc()
			logger.Error("turn failed", "error", err)
			http.Error(w, `{"error":"turn failed"}`, http.StatusInternalServerError)
			return
		}
		mTurnsTotal.Inc()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{Reply: reply})
	}
}
