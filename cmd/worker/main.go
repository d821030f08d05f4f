// The worker binary runs exactly one pipeline stage, selected by the first
// argument or PROCESSOR_NAME. It also serves /health and /metrics.
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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/config"
	"github.com/pkms/content-pipeline/internal/contentstore"
	"github.com/pkms/content-pipeline/internal/crawl"
	"github.com/pkms/content-pipeline/internal/llm"
	"github.com/pkms/content-pipeline/internal/logger"
	"github.com/pkms/content-pipeline/internal/metrics"
	"github.com/pkms/content-pipeline/internal/notify"
	"github.com/pkms/content-pipeline/internal/pipeline"
	"github.com/pkms/content-pipeline/internal/stages/classifier"
	"github.com/pkms/content-pipeline/internal/stages/crawler"
	"github.com/pkms/content-pipeline/internal/stages/embedder"
	"github.com/pkms/content-pipeline/internal/stages/notifier"
	"github.com/pkms/content-pipeline/internal/stages/summarizer"
	"github.com/pkms/content-pipeline/internal/stages/transcriber"
	"github.com/pkms/content-pipeline/internal/vectorstore"
	"github.com/pkms/content-pipeline/internal/worker"
	"github.com/pkms/content-pipeline/internal/youtube"
)

// stage bundles the process function with its hook and teardown.
type stage struct {
	process   worker.ProcessFunc
	errorHook worker.ErrorHook
	cleanup   func()
}

func main() {
	logger.Init()
	cfg := config.Load()

	name := os.Getenv("PROCESSOR_NAME")
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	if name == "" {
		logger.Logger.Fatal().Msgf("no stage selected, pass one of %v as argument or PROCESSOR_NAME", pipeline.Names())
	}

	log := logger.WithStage(name)

	workerCfg, err := pipeline.WorkerConfig(cfg, name)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid stage selection")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStage(ctx, cfg, name, log)
	if err != nil {
		log.Fatal().Err(err).Msg("stage initialization failed")
	}
	defer st.cleanup()

	httpServer := startHTTPServer(cfg.HealthPort, log)
	defer shutdownHTTPServer(httpServer, log)

	w := worker.New(workerCfg, st.process, st.errorHook, log)
	if err := w.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("worker terminated abnormally")
	}
	log.Info().Msg("worker stopped")
}

// buildStage wires the dependencies of the selected stage.
func buildStage(ctx context.Context, cfg *config.Config, name string, log zerolog.Logger) (*stage, error) {
	openaiModel := config.GetString("OPENAI_MODEL", "gpt-4o-mini")
	geminiModel := config.GetString("GEMINI_MODEL", "gemini-1.5-flash")

	newNotifier := func() *notify.BrokerPublisher {
		return notify.NewBrokerPublisher(cfg.BrokerURL, cfg.Exchange, cfg.NotifyQueue)
	}

	switch name {
	case pipeline.StageClassifier:
		m, err := llm.NewOpenAI(cfg.OpenAIAPIKey, openaiModel)
		if err != nil {
			return nil, err
		}
		pub := newNotifier()
		s := classifier.New(m, contentstore.NewClient(cfg.ContentStoreURL), pub,
			cfg.CrawlQueue, cfg.TranscribeQueue, log)
		return &stage{process: s.Process, errorHook: s.ErrorHook, cleanup: pub.Close}, nil

	case pipeline.StageCrawler:
		primary, fallback, err := textModels(ctx, cfg, openaiModel, geminiModel)
		if err != nil {
			return nil, err
		}
		s := crawler.New(crawl.NewClient(cfg.CrawlServiceURL), primary, fallback, cfg.SummaryQueue, log)
		return &stage{process: s.Process, cleanup: func() {}}, nil

	case pipeline.StageTranscriber:
		s := transcriber.New(youtube.NewClient(cfg.YouTubeAPIKey), cfg.SummaryQueue, log)
		return &stage{process: s.Process, cleanup: func() {}}, nil

	case pipeline.StageSummarizer:
		primary, fallback, err := textModels(ctx, cfg, openaiModel, geminiModel)
		if err != nil {
			return nil, err
		}
		pub := newNotifier()
		s := summarizer.New(contentstore.NewClient(cfg.ContentStoreURL), primary, fallback, pub,
			cfg.EmbeddingQueue, log)
		return &stage{process: s.Process, errorHook: s.ErrorHook, cleanup: pub.Close}, nil

	case pipeline.StageEmbedding:
		store, err := vectorstore.New(ctx, cfg.VectorStoreURL, cfg.EmbedCollection, cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		pub := newNotifier()
		s := embedder.New(store, pub, log)
		cleanup := func() {
			pub.Close()
			store.Close()
		}
		return &stage{process: s.Process, cleanup: cleanup}, nil

	case pipeline.StageNotifier:
		telegram := notify.NewTelegramClient(cfg.TelegramBotToken, log)
		s := notifier.New(telegram, chatLimiter(cfg), log)
		return &stage{process: s.Process, cleanup: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown stage %q", name)
	}
}

// textModels returns the Gemini-primary, OpenAI-fallback pair used for
// markdown cleaning and summarization.
func textModels(ctx context.Context, cfg *config.Config, openaiModel, geminiModel string) (llm.Model, llm.Model, error) {
	fallback, err := llm.NewOpenAI(cfg.OpenAIAPIKey, openaiModel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.GeminiAPIKey == "" {
		return fallback, nil, nil
	}
	primary, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, geminiModel)
	if err != nil {
		return nil, nil, err
	}
	return primary, fallback, nil
}

// chatLimiter builds the redis-backed rate limiter when REDIS_URL is set.
func chatLimiter(cfg *config.Config) *notify.RateLimiter {
	if cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("invalid REDIS_URL, notifier runs without rate limiting")
		return nil
	}
	return notify.NewRateLimiter(redis.NewClient(opts))
}

// startHTTPServer serves liveness and Prometheus scrape endpoints.
func startHTTPServer(port string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.MetricsHandler())

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()
	return srv
}

func shutdownHTTPServer(srv *http.Server, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("health server shutdown failed")
	}
}
