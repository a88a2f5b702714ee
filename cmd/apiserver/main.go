// The apiserver binary serves the comparable-listing valuation API.  It wires
// the scoring engine to a corpus backend, the redis result cache and the
// prometheus metrics surface, then runs the gin HTTP server until SIGINT or
// SIGTERM.
//
// The corpus backend is selected with -corpus:
//
//	postgres  reads listings and condition signals from PostgreSQL (default)
//	memory    maintains an in-memory corpus fed by the kafka listings topic
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/motorintel/comparables/internal/application/valuation"
	"github.com/motorintel/comparables/internal/config"
	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/engine/anomaly"
	"github.com/motorintel/comparables/internal/engine/confidence"
	"github.com/motorintel/comparables/internal/engine/gems"
	"github.com/motorintel/comparables/internal/engine/keywords"
	"github.com/motorintel/comparables/internal/engine/ranking"
	"github.com/motorintel/comparables/internal/engine/retrieval"
	"github.com/motorintel/comparables/internal/engine/similarity"
	"github.com/motorintel/comparables/internal/infrastructure/corpus"
	"github.com/motorintel/comparables/internal/infrastructure/database/postgres"
	rediscache "github.com/motorintel/comparables/internal/infrastructure/database/redis"
	"github.com/motorintel/comparables/internal/infrastructure/messaging/kafka"
	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/motorintel/comparables/internal/interfaces/http"
	"github.com/motorintel/comparables/internal/interfaces/http/handlers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	corpusBackend := flag.String("corpus", "postgres", "corpus backend: postgres | memory")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, *corpusBackend, logger); err != nil {
		logger.Fatal("apiserver failed", logging.Err(err))
	}
}

// loadConfig reads the file when it exists, otherwise builds the config from
// COMPARE_* environment variables alone.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, corpusBackend string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setGinMode(cfg.Server.Mode)

	// Lexicon tables drive keyword extraction and the text heuristics.
	lexicon, err := keywords.NewStore(cfg.Lexicon.Path, logger)
	if err != nil {
		return err
	}
	if cfg.Lexicon.Watch {
		if err := lexicon.Watch(ctx); err != nil {
			logger.Warn("lexicon watch disabled", logging.Err(err))
		}
	}

	scorer, err := similarity.NewScorer(cfg.Engine.Similarity, lexicon)
	if err != nil {
		return err
	}

	// Corpus backend.
	var (
		corpusStore listing.Corpus
		signals     listing.SignalSource
	)
	switch corpusBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo := postgres.NewCorpusRepository(pool, logger)
		corpusStore, signals = repo, repo

	case "memory":
		state := corpus.NewState()
		consumer, err := kafka.NewIngestConsumer(cfg.Kafka, state, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("ingest consumer stopped", logging.Err(err))
				stop()
			}
		}()
		corpusStore = state

	default:
		return fmt.Errorf("unknown corpus backend %q; expected postgres or memory", corpusBackend)
	}

	// Result cache.  A missing redis degrades to direct computation.
	var resultCache valuation.Cache
	var cacheProbe handlers.CacheProbe
	if client, err := rediscache.NewClient(ctx, cfg.Redis); err != nil {
		logger.Warn("running without result cache", logging.Err(err))
	} else {
		defer client.Close()
		cache := rediscache.NewCache(client, logger,
			rediscache.WithPrefix(cfg.Redis.KeyPrefix),
			rediscache.WithDefaultTTL(cfg.Redis.DefaultTTL))
		resultCache, cacheProbe = cache, cache
	}

	metrics := prometheus.NewEngineMetrics()

	service, err := valuation.NewService(valuation.Deps{
		Corpus:           corpusStore,
		Signals:          signals,
		Retriever:        retrieval.NewRetriever(cfg.Engine.Retrieval, keywords.NewExtractor(lexicon), logger),
		Scorer:           scorer,
		Detector:         anomaly.NewDetector(cfg.Engine.Anomaly),
		Estimator:        confidence.NewEstimator(cfg.Engine.Confidence),
		Gems:             gems.NewScorer(cfg.Engine.Gems, lexicon),
		Ranker:           ranking.NewRanker(cfg.Engine.Ranking),
		Cache:            resultCache,
		CacheTTL:         cfg.Redis.DefaultTTL,
		Logger:           logger,
		Metrics:          metrics,
		BatchConcurrency: cfg.Worker.Concurrency,
		BatchTimeout:     cfg.Worker.BatchTimeout,
	})
	if err != nil {
		return err
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Valuation:       handlers.NewValuationHandler(service, cfg.Worker.MaxBatchSize, logger),
		Health:          handlers.NewHealthHandler(corpusStore, cacheProbe, logger),
		Logger:          logger,
		MetricsObserver: metrics,
		MetricsHandler:  metrics.Handler(),
	})
	server := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logger.Info("apiserver started",
		logging.Int("port", cfg.Server.Port),
		logging.String("corpus", corpusBackend))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	if err := server.Stop(context.Background()); err != nil {
		logger.Error("shutdown incomplete", logging.Err(err))
	}
	logger.Info("apiserver stopped")
	return nil
}

func setGinMode(mode string) {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
