package config

import (
	"time"

	"github.com/motorintel/comparables/internal/engine/anomaly"
	"github.com/motorintel/comparables/internal/engine/confidence"
	"github.com/motorintel/comparables/internal/engine/gems"
	"github.com/motorintel/comparables/internal/engine/ranking"
	"github.com/motorintel/comparables/internal/engine/retrieval"
	"github.com/motorintel/comparables/internal/engine/similarity"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "comparables"
	DefaultDBName     = "comparables"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisTTL       = 15 * time.Minute
	DefaultRedisKeyPrefix = "comparables:"

	DefaultKafkaBroker   = "localhost:9092"
	DefaultKafkaGroupID  = "comparables-engine"
	DefaultListingsTopic = "listings.events"

	DefaultWorkerConcurrency  = 8
	DefaultWorkerBatchTimeout = 30 * time.Second
	DefaultWorkerMaxBatch     = 100

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultLexiconPath = "configs/lexicon.yaml"
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate().
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ListingsTopic == "" {
		cfg.Kafka.ListingsTopic = DefaultListingsTopic
	}
	if cfg.Kafka.StartOffset == "" {
		cfg.Kafka.StartOffset = "earliest"
	}
	if cfg.Kafka.CommitEvery == 0 {
		cfg.Kafka.CommitEvery = time.Second
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.BatchTimeout == 0 {
		cfg.Worker.BatchTimeout = DefaultWorkerBatchTimeout
	}
	if cfg.Worker.MaxBatchSize == 0 {
		cfg.Worker.MaxBatchSize = DefaultWorkerMaxBatch
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Lexicon ───────────────────────────────────────────────────────────────
	if cfg.Lexicon.Path == "" {
		cfg.Lexicon.Path = DefaultLexiconPath
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	// The zero value of each scoring sub-config means "use the package's
	// tuned defaults"; the constructors also apply these, but filling them
	// here keeps the effective values visible to config introspection.
	if cfg.Engine.Similarity == (similarity.Weights{}) {
		cfg.Engine.Similarity = similarity.DefaultWeights()
	}
	if cfg.Engine.Retrieval == (retrieval.Config{}) {
		cfg.Engine.Retrieval = retrieval.DefaultConfig()
	}
	if cfg.Engine.Anomaly == (anomaly.Config{}) {
		cfg.Engine.Anomaly = anomaly.DefaultConfig()
	}
	if cfg.Engine.Confidence == (confidence.Config{}) {
		cfg.Engine.Confidence = confidence.DefaultConfig()
	}
	if cfg.Engine.Gems == (gems.Weights{}) {
		cfg.Engine.Gems = gems.DefaultWeights()
	}
	if cfg.Engine.Ranking == (ranking.Config{}) {
		cfg.Engine.Ranking = ranking.DefaultConfig()
	}
}
