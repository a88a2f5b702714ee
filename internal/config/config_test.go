package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorintel/comparables/internal/engine/similarity"
)

// validConfig returns a Config that passes Validate.
func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_ServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	assert.ErrorContains(t, cfg.Validate(), "server.port")

	cfg.Server.Port = 70000
	assert.ErrorContains(t, cfg.Validate(), "server.port")
}

func TestValidate_ServerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "production"
	assert.ErrorContains(t, cfg.Validate(), "server.mode")
}

func TestValidate_DatabaseFields(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	assert.ErrorContains(t, cfg.Validate(), "database.host")

	cfg = validConfig()
	cfg.Database.User = ""
	assert.ErrorContains(t, cfg.Validate(), "database.user")

	cfg = validConfig()
	cfg.Database.MaxConns = 0
	assert.ErrorContains(t, cfg.Validate(), "database.max_conns")
}

func TestValidate_KafkaFields(t *testing.T) {
	cfg := validConfig()
	cfg.Kafka.Brokers = nil
	assert.ErrorContains(t, cfg.Validate(), "kafka.brokers")

	cfg = validConfig()
	cfg.Kafka.ListingsTopic = ""
	assert.ErrorContains(t, cfg.Validate(), "kafka.listings_topic")
}

func TestValidate_LogFields(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "trace"
	assert.ErrorContains(t, cfg.Validate(), "log.level")

	cfg = validConfig()
	cfg.Log.Format = "logfmt"
	assert.ErrorContains(t, cfg.Validate(), "log.format")
}

func TestValidate_SimilarityWeightsMustSumToOne(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.Similarity.Price = 0.9
	assert.ErrorContains(t, cfg.Validate(), "engine.similarity")
}

func TestApplyDefaults_FillsEngineTunables(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, similarity.DefaultWeights(), cfg.Engine.Similarity)
	assert.Equal(t, 0.30, cfg.Engine.Retrieval.PriceBand)
	assert.Equal(t, 3, cfg.Engine.Anomaly.MinSamples)
	assert.Equal(t, 100, cfg.Engine.Confidence.LargeSample)
	assert.Equal(t, 0.4, cfg.Engine.Ranking.GemWeight)
}

func TestApplyDefaults_ExplicitValuesWin(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9090
	cfg.Redis.KeyPrefix = "custom:"
	ApplyDefaults(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "custom:", cfg.Redis.KeyPrefix)
	assert.Equal(t, DefaultLexiconPath, cfg.Lexicon.Path)
}

func TestApplyDefaults_NilIsSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
