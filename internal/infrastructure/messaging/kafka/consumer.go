// Package kafka provides the listing-event ingest consumer feeding the
// mutable corpus state.  The stream is the engine's only write path: every
// observed advertisement arrives as an upsert or deactivate event.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/motorintel/comparables/internal/config"
	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/pkg/errors"
)

// Event types on the listings topic.
const (
	EventUpsert     = "upsert"
	EventDeactivate = "deactivate"
)

// ListingEvent is the wire schema of one listings-topic message.
type ListingEvent struct {
	Type      string           `json:"type"`
	Listing   *listing.Listing `json:"listing,omitempty"`
	ListingID string           `json:"listing_id,omitempty"`
}

// Store is the corpus write surface the consumer feeds.
type Store interface {
	Upsert(l listing.Listing)
	Deactivate(id string)
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Metrics counts consumer outcomes.
type Metrics struct {
	Consumed atomic.Int64
	Applied  atomic.Int64
	Skipped  atomic.Int64
}

// IngestConsumer applies listing events to the corpus store.  Malformed
// events are logged, counted and committed past; only a broken reader stops
// the loop.
type IngestConsumer struct {
	reader  ReaderInterface
	store   Store
	logger  logging.Logger
	metrics Metrics
}

// NewIngestConsumer builds a consumer group reader on the configured listings
// topic.
func NewIngestConsumer(cfg config.KafkaConfig, store Store, logger logging.Logger) (*IngestConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.InvalidParam("kafka brokers are required")
	}
	if cfg.ListingsTopic == "" {
		return nil, errors.InvalidParam("kafka listings topic is required")
	}

	startOffset := kafka.FirstOffset
	if cfg.StartOffset == "latest" {
		startOffset = kafka.LastOffset
	}
	maxWait := cfg.MaxWait
	if maxWait == 0 {
		maxWait = 10 * time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.ListingsTopic,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       maxBytesOrDefault(cfg.MaxBytes),
		MaxWait:        maxWait,
		CommitInterval: cfg.CommitEvery,
		StartOffset:    startOffset,
	})
	return newIngestConsumer(reader, store, logger), nil
}

func newIngestConsumer(reader ReaderInterface, store Store, logger logging.Logger) *IngestConsumer {
	return &IngestConsumer{reader: reader, store: store, logger: logger.Named("ingest")}
}

func maxBytesOrDefault(v int) int {
	if v > 0 {
		return v
	}
	return 10 * 1024 * 1024
}

// Metrics exposes the consumer counters.
func (c *IngestConsumer) Metrics() *Metrics { return &c.metrics }

// Run consumes until ctx is cancelled, then closes the reader.  Context
// cancellation is the normal shutdown path and returns nil.
func (c *IngestConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("ingest consumer stopping",
					logging.Int64("consumed", c.metrics.Consumed.Load()),
					logging.Int64("applied", c.metrics.Applied.Load()))
				return nil
			}
			return errors.Wrap(err, errors.CodeInternal, "listing event fetch failed")
		}
		c.metrics.Consumed.Add(1)

		c.apply(msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("listing event commit failed", logging.Err(err))
		}
	}
}

// apply decodes and applies one event.  Undecodable or incomplete events are
// skipped; replaying them could never succeed.
func (c *IngestConsumer) apply(msg kafka.Message) {
	var ev ListingEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.metrics.Skipped.Add(1)
		c.logger.Warn("skipping undecodable listing event",
			logging.Int64("offset", msg.Offset), logging.Err(err))
		return
	}

	switch {
	case ev.Type == EventUpsert && ev.Listing != nil && ev.Listing.ID != "":
		c.store.Upsert(*ev.Listing)
		c.metrics.Applied.Add(1)
	case ev.Type == EventDeactivate && ev.ListingID != "":
		c.store.Deactivate(ev.ListingID)
		c.metrics.Applied.Add(1)
	default:
		c.metrics.Skipped.Add(1)
		c.logger.Warn("skipping incomplete listing event",
			logging.String("type", ev.Type),
			logging.Int64("offset", msg.Offset))
	}
}
