package valuation

import (
	"context"
	"time"
)

// Cache is the read-through result cache port.  Implementations serialize
// values as JSON; a miss is (false, nil), never an error.  The service treats
// every cache fault as a soft failure: it logs and recomputes.
type Cache interface {
	// Get unmarshals the cached value for key into dest and reports whether
	// the key existed.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}
