package registry

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 200
)

// Option customises a Registry.
type Option func(*Registry)

// WithCache installs the read cache used by Get.
func WithCache(cache Cache) Option {
	return func(r *Registry) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithReferenceCounter installs the entity value counter consulted by Delete.
func WithReferenceCounter(counter ReferenceCounter) Option {
	return func(r *Registry) {
		if counter != nil {
			r.refs = counter
		}
	}
}

// WithLogger sets the logger used for mutation and cache events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides how schema ids are minted.
func WithIDGenerator(next func() string) Option {
	return func(r *Registry) {
		if next != nil {
			r.newID = next
		}
	}
}

// WithPagination sets the default and maximum page size for listings.
func WithPagination(defaultLimit, maxLimit int) Option {
	return func(r *Registry) {
		if defaultLimit > 0 {
			r.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			r.maxLimit = maxLimit
		}
	}
}

// NewULIDGenerator returns a goroutine-safe generator of monotonic ULIDs.
func NewULIDGenerator() func() string {
	var mu sync.Mutex
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	var entropy io.Reader = ulid.Monotonic(src, 0)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
}
