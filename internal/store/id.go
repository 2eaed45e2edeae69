package store

import (
	"crypto/rand"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
)

// IDGenerator issues ULIDs that sort in creation order within one process.
type IDGenerator struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entropy *ulid.MonotonicEntropy
}

// NewIDGenerator returns a generator reading time from clock.
func NewIDGenerator(clock clockwork.Clock) *IDGenerator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IDGenerator{clock: clock, entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns the next id.
func (g *IDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.clock.Now()), g.entropy)
	if err != nil {
		// monotonic entropy overflowed within one millisecond
		return ulid.Make().String()
	}
	return id.String()
}
