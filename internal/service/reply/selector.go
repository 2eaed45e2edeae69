package reply

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/zhouzirui/mindwell/backend/internal/analysis/triage"
	"github.com/zhouzirui/mindwell/backend/internal/model/resource"
)

// Reply is the text chosen for a category plus its side payload.
type Reply struct {
	Category  triage.Category
	Text      string
	Resources []resource.CrisisResource
}

// Selector picks replies from the fixed pools.
type Selector struct {
	mu        sync.Mutex
	rng       *rand.Rand
	resources resource.Store
}

// NewSelector builds a selector drawing from src. A nil src falls back to a
// time-seeded PCG.
func NewSelector(src rand.Source, resources resource.Store) *Selector {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1)
	}
	if resources == nil {
		resources = resource.NewMemoryStore(resource.Seed())
	}
	return &Selector{rng: rand.New(src), resources: resources}
}

// NewSeededSelector returns a selector whose draws are reproducible.
func NewSeededSelector(seed uint64, resources resource.Store) *Selector {
	return NewSelector(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15), resources)
}

// Select maps a category to a reply. Crisis replies are fixed and carry the
// crisis resource list; every other category draws uniformly from its pool.
func (s *Selector) Select(c triage.Category) (Reply, error) {
	if c == triage.Crisis {
		return Reply{Category: c, Text: CrisisTemplate, Resources: s.CrisisResources()}, nil
	}

	pool, ok := pools[c]
	if !ok || len(pool) == 0 {
		return Reply{}, fmt.Errorf("no reply pool for category %q", c)
	}

	s.mu.Lock()
	idx := s.rng.IntN(len(pool))
	s.mu.Unlock()

	return Reply{Category: c, Text: pool[idx]}, nil
}

// CrisisResources returns the crisis-kind entries of the resource table.
func (s *Selector) CrisisResources() []resource.CrisisResource {
	return s.resources.ListByKind(resource.KindCrisis)
}

// Jitter returns a uniformly drawn duration in [0, limit).
func (s *Selector) Jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.rng.Int64N(int64(limit)))
}
