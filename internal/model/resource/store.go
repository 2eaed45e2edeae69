package resource

// Store exposes resource retrieval for the reply selector and HTTP handlers.
type Store interface {
	List() []CrisisResource
	ListByKind(kind Kind) []CrisisResource
	FindByID(id string) (CrisisResource, bool)
}

// MemoryStore implements Store with a fixed in-memory slice.
type MemoryStore struct {
	items []CrisisResource
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied resources.
func NewMemoryStore(items []CrisisResource) *MemoryStore {
	return &MemoryStore{items: cloneAll(items)}
}

// List returns every resource.
func (s *MemoryStore) List() []CrisisResource {
	return cloneAll(s.items)
}

// ListByKind returns the resources of one kind in table order.
func (s *MemoryStore) ListByKind(kind Kind) []CrisisResource {
	out := make([]CrisisResource, 0, len(s.items))
	for _, item := range s.items {
		if item.Kind == kind {
			out = append(out, clone(item))
		}
	}
	return out
}

// FindByID looks up a resource by identifier.
func (s *MemoryStore) FindByID(id string) (CrisisResource, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return clone(item), true
		}
	}
	return CrisisResource{}, false
}

func clone(r CrisisResource) CrisisResource {
	r.Methods = append([]string(nil), r.Methods...)
	return r
}

func cloneAll(items []CrisisResource) []CrisisResource {
	out := make([]CrisisResource, len(items))
	for i, item := range items {
		out[i] = clone(item)
	}
	return out
}
