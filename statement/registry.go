package statement

import (
	"fmt"
	"sync"
)

// Registry holds statement definitions by id. Registration happens during
// engine setup; lookups run on every statement execution.
type Registry struct {
	mu    sync.RWMutex
	stmts map[string]*Statement
}

func NewRegistry() *Registry {
	return &Registry{stmts: make(map[string]*Statement)}
}

func (r *Registry) Register(s *Statement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stmts[s.ID]; exists {
		return fmt.Errorf("statement: duplicate id %q", s.ID)
	}
	r.stmts[s.ID] = s
	return nil
}

func (r *Registry) Lookup(id string) (*Statement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stmts[id]
	return s, ok
}

// IDs returns the registered statement ids, unordered.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.stmts))
	for id := range r.stmts {
		ids = append(ids, id)
	}
	return ids
}
