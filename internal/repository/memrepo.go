package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Compile-time assertion that MemRepo satisfies the Repository interface.
var _ Repository = (*MemRepo)(nil)

// Entity is one stored domain entity. SchoolID scopes visibility; for
// entities of kind school, SchoolID equals ID.
type Entity struct {
	ID          string
	DisplayName string
	SchoolID    string
}

// MemRepo is a thread-safe in-memory [Repository] suitable for development
// fixtures and tests. Entities are kept per kind; query results are sorted
// by display name so candidate ordering is stable across calls.
type MemRepo struct {
	mu       sync.RWMutex
	entities map[Kind][]Entity
}

// NewMemRepo returns an initialised, empty [MemRepo].
func NewMemRepo() *MemRepo {
	return &MemRepo{entities: make(map[Kind][]Entity)}
}

// Add inserts entities of the given kind. For kind school, an empty
// SchoolID defaults to the entity's own ID.
func (r *MemRepo) Add(kind Kind, entities ...Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entities {
		if kind == KindSchool && e.SchoolID == "" {
			e.SchoolID = e.ID
		}
		r.entities[kind] = append(r.entities[kind], e)
	}
	sort.Slice(r.entities[kind], func(i, j int) bool {
		a, b := r.entities[kind][i], r.entities[kind][j]
		if a.DisplayName != b.DisplayName {
			return strings.ToLower(a.DisplayName) < strings.ToLower(b.DisplayName)
		}
		return a.ID < b.ID
	})
}

// FindSimilar implements [Repository.FindSimilar]. The query is not used
// for pre-filtering; all in-scope entities of the kind are returned in
// display-name order.
func (r *MemRepo) FindSimilar(ctx context.Context, kind Kind, query string, scope Scope) ([]Ref, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Ref
	for _, e := range r.entities[kind] {
		if !scope.Allows(e.SchoolID) {
			continue
		}
		out = append(out, Ref{ID: e.ID, DisplayName: e.DisplayName})
	}
	return out, nil
}

// GetByID implements [Repository.GetByID].
func (r *MemRepo) GetByID(ctx context.Context, kind Kind, id string, scope Scope) (Ref, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entities[kind] {
		if e.ID != id {
			continue
		}
		if !scope.Allows(e.SchoolID) {
			return Ref{}, ErrNotFound
		}
		return Ref{ID: e.ID, DisplayName: e.DisplayName}, nil
	}
	return Ref{}, ErrNotFound
}
