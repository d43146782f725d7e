// Package repository defines the read-only domain lookup capability the
// parameter resolver disambiguates against: schools, students, employees,
// inventory items, and inventory categories, queried by display name and
// pre-scoped by the caller's access grant.
package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetByID when no entity with that ID exists
// within the caller's scope.
var ErrNotFound = errors.New("entity not found")

// Kind identifies a fuzzy-matchable entity type.
type Kind string

const (
	KindSchool   Kind = "school"
	KindStudent  Kind = "student"
	KindEmployee Kind = "employee"
	KindItem     Kind = "item"
	KindCategory Kind = "category"
)

// IsValid reports whether k is a recognised entity kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindSchool, KindStudent, KindEmployee, KindItem, KindCategory:
		return true
	}
	return false
}

// Ref is a resolved entity reference: canonical ID plus display name.
type Ref struct {
	ID          string
	DisplayName string
}

// Scope is the caller's access grant. Every repository query is pre-scoped:
// a restricted caller only ever sees entities belonging to its permitted
// schools, including while disambiguating.
type Scope struct {
	// Role is the caller's role name, carried for auditing.
	Role string

	// Unrestricted grants visibility over all schools.
	Unrestricted bool

	// SchoolIDs lists the schools a restricted caller may see. Ignored when
	// Unrestricted is true.
	SchoolIDs []string
}

// Allows reports whether the scope permits entities of the given school.
// Schools themselves are checked against their own ID.
func (s Scope) Allows(schoolID string) bool {
	if s.Unrestricted {
		return true
	}
	for _, id := range s.SchoolIDs {
		if id == schoolID {
			return true
		}
	}
	return false
}

// Repository is the read-only lookup capability consumed by the resolver.
//
// Implementations must be safe for concurrent use.
type Repository interface {
	// FindSimilar returns candidate entities of the given kind visible to
	// scope, ordered deterministically by display name. The query string may
	// be used by implementations to pre-filter, but callers must not assume
	// any filtering: scoring and triage happen in the resolver.
	FindSimilar(ctx context.Context, kind Kind, query string, scope Scope) ([]Ref, error)

	// GetByID returns the entity with the given canonical ID, or
	// [ErrNotFound] if it does not exist or is outside scope.
	GetByID(ctx context.Context, kind Kind, id string, scope Scope) (Ref, error)
}
