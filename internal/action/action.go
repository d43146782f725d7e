// Package action holds the static catalog of supported operations, the
// parameter-schema validator, and the dispatcher that routes a resolved
// command to its domain executor while normalising every outcome into the
// uniform response envelope.
package action

import (
	"fmt"

	"github.com/campushq/steward/internal/command"
)

// Type classifies what an action does to domain data. It drives the
// baseline confirmation policy: DELETE actions require confirmation.
type Type int

const (
	TypeRead Type = iota
	TypeWrite
	TypeDelete
)

// String returns the catalog name of the type.
func (t Type) String() string {
	switch t {
	case TypeRead:
		return "READ"
	case TypeWrite:
		return "WRITE"
	case TypeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Definition is one static catalog entry describing a supported operation.
type Definition struct {
	// Name is the canonical action name (e.g. "create_fee").
	Name string

	// Agent is the domain area the action belongs to.
	Agent command.Agent

	// Type is the read/write/delete classification.
	Type Type

	// Required lists parameter names that must be present after resolution.
	Required []string

	// Optional lists parameter names the executor understands but does not
	// need.
	Optional []string

	// ConfirmOverride, when non-nil, overrides the baseline confirmation
	// policy (Type == TypeDelete).
	ConfirmOverride *bool
}

// RequiresConfirmation reports whether the action must pass the two-phase
// confirmation gate before execution.
func (d Definition) RequiresConfirmation() bool {
	if d.ConfirmOverride != nil {
		return *d.ConfirmOverride
	}
	return d.Type == TypeDelete
}

// Registry is the immutable action catalog, resolved once at startup so an
// unknown (agent, name) pair is a lookup failure rather than a silent
// dynamic dispatch miss.
type Registry struct {
	byKey map[string]Definition
}

func key(agent command.Agent, name string) string {
	return string(agent) + "/" + name
}

// NewRegistry builds a [Registry] from defs. Duplicate (agent, name) pairs
// are a programming error and reported as such.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" || !d.Agent.IsValid() {
			return nil, fmt.Errorf("action: invalid definition %q/%q", d.Agent, d.Name)
		}
		k := key(d.Agent, d.Name)
		if _, exists := r.byKey[k]; exists {
			return nil, fmt.Errorf("action: duplicate definition %s", k)
		}
		r.byKey[k] = d
	}
	return r, nil
}

// Lookup returns the definition for (agent, name), with ok=false for
// unregistered actions.
func (r *Registry) Lookup(agent command.Agent, name string) (Definition, bool) {
	d, ok := r.byKey[key(agent, name)]
	return d, ok
}

// ByName scans the catalog for name regardless of agent. Action names are
// unique across agents, so at most one definition matches. Used for the
// model-supplied action path, where only the name is known.
func (r *Registry) ByName(name string) (Definition, bool) {
	for _, d := range r.byKey {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Defaults returns the built-in catalog covering the five domain agents.
func Defaults() []Definition {
	return []Definition{
		{Name: "create_fee", Agent: command.AgentFee, Type: TypeWrite,
			Required: []string{"school_id", "month"}, Optional: []string{"class", "amount"}},
		{Name: "update_fee_status", Agent: command.AgentFee, Type: TypeWrite,
			Required: []string{"student_id", "fee_status"}, Optional: []string{"month", "amount"}},
		{Name: "show_fees", Agent: command.AgentFee, Type: TypeRead,
			Required: nil, Optional: []string{"school_id", "student_id", "month", "fee_status", "class"}},
		{Name: "delete_fee", Agent: command.AgentFee, Type: TypeDelete,
			Required: []string{"fee_ids"}, Optional: []string{"student_id", "school_id", "month", "class"}},

		{Name: "add_item", Agent: command.AgentInventory, Type: TypeWrite,
			Required: []string{"item", "quantity"}, Optional: []string{"category_id"}},
		{Name: "update_item", Agent: command.AgentInventory, Type: TypeWrite,
			Required: []string{"item_id"}, Optional: []string{"quantity"}},
		{Name: "remove_item", Agent: command.AgentInventory, Type: TypeDelete,
			Required: []string{"item_id"}, Optional: []string{"quantity"}},
		{Name: "add_category", Agent: command.AgentInventory, Type: TypeWrite,
			Required: []string{"category"}, Optional: nil},
		{Name: "show_items", Agent: command.AgentInventory, Type: TypeRead,
			Required: nil, Optional: []string{"category_id"}},

		{Name: "mark_attendance", Agent: command.AgentAttendance, Type: TypeWrite,
			Required: []string{"student_id", "attendance_status", "date"}, Optional: []string{"class"}},
		{Name: "show_attendance", Agent: command.AgentAttendance, Type: TypeRead,
			Required: nil, Optional: []string{"student_id", "class", "month", "date"}},

		{Name: "add_employee", Agent: command.AgentHR, Type: TypeWrite,
			Required: []string{"employee", "role"}, Optional: []string{"email", "school_id"}},
		{Name: "remove_employee", Agent: command.AgentHR, Type: TypeDelete,
			Required: []string{"employee_id"}, Optional: nil},
		{Name: "show_employees", Agent: command.AgentHR, Type: TypeRead,
			Required: nil, Optional: []string{"school_id"}},

		{Name: "send_notice", Agent: command.AgentBroadcast, Type: TypeWrite,
			Required: []string{"message", "audience"}, Optional: []string{"class", "school_id", "date"}},
	}
}
