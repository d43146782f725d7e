// Package command defines the data model shared by every stage of the
// natural-language command pipeline: the command record persisted per user
// utterance, the tagged parameter value type, clarification payloads, and
// the uniform response envelope returned by domain executors.
package command

import (
	"fmt"
	"time"
)

// Agent is a named domain area that scopes which actions and entity kinds
// are relevant for an utterance.
type Agent string

const (
	AgentFee        Agent = "fee"
	AgentInventory  Agent = "inventory"
	AgentHR         Agent = "hr"
	AgentAttendance Agent = "attendance"
	AgentBroadcast  Agent = "broadcast"
)

// IsValid reports whether a is a recognised agent.
func (a Agent) IsValid() bool {
	switch a {
	case AgentFee, AgentInventory, AgentHR, AgentAttendance, AgentBroadcast:
		return true
	}
	return false
}

// Status tracks a command record through the pipeline.
type Status string

const (
	// StatusPending is the initial state of a freshly created record.
	StatusPending Status = "pending"

	// StatusAwaitingClarification means the resolver needs the user to pick
	// among multiple plausible matches. Clarification must be non-nil.
	StatusAwaitingClarification Status = "awaiting_clarification"

	// StatusProcessing means the record is past resolution and an executor
	// call is in flight.
	StatusProcessing Status = "processing"

	// StatusPendingConfirmation means a destructive action is proposed and a
	// one-time confirmation token is outstanding. ConfirmationToken is set
	// if and only if the record is in this state.
	StatusPendingConfirmation Status = "pending_confirmation"

	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final state. Once a record reaches a
// terminal state and CompletedAt is set, it is immutable.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Kind discriminates the variants of a parameter [Value].
type Kind int

const (
	// KindString holds free text: names, classes, message bodies.
	KindString Kind = iota

	// KindNumber holds quantities and monetary amounts.
	KindNumber

	// KindDate holds an absolute calendar date.
	KindDate

	// KindTag holds a symbolic value whose meaning is resolved later against
	// the record it applies to (e.g. "amount:full", "date:today").
	KindTag

	// KindList holds an ordered list of values (e.g. multiple fee IDs).
	KindList
)

// Value is the tagged parameter variant carried through the pipeline.
// Exactly one payload field is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Date time.Time
	List []Value
}

// String returns a Value of [KindString].
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a Value of [KindNumber].
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Date returns a Value of [KindDate].
func Date(t time.Time) Value { return Value{Kind: KindDate, Date: t} }

// Tag returns a Value of [KindTag]. Tags use a "category:value" convention,
// e.g. "amount:full" or "date:tomorrow".
func Tag(tag string) Value { return Value{Kind: KindTag, Str: tag} }

// List returns a Value of [KindList].
func List(vs ...Value) Value { return Value{Kind: KindList, List: vs} }

// Text renders the value for prompts, summaries, and executor payloads.
func (v Value) Text() string {
	switch v.Kind {
	case KindString, KindTag:
		return v.Str
	case KindNumber:
		if v.Num == float64(int64(v.Num)) {
			return fmt.Sprintf("%d", int64(v.Num))
		}
		return fmt.Sprintf("%g", v.Num)
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindList:
		out := ""
		for i, item := range v.List {
			if i > 0 {
				out += ", "
			}
			out += item.Text()
		}
		return out
	}
	return ""
}

// Params is the bag of named parameters flowing between pipeline stages.
type Params map[string]Value

// Clone returns a shallow copy so a stage can propose changes without
// mutating its caller's map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Option is one selectable candidate in a clarification prompt.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Clarification asks the user to pick among multiple plausible resolved
// values, or to supply a missing field. Selection clarifications carry a
// non-empty Options list and accept a bare numeric reply; missing-field
// clarifications have no options and take a free-text answer, so a numeric
// reply to one is a literal value, never an index.
type Clarification struct {
	// Field is the parameter the clarification resolves (e.g. "school").
	Field string `json:"field"`

	// Prompt is the human-readable question shown to the user.
	Prompt string `json:"prompt"`

	// Options is the ordered candidate list. Order is deterministic so a
	// bare numeric reply in a later turn can index into it.
	Options []Option `json:"options"`
}

// Envelope is the uniform result shape every domain executor returns
// (or is adapted to return).
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Record is the persisted unit of work tracking one user utterance (or one
// resumed clarification/confirmation) through the full pipeline.
type Record struct {
	ID             string
	ConversationID string
	RawInput       string
	Agent          Agent
	Intent         string
	Entities       Params
	Status         Status
	Clarification  *Clarification

	// ConfirmationToken is the one-time opaque credential gating execution
	// of a destructive action. Set iff Status == StatusPendingConfirmation.
	ConfirmationToken string

	// PendingAction is the resolved action name held while the record waits
	// for confirmation or clarification.
	PendingAction string

	Result       *Envelope
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  time.Time
}

// Response is the shape returned by every orchestration entry point.
type Response struct {
	Success            bool           `json:"success"`
	NeedsClarification bool           `json:"needsClarification,omitempty"`
	Clarification      *Clarification `json:"clarification,omitempty"`
	NeedsConfirmation  bool           `json:"needsConfirmation,omitempty"`
	ConfirmationToken  string         `json:"confirmationToken,omitempty"`
	NeedsOverwrite     bool           `json:"needsOverwrite,omitempty"`
	Suggestions        []string       `json:"suggestions,omitempty"`
	Action             string         `json:"action,omitempty"`
	Message            string         `json:"message"`
	Data               any            `json:"data,omitempty"`
	SessionID          string         `json:"sessionId,omitempty"`
}
