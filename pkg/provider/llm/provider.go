// Package llm defines the Provider interface for language-model backends.
//
// A provider wraps a remote or local model API (e.g., OpenAI, Anthropic via
// any-llm, or a local Ollama instance) and exposes a uniform completion
// surface so the gateway can fail over between backends without coupling to
// any specific SDK.
//
// Implementors must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Usage holds token accounting information returned by the backend.
// Counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// Request carries everything the model needs to produce a completion.
type Request struct {
	// SystemPrompt is an optional high-priority instruction injected before
	// the user prompt. Providers without a dedicated system slot prepend it
	// as a "system"-role message.
	SystemPrompt string

	// Prompt is the user-facing text that drives the response.
	Prompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Response is the full, non-streaming completion result.
type Response struct {
	// Content is the text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any language-model backend.
type Provider interface {
	// Name identifies the backend in logs, metrics, and gateway results
	// (e.g. "openai", "anyllm/anthropic", "mock").
	Name() string

	// Complete sends req to the model and waits for the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Ping performs a cheap liveness/capability check. The gateway probes
	// providers in configured order and memoizes the first healthy answer,
	// so Ping should be inexpensive but honest about reachability.
	Ping(ctx context.Context) error
}
