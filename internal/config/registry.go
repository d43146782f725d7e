package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/campushq/steward/pkg/provider/llm"
	"github.com/campushq/steward/pkg/provider/llm/anyllm"
	"github.com/campushq/steward/pkg/provider/llm/openai"
)

// ErrProviderNotRegistered is returned by CreateLLM when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	llm map[string]func(ProviderEntry) (llm.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm: make(map[string]func(ProviderEntry) (llm.Provider, error)),
	}
}

// RegisterLLM registers a provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// CreateLLM builds a provider from entry using the factory registered under
// entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateProviders builds the full failover chain in declaration order.
func (r *Registry) CreateProviders(entries []ProviderEntry) ([]llm.Provider, error) {
	providers := make([]llm.Provider, 0, len(entries))
	for i, entry := range entries {
		p, err := r.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("config: providers[%d]: %w", i, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// DefaultRegistry returns a [Registry] with all built-in provider backends
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, name := range []string{
		"openai", "anthropic", "gemini", "ollama",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		backend := name
		r.RegisterLLM(backend, func(entry ProviderEntry) (llm.Provider, error) {
			return anyllm.New(backend, entry.Model, anyllmOptions(entry)...)
		})
	}

	r.RegisterLLM("openai-native", func(entry ProviderEntry) (llm.Provider, error) {
		key := resolveKey(entry, "OPENAI_API_KEY")
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(key, entry.Model, opts...)
	})

	return r
}

// anyllmOptions translates a ProviderEntry into any-llm-go options. An
// absent API key is fine; the backend falls back to its conventional
// environment variable.
func anyllmOptions(entry ProviderEntry) []anyllmlib.Option {
	var opts []anyllmlib.Option
	if key := resolveKey(entry, ""); key != "" {
		opts = append(opts, anyllmlib.WithAPIKey(key))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return opts
}

// resolveKey reads the API key from the entry's named environment variable,
// falling back to fallbackEnv when set.
func resolveKey(entry ProviderEntry, fallbackEnv string) string {
	if entry.APIKeyEnv != "" {
		return os.Getenv(entry.APIKeyEnv)
	}
	if fallbackEnv != "" {
		return os.Getenv(fallbackEnv)
	}
	return ""
}
