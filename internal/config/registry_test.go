package config

import (
	"errors"
	"testing"

	"github.com/campushq/steward/pkg/provider/llm"
	"github.com/campushq/steward/pkg/provider/llm/mock"
)

func TestRegistry_CreateLLM(t *testing.T) {
	r := NewRegistry()
	var captured ProviderEntry
	r.RegisterLLM("stub", func(entry ProviderEntry) (llm.Provider, error) {
		captured = entry
		return &mock.Provider{ProviderName: "stub/" + entry.Model}, nil
	})

	p, err := r.CreateLLM(ProviderEntry{Name: "stub", Model: "m1", BaseURL: "http://x"})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p.Name() != "stub/m1" {
		t.Errorf("Name() = %q", p.Name())
	}
	if captured.BaseURL != "http://x" {
		t.Errorf("factory entry = %+v", captured)
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateLLM(ProviderEntry{Name: "nonexistent", Model: "m"})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_CreateProvidersStopsOnError(t *testing.T) {
	r := NewRegistry()
	r.RegisterLLM("stub", func(entry ProviderEntry) (llm.Provider, error) {
		return &mock.Provider{}, nil
	})

	_, err := r.CreateProviders([]ProviderEntry{
		{Name: "stub", Model: "m1"},
		{Name: "missing", Model: "m2"},
	})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestDefaultRegistry_KnowsBuiltins(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{"openai", "anthropic", "ollama", "openai-native"} {
		r.mu.RLock()
		_, ok := r.llm[name]
		r.mu.RUnlock()
		if !ok {
			t.Errorf("backend %q not registered", name)
		}
	}
}
