package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known language model backend names. Used by
// [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "openai-native", "anthropic", "gemini", "ollama",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Providers. Order is failover order; names may repeat only with a
	// different model.
	seen := make(map[string]int, len(cfg.Providers))
	for i, p := range cfg.Providers {
		prefix := fmt.Sprintf("providers[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if p.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required", prefix))
		}
		key := p.Name + "/" + p.Model
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("%s duplicates providers[%d] (%s)", prefix, prev, key))
		}
		seen[key] = i

		if !slices.Contains(ValidProviderNames, p.Name) {
			slog.Warn("unknown provider name, may be a typo",
				"name", p.Name,
				"known", ValidProviderNames,
			)
		}
	}
	if len(cfg.Providers) == 0 && !cfg.Gateway.Disabled {
		slog.Warn("no providers configured; commands will take the deterministic path only")
	}

	// Gateway
	if cfg.Gateway.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("gateway.call_timeout must not be negative, got %s", cfg.Gateway.CallTimeout))
	}
	if cfg.Gateway.ProbeTimeout < 0 {
		errs = append(errs, fmt.Errorf("gateway.probe_timeout must not be negative, got %s", cfg.Gateway.ProbeTimeout))
	}
	if cfg.Gateway.Temperature < 0 || cfg.Gateway.Temperature > 2 {
		errs = append(errs, fmt.Errorf("gateway.temperature %.2f is out of range [0, 2]", cfg.Gateway.Temperature))
	}
	if cfg.Gateway.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("gateway.max_tokens must not be negative, got %d", cfg.Gateway.MaxTokens))
	}

	// Store
	if cfg.Store.Backend != "" && !cfg.Store.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("store.backend %q is invalid; valid values: memory, sqlite, postgres", cfg.Store.Backend))
	}
	if cfg.Store.Backend == StoreSQLite && cfg.Store.SQLitePath == "" {
		errs = append(errs, errors.New("store.sqlite_path is required when store.backend is sqlite"))
	}
	if cfg.Store.Backend == StorePostgres && cfg.Store.PostgresDSN == "" {
		errs = append(errs, errors.New("store.postgres_dsn is required when store.backend is postgres"))
	}
	if cfg.Store.Backend == StoreMemory || cfg.Store.Backend == "" {
		slog.Debug("using in-memory record store; command history will not survive restarts")
	}

	// Repository fixture
	if cfg.Repository.FixturePath == "" {
		slog.Warn("repository.fixture_path is empty; the entity repository starts empty")
	}

	return errors.Join(errs...)
}
