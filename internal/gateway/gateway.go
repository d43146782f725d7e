// Package gateway sends rendered prompts to a configured, ordered list of
// language-model providers and normalizes their free-text replies into the
// structured {action, params} shape the rest of the pipeline consumes.
//
// Providers are probed in order; the availability answer is memoized for the
// life of the gateway instance so per-command traffic never pays the probe
// cost twice. A provider call that fails or exceeds its timeout is treated
// as unavailable for that call and the gateway advances to the next entry.
// When no provider serves the call, Generate reports a degraded result and
// the engine falls back to the deterministic classifier path.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/resilience"
	"github.com/campushq/steward/pkg/provider/llm"
)

// DegradeMessage is the caller-facing text attached to a Result when no
// provider could serve the request.
const DegradeMessage = "language model providers are unavailable; your request was interpreted with built-in rules instead"

// errProviderDown marks a provider whose memoized probe said unreachable.
var errProviderDown = errors.New("gateway: provider unavailable")

// Config holds gateway tuning knobs. Zero values select defaults.
type Config struct {
	// CallTimeout bounds a single provider completion. Default: 20s.
	CallTimeout time.Duration

	// ProbeTimeout bounds a single liveness probe. Default: 5s.
	ProbeTimeout time.Duration

	// Temperature is passed to every completion. Default: 0.1, near
	// deterministic decoding, which suits structured extraction.
	Temperature float64

	// MaxTokens caps each completion. Default: 512.
	MaxTokens int
}

func (c *Config) setDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 20 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.1
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 512
	}
}

// Parsed is the structured command shape recovered from a model reply.
type Parsed struct {
	// Action is the canonical action name after synonym normalization.
	// Empty when the model named no action or an unsupported one.
	Action string

	// Params carries the raw extracted parameters. Values are still
	// unresolved; the parameter resolver canonicalizes them later.
	Params command.Params
}

// Result is the uniform outcome of one Generate call. It is always returned,
// never an error: model unreliability must not propagate past this boundary.
type Result struct {
	// Success reports whether a provider served the call.
	Success bool

	// Provider names the backend that served the call. Empty on failure.
	Provider string

	// Raw is the unmodified model reply text, preserved for diagnostics
	// even when parsing failed.
	Raw string

	// Parsed is the recovered structure, nil when the reply could not be
	// coerced into JSON.
	Parsed *Parsed

	// Err is the caller-facing failure description. Empty on success.
	Err string

	// Latency is the wall time of the winning provider call, or of the
	// whole failed attempt chain.
	Latency time.Duration
}

// Gateway fans a prompt across ordered providers with failover.
// Safe for concurrent use.
type Gateway struct {
	group *resilience.FallbackGroup[llm.Provider]
	cfg   Config
	log   *slog.Logger

	probes singleflight.Group
	mu     sync.Mutex
	alive  map[string]bool
}

// New builds a Gateway over providers in the given order. The first provider
// is preferred. A nil logger falls back to slog.Default.
func New(cfg Config, log *slog.Logger, providers ...llm.Provider) *Gateway {
	cfg.setDefaults()
	if log == nil {
		log = slog.Default()
	}
	entries := make([]resilience.Entry[llm.Provider], len(providers))
	for i, p := range providers {
		entries[i] = resilience.Entry[llm.Provider]{Name: p.Name(), Value: p}
	}
	return &Gateway{
		group: resilience.NewFallbackGroup(resilience.FallbackConfig{}, entries...),
		cfg:   cfg,
		log:   log,
		alive: make(map[string]bool),
	}
}

// Providers returns the configured provider names in failover order.
func (g *Gateway) Providers() []string { return g.group.Names() }

// Generate renders prompt against the first available provider and coerces
// the reply into a [Result]. It never returns an error; inspect
// Result.Success.
func (g *Gateway) Generate(ctx context.Context, systemPrompt, prompt string) Result {
	start := time.Now()

	if g.group.Len() == 0 {
		return Result{Err: DegradeMessage, Latency: time.Since(start)}
	}

	req := llm.Request{
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		Temperature:  g.cfg.Temperature,
		MaxTokens:    g.cfg.MaxTokens,
	}

	resp, served, err := resilience.ExecuteWithResult(g.group, func(p llm.Provider) (*llm.Response, error) {
		if err := g.ensureAlive(ctx, p); err != nil {
			return nil, err
		}
		cctx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
		return p.Complete(cctx, req)
	})
	latency := time.Since(start)
	if err != nil {
		g.log.WarnContext(ctx, "all providers failed", "error", err, "latency", latency)
		return Result{Err: DegradeMessage, Latency: latency}
	}

	res := Result{
		Success:  true,
		Provider: served,
		Raw:      resp.Content,
		Latency:  latency,
	}
	obj, ok := CoerceJSON(resp.Content)
	if !ok {
		g.log.WarnContext(ctx, "model reply is not JSON",
			"provider", served, "reply_len", len(resp.Content))
		return res
	}
	res.Parsed = structure(obj)
	return res
}

// ensureAlive probes p at most once per gateway lifetime. Concurrent first
// calls for the same provider collapse into a single probe.
func (g *Gateway) ensureAlive(ctx context.Context, p llm.Provider) error {
	name := p.Name()

	g.mu.Lock()
	alive, seen := g.alive[name]
	g.mu.Unlock()
	if seen {
		if !alive {
			return errProviderDown
		}
		return nil
	}

	_, err, _ := g.probes.Do(name, func() (any, error) {
		pctx, cancel := context.WithTimeout(ctx, g.cfg.ProbeTimeout)
		defer cancel()
		err := p.Ping(pctx)

		g.mu.Lock()
		g.alive[name] = err == nil
		g.mu.Unlock()

		if err != nil {
			g.log.Warn("provider probe failed", "provider", name, "error", err)
			return nil, errProviderDown
		}
		g.log.Info("provider probe ok", "provider", name)
		return nil, nil
	})
	return err
}

// structure converts a decoded JSON object into a [Parsed], normalizing the
// action name through the synonym table.
func structure(obj map[string]any) *Parsed {
	out := &Parsed{Params: command.Params{}}

	if raw, ok := obj["action"].(string); ok {
		out.Action = CanonicalAction(raw)
	}

	params, _ := obj["params"].(map[string]any)
	if params == nil {
		// Some models flatten parameters into the top level.
		params = obj
	}
	for k, v := range params {
		if k == "action" || k == "params" {
			continue
		}
		if val, ok := toValue(v); ok {
			out.Params[k] = val
		}
	}
	return out
}

func toValue(v any) (command.Value, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return command.Value{}, false
		}
		return command.String(t), true
	case float64:
		return command.Number(t), true
	case bool:
		if t {
			return command.String("true"), true
		}
		return command.String("false"), true
	case []any:
		var items []command.Value
		for _, e := range t {
			if v, ok := toValue(e); ok {
				items = append(items, v)
			}
		}
		if len(items) == 0 {
			return command.Value{}, false
		}
		return command.List(items...), true
	default:
		return command.Value{}, false
	}
}
