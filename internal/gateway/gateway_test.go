package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/campushq/steward/internal/gateway"
	"github.com/campushq/steward/pkg/provider/llm"
	"github.com/campushq/steward/pkg/provider/llm/mock"
)

func TestGenerateParsesFencedReply(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{
		ProviderName: "primary",
		CompleteResponse: &llm.Response{
			Content: "```json\n{\"action\": \"create_fee\", \"params\": {\"school\": \"Main School\", \"amount\": 500}}\n```",
		},
	}
	g := gateway.New(gateway.Config{}, nil, p)

	res := g.Generate(context.Background(), gateway.SystemPrompt, "create fee")
	if !res.Success {
		t.Fatalf("Generate failed: %s", res.Err)
	}
	if res.Provider != "primary" {
		t.Errorf("Provider = %q", res.Provider)
	}
	if res.Parsed == nil {
		t.Fatal("Parsed is nil for a fenced JSON reply")
	}
	if res.Parsed.Action != "create_fee" {
		t.Errorf("Action = %q", res.Parsed.Action)
	}
	if res.Parsed.Params["school"].Text() != "Main School" {
		t.Errorf("school param = %q", res.Parsed.Params["school"].Text())
	}
	if res.Parsed.Params["amount"].Text() != "500" {
		t.Errorf("amount param = %q", res.Parsed.Params["amount"].Text())
	}
}

func TestGenerateNormalizesActionSynonym(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{
		CompleteResponse: &llm.Response{
			Content: `{"action": "fee_create", "params": {"class": "5"}}`,
		},
	}
	g := gateway.New(gateway.Config{}, nil, p)

	res := g.Generate(context.Background(), gateway.SystemPrompt, "new fee")
	if res.Parsed == nil || res.Parsed.Action != "create_fee" {
		t.Fatalf("synonym not normalized: %+v", res.Parsed)
	}
}

func TestGenerateUnsupportedActionIsNotFatal(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{
		CompleteResponse: &llm.Response{
			Content: `{"action": "launch_rockets", "params": {}}`,
		},
	}
	g := gateway.New(gateway.Config{}, nil, p)

	res := g.Generate(context.Background(), gateway.SystemPrompt, "launch")
	if !res.Success {
		t.Fatalf("unsupported action must not fail the call: %s", res.Err)
	}
	if res.Parsed == nil || res.Parsed.Action != "" {
		t.Errorf("unsupported action should normalize to empty, got %+v", res.Parsed)
	}
}

func TestGenerateKeepsRawOnUnparseableReply(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{
		CompleteResponse: &llm.Response{Content: "I'm sorry, I can't help with that."},
	}
	g := gateway.New(gateway.Config{}, nil, p)

	res := g.Generate(context.Background(), gateway.SystemPrompt, "gibberish")
	if !res.Success {
		t.Fatal("a served but unparseable reply still counts as served")
	}
	if res.Parsed != nil {
		t.Errorf("Parsed = %+v, want nil", res.Parsed)
	}
	if res.Raw == "" {
		t.Error("raw reply not preserved for diagnostics")
	}
}

func TestGenerateFailsOverToSecondProvider(t *testing.T) {
	t.Parallel()
	down := &mock.Provider{ProviderName: "down", PingErr: errors.New("unreachable")}
	up := &mock.Provider{
		ProviderName:     "up",
		CompleteResponse: &llm.Response{Content: `{"action": "show_fees", "params": {}}`},
	}
	g := gateway.New(gateway.Config{}, nil, down, up)

	res := g.Generate(context.Background(), gateway.SystemPrompt, "show fees")
	if !res.Success || res.Provider != "up" {
		t.Fatalf("expected failover to up, got %+v", res)
	}
	if down.PingCallCount != 1 {
		t.Errorf("down probed %d times, want 1", down.PingCallCount)
	}

	// The dead provider's probe result is memoized, never re-probed.
	g.Generate(context.Background(), gateway.SystemPrompt, "show fees")
	if down.PingCallCount != 1 {
		t.Errorf("down re-probed (%d calls); probes must be memoized", down.PingCallCount)
	}
}

func TestGenerateAllProvidersDown(t *testing.T) {
	t.Parallel()
	a := &mock.Provider{ProviderName: "a", PingErr: errors.New("down")}
	b := &mock.Provider{ProviderName: "b", PingErr: errors.New("down")}
	g := gateway.New(gateway.Config{}, nil, a, b)

	res := g.Generate(context.Background(), gateway.SystemPrompt, "anything")
	if res.Success {
		t.Fatal("Generate succeeded with no live provider")
	}
	if res.Err != gateway.DegradeMessage {
		t.Errorf("Err = %q, want the degrade message", res.Err)
	}
	if a.PingCallCount != 1 || b.PingCallCount != 1 {
		t.Errorf("probe counts a=%d b=%d, want 1 each", a.PingCallCount, b.PingCallCount)
	}
}

func TestGenerateNoProvidersConfigured(t *testing.T) {
	t.Parallel()
	g := gateway.New(gateway.Config{}, nil)

	res := g.Generate(context.Background(), gateway.SystemPrompt, "anything")
	if res.Success || res.Err != gateway.DegradeMessage {
		t.Errorf("got %+v, want degraded result", res)
	}
}
