package classify_test

import (
	"testing"

	"github.com/campushq/steward/internal/classify"
	"github.com/campushq/steward/internal/command"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		wantAgent  command.Agent
		wantIntent string
		wantOK     bool
	}{
		{
			name:       "create fee",
			text:       "Create fees for Main School Jan-2026",
			wantAgent:  command.AgentFee,
			wantIntent: "create_fee",
			wantOK:     true,
		},
		{
			name:       "mark paid",
			text:       "mark them all paid",
			wantAgent:  command.AgentFee,
			wantIntent: "update_fee_status",
			wantOK:     true,
		},
		{
			name:       "delete fee",
			text:       "delete the fees for class 5",
			wantAgent:  command.AgentFee,
			wantIntent: "delete_fee",
			wantOK:     true,
		},
		{
			name:       "show fees",
			text:       "show fees for Jan-2026",
			wantAgent:  command.AgentFee,
			wantIntent: "show_fees",
			wantOK:     true,
		},
		{
			name:       "add item",
			text:       "add 10 chairs to inventory",
			wantAgent:  command.AgentInventory,
			wantIntent: "add_item",
			wantOK:     true,
		},
		{
			name:       "show inventory",
			text:       "list items in sports category",
			wantAgent:  command.AgentInventory,
			wantIntent: "show_items",
			wantOK:     true,
		},
		{
			name:       "mark absent",
			text:       "mark Ahmed absent today",
			wantAgent:  command.AgentAttendance,
			wantIntent: "mark_attendance",
			wantOK:     true,
		},
		{
			name:       "add employee",
			text:       "hire a new teacher named Sara",
			wantAgent:  command.AgentHR,
			wantIntent: "add_employee",
			wantOK:     true,
		},
		{
			name:       "broadcast",
			text:       `send notice "school closed" to all parents`,
			wantAgent:  command.AgentBroadcast,
			wantIntent: "send_notice",
			wantOK:     true,
		},
		{
			name:   "no match",
			text:   "what is the weather like",
			wantOK: false,
		},
		{
			name:   "empty input",
			text:   "   ",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			agent, intent, ok := classify.Classify(tt.text, "")
			if ok != tt.wantOK {
				t.Fatalf("Classify(%q): ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if agent != tt.wantAgent || intent != tt.wantIntent {
				t.Fatalf("Classify(%q) = (%s, %s), want (%s, %s)",
					tt.text, agent, intent, tt.wantAgent, tt.wantIntent)
			}
		})
	}
}

func TestClassifyAgentHint(t *testing.T) {
	t.Parallel()

	// "remove" + "item" would match inventory without a hint; with an hr
	// hint only hr tables are scanned.
	agent, intent, ok := classify.Classify("remove the broken item", command.AgentHR)
	if ok {
		t.Fatalf("Classify with hr hint: unexpected match (%s, %s)", agent, intent)
	}

	agent, intent, ok = classify.Classify("remove item projector", command.AgentInventory)
	if !ok || agent != command.AgentInventory || intent != "remove_item" {
		t.Fatalf("Classify with inventory hint = (%s, %s, %v), want (inventory, remove_item, true)", agent, intent, ok)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	// Input matching several tables must always resolve to the first
	// declared match.
	const text = "show fees and attendance"
	firstAgent, firstIntent, ok := classify.Classify(text, "")
	if !ok {
		t.Fatalf("Classify(%q): no match", text)
	}
	for i := 0; i < 50; i++ {
		agent, intent, ok := classify.Classify(text, "")
		if !ok || agent != firstAgent || intent != firstIntent {
			t.Fatalf("Classify(%q) run %d = (%s, %s, %v), want (%s, %s, true)",
				text, i, agent, intent, ok, firstAgent, firstIntent)
		}
	}
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	t.Run("keyword hit", func(t *testing.T) {
		t.Parallel()
		got := classify.Suggest("something about fees maybe")
		if len(got) == 0 {
			t.Fatal("Suggest: expected non-empty suggestions")
		}
		if got[0] != "create fees for Main School Jan-2026" {
			t.Fatalf("Suggest: first suggestion = %q", got[0])
		}
	})

	t.Run("no keyword falls back to general list", func(t *testing.T) {
		t.Parallel()
		got := classify.Suggest("xyzzy")
		if len(got) == 0 {
			t.Fatal("Suggest: expected general suggestions, got none")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		a := classify.Suggest("inventory stuff")
		b := classify.Suggest("inventory stuff")
		if len(a) != len(b) {
			t.Fatalf("Suggest: lengths differ: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("Suggest: run mismatch at %d: %q vs %q", i, a[i], b[i])
			}
		}
	})
}
