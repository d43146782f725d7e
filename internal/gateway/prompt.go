package gateway

import (
	"fmt"
	"sort"
	"strings"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/mergectx"
)

// SystemPrompt instructs the model to answer with nothing but the
// structured command shape. Kept deliberately short; longer prompts have
// not improved field accuracy and cost tokens on every command.
const SystemPrompt = `You convert school-administration requests into JSON.
Reply with a single JSON object: {"action": "<snake_case_action>", "params": {...}}.
Known actions: create_fee, update_fee_status, delete_fee, show_fees, add_item,
remove_item, update_item, add_category, show_items, mark_attendance,
show_attendance, add_employee, remove_employee, show_employees, send_notice.
Use parameter names: school, student, employee, item, category, class, month,
amount, quantity, date, fee_status, attendance_status, fee_ids, role, email,
message, audience.
Do not invent values that are not in the request. No prose, no code fences.`

// History the prompt carries is bounded twice: at most maxPromptTurns
// recent turns, and at most historyTokenBudget estimated tokens. Real
// token counts vary by model; len/4 is close enough for a cap.
const (
	maxPromptTurns     = 6
	historyTokenBudget = 512
)

// UserPrompt renders the per-command prompt: the raw request, the optional
// domain hint, any context the merger recovered, and a bounded window of
// recent conversation turns.
func UserPrompt(text string, agentHint command.Agent, carried command.Params, history []mergectx.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s", text)
	if agentHint != "" {
		fmt.Fprintf(&b, "\nDomain hint: %s", agentHint)
	}
	if len(carried) > 0 {
		b.WriteString("\nContext from earlier in the conversation:")
		for _, k := range sortedKeys(carried) {
			fmt.Fprintf(&b, "\n  %s: %s", k, carried[k].Text())
		}
	}
	if window := historyWindow(history); len(window) > 0 {
		b.WriteString("\nRecent conversation:")
		for _, turn := range window {
			fmt.Fprintf(&b, "\n  %s: %s", turn.Role, turn.Content)
		}
	}
	return b.String()
}

// historyWindow selects the newest turns that fit both bounds, returned in
// chronological order.
func historyWindow(history []mergectx.Turn) []mergectx.Turn {
	budget := historyTokenBudget
	start := len(history)
	for start > 0 && len(history)-start < maxPromptTurns {
		cost := estimateTokens(history[start-1].Content)
		if cost > budget {
			break
		}
		budget -= cost
		start--
	}
	return history[start:]
}

// estimateTokens approximates with four characters per token.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

func sortedKeys(p command.Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
