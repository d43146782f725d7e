// Package classify implements the deterministic regex path of the command
// pipeline. An ordered table of agent → intent → patterns maps normalised
// free text to an (agent, intent) pair; the first matching pattern wins,
// scanning agents and intents in declared order. There is no scoring and no
// side effects, so classification is reproducible for identical input.
package classify

import (
	"regexp"
	"strings"

	"github.com/campushq/steward/internal/command"
)

// intentRules pairs one intent with its ordered pattern list.
type intentRules struct {
	intent   string
	patterns []*regexp.Regexp
}

// agentRules groups the intent tables of one agent. Table order is the
// authoritative tie-breaker between agents.
type agentRules struct {
	agent   command.Agent
	intents []intentRules
}

// table is the full classification table. Patterns are matched against
// lower-cased, whitespace-collapsed input.
var table = []agentRules{
	{
		agent: command.AgentFee,
		intents: []intentRules{
			{intent: "create_fee", patterns: compile(
				`\b(create|generate|make)\b.*\bfees?\b`,
				`\bfees?\b.*\b(create|generate)\b`,
			)},
			{intent: "update_fee_status", patterns: compile(
				`\bmark\b.*\b(paid|unpaid|partial)\b`,
				`\b(pay|settle)\b.*\bfees?\b`,
				`\bfees?\b.*\b(paid|unpaid)\b`,
			)},
			{intent: "delete_fee", patterns: compile(
				`\b(delete|remove|cancel)\b.*\bfees?\b`,
			)},
			{intent: "show_fees", patterns: compile(
				`\b(show|list|view|display|get)\b.*\bfees?\b`,
				`\bfees?\b.*\b(due|pending|outstanding)\b`,
			)},
		},
	},
	{
		agent: command.AgentInventory,
		intents: []intentRules{
			{intent: "add_item", patterns: compile(
				`\badd\b.*\b(item|stock|inventory)\b`,
				`\bnew\b.*\b(item|stock)\b`,
				`\badd\b\s+\d+\s+\w+`,
			)},
			{intent: "remove_item", patterns: compile(
				`\b(remove|delete)\b.*\b(item|stock|inventory)\b`,
			)},
			{intent: "update_item", patterns: compile(
				`\b(update|change|set)\b.*\b(item|stock|quantity)\b`,
			)},
			{intent: "add_category", patterns: compile(
				`\b(add|create)\b.*\bcategor(y|ies)\b`,
			)},
			{intent: "show_items", patterns: compile(
				`\b(show|list|view|check)\b.*\b(items?|stock|inventory)\b`,
			)},
		},
	},
	{
		agent: command.AgentAttendance,
		intents: []intentRules{
			{intent: "mark_attendance", patterns: compile(
				`\bmark\b.*\b(present|absent|late|leave)\b`,
				`\b(present|absent)\b.*\b(today|yesterday|tomorrow)\b`,
			)},
			{intent: "show_attendance", patterns: compile(
				`\b(show|view|check)\b.*\battendance\b`,
				`\battendance\b.*\b(report|summary|of|for)\b`,
			)},
		},
	},
	{
		agent: command.AgentHR,
		intents: []intentRules{
			{intent: "add_employee", patterns: compile(
				`\b(add|hire|register)\b.*\b(employee|staff|teacher)\b`,
			)},
			{intent: "remove_employee", patterns: compile(
				`\b(remove|delete|terminate)\b.*\b(employee|staff|teacher)\b`,
			)},
			{intent: "show_employees", patterns: compile(
				`\b(show|list|view)\b.*\b(employees?|staff|teachers?)\b`,
			)},
		},
	},
	{
		agent: command.AgentBroadcast,
		intents: []intentRules{
			{intent: "send_notice", patterns: compile(
				`\b(send|broadcast|announce)\b.*\b(notice|message|notification|announcement)\b`,
				`\bnotify\b`,
			)},
		},
	},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Normalize lower-cases text and collapses runs of whitespace to single
// spaces. All classifier and extractor patterns assume this form.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Classify maps text to an (agent, intent) pair, or ok=false when nothing
// matches. When agentHint is a valid agent, only that agent's table is
// scanned; otherwise all agents are scanned in declared order.
func Classify(text string, agentHint command.Agent) (command.Agent, string, bool) {
	norm := Normalize(text)
	if norm == "" {
		return "", "", false
	}
	for _, ar := range table {
		if agentHint.IsValid() && ar.agent != agentHint {
			continue
		}
		for _, ir := range ar.intents {
			for _, p := range ir.patterns {
				if p.MatchString(norm) {
					return ar.agent, ir.intent, true
				}
			}
		}
	}
	return "", "", false
}
