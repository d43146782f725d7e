package classify

import "strings"

// suggestionEntry maps a trigger keyword to example commands the user can
// copy. Entries are scanned in declared order so suggestion output is
// deterministic for identical input.
type suggestionEntry struct {
	keyword  string
	examples []string
}

var suggestionTable = []suggestionEntry{
	{keyword: "fee", examples: []string{
		"create fees for Main School Jan-2026",
		"show fees for class 5",
		"mark fees paid for Ahmed",
	}},
	{keyword: "attendance", examples: []string{
		"mark Ahmed absent today",
		"show attendance for class 5 this month",
	}},
	{keyword: "item", examples: []string{
		"add 10 chairs to inventory",
		"show items in Sports category",
	}},
	{keyword: "stock", examples: []string{
		"add 10 chairs to inventory",
		"update stock of markers to 50",
	}},
	{keyword: "inventory", examples: []string{
		"add 10 chairs to inventory",
		"remove item projector",
	}},
	{keyword: "employee", examples: []string{
		"add employee Sara as teacher",
		"show employees of Main School",
	}},
	{keyword: "staff", examples: []string{
		"show staff of Main School",
	}},
	{keyword: "notice", examples: []string{
		`send notice "school closed tomorrow" to all parents`,
	}},
	{keyword: "message", examples: []string{
		`send message "fees due Friday" to class 5 parents`,
	}},
}

// generalExamples is returned when no keyword in the input matches the
// suggestion table.
var generalExamples = []string{
	"create fees for Main School Jan-2026",
	"mark Ahmed absent today",
	"add 10 chairs to inventory",
	`send notice "school closed tomorrow" to all parents`,
}

// Suggest returns deterministic example commands for text that failed
// classification. Keyword entries are checked in table order; the first
// matching keyword's examples are returned. With no keyword hit, a general
// starter list is returned, so the caller never surfaces a silent failure.
func Suggest(text string) []string {
	norm := Normalize(text)
	for _, entry := range suggestionTable {
		if strings.Contains(norm, entry.keyword) {
			out := make([]string, len(entry.examples))
			copy(out, entry.examples)
			return out
		}
	}
	out := make([]string, len(generalExamples))
	copy(out, generalExamples)
	return out
}
