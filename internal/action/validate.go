package action

import (
	"fmt"
	"strings"

	"github.com/campushq/steward/internal/command"
)

// Validate checks a resolved parameter set against the definition's schema
// and returns the missing required field names in schema order. An empty
// result means the action is ready to dispatch.
func Validate(def Definition, params command.Params) []string {
	var missing []string
	for _, name := range def.Required {
		v, ok := params[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if (v.Kind == command.KindString || v.Kind == command.KindTag) && strings.TrimSpace(v.Str) == "" {
			missing = append(missing, name)
		}
		if v.Kind == command.KindList && len(v.List) == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// MissingPrompt renders a targeted clarifying question for the first
// missing field, rather than a generic bad-request message.
func MissingPrompt(def Definition, missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	field := strings.ReplaceAll(missing[0], "_", " ")
	return fmt.Sprintf("I need the %s to %s. What is it?", field, strings.ReplaceAll(def.Name, "_", " "))
}
