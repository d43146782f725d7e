// Package mergectx carries parameters forward across conversation turns so
// that elliptical follow-ups ("mark them all paid") stay well-formed.
//
// Merging is best-effort inference, never authoritative: a value supplied by
// the current turn always wins, and the merger can be disabled entirely
// without breaking single-turn flows. Recovery is deliberately narrow — only
// the period/month field is recovered from history, matching the behaviour
// the rest of the pipeline depends on.
package mergectx

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/campushq/steward/internal/command"
)

// Turn is one prior conversation message. Both roles are scanned: the user
// may have named the month, or the assistant may have echoed it back.
type Turn struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string
}

var (
	periodRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[-/ ]?(\d{4})\b`)
	isoRe    = regexp.MustCompile(`\b(\d{4})-(\d{2})\b`)
)

var monthNames = map[string]string{
	"jan": "Jan", "feb": "Feb", "mar": "Mar", "apr": "Apr",
	"may": "May", "jun": "Jun", "jul": "Jul", "aug": "Aug",
	"sep": "Sep", "oct": "Oct", "nov": "Nov", "dec": "Dec",
}

var isoToName = [...]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Merger fills gaps in the current turn's parameters from conversation
// history. The zero value is enabled; construct with Disabled to make Merge
// a pass-through.
type Merger struct {
	// Disabled turns Merge into an identity function over current params.
	Disabled bool

	// MaxTurns caps how far back history is scanned, newest first.
	// Zero means 10.
	MaxTurns int
}

// Merge returns the current parameters with recoverable fields filled from
// history. The input map is never mutated; current-turn values are never
// overwritten.
func (m Merger) Merge(current command.Params, history []Turn) command.Params {
	merged := current.Clone()
	if m.Disabled || len(history) == 0 {
		return merged
	}

	if _, ok := merged["month"]; !ok {
		if month, found := recoverPeriod(history, m.maxTurns()); found {
			merged["month"] = command.String(month)
		}
	}
	return merged
}

func (m Merger) maxTurns() int {
	if m.MaxTurns > 0 {
		return m.MaxTurns
	}
	return 10
}

// recoverPeriod scans history newest-first for a month/year token and
// returns it normalised to "Jan-2026" form.
func recoverPeriod(history []Turn, maxTurns int) (string, bool) {
	scanned := 0
	for i := len(history) - 1; i >= 0 && scanned < maxTurns; i-- {
		scanned++
		text := history[i].Content
		if m := periodRe.FindStringSubmatch(text); m != nil {
			return monthNames[strings.ToLower(m[1])] + "-" + m[2], true
		}
		if m := isoRe.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[2])
			if err == nil && n >= 1 && n <= 12 {
				return isoToName[n] + "-" + m[1], true
			}
		}
	}
	return "", false
}
