// Package extract pulls raw parameter values out of normalised command text.
// Extraction is intent-scoped: each intent declares which field extractors
// run against it. Extractors are pure heuristics over the text — they never
// query live data and never error; a field that cannot be found is simply
// absent from the result.
//
// Special values are extracted as tagged values, not resolved here: payment
// keywords ("full", "balance", "remaining") become "amount:<keyword>" tags
// and relative date phrases ("today", "next friday") become "date:<phrase>"
// tags. The tag is resolved later against the specific record it applies to.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/campushq/steward/internal/classify"
	"github.com/campushq/steward/internal/command"
)

// fieldExtractor locates one named parameter in the text, reporting ok=false
// when the field is absent.
type fieldExtractor func(text string) (command.Value, bool)

// intentFields declares, per intent, which extractors run and under which
// parameter name the result is stored. Order is preserved so earlier fields
// can be stripped before later, greedier ones run (names last). Extractors
// marked raw see the original casing; everything else runs over the
// lower-cased normalisation.
var intentFields = map[string][]struct {
	name string
	fn   fieldExtractor
	raw  bool
}{
	"create_fee": {
		{name: "month", fn: extractPeriod},
		{name: "amount", fn: extractAmount},
		{name: "class", fn: extractClass},
		{name: "school", fn: extractRecipient},
	},
	"update_fee_status": {
		{name: "month", fn: extractPeriod},
		{name: "fee_status", fn: extractFeeStatus},
		{name: "amount", fn: extractAmount},
		{name: "class", fn: extractClass},
		{name: "student", fn: extractRecipient},
	},
	"show_fees": {
		{name: "month", fn: extractPeriod},
		{name: "fee_status", fn: extractFeeStatus},
		{name: "class", fn: extractClass},
		{name: "school", fn: extractRecipient},
	},
	"delete_fee": {
		{name: "month", fn: extractPeriod},
		{name: "fee_ids", fn: extractIDList},
		{name: "class", fn: extractClass},
		{name: "student", fn: extractRecipient},
	},
	"add_item": {
		{name: "quantity", fn: extractQuantity},
		{name: "category", fn: extractCategory},
		{name: "item", fn: extractItemName},
	},
	"remove_item": {
		{name: "quantity", fn: extractQuantity},
		{name: "item", fn: extractItemName},
	},
	"update_item": {
		{name: "quantity", fn: extractQuantity},
		{name: "item", fn: extractItemName},
	},
	"add_category": {
		{name: "category", fn: extractCategory},
	},
	"show_items": {
		{name: "category", fn: extractCategory},
	},
	"mark_attendance": {
		{name: "date", fn: extractDate},
		{name: "attendance_status", fn: extractAttendanceStatus},
		{name: "class", fn: extractClass},
		{name: "student", fn: extractMarkSubject},
	},
	"show_attendance": {
		{name: "month", fn: extractPeriod},
		{name: "date", fn: extractDate},
		{name: "class", fn: extractClass},
		{name: "student", fn: extractRecipient},
	},
	"add_employee": {
		{name: "email", fn: extractEmail},
		{name: "role", fn: extractRole},
		{name: "employee", fn: extractRecipient},
	},
	"remove_employee": {
		{name: "employee", fn: extractRecipient},
	},
	"show_employees": {
		{name: "school", fn: extractRecipient},
	},
	"send_notice": {
		{name: "date", fn: extractDate},
		{name: "message", fn: extractMessage, raw: true},
		{name: "class", fn: extractClass},
		{name: "audience", fn: extractAudience},
	},
}

// Extract returns the raw parameters found in text for the given intent.
// Unknown intents and fields that cannot be located yield fewer keys, never
// an error.
func Extract(text, intent string) command.Params {
	params := command.Params{}
	norm := classify.Normalize(text)
	if norm == "" {
		return params
	}
	// Same whitespace collapsing as Normalize, original casing kept, for
	// extractors that capture verbatim spans.
	raw := strings.Join(strings.Fields(text), " ")

	fields, ok := intentFields[intent]
	if !ok {
		return params
	}
	for _, f := range fields {
		src := norm
		if f.raw {
			src = raw
		}
		if v, found := f.fn(src); found {
			params[f.name] = v
		}
	}
	return params
}

// ─── Periods and dates ───

var monthNames = map[string]string{
	"jan": "Jan", "feb": "Feb", "mar": "Mar", "apr": "Apr",
	"may": "May", "jun": "Jun", "jul": "Jul", "aug": "Aug",
	"sep": "Sep", "oct": "Oct", "nov": "Nov", "dec": "Dec",
}

var (
	periodRe  = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[-/ ]?(\d{4})\b`)
	isoMonth  = regexp.MustCompile(`\b(\d{4})-(\d{2})\b`)
	weekdayRe = regexp.MustCompile(`\b(next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	monthDay  = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{1,2})\b`)
)

var isoToName = [...]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// extractPeriod finds a month/year token like "Jan-2026", "january 2026",
// or "2026-01" and normalises it to "Jan-2026".
func extractPeriod(text string) (command.Value, bool) {
	if m := periodRe.FindStringSubmatch(text); m != nil {
		return command.String(monthNames[m[1]] + "-" + m[2]), true
	}
	if m := isoMonth.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil && n >= 1 && n <= 12 {
			return command.String(isoToName[n] + "-" + m[1]), true
		}
	}
	return command.Value{}, false
}

// extractDate finds relative date phrases and month-day phrases, emitting
// them as "date:" tags for later resolution.
func extractDate(text string) (command.Value, bool) {
	for _, kw := range []string{"today", "tomorrow", "yesterday"} {
		if strings.Contains(text, kw) {
			return command.Tag("date:" + kw), true
		}
	}
	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			return command.Tag("date:next-" + m[2]), true
		}
		return command.Tag("date:" + m[2]), true
	}
	if m := monthDay.FindStringSubmatch(text); m != nil {
		return command.Tag("date:" + m[1] + "-" + m[2]), true
	}
	return command.Value{}, false
}

// ─── Amounts and quantities ───

var (
	currencyRe = regexp.MustCompile(`(?:rs\.?|₹|\$|pkr|usd)\s*(\d+(?:\.\d+)?)`)
	amountOfRe = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(?:rupees|rs|dollars)\b`)
	quantityRe = regexp.MustCompile(`\b(\d+)\s+(?:x\s+)?[a-z]`)
)

// amountKeywords are special payment values resolved later against the
// record they apply to ("full" means that record's total, and so on).
var amountKeywords = []string{"full", "balance", "remaining", "half"}

func extractAmount(text string) (command.Value, bool) {
	if m := currencyRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return command.Number(n), true
		}
	}
	if m := amountOfRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return command.Number(n), true
		}
	}
	for _, kw := range amountKeywords {
		if hasWord(text, kw) {
			return command.Tag("amount:" + kw), true
		}
	}
	return command.Value{}, false
}

// hasWord reports whether text contains w as a standalone token.
func hasWord(text, w string) bool {
	for _, tok := range strings.Fields(text) {
		if strings.Trim(tok, ".,!?") == w {
			return true
		}
	}
	return false
}

func extractQuantity(text string) (command.Value, bool) {
	// Skip numbers that are part of a period or class token.
	stripped := periodRe.ReplaceAllString(text, "")
	stripped = classRe.ReplaceAllString(stripped, "")
	if m := quantityRe.FindStringSubmatch(stripped); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return command.Number(float64(n)), true
		}
	}
	return command.Value{}, false
}

var idListRe = regexp.MustCompile(`\b(\d+(?:\s*,\s*\d+)+)\b`)

// extractIDList finds comma-separated numeric ID lists like "10, 11".
func extractIDList(text string) (command.Value, bool) {
	m := idListRe.FindStringSubmatch(text)
	if m == nil {
		return command.Value{}, false
	}
	parts := strings.Split(m[1], ",")
	vals := make([]command.Value, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return command.Value{}, false
		}
		vals = append(vals, command.Number(float64(n)))
	}
	return command.List(vals...), true
}

// ─── Statuses, classes, roles ───

var classRe = regexp.MustCompile(`\b(?:class|grade)\s+(\d+[a-z]?)\b`)

func extractClass(text string) (command.Value, bool) {
	if m := classRe.FindStringSubmatch(text); m != nil {
		return command.String(m[1]), true
	}
	return command.Value{}, false
}

func extractFeeStatus(text string) (command.Value, bool) {
	for _, s := range []string{"unpaid", "paid", "partial", "due", "pending"} {
		if hasWord(text, s) {
			return command.String(s), true
		}
	}
	return command.Value{}, false
}

func extractAttendanceStatus(text string) (command.Value, bool) {
	for _, s := range []string{"present", "absent", "late", "leave"} {
		if hasWord(text, s) {
			return command.String(s), true
		}
	}
	return command.Value{}, false
}

var roleRe = regexp.MustCompile(`\bas\s+(?:an?\s+)?([a-z]+)\b`)

func extractRole(text string) (command.Value, bool) {
	if m := roleRe.FindStringSubmatch(text); m != nil {
		return command.String(m[1]), true
	}
	for _, r := range []string{"teacher", "accountant", "driver", "guard", "clerk"} {
		if hasWord(text, r) {
			return command.String(r), true
		}
	}
	return command.Value{}, false
}

var emailRe = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

func extractEmail(text string) (command.Value, bool) {
	if m := emailRe.FindString(text); m != "" {
		return command.String(m), true
	}
	return command.Value{}, false
}

// ─── Free text: names, items, categories, messages ───

// Name spans are captured one word at a time with a lazy tail. A rep shape
// like `(?:[a-z]+\s*){1,3}?` cannot be used here: when the inner \s* eats
// the space the terminator needs, the engine grows the repetition instead
// of shrinking \s*, and the terminator word ends up inside the capture.
var (
	quotedRe    = regexp.MustCompile(`"([^"]+)"|'([^']+)'|\[([^\]]+)\]`)
	recipientRe = regexp.MustCompile(`\b(?:for|of|to)\s+((?:[a-z]+)(?:\s+[a-z]+){0,3}?)(?:\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec|class|grade|today|tomorrow|yesterday|this|next|last)\b|$|,)`)
	markRe      = regexp.MustCompile(`\bmark\s+((?:[a-z]+)(?:\s+[a-z]+){0,2}?)\s+(?:present|absent|late|leave)\b`)
	itemRe      = regexp.MustCompile(`\b\d+\s+((?:[a-z]+)(?:\s+[a-z]+){0,2}?)(?:\s+(?:to|in|into|from)\b|$)`)
	namedItemRe = regexp.MustCompile(`\b(?:item|stock of)\s+((?:[a-z]+)(?:\s+[a-z]+){0,2}?)(?:\s+(?:to|in|from)\b|$)`)
	categoryRe  = regexp.MustCompile(`\b(?:in|category|categories)\s+((?:[a-z]+)(?:\s+[a-z]+){0,2}?)(?:\s+category\b|$)`)
	audienceRe  = regexp.MustCompile(`\bto\s+(?:all\s+)?(parents|teachers|staff|students|everyone)\b`)
)

// stopWords are leading articles stripped from captured name spans.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "all": true,
}

func trimName(s string) string {
	fields := strings.Fields(s)
	for len(fields) > 0 && stopWords[fields[0]] {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

// extractRecipient captures the name phrase following "for", "of", or "to".
// The span ends at a period, class, or date token so trailing qualifiers do
// not leak into the name.
func extractRecipient(text string) (command.Value, bool) {
	// Strip tokens already claimed by other extractors so the name capture
	// is not polluted by them.
	stripped := periodRe.ReplaceAllString(text, "")
	stripped = strings.TrimSpace(stripped)
	if m := recipientRe.FindStringSubmatch(stripped); m != nil {
		name := trimName(strings.TrimSpace(m[1]))
		if name != "" {
			return command.String(name), true
		}
	}
	return command.Value{}, false
}

// extractMarkSubject captures the name between "mark" and an attendance
// status keyword ("mark Ahmed absent").
func extractMarkSubject(text string) (command.Value, bool) {
	if m := markRe.FindStringSubmatch(text); m != nil {
		name := trimName(strings.TrimSpace(m[1]))
		if name != "" {
			return command.String(name), true
		}
	}
	return extractRecipient(text)
}

func extractItemName(text string) (command.Value, bool) {
	if m := namedItemRe.FindStringSubmatch(text); m != nil {
		name := trimName(strings.TrimSpace(m[1]))
		if name != "" {
			return command.String(name), true
		}
	}
	if m := itemRe.FindStringSubmatch(text); m != nil {
		name := trimName(strings.TrimSpace(m[1]))
		if name != "" && name != "inventory" && name != "stock" {
			return command.String(name), true
		}
	}
	return command.Value{}, false
}

func extractCategory(text string) (command.Value, bool) {
	if m := categoryRe.FindStringSubmatch(text); m != nil {
		name := trimName(strings.TrimSpace(m[1]))
		if name != "" && name != "inventory" {
			return command.String(name), true
		}
	}
	return command.Value{}, false
}

// extractMessage captures quoted or bracketed free-text bodies.
func extractMessage(text string) (command.Value, bool) {
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				return command.String(g), true
			}
		}
	}
	return command.Value{}, false
}

func extractAudience(text string) (command.Value, bool) {
	if m := audienceRe.FindStringSubmatch(text); m != nil {
		return command.String(m[1]), true
	}
	return command.Value{}, false
}
