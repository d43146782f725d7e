package gateway

import "strings"

// canonicalActions is the set of action names the dispatcher understands.
var canonicalActions = map[string]struct{}{
	"create_fee":        {},
	"update_fee_status": {},
	"delete_fee":        {},
	"show_fees":         {},
	"add_item":          {},
	"remove_item":       {},
	"update_item":       {},
	"add_category":      {},
	"show_items":        {},
	"mark_attendance":   {},
	"show_attendance":   {},
	"add_employee":      {},
	"remove_employee":   {},
	"show_employees":    {},
	"send_notice":       {},
}

// actionSynonyms maps model-invented aliases to canonical action names.
// Models paraphrase freely ("fee_create", "new_fee", "delete_fees"), so
// every observed alias gets an entry rather than a fuzzy match.
var actionSynonyms = map[string]string{
	"new_fee":           "create_fee",
	"add_fee":           "create_fee",
	"fee_create":        "create_fee",
	"create_fees":       "create_fee",
	"generate_fee":      "create_fee",
	"mark_fee_paid":     "update_fee_status",
	"update_fee":        "update_fee_status",
	"set_fee_status":    "update_fee_status",
	"pay_fee":           "update_fee_status",
	"remove_fee":        "delete_fee",
	"delete_fees":       "delete_fee",
	"list_fees":         "show_fees",
	"get_fees":          "show_fees",
	"show_fee":          "show_fees",
	"fee_report":        "show_fees",
	"create_item":       "add_item",
	"new_item":          "add_item",
	"add_inventory":     "add_item",
	"add_stock":         "add_item",
	"delete_item":       "remove_item",
	"remove_inventory":  "remove_item",
	"update_stock":      "update_item",
	"update_inventory":  "update_item",
	"create_category":   "add_category",
	"new_category":      "add_category",
	"list_items":        "show_items",
	"show_inventory":    "show_items",
	"get_items":         "show_items",
	"take_attendance":   "mark_attendance",
	"record_attendance": "mark_attendance",
	"attendance_mark":   "mark_attendance",
	"list_attendance":   "show_attendance",
	"get_attendance":    "show_attendance",
	"attendance_report": "show_attendance",
	"create_employee":   "add_employee",
	"new_employee":      "add_employee",
	"hire_employee":     "add_employee",
	"add_staff":         "add_employee",
	"delete_employee":   "remove_employee",
	"remove_staff":      "remove_employee",
	"fire_employee":     "remove_employee",
	"list_employees":    "show_employees",
	"get_employees":     "show_employees",
	"show_staff":        "show_employees",
	"send_message":      "send_notice",
	"broadcast":         "send_notice",
	"send_notification": "send_notice",
	"notify":            "send_notice",
	"send_announcement": "send_notice",
}

// CanonicalAction normalizes a model-supplied action name. It lowercases,
// swaps separators to underscores, then consults the synonym table. Unknown
// names return "" and are treated as unsupported, not as errors.
func CanonicalAction(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(name)

	if canonical, ok := actionSynonyms[name]; ok {
		return canonical
	}
	if _, ok := canonicalActions[name]; ok {
		return name
	}
	return ""
}
