package settings

import (
	"encoding/json"
	"strings"
)

// CreditTypeRule configures allocation behavior for one credit type. Rollover
// behavior is decided per type; the rule values are stamped onto a member's
// balance row when it is first created, so a single member can still be
// overridden at the row level afterwards.
type CreditTypeRule struct {
	MonthlyAmount int64  `json:"monthly_amount"`        // Blocks allocated each month.
	Rollover      bool   `json:"rollover"`              // Carry unused balance forward.
	MaxBalance    *int64 `json:"max_balance,omitempty"` // Rollover cap in blocks, if any.
}

// DefaultCreditTypeRules returns the rules shipped before any admin edits.
func DefaultCreditTypeRules() map[string]CreditTypeRule {
	rolloverCap := int64(250)
	return map[string]CreditTypeRule{
		// 8 free rehearsal hours per month, reset monthly.
		CreditTypeFreeHours: {MonthlyAmount: 32, Rollover: false},
		// Equipment credits accumulate up to a cap.
		CreditTypeEquipmentCredits: {MonthlyAmount: 100, Rollover: true, MaxBalance: &rolloverCap},
	}
}

// CreditTypeRules returns the configured per-type rules from the snapshot,
// falling back to the shipped defaults when unset or malformed.
func CreditTypeRules() map[string]CreditTypeRule {
	raw, ok := Value(CreditTypesKey)
	if !ok || len(raw) == 0 {
		return DefaultCreditTypeRules()
	}
	var rules map[string]CreditTypeRule
	if errDecode := json.Unmarshal(raw, &rules); errDecode != nil || len(rules) == 0 {
		return DefaultCreditTypeRules()
	}
	return rules
}

// CreditTypeRuleFor returns the rule for one credit type.
func CreditTypeRuleFor(creditType string) (CreditTypeRule, bool) {
	rule, ok := CreditTypeRules()[strings.TrimSpace(creditType)]
	return rule, ok
}
