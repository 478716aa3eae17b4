package settings

// DB config keys and defaults for settings.
const (
	// CreditTypesKey is the DB config key holding per-credit-type rules.
	CreditTypesKey = "CREDIT_TYPES"
	// ExpandIntervalSecondsKey controls the series expansion interval in seconds.
	ExpandIntervalSecondsKey = "EXPAND_INTERVAL_SECONDS"
	// OverdueIntervalSecondsKey controls the overdue-loan sweep interval in seconds.
	OverdueIntervalSecondsKey = "OVERDUE_INTERVAL_SECONDS"
	// DefaultExpandIntervalSeconds is the fallback expansion interval (seconds).
	DefaultExpandIntervalSeconds = 3600
	// DefaultOverdueIntervalSeconds is the fallback overdue sweep interval (seconds).
	DefaultOverdueIntervalSeconds = 900
)

// Built-in credit type tags. Behavior stays data-driven; these only name the
// types the collective ships with.
const (
	// CreditTypeFreeHours is rehearsal time in 15-minute blocks.
	CreditTypeFreeHours = "free_hours"
	// CreditTypeEquipmentCredits pays for equipment rental fees.
	CreditTypeEquipmentCredits = "equipment_credits"
)
