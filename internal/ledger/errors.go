package ledger

import "errors"

// Sentinel errors surfaced to callers. All of these represent unmet
// preconditions, not faults; the HTTP layer maps them to 4xx responses.
var (
	// ErrInsufficientCredits means a deduction exceeded the available balance.
	ErrInsufficientCredits = errors.New("ledger: insufficient credits")
	// ErrInvalidAmount means a mutation amount was zero or negative.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrPromoCodeNotFound covers unknown, inactive, and expired codes alike
	// so probing cannot distinguish them.
	ErrPromoCodeNotFound = errors.New("ledger: promo code not found")
	// ErrPromoAlreadyRedeemed means this member already redeemed the code.
	ErrPromoAlreadyRedeemed = errors.New("ledger: promo code already redeemed")
	// ErrPromoMaxUsesReached means the code's global use cap is exhausted.
	ErrPromoMaxUsesReached = errors.New("ledger: promo code max uses reached")
)
