// Package payments holds the stateless fee math consulted by the reservation
// and loan flows. All amounts are integer cents.
package payments

import (
	"math"

	"github.com/DevonCash/corvmc-backend/internal/models"
)

// FeeSchedule describes a card-processing fee: a percentage of the charged
// amount plus a fixed per-charge amount.
type FeeSchedule struct {
	Rate  float64 // Fractional rate, e.g. 0.029 for 2.9%.
	Fixed int64   // Fixed amount in cents, e.g. 30.
}

// DefaultCardFees matches the standard card processor pricing.
var DefaultCardFees = FeeSchedule{Rate: 0.029, Fixed: 30}

// Fee returns the processing fee charged on amount.
func (s FeeSchedule) Fee(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return int64(math.Round(float64(amount)*s.Rate)) + s.Fixed
}

// GrossUp returns the total a payer must be charged so that, after the fee is
// deducted from the total, the recipient nets base. Solves
// total = (base + fixed) / (1 - rate), rounded up so the recipient is never
// short by more than rounding.
func (s FeeSchedule) GrossUp(base int64) int64 {
	if base <= 0 {
		return 0
	}
	if s.Rate >= 1 {
		return 0
	}
	return int64(math.Ceil(float64(base+s.Fixed) / (1 - s.Rate)))
}

// NetsBase reports whether charging total actually nets base after fees,
// within a one-cent rounding tolerance.
func (s FeeSchedule) NetsBase(total, base int64) bool {
	net := total - s.Fee(total)
	diff := net - base
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

// RequiresPayment reports whether a booking with the given cost and payment
// status still needs to be charged.
func RequiresPayment(cost int64, paymentStatus string) bool {
	if cost <= 0 {
		return false
	}
	switch paymentStatus {
	case models.PaymentStatusPaid, models.PaymentStatusComped:
		return false
	default:
		return true
	}
}
