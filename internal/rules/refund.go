package rules

import (
	"math"
	"time"

	"github.com/hobbyist/hobbyist-api/internal/model"
)

// RefundTolerance is the rounding slack, in cents, accepted between a
// provided refund and the computed one.
const RefundTolerance = 100

// HoursUntil returns the fractional hours from now until start.
func HoursUntil(start, now time.Time) float64 {
	return start.Sub(now).Hours()
}

// RefundPercentage applies policy to a cancellation hoursUntil hours before
// the class: the full percentage at or beyond the policy window, a linear
// proration inside it, and nothing once the class has started.
func RefundPercentage(policy model.CancellationPolicy, hoursUntil float64) float64 {
	switch {
	case hoursUntil >= float64(policy.HoursBeforeClass):
		return policy.RefundPercentage
	case hoursUntil >= 0:
		return math.Max(0, policy.RefundPercentage*(hoursUntil/float64(policy.HoursBeforeClass)))
	default:
		return 0
	}
}

// ExpectedRefund returns the refund in cents for amount at percentage.
func ExpectedRefund(amount int64, percentage float64) int64 {
	return int64(math.Round(float64(amount) * percentage / 100))
}

// CancellationRefund computes the refund for cancelling booking of class at now.
func CancellationRefund(booking *model.Booking, class *model.Class, now time.Time) (int64, float64) {
	pct := RefundPercentage(class.Policy(), HoursUntil(class.StartsAt, now))
	return ExpectedRefund(booking.Amount, pct), pct
}
