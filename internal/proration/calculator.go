// Package proration computes upgrade credits for mid-cycle plan changes.
// All money flows through fixed-point decimals; binary floats drift at the
// cent level over enough subscriptions, and billing cannot afford that.
package proration

import (
	"time"

	"github.com/shopspring/decimal"
)

// fallbackCycleDays substitutes for a degenerate stored cycle so a corrupt
// subscription row never divides by zero or aborts a checkout.
const fallbackCycleDays = 30

type Result struct {
	CreditAmount  decimal.Decimal `json:"credit_amount"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	DaysRemaining int64           `json:"days_remaining"`
}

// ComputeUpgradeCredit returns the residual credit for the unexpired part
// of the current plan and the net amount due for the new plan.
//
// Credit applies only to genuine upgrades (newPlanPrice > currentPlanPrice)
// on a still-running subscription. Every other case yields zero credit and
// the new plan's full price, a conservative number rather than a failure.
func ComputeUpgradeCredit(currentPlanPrice decimal.Decimal, currentStart, currentEnd time.Time, newPlanPrice decimal.Decimal, asOf time.Time) Result {
	daysRemaining := daysBetween(asOf, currentEnd)
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	if !newPlanPrice.GreaterThan(currentPlanPrice) || !currentEnd.After(asOf) {
		return Result{
			CreditAmount:  decimal.Zero,
			FinalAmount:   newPlanPrice.Round(2),
			DaysRemaining: daysRemaining,
		}
	}

	cycleDays := daysBetween(currentStart, currentEnd)
	if cycleDays <= 0 {
		cycleDays = fallbackCycleDays
	}

	dailyRate := currentPlanPrice.Div(decimal.NewFromInt(cycleDays))
	credit := dailyRate.Mul(decimal.NewFromInt(daysRemaining)).Round(2)

	final := newPlanPrice.Sub(credit)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Result{
		CreditAmount:  credit,
		FinalAmount:   final.Round(2),
		DaysRemaining: daysRemaining,
	}
}

func daysBetween(from, to time.Time) int64 {
	return int64(to.Sub(from) / (24 * time.Hour))
}
