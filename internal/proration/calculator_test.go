package proration

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestComputeUpgradeCredit_MidCycleUpgrade(t *testing.T) {
	// 30-day cycle priced at 300, 10 days left: daily rate 10, credit 100.
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	asOf := start.AddDate(0, 0, 20)

	result := ComputeUpgradeCredit(d("300"), start, end, d("500"), asOf)

	require.Equal(t, int64(10), result.DaysRemaining)
	assert.True(t, result.CreditAmount.Equal(d("100.00")), "credit %s", result.CreditAmount)
	assert.True(t, result.FinalAmount.Equal(d("400.00")), "final %s", result.FinalAmount)
}

func TestComputeUpgradeCredit_CreditRoundsToCents(t *testing.T) {
	// 100 over 30 days leaves a repeating daily rate; the credit must land
	// on exactly two decimal places.
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	asOf := start.AddDate(0, 0, 23)

	result := ComputeUpgradeCredit(d("100"), start, end, d("250"), asOf)

	require.Equal(t, int64(7), result.DaysRemaining)
	// 100/30*7 = 23.333... rounds to 23.33
	assert.True(t, result.CreditAmount.Equal(d("23.33")), "credit %s", result.CreditAmount)
	assert.True(t, result.FinalAmount.Equal(d("226.67")), "final %s", result.FinalAmount)
	assert.Equal(t, int32(-2), result.CreditAmount.Exponent())
}

func TestComputeUpgradeCredit_DowngradeGetsNoCredit(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	asOf := start.AddDate(0, 0, 10)

	result := ComputeUpgradeCredit(d("500"), start, end, d("300"), asOf)

	assert.True(t, result.CreditAmount.IsZero())
	assert.True(t, result.FinalAmount.Equal(d("300.00")))
	assert.Equal(t, int64(20), result.DaysRemaining)
}

func TestComputeUpgradeCredit_SamePriceGetsNoCredit(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	asOf := start.AddDate(0, 0, 10)

	result := ComputeUpgradeCredit(d("300"), start, end, d("300"), asOf)

	assert.True(t, result.CreditAmount.IsZero())
	assert.True(t, result.FinalAmount.Equal(d("300.00")))
}

func TestComputeUpgradeCredit_ExpiredSubscription(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	asOf := end.AddDate(0, 0, 5)

	result := ComputeUpgradeCredit(d("300"), start, end, d("500"), asOf)

	assert.True(t, result.CreditAmount.IsZero())
	assert.True(t, result.FinalAmount.Equal(d("500.00")))
	assert.Equal(t, int64(0), result.DaysRemaining)
}

func TestComputeUpgradeCredit_DegenerateCycleFallsBackTo30Days(t *testing.T) {
	// Corrupt row: start == end would divide by zero without the fallback.
	// End still has to sit in the future for any credit to accrue, so pin
	// asOf before it.
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	start := end
	asOf := end.AddDate(0, 0, -10)

	result := ComputeUpgradeCredit(d("300"), start, end, d("500"), asOf)

	require.Equal(t, int64(10), result.DaysRemaining)
	// daily rate 300/30 = 10 against the fallback cycle
	assert.True(t, result.CreditAmount.Equal(d("100.00")), "credit %s", result.CreditAmount)
	assert.True(t, result.FinalAmount.Equal(d("400.00")), "final %s", result.FinalAmount)
}

func TestComputeUpgradeCredit_CreditNeverExceedsNewPrice(t *testing.T) {
	// A healthy upgrade can never accrue more credit than the new price:
	// credit <= currentPrice < newPrice. Only corrupt data reaches the
	// clamp, such as a backdated asOf that puts more days remaining than
	// the cycle holds. The amount due still bottoms out at zero.
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	asOf := start.AddDate(0, 0, -10)

	result := ComputeUpgradeCredit(d("300"), start, end, d("310"), asOf)

	require.Equal(t, int64(40), result.DaysRemaining)
	// daily rate 10 over 40 days outruns the 310 due
	assert.True(t, result.CreditAmount.Equal(d("400.00")), "credit %s", result.CreditAmount)
	assert.True(t, result.FinalAmount.IsZero(), "final %s", result.FinalAmount)
}

func TestComputeUpgradeCredit_PartialDayTruncates(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	// 9 days and 18 hours remaining counts as 9 days.
	asOf := end.Add(-9*24*time.Hour - 18*time.Hour)

	result := ComputeUpgradeCredit(d("300"), start, end, d("500"), asOf)

	assert.Equal(t, int64(9), result.DaysRemaining)
	assert.True(t, result.CreditAmount.Equal(d("90.00")), "credit %s", result.CreditAmount)
}
