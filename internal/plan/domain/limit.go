package domain

type limitState int

const (
	limitNone limitState = iota
	limitBounded
	limitUnlimited
)

// Limit is the three-state entitlement ceiling for a feature. Unlimited and
// not-entitled both skip the usual comparison but resolve to opposite
// outcomes (always allow vs. always deny), so they are distinct states
// rather than an overloaded nil.
type Limit struct {
	state limitState
	value int64
}

func Unlimited() Limit      { return Limit{state: limitUnlimited} }
func Bounded(n int64) Limit { return Limit{state: limitBounded, value: n} }
func NoEntitlement() Limit  { return Limit{} }

func (l Limit) IsUnlimited() bool { return l.state == limitUnlimited }

// Entitled reports whether the feature exists on the plan at all.
func (l Limit) Entitled() bool { return l.state != limitNone }

// Value returns the cap for bounded limits. Not-entitled reports 0 so the
// fail-closed default surfaces as a zero ceiling.
func (l Limit) Value() (int64, bool) {
	if l.state == limitBounded {
		return l.value, true
	}
	return 0, false
}

// Allows is the admission decision: strictly-less-than for bounded limits,
// always true when unlimited, always false when not entitled.
func (l Limit) Allows(currentUsage int64) bool {
	switch l.state {
	case limitUnlimited:
		return true
	case limitBounded:
		return currentUsage < l.value
	default:
		return false
	}
}
