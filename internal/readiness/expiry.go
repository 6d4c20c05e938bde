// Package readiness derives freshness and operational status for kits.
package readiness

import (
	"time"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

const day = 24 * time.Hour

// Classifier maps an expiry date to a Freshness.
type Classifier struct {
	// WarningDays is the horizon, in whole days, inside which unexpired
	// contents are flagged. Zero means types.DefaultExpiryWarningDays.
	WarningDays int
}

// Classify returns FreshnessExpired when expiry is before now, and
// FreshnessWarning when the ceiling of the remaining days is within the
// warning horizon. A nil expiry is always FreshnessOK.
func (c Classifier) Classify(expiry *time.Time, now time.Time) types.Freshness {
	if expiry == nil {
		return types.FreshnessOK
	}
	if expiry.Before(now) {
		return types.FreshnessExpired
	}
	if DaysUntil(*expiry, now) <= int64(c.warningDays()) {
		return types.FreshnessWarning
	}
	return types.FreshnessOK
}

func (c Classifier) warningDays() int {
	if c.WarningDays <= 0 {
		return types.DefaultExpiryWarningDays
	}
	return c.WarningDays
}

// Classify uses the default warning horizon.
func Classify(expiry *time.Time, now time.Time) types.Freshness {
	return Classifier{}.Classify(expiry, now)
}

// DaysUntil returns the whole days from now to t, rounded up, computed on
// millisecond differences.
func DaysUntil(t, now time.Time) int64 {
	ms := t.Sub(now).Milliseconds()
	dayMs := day.Milliseconds()
	if ms <= 0 {
		return ms / dayMs
	}
	return (ms + dayMs - 1) / dayMs
}
