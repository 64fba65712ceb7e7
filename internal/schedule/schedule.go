// Package schedule decides when recurring transaction templates are due and
// computes their next occurrence dates. It is pure date arithmetic with no
// storage or clock dependencies; callers pass in "now".
package schedule

import (
	"time"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
)

// IsDue reports whether a recurring template should fire at the given time.
// A template that has never been processed is always due (first firing).
// Otherwise it is due once its next recurring date has arrived.
func IsDue(t *models.Transaction, now time.Time) bool {
	if t.LastProcessed == nil {
		return true
	}
	if t.NextRecurringDate == nil {
		return false
	}
	return !t.NextRecurringDate.After(now)
}

// NextDate returns the occurrence date that follows from at the given
// interval. Month and year arithmetic use Go's native calendar normalization,
// so Jan 31 + 1 month lands in early March rather than being clamped.
// An unrecognized interval is a configuration error, never a silent no-op.
func NextDate(from time.Time, interval models.RecurringInterval) (time.Time, error) {
	switch interval {
	case models.RecurringIntervalDaily:
		return from.AddDate(0, 0, 1), nil
	case models.RecurringIntervalWeekly:
		return from.AddDate(0, 0, 7), nil
	case models.RecurringIntervalMonthly:
		return from.AddDate(0, 1, 0), nil
	case models.RecurringIntervalYearly:
		return from.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidRecurringInterval,
			"unsupported recurring interval: "+string(interval))
	}
}
