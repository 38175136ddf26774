package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sdthai/backoffice/internal/partners"
	"github.com/sdthai/backoffice/internal/shared"
)

// DeadlinePolicy holds the order cutoff configuration. The standard cutoff
// (time-of-day, days before delivery) may be overridden per partner; the
// late-approval window is global. Two historic configurations collapsed into
// this one knob set; see DESIGN.md before changing the merge.
type DeadlinePolicy struct {
	DeadlineTime     string // "HH:MM", standard cutoff
	DeadlineDays     int    // days before the requested date
	LateDeadlineTime string // "HH:MM", late cutoff
	LateDeadlineDays int
}

// DefaultDeadlinePolicy is the shipped policy: orders close at 20:00 two
// days before delivery; late orders are accepted until 05:00 the day before,
// subject to approval.
var DefaultDeadlinePolicy = DeadlinePolicy{
	DeadlineTime:     "20:00",
	DeadlineDays:     2,
	LateDeadlineTime: "05:00",
	LateDeadlineDays: 1,
}

// DeadlineResult classifies an accepted order.
type DeadlineResult struct {
	Classification   DeadlineClassification
	RequiresApproval bool
}

// Evaluate classifies a requested delivery date against the partner's
// constraints and the cutoff policy. It is a pure function of its inputs
// and must be re-run whenever the requested date changes.
//
// Urgent orders bypass the evaluation entirely: urgency is an explicit
// escape hatch approved separately, not by this policy.
func (p DeadlinePolicy) Evaluate(partner *partners.Partner, requestedDate time.Time, isUrgent bool, now time.Time) (DeadlineResult, error) {
	if isUrgent {
		return DeadlineResult{Classification: DeadlineStandard}, nil
	}

	if len(partner.FixedDeliveryDays) > 0 {
		weekday := int(requestedDate.Weekday())
		if !containsDay(partner.FixedDeliveryDays, weekday) {
			return DeadlineResult{}, fmt.Errorf("%w: deliveries for this partner are only available on: %s",
				shared.ErrBusinessRule, dayNames(partner.FixedDeliveryDays))
		}
	}

	cutoffTime := p.DeadlineTime
	cutoffDays := p.DeadlineDays
	if partner.OrderDeadlineTime != nil && *partner.OrderDeadlineTime != "" {
		cutoffTime = *partner.OrderDeadlineTime
	}
	if partner.OrderDeadlineDays != nil {
		cutoffDays = *partner.OrderDeadlineDays
	}

	deadline, err := atTimeOfDay(requestedDate, -cutoffDays, cutoffTime)
	if err != nil {
		return DeadlineResult{}, fmt.Errorf("deadline policy: %w", err)
	}
	lateDeadline, err := atTimeOfDay(requestedDate, -p.LateDeadlineDays, p.LateDeadlineTime)
	if err != nil {
		return DeadlineResult{}, fmt.Errorf("deadline policy: %w", err)
	}

	switch {
	case !now.After(deadline):
		return DeadlineResult{Classification: DeadlineStandard}, nil
	case !now.After(lateDeadline):
		return DeadlineResult{Classification: DeadlineLate, RequiresApproval: true}, nil
	default:
		return DeadlineResult{}, fmt.Errorf("%w: the deadline for this delivery was %s at %s; contact the administrator for a derogation",
			shared.ErrBusinessRule, deadline.Format("2006-01-02"), deadline.Format("15:04"))
	}
}

// atTimeOfDay shifts the requested date by dayOffset days and pins the
// clock to hhmm in the date's location.
func atTimeOfDay(date time.Time, dayOffset int, hhmm string) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).AddDate(0, 0, dayOffset)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), nil
}

func parseTimeOfDay(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	return hour, minute, nil
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func dayNames(days []int) string {
	names := []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	var out []string
	for _, d := range days {
		if d >= 0 && d < len(names) {
			out = append(out, names[d])
		}
	}
	return strings.Join(out, ", ")
}
