package scheduler

import (
	"math/rand/v2"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

// nextTimerFire returns the first slot of epoch+offset+k*interval strictly after now.
func nextTimerFire(now time.Time, t domain.TimerTrigger) time.Time {
	interval := t.Interval.Std()
	base := time.Unix(0, 0).UTC().Add(t.Offset.Std())
	if now.Before(base) {
		return base
	}
	k := now.Sub(base)/interval + 1
	return base.Add(k * interval)
}

// nextRandomWindowFire picks a uniformly random moment inside the next daily window that
// is after now, at least MinGap after the last fire and not on the day of the last fire.
// An end hour at or before the start hour wraps past midnight.
func nextRandomWindowFire(now time.Time, last *time.Time, t domain.RandomWindowTrigger, rng *rand.Rand) time.Time {
	earliest := now
	if last != nil {
		if gap := last.Add(t.MinGap.Std()); gap.After(earliest) {
			earliest = gap
		}
	}

	day := truncateDay(earliest)
	if last != nil && truncateDay(*last).Equal(day) {
		day = day.AddDate(0, 0, 1)
	}

	for {
		start := day.Add(time.Duration(t.StartHour) * time.Hour)
		end := day.Add(time.Duration(t.EndHour) * time.Hour)
		if !end.After(start) {
			end = end.Add(24 * time.Hour)
		}

		from := start
		if earliest.After(from) {
			from = earliest
		}
		if from.Before(end) {
			return from.Add(time.Duration(rng.Int64N(int64(end.Sub(from)))))
		}
		day = day.AddDate(0, 0, 1)
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sustained reports whether a population streak that began at since has lasted long enough.
func sustained(now, since time.Time, t domain.PlayerCountTrigger) bool {
	return now.Sub(since) >= t.SustainFor.Std()
}

// cooledDown reports whether enough time passed since the last player-count fire.
func cooledDown(now time.Time, last *time.Time, t domain.PlayerCountTrigger) bool {
	return last == nil || now.Sub(*last) >= t.Cooldown.Std()
}

// chainDue reports whether an armed chain trigger has reached its fire time.
func chainDue(now time.Time, s *domain.Schedule) bool {
	if s.NextTriggerAt == nil {
		return false
	}
	if s.LastTriggeredAt != nil && !s.LastTriggeredAt.Before(*s.NextTriggerAt) {
		return false
	}
	return !now.Before(*s.NextTriggerAt)
}
