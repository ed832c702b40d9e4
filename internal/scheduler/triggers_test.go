package scheduler

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osse101/WorldEvents_Go/internal/domain"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}

func TestNextTimerFire(t *testing.T) {
	trigger := domain.TimerTrigger{Interval: domain.Duration(time.Hour), Offset: domain.Duration(15 * time.Minute)}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"between slots", at(14, 10, 20), at(14, 11, 15)},
		{"exactly on a slot", at(14, 11, 15), at(14, 12, 15)},
		{"just before a slot", at(14, 11, 14), at(14, 11, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextTimerFire(tt.now, trigger))
		})
	}
}

func TestNextRandomWindowFire(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	window := domain.RandomWindowTrigger{StartHour: 18, EndHour: 20}
	lastToday := at(14, 18, 30)

	tests := []struct {
		name     string
		now      time.Time
		last     *time.Time
		trigger  domain.RandomWindowTrigger
		from, to time.Time
	}{
		{"before window", at(14, 10, 0), nil, window, at(14, 18, 0), at(14, 20, 0)},
		{"inside window", at(14, 19, 0), nil, window, at(14, 19, 0), at(14, 20, 0)},
		{"after window", at(14, 21, 0), nil, window, at(15, 18, 0), at(15, 20, 0)},
		{"already fired today", at(14, 18, 31), &lastToday, window, at(15, 18, 0), at(15, 20, 0)},
		{
			"min gap spans days",
			at(14, 19, 30),
			&lastToday,
			domain.RandomWindowTrigger{StartHour: 18, EndHour: 20, MinGap: domain.Duration(49 * time.Hour)},
			at(16, 19, 30), at(16, 20, 0),
		},
		{
			"window wraps midnight",
			at(14, 23, 0),
			nil,
			domain.RandomWindowTrigger{StartHour: 22, EndHour: 2},
			at(14, 23, 0), at(15, 2, 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				got := nextRandomWindowFire(tt.now, tt.last, tt.trigger, rng)
				assert.False(t, got.Before(tt.from), "%s before %s", got, tt.from)
				assert.True(t, got.Before(tt.to), "%s not before %s", got, tt.to)
			}
		})
	}
}

func TestChainDue(t *testing.T) {
	next := at(14, 12, 0)
	earlier := at(14, 11, 0)

	assert.False(t, chainDue(at(14, 13, 0), &domain.Schedule{}), "not armed")
	assert.False(t, chainDue(at(14, 11, 59), &domain.Schedule{NextTriggerAt: &next}))
	assert.True(t, chainDue(at(14, 12, 0), &domain.Schedule{NextTriggerAt: &next}))
	assert.True(t, chainDue(at(14, 12, 0), &domain.Schedule{NextTriggerAt: &next, LastTriggeredAt: &earlier}))
	assert.False(t, chainDue(at(14, 13, 0), &domain.Schedule{NextTriggerAt: &next, LastTriggeredAt: &next}), "already fired")
}

func TestPlayerCountHelpers(t *testing.T) {
	trigger := domain.PlayerCountTrigger{Threshold: 5, SustainFor: domain.Duration(time.Minute), Cooldown: domain.Duration(time.Hour)}
	since := at(14, 12, 0)

	assert.False(t, sustained(at(14, 12, 0).Add(59*time.Second), since, trigger))
	assert.True(t, sustained(at(14, 12, 1), since, trigger))

	last := at(14, 11, 30)
	assert.True(t, cooledDown(at(14, 12, 0), nil, trigger))
	assert.False(t, cooledDown(at(14, 12, 0), &last, trigger))
	assert.True(t, cooledDown(at(14, 12, 30), &last, trigger))
}
