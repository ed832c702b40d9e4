package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/repository"
	"github.com/osse101/WorldEvents_Go/internal/repository/repotest"
)

func TestStoreContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.EventStore { return New() })
}

func TestFailNext_FailsOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	def := &domain.EventDefinition{ID: 1}
	inst := domain.NewInstance(def, domain.ZoneKey{ZoneID: 1}, time.Now().UTC())
	require.NoError(t, s.CreateInstance(ctx, inst))

	boom := errors.New("disk full")
	s.FailNext("SaveInstance", boom)

	assert.ErrorIs(t, s.SaveInstance(ctx, inst, nil), boom)
	assert.NoError(t, s.SaveInstance(ctx, inst, nil))
}

func TestFailTimes_CountsDown(t *testing.T) {
	s := New()
	ctx := context.Background()
	zone := domain.ZoneKey{ZoneID: 1}

	boom := errors.New("connection refused")
	s.FailTimes("ListOpenInstances", 2, boom)
	assert.Equal(t, 2, s.FailuresLeft("ListOpenInstances"))

	_, err := s.ListOpenInstances(ctx, zone)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.FailuresLeft("ListOpenInstances"))

	_, err = s.ListOpenInstances(ctx, zone)
	assert.ErrorIs(t, err, boom)

	_, err = s.ListOpenInstances(ctx, zone)
	assert.NoError(t, err)
	assert.Zero(t, s.FailuresLeft("ListOpenInstances"))
}

func TestSnapshot_IgnoresFailedWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	inst := domain.NewInstance(&domain.EventDefinition{ID: 1}, domain.ZoneKey{ZoneID: 1}, time.Now().UTC())
	require.NoError(t, s.CreateInstance(ctx, inst))

	before := s.Snapshot()
	writes := s.Writes()

	changed := inst.Clone()
	changed.State = domain.StateActive
	s.FailNext("SaveInstance", errors.New("boom"))
	require.Error(t, s.SaveInstance(ctx, changed, nil))

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, writes, s.Writes())
}

func TestReadsDoNotAlias(t *testing.T) {
	s := New()
	ctx := context.Background()
	inst := domain.NewInstance(&domain.EventDefinition{ID: 1}, domain.ZoneKey{ZoneID: 1}, time.Now().UTC())
	inst.Progress[0] = &domain.ObjectiveProgress{Target: 5}
	require.NoError(t, s.CreateInstance(ctx, inst))

	got, err := s.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	got.Progress[0].Current = 5

	again, err := s.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Progress[0].Current)
}
