// Package reward delivers reward grants to the loot collaborator with bounded retries.
package reward

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
	"github.com/osse101/WorldEvents_Go/internal/metrics"
)

// Granter hands a reward to the loot subsystem.
type Granter interface {
	Grant(ctx context.Context, grant domain.RewardGrant) error
}

// Claimer records that a participation's reward was delivered.
type Claimer interface {
	MarkRewardClaimed(ctx context.Context, instanceID uuid.UUID, participantID string) error
}

// deliver grants one reward and marks it claimed. An empty descriptor skips the loot call.
func deliver(ctx context.Context, granter Granter, claimer Claimer, grant domain.RewardGrant) error {
	log := logger.FromContext(ctx)

	if grant.Reward.IsEmpty() {
		log.Debug(LogMsgRewardEmptyClaimed, "instance", grant.InstanceID, "participant", grant.ParticipantID)
	} else if err := granter.Grant(ctx, grant); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRewardGrantFailed, err)
	}

	if err := claimer.MarkRewardClaimed(ctx, grant.InstanceID, grant.ParticipantID); err != nil {
		return fmt.Errorf("%w: mark claimed: %v", domain.ErrRewardGrantFailed, err)
	}

	metrics.RewardGrants.WithLabelValues(metrics.ResultGranted).Inc()
	log.Info(LogMsgRewardGranted,
		"instance", grant.InstanceID,
		"participant", grant.ParticipantID,
		"tier", grant.Tier)
	return nil
}

func unresolved(ctx context.Context, grant domain.RewardGrant, attempts int, err error) {
	metrics.RewardGrants.WithLabelValues(metrics.ResultUnresolved).Inc()
	logger.FromContext(ctx).Error(LogMsgRewardUnresolved,
		"instance", grant.InstanceID,
		"event_id", grant.EventID,
		"participant", grant.ParticipantID,
		"tier", grant.Tier,
		"attempts", attempts,
		"error", err)
}

func grantKey(grant domain.RewardGrant) string {
	return grant.InstanceID.String() + ":" + grant.ParticipantID
}

func decodeArgs(encoded []byte, args *GrantArgs) error {
	return json.Unmarshal(encoded, args)
}
