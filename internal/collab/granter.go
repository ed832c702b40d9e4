package collab

import (
	"context"

	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// HTTPGranter delivers reward grants to the loot service.
type HTTPGranter struct {
	c client
}

// NewHTTPGranter creates a granter for baseURL.
func NewHTTPGranter(baseURL string) *HTTPGranter {
	return &HTTPGranter{c: newClient(baseURL)}
}

// Grant posts the grant. The loot service keys on instance and participant, so a
// retried grant is safe.
func (g *HTTPGranter) Grant(ctx context.Context, grant domain.RewardGrant) error {
	return g.c.post(ctx, PathGrant, grant, nil)
}

// LogGranter records grants in the log when no loot service is configured.
type LogGranter struct{}

// Grant logs the grant and always succeeds.
func (LogGranter) Grant(ctx context.Context, grant domain.RewardGrant) error {
	logger.FromContext(ctx).Info(LogMsgRewardLogged,
		"instance", grant.InstanceID,
		"participant", grant.ParticipantID,
		"tier", grant.Tier,
		"reward", grant.Reward)
	return nil
}
