package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IConnection persists platform credentials, one row per (user, platform).
type IConnection interface {
	// Get returns nil without error when the user never connected the platform.
	Get(ctx context.Context, userID string, platform model.Platform) (*model.PlatformConnection, error)
	Upsert(ctx context.Context, conn *model.PlatformConnection) error
	// Clear marks the connection disconnected and drops its tokens, keeping the account history.
	Clear(ctx context.Context, userID string, platform model.Platform) error
	ListByUser(ctx context.Context, userID string) ([]*model.PlatformConnection, error)
	TouchLastSync(ctx context.Context, userID string, platform model.Platform, at time.Time) error
}
