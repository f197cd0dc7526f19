package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/utils"

	"golang.org/x/sync/singleflight"
)

// ICredentialResolver returns a credential that is valid right now, renewing it when needed.
type ICredentialResolver interface {
	Resolve(ctx context.Context, userID string, platform model.Platform) (*dto.Credential, error)
	// MarkSynced records a successful use of the stored credential.
	MarkSynced(ctx context.Context, userID string, platform model.Platform) error
}

type credentialResolver struct {
	connections  repository.IConnection
	exchangers   map[model.Platform]repository.IOAuthExchanger
	events       repository.IEventPublisher
	refreshSkew  time.Duration
	extendWindow time.Duration
	now          func() time.Time
	group        singleflight.Group
}

func NewCredentialResolver(
	connections repository.IConnection,
	exchangers map[model.Platform]repository.IOAuthExchanger,
	events repository.IEventPublisher,
	refreshSkew, extendWindow time.Duration,
) ICredentialResolver {
	return &credentialResolver{
		connections:  connections,
		exchangers:   exchangers,
		events:       events,
		refreshSkew:  refreshSkew,
		extendWindow: extendWindow,
		now:          utils.GetCurrentTime,
	}
}

func (r *credentialResolver) Resolve(ctx context.Context, userID string, platform model.Platform) (*dto.Credential, error) {
	v, err, _ := r.group.Do(userID+"|"+string(platform), func() (interface{}, error) {
		return r.resolve(ctx, userID, platform)
	})
	if err != nil {
		return nil, err
	}
	cred := *v.(*dto.Credential)
	return &cred, nil
}

func (r *credentialResolver) MarkSynced(ctx context.Context, userID string, platform model.Platform) error {
	return r.connections.TouchLastSync(ctx, userID, platform, r.now())
}

func (r *credentialResolver) resolve(ctx context.Context, userID string, platform model.Platform) (*dto.Credential, error) {
	conn, err := r.connections.Get(ctx, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("load %s connection: %w", platform, err)
	}
	if !conn.Usable() {
		return nil, &model.CredentialExpiredError{Platform: platform, Reason: "not_connected"}
	}

	now := r.now()
	switch platform.Renewal() {
	case model.RenewByRefresh:
		if !conn.ExpiresWithin(now, r.refreshSkew) {
			return credentialOf(conn), nil
		}
		if conn.RefreshToken == "" {
			return nil, &model.CredentialExpiredError{Platform: platform, Reason: "refresh_token_missing"}
		}
		ex, err := exchangerFor(r.exchangers, platform)
		if err != nil {
			return nil, err
		}
		tok, err := ex.RefreshToken(ctx, conn.RefreshToken)
		if err != nil {
			if refreshRejected(err) {
				return nil, &model.CredentialExpiredError{Platform: platform, Reason: "refresh_failed", Err: err}
			}
			if !conn.Expired(now) {
				logger.GetLogger().WithField("platform", platform).WithField("user_id", userID).WithField("error", err).
					Warn("Token refresh failed, using current token")
				return credentialOf(conn), nil
			}
			var authErr *model.AuthExchangeError
			if errors.As(err, &authErr) {
				return nil, err
			}
			return nil, &model.AuthExchangeError{Platform: platform, Op: "token refresh", Err: err}
		}
		return r.renewed(ctx, conn, tok, now), nil

	case model.RenewByExtension:
		if conn.Expired(now) {
			return nil, &model.CredentialExpiredError{Platform: platform, Reason: "expired"}
		}
		if !conn.ExpiresWithin(now, r.extendWindow) {
			return credentialOf(conn), nil
		}
		ex, err := exchangerFor(r.exchangers, platform)
		if err != nil {
			return nil, err
		}
		tok, err := ex.ExtendToken(ctx, conn.AccessToken)
		if err != nil {
			logger.GetLogger().WithField("platform", platform).WithField("user_id", userID).WithField("error", err).
				Warn("Token extension failed, using current token")
			return credentialOf(conn), nil
		}
		return r.renewed(ctx, conn, tok, now), nil
	}
	return credentialOf(conn), nil
}

func (r *credentialResolver) renewed(ctx context.Context, conn *model.PlatformConnection, tok *dto.TokenResult, now time.Time) *dto.Credential {
	conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		conn.RefreshToken = tok.RefreshToken
	}
	if tok.Scope != "" {
		conn.Scopes = tok.Scope
	}
	conn.ExpiresAt = tok.ExpiresAt(now)
	conn.LastSyncAt = &now

	lg := logger.GetLogger().WithField("platform", conn.Platform).WithField("user_id", conn.UserID)
	if err := r.connections.Upsert(ctx, conn); err != nil {
		lg.WithField("error", err).Error("Failed to persist renewed token")
	} else {
		lg.Info("Token renewed")
	}
	r.events.Publish(model.Event{Type: model.EventCredentialUpdated, UserID: conn.UserID, Platform: conn.Platform, Status: "renewed", At: now})
	return credentialOf(conn)
}

// refreshRejected is true when the platform refused the refresh token itself.
func refreshRejected(err error) bool {
	var authErr *model.AuthExchangeError
	return errors.As(err, &authErr) && !authErr.Transient()
}

func credentialOf(conn *model.PlatformConnection) *dto.Credential {
	return &dto.Credential{UserID: conn.UserID, AccountID: conn.AccountID, AccessToken: conn.AccessToken}
}
