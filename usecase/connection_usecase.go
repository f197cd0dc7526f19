package usecase

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/utils"
)

type IConnectionUsecase interface {
	// BeginConnect returns the platform consent URL carrying a signed state for userID.
	BeginConnect(ctx context.Context, userID string, platform model.Platform) (string, error)
	// CompleteConnect handles the redirect back from the platform.
	CompleteConnect(ctx context.Context, platform model.Platform, code, state string) (*model.PlatformConnection, error)
	Disconnect(ctx context.Context, userID string, platform model.Platform) error
}

type connectionUsecase struct {
	connections repository.IConnection
	exchangers  map[model.Platform]repository.IOAuthExchanger
	nonces      repository.INonceStore
	events      repository.IEventPublisher
	state       stateSigner
	now         func() time.Time
}

func NewConnectionUsecase(
	connections repository.IConnection,
	exchangers map[model.Platform]repository.IOAuthExchanger,
	nonces repository.INonceStore,
	events repository.IEventPublisher,
	secret string,
	stateTTL time.Duration,
) IConnectionUsecase {
	return &connectionUsecase{
		connections: connections,
		exchangers:  exchangers,
		nonces:      nonces,
		events:      events,
		state:       stateSigner{secret: secret, ttl: stateTTL, now: utils.GetCurrentTime},
		now:         utils.GetCurrentTime,
	}
}

func exchangerFor(exchangers map[model.Platform]repository.IOAuthExchanger, p model.Platform) (repository.IOAuthExchanger, error) {
	ex, ok := exchangers[p]
	if !ok || ex == nil {
		return nil, &model.ConfigurationError{Platform: p, Field: "oauth exchanger"}
	}
	return ex, nil
}

func (u *connectionUsecase) BeginConnect(ctx context.Context, userID string, platform model.Platform) (string, error) {
	ex, err := exchangerFor(u.exchangers, platform)
	if err != nil {
		return "", err
	}
	state, err := u.state.Sign(userID, platform)
	if err != nil {
		return "", err
	}
	return ex.BuildAuthorizationURL(state)
}

func (u *connectionUsecase) CompleteConnect(ctx context.Context, platform model.Platform, code, state string) (*model.PlatformConnection, error) {
	lg := logger.GetLogger().WithField("platform", platform)
	ex, err := exchangerFor(u.exchangers, platform)
	if err != nil {
		return nil, err
	}
	claims, err := u.state.Verify(state, platform)
	if err != nil {
		return nil, err
	}
	userID := claims.Subject
	lg = lg.WithField("user_id", userID)

	fresh, err := u.nonces.Consume(ctx, "state:"+claims.Id)
	if err != nil {
		return nil, fmt.Errorf("consume state: %w", err)
	}
	if !fresh {
		return nil, fmt.Errorf("%w: state already used", model.ErrInvalidState)
	}
	if code == "" {
		return nil, &model.AuthExchangeError{Platform: platform, Op: "code exchange", Detail: "missing authorization code"}
	}
	fresh, err = u.nonces.Consume(ctx, "code:"+string(platform)+":"+code)
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	if !fresh {
		lg.Warn("Authorization code replayed")
		return nil, &model.AuthExchangeError{Platform: platform, Op: "code exchange", Detail: "authorization code already used"}
	}

	tok, err := ex.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if platform.Renewal() == model.RenewByExtension {
		// Short-lived tokens are unusable for scheduled work.
		tok, err = ex.ExtendToken(ctx, tok.AccessToken)
		if err != nil {
			return nil, err
		}
	}
	acct, err := ex.FetchAccount(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	now := u.now()
	conn := &model.PlatformConnection{
		UserID:       userID,
		Platform:     platform,
		Connected:    true,
		AccountID:    acct.ID,
		AccountName:  acct.Name,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       tok.Scope,
		ExpiresAt:    tok.ExpiresAt(now),
		LastSyncAt:   &now,
	}
	if acct.Handle != "" {
		handle := acct.Handle
		conn.AccountHandle = &handle
	}
	if acct.AccessToken != "" {
		// Page tokens minted from a long-lived user token carry no expiry.
		conn.AccessToken = acct.AccessToken
		conn.ExpiresAt = nil
	}
	if conn.RefreshToken == "" && platform.Renewal() == model.RenewByRefresh {
		if prev, err := u.connections.Get(ctx, userID, platform); err == nil && prev != nil {
			conn.RefreshToken = prev.RefreshToken
		}
	}
	if err := u.connections.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("store connection: %w", err)
	}

	lg.WithField("account_id", conn.AccountID).Info("Platform connected")
	u.events.Publish(model.Event{Type: model.EventCredentialUpdated, UserID: userID, Platform: platform, Status: "connected", At: now})
	return conn, nil
}

func (u *connectionUsecase) Disconnect(ctx context.Context, userID string, platform model.Platform) error {
	if err := u.connections.Clear(ctx, userID, platform); err != nil {
		return fmt.Errorf("disconnect %s: %w", platform, err)
	}
	logger.GetLogger().WithField("user_id", userID).WithField("platform", platform).Info("Platform disconnected")
	u.events.Publish(model.Event{Type: model.EventCredentialUpdated, UserID: userID, Platform: platform, Status: "disconnected", At: u.now()})
	return nil
}
