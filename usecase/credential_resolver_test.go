package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestResolver(store *memConnections, exchangers ...*MockExchanger) (*credentialResolver, *eventRecorder) {
	m := map[model.Platform]repository.IOAuthExchanger{}
	for _, ex := range exchangers {
		m[ex.platform] = ex
	}
	events := &eventRecorder{}
	r := NewCredentialResolver(store, m, events, 5*time.Minute, 7*24*time.Hour).(*credentialResolver)
	r.now = fixedClock
	return r, events
}

func connection(p model.Platform, access, refresh string, expiresIn time.Duration) *model.PlatformConnection {
	c := &model.PlatformConnection{UserID: "u1", Platform: p, Connected: true, AccountID: "acct-" + string(p), AccessToken: access, RefreshToken: refresh}
	if expiresIn != 0 {
		c.ExpiresAt = timePtr(testNow.Add(expiresIn))
	}
	return c
}

func requireExpired(t *testing.T, err error, reason string) {
	t.Helper()
	var credErr *model.CredentialExpiredError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, reason, credErr.Reason)
}

func TestCredentialResolver_NotConnected(t *testing.T) {
	disconnected := connection(model.PlatformPage, "", "", 0)
	disconnected.Connected = false
	r, _ := newTestResolver(newMemConnections(disconnected))

	_, err := r.Resolve(context.Background(), "u1", model.PlatformVideo)
	requireExpired(t, err, "not_connected")

	_, err = r.Resolve(context.Background(), "u1", model.PlatformPage)
	requireExpired(t, err, "not_connected")
}

func TestCredentialResolver_RefreshPlatform(t *testing.T) {
	t.Run("fresh token is used as is", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformVideo}
		r, _ := newTestResolver(newMemConnections(connection(model.PlatformVideo, "at", "rt", time.Hour)), ex)

		cred, err := r.Resolve(context.Background(), "u1", model.PlatformVideo)
		require.NoError(t, err)
		assert.Equal(t, "at", cred.AccessToken)
		assert.Equal(t, "acct-video-platform-a", cred.AccountID)
		ex.AssertNotCalled(t, "RefreshToken", mock.Anything, mock.Anything)
	})

	t.Run("token inside skew is refreshed and persisted", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformVideo}
		ex.On("RefreshToken", mock.Anything, "rt").Return(&dto.TokenResult{AccessToken: "at2", ExpiresIn: time.Hour}, nil).Once()
		store := newMemConnections(connection(model.PlatformVideo, "at", "rt", 2*time.Minute))
		r, events := newTestResolver(store, ex)

		cred, err := r.Resolve(context.Background(), "u1", model.PlatformVideo)
		require.NoError(t, err)
		assert.Equal(t, "at2", cred.AccessToken)

		stored := store.get("u1", model.PlatformVideo)
		assert.Equal(t, "at2", stored.AccessToken)
		assert.Equal(t, "rt", stored.RefreshToken)
		assert.Equal(t, testNow.Add(time.Hour), *stored.ExpiresAt)
		assert.Len(t, events.ofType(model.EventCredentialUpdated), 1)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		r, _ := newTestResolver(newMemConnections(connection(model.PlatformVideo, "at", "", -time.Minute)))
		_, err := r.Resolve(context.Background(), "u1", model.PlatformVideo)
		requireExpired(t, err, "refresh_token_missing")
	})

	t.Run("refresh rejected", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformVideo}
		rejected := &model.AuthExchangeError{Platform: model.PlatformVideo, Op: "token refresh", Detail: "invalid_grant"}
		ex.On("RefreshToken", mock.Anything, "rt").Return(nil, rejected)
		store := newMemConnections(connection(model.PlatformVideo, "at", "rt", -time.Minute))
		r, _ := newTestResolver(store, ex)

		_, err := r.Resolve(context.Background(), "u1", model.PlatformVideo)
		requireExpired(t, err, "refresh_failed")
		assert.True(t, errors.Is(err, rejected))
		assert.Equal(t, 0, store.upserts)
	})

	t.Run("refresh timeout on expired token is retryable", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformVideo}
		ex.On("RefreshToken", mock.Anything, "rt").Return(nil, context.DeadlineExceeded)
		store := newMemConnections(connection(model.PlatformVideo, "at", "rt", -time.Minute))
		r, _ := newTestResolver(store, ex)

		_, err := r.Resolve(context.Background(), "u1", model.PlatformVideo)
		require.Error(t, err)
		var credErr *model.CredentialExpiredError
		assert.False(t, errors.As(err, &credErr))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		kind, retryable := model.ClassifyError(err)
		assert.Equal(t, model.ErrorKindAuthExchange, kind)
		assert.True(t, retryable)
		assert.Equal(t, 0, store.upserts)
	})

	t.Run("refresh unavailable inside skew keeps current token", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformVideo}
		ex.On("RefreshToken", mock.Anything, "rt").Return(nil, &model.AuthExchangeError{Platform: model.PlatformVideo, Op: "refresh", StatusCode: 503})
		store := newMemConnections(connection(model.PlatformVideo, "at", "rt", 2*time.Minute))
		r, events := newTestResolver(store, ex)

		cred, err := r.Resolve(context.Background(), "u1", model.PlatformVideo)
		require.NoError(t, err)
		assert.Equal(t, "at", cred.AccessToken)
		assert.Equal(t, 0, store.upserts)
		assert.Empty(t, events.ofType(model.EventCredentialUpdated))
	})
}

func TestCredentialResolver_ExtensionPlatform(t *testing.T) {
	t.Run("expired requires reconnect", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformPhoto}
		r, _ := newTestResolver(newMemConnections(connection(model.PlatformPhoto, "long", "", -time.Second)), ex)

		_, err := r.Resolve(context.Background(), "u1", model.PlatformPhoto)
		requireExpired(t, err, "expired")
		ex.AssertNotCalled(t, "ExtendToken", mock.Anything, mock.Anything)
	})

	t.Run("outside window is used as is", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformPhoto}
		r, _ := newTestResolver(newMemConnections(connection(model.PlatformPhoto, "long", "", 30*24*time.Hour)), ex)

		cred, err := r.Resolve(context.Background(), "u1", model.PlatformPhoto)
		require.NoError(t, err)
		assert.Equal(t, "long", cred.AccessToken)
		ex.AssertNotCalled(t, "ExtendToken", mock.Anything, mock.Anything)
	})

	t.Run("inside window is extended", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformPhoto}
		ex.On("ExtendToken", mock.Anything, "long").Return(&dto.TokenResult{AccessToken: "longer", ExpiresIn: 60 * 24 * time.Hour}, nil)
		store := newMemConnections(connection(model.PlatformPhoto, "long", "", 2*24*time.Hour))
		r, _ := newTestResolver(store, ex)

		cred, err := r.Resolve(context.Background(), "u1", model.PlatformPhoto)
		require.NoError(t, err)
		assert.Equal(t, "longer", cred.AccessToken)
		assert.Equal(t, "longer", store.get("u1", model.PlatformPhoto).AccessToken)
	})

	t.Run("failed extension falls back to current token", func(t *testing.T) {
		ex := &MockExchanger{platform: model.PlatformPhoto}
		ex.On("ExtendToken", mock.Anything, "long").Return(nil, errors.New("graph unavailable"))
		store := newMemConnections(connection(model.PlatformPhoto, "long", "", 2*24*time.Hour))
		r, _ := newTestResolver(store, ex)

		cred, err := r.Resolve(context.Background(), "u1", model.PlatformPhoto)
		require.NoError(t, err)
		assert.Equal(t, "long", cred.AccessToken)
		assert.Equal(t, 0, store.upserts)
	})
}

func TestCredentialResolver_NonExpiringPageToken(t *testing.T) {
	ex := &MockExchanger{platform: model.PlatformPage}
	r, _ := newTestResolver(newMemConnections(connection(model.PlatformPage, "page-token", "", 0)), ex)

	cred, err := r.Resolve(context.Background(), "u1", model.PlatformPage)
	require.NoError(t, err)
	assert.Equal(t, "page-token", cred.AccessToken)
	ex.AssertNotCalled(t, "ExtendToken", mock.Anything, mock.Anything)
}
