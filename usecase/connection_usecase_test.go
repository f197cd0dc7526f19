package usecase

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "state-secret"

type connectionFixture struct {
	uc     *connectionUsecase
	store  *memConnections
	events *eventRecorder
	ex     *MockExchanger
}

func newConnectionFixture(platform model.Platform) *connectionFixture {
	ex := &MockExchanger{platform: platform}
	ex.On("BuildAuthorizationURL", mock.Anything).Return(func(state string) string {
		return "https://consent.test/authorize?state=" + url.QueryEscape(state)
	}, nil)
	store := newMemConnections()
	events := &eventRecorder{}
	uc := NewConnectionUsecase(store, map[model.Platform]repository.IOAuthExchanger{platform: ex}, &memNonces{}, events, testSecret, 10*time.Minute).(*connectionUsecase)
	uc.now = fixedClock
	return &connectionFixture{uc: uc, store: store, events: events, ex: ex}
}

func (f *connectionFixture) begin(t *testing.T, userID string) string {
	t.Helper()
	authURL, err := f.uc.BeginConnect(context.Background(), userID, f.ex.platform)
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestConnectionUsecase_VideoRoundTrip(t *testing.T) {
	f := newConnectionFixture(model.PlatformVideo)
	f.ex.On("ExchangeCode", mock.Anything, "code-1").Return(&dto.TokenResult{AccessToken: "at", RefreshToken: "rt", ExpiresIn: time.Hour, Scope: "upload"}, nil).Once()
	f.ex.On("FetchAccount", mock.Anything, "at").Return(&dto.AccountInfo{ID: "UC1", Name: "Channel", Handle: "@chan"}, nil).Once()

	state := f.begin(t, "u1")
	conn, err := f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code-1", state)
	require.NoError(t, err)

	stored := f.store.get("u1", model.PlatformVideo)
	require.NotNil(t, stored)
	assert.True(t, stored.Connected)
	assert.Equal(t, "at", stored.AccessToken)
	assert.Equal(t, "rt", stored.RefreshToken)
	assert.Equal(t, "UC1", stored.AccountID)
	assert.Equal(t, "@chan", *stored.AccountHandle)
	assert.Equal(t, testNow.Add(time.Hour), *stored.ExpiresAt)
	assert.Equal(t, testNow, *stored.LastSyncAt)
	assert.Equal(t, conn.AccountID, stored.AccountID)
	f.ex.AssertNotCalled(t, "ExtendToken", mock.Anything, mock.Anything)

	evts := f.events.ofType(model.EventCredentialUpdated)
	require.Len(t, evts, 1)
	assert.Equal(t, "u1", evts[0].UserID)
	assert.Equal(t, "connected", evts[0].Status)
}

func TestConnectionUsecase_ExtensionPlatformExtendsBeforeStoring(t *testing.T) {
	f := newConnectionFixture(model.PlatformPage)
	f.ex.On("ExchangeCode", mock.Anything, "code-1").Return(&dto.TokenResult{AccessToken: "short", ExpiresIn: time.Hour}, nil)
	f.ex.On("ExtendToken", mock.Anything, "short").Return(&dto.TokenResult{AccessToken: "long", ExpiresIn: 60 * 24 * time.Hour}, nil)
	f.ex.On("FetchAccount", mock.Anything, "long").Return(&dto.AccountInfo{ID: "page-1", Name: "Page", AccessToken: "page-token"}, nil)

	_, err := f.uc.CompleteConnect(context.Background(), model.PlatformPage, "code-1", f.begin(t, "u1"))
	require.NoError(t, err)

	stored := f.store.get("u1", model.PlatformPage)
	assert.Equal(t, "page-token", stored.AccessToken)
	assert.Nil(t, stored.ExpiresAt)
	assert.Equal(t, "page-1", stored.AccountID)
}

func TestConnectionUsecase_ReusedCodeNeverMutates(t *testing.T) {
	f := newConnectionFixture(model.PlatformVideo)
	f.ex.On("ExchangeCode", mock.Anything, "code-1").Return(&dto.TokenResult{AccessToken: "at", RefreshToken: "rt", ExpiresIn: time.Hour}, nil).Once()
	f.ex.On("FetchAccount", mock.Anything, "at").Return(&dto.AccountInfo{ID: "UC1", Name: "Channel"}, nil).Once()

	_, err := f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code-1", f.begin(t, "u1"))
	require.NoError(t, err)
	before := f.store.get("u1", model.PlatformVideo)

	_, err = f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code-1", f.begin(t, "u1"))
	var authErr *model.AuthExchangeError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, model.PlatformVideo, authErr.Platform)

	f.ex.AssertNumberOfCalls(t, "ExchangeCode", 1)
	assert.Equal(t, 1, f.store.upserts)
	assert.Equal(t, before, f.store.get("u1", model.PlatformVideo))
}

func TestConnectionUsecase_RejectsBadState(t *testing.T) {
	f := newConnectionFixture(model.PlatformVideo)
	f.ex.On("ExchangeCode", mock.Anything, mock.Anything).Return(&dto.TokenResult{AccessToken: "at", RefreshToken: "rt"}, nil)
	f.ex.On("FetchAccount", mock.Anything, mock.Anything).Return(&dto.AccountInfo{ID: "UC1"}, nil)

	t.Run("empty", func(t *testing.T) {
		_, err := f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code", "")
		assert.ErrorIs(t, err, model.ErrInvalidState)
	})

	t.Run("forged", func(t *testing.T) {
		forged := stateSigner{secret: "other", ttl: time.Minute, now: time.Now}
		state, err := forged.Sign("u1", model.PlatformVideo)
		require.NoError(t, err)
		_, err = f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code", state)
		assert.ErrorIs(t, err, model.ErrInvalidState)
	})

	t.Run("expired", func(t *testing.T) {
		old := stateSigner{secret: testSecret, ttl: 10 * time.Minute, now: func() time.Time { return time.Now().Add(-time.Hour) }}
		state, err := old.Sign("u1", model.PlatformVideo)
		require.NoError(t, err)
		_, err = f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code", state)
		assert.ErrorIs(t, err, model.ErrInvalidState)
	})

	t.Run("other platform", func(t *testing.T) {
		signer := stateSigner{secret: testSecret, ttl: time.Minute, now: time.Now}
		state, err := signer.Sign("u1", model.PlatformPhoto)
		require.NoError(t, err)
		_, err = f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code", state)
		assert.ErrorIs(t, err, model.ErrInvalidState)
	})

	t.Run("replayed", func(t *testing.T) {
		state := f.begin(t, "u1")
		_, err := f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code-a", state)
		require.NoError(t, err)
		_, err = f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code-b", state)
		assert.ErrorIs(t, err, model.ErrInvalidState)
	})

	f.ex.AssertNumberOfCalls(t, "ExchangeCode", 1)
}

func TestConnectionUsecase_ExchangeFailureLeavesStoreUntouched(t *testing.T) {
	f := newConnectionFixture(model.PlatformPhoto)
	exchangeErr := &model.AuthExchangeError{Platform: model.PlatformPhoto, Op: "code exchange", StatusCode: 400}
	f.ex.On("ExchangeCode", mock.Anything, "code-1").Return(nil, exchangeErr)

	_, err := f.uc.CompleteConnect(context.Background(), model.PlatformPhoto, "code-1", f.begin(t, "u1"))
	assert.True(t, errors.Is(err, exchangeErr))
	assert.Equal(t, 0, f.store.upserts)
	assert.Nil(t, f.store.get("u1", model.PlatformPhoto))
	assert.Empty(t, f.events.ofType(model.EventCredentialUpdated))
}

func TestConnectionUsecase_DisconnectKeepsHistory(t *testing.T) {
	f := newConnectionFixture(model.PlatformVideo)
	f.ex.On("ExchangeCode", mock.Anything, "code-1").Return(&dto.TokenResult{AccessToken: "at", RefreshToken: "rt", ExpiresIn: time.Hour}, nil)
	f.ex.On("FetchAccount", mock.Anything, "at").Return(&dto.AccountInfo{ID: "UC1", Name: "Channel"}, nil)
	_, err := f.uc.CompleteConnect(context.Background(), model.PlatformVideo, "code-1", f.begin(t, "u1"))
	require.NoError(t, err)

	require.NoError(t, f.uc.Disconnect(context.Background(), "u1", model.PlatformVideo))

	stored := f.store.get("u1", model.PlatformVideo)
	require.NotNil(t, stored)
	assert.False(t, stored.Connected)
	assert.Empty(t, stored.AccessToken)
	assert.Empty(t, stored.RefreshToken)
	assert.Equal(t, "UC1", stored.AccountID)
	assert.Equal(t, "Channel", stored.AccountName)
	assert.False(t, stored.Usable())

	evts := f.events.ofType(model.EventCredentialUpdated)
	require.Len(t, evts, 2)
	assert.Equal(t, "disconnected", evts[1].Status)
}

func TestConnectionUsecase_UnconfiguredPlatform(t *testing.T) {
	uc := NewConnectionUsecase(newMemConnections(), map[model.Platform]repository.IOAuthExchanger{}, &memNonces{}, &eventRecorder{}, testSecret, time.Minute)
	_, err := uc.BeginConnect(context.Background(), "u1", model.PlatformPage)
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, model.PlatformPage, cfgErr.Platform)
}
