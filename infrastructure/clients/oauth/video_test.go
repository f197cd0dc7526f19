package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/configuration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func videoClient(tokenURL string) configuration.OAuthClient {
	return configuration.OAuthClient{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:10001/auth/video-platform-a/callback",
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
		TokenURL:     tokenURL,
	}
}

func TestVideoExchanger_AuthorizationURL(t *testing.T) {
	ex := NewVideoExchanger(videoClient(""), configuration.VideoAPI{}, time.Second, nil)

	raw, err := ex.BuildAuthorizationURL("signed-state")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "signed-state", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "youtube.upload")
}

func TestVideoExchanger_MissingConfig(t *testing.T) {
	ex := NewVideoExchanger(configuration.OAuthClient{}, configuration.VideoAPI{}, time.Second, nil)
	_, err := ex.BuildAuthorizationURL("s")
	var cfgErr *model.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestVideoExchanger_ExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"token_type":"Bearer","scope":"upload"}`))
	}))
	defer srv.Close()

	ex := NewVideoExchanger(videoClient(srv.URL), configuration.VideoAPI{}, time.Second, srv.Client())
	tok, err := ex.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.InDelta(t, time.Hour.Seconds(), tok.ExpiresIn.Seconds(), 5)
	assert.Equal(t, "upload", tok.Scope)
}

func TestVideoExchanger_RejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Code was already redeemed."}`))
	}))
	defer srv.Close()

	ex := NewVideoExchanger(videoClient(srv.URL), configuration.VideoAPI{}, time.Second, srv.Client())
	_, err := ex.ExchangeCode(context.Background(), "used-code")

	var authErr *model.AuthExchangeError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Equal(t, "invalid_grant", authErr.Detail)
}

func TestVideoExchanger_RefreshKeepsRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt-1", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-2","expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	ex := NewVideoExchanger(videoClient(srv.URL), configuration.VideoAPI{}, time.Second, srv.Client())
	tok, err := ex.RefreshToken(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)

	_, err = ex.ExtendToken(context.Background(), "at-2")
	assert.True(t, errors.Is(err, model.ErrUnsupportedOperation))
}

func TestVideoExchanger_FetchAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/channels", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("mine"))
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"UC123","snippet":{"title":"Studio","customUrl":"@studio"}}]}`))
	}))
	defer srv.Close()

	ex := NewVideoExchanger(videoClient(""), configuration.VideoAPI{APIBaseURL: srv.URL + "/"}, time.Second, srv.Client())
	info, err := ex.FetchAccount(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "UC123", info.ID)
	assert.Equal(t, "Studio", info.Name)
	assert.Equal(t, "@studio", info.Handle)
}
