package oauth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// VideoExchanger handles the video platform's authorization-code and refresh-token flows.
type VideoExchanger struct {
	client     configuration.OAuthClient
	cfg        *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
	timeout    time.Duration
}

func NewVideoExchanger(client configuration.OAuthClient, api configuration.VideoAPI, timeout time.Duration, httpClient *http.Client) repository.IOAuthExchanger {
	endpoint := google.Endpoint
	if client.AuthURL != "" {
		endpoint.AuthURL = client.AuthURL
	}
	if client.TokenURL != "" {
		endpoint.TokenURL = client.TokenURL
	}
	scopes := client.Scopes
	if len(scopes) == 0 {
		scopes = []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope}
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &VideoExchanger{
		client: client,
		cfg: &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			RedirectURL:  client.RedirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		apiBaseURL: api.APIBaseURL,
		httpClient: httpClient,
		timeout:    timeout,
	}
}

func (e *VideoExchanger) Platform() model.Platform { return model.PlatformVideo }

func (e *VideoExchanger) BuildAuthorizationURL(state string) (string, error) {
	if err := e.client.Validate(model.PlatformVideo); err != nil {
		return "", err
	}
	// offline access plus forced consent so a refresh token is issued on every connect
	return e.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

func (e *VideoExchanger) ExchangeCode(ctx context.Context, code string) (*dto.TokenResult, error) {
	if err := e.client.Validate(model.PlatformVideo); err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	tok, err := e.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError(model.PlatformVideo, "code exchange", err)
	}
	if tok.AccessToken == "" {
		return nil, &model.AuthExchangeError{Platform: model.PlatformVideo, Op: "code exchange", Detail: "empty access token"}
	}
	return tokenResult(tok), nil
}

func (e *VideoExchanger) ExtendToken(context.Context, string) (*dto.TokenResult, error) {
	return nil, model.ErrUnsupportedOperation
}

func (e *VideoExchanger) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResult, error) {
	if refreshToken == "" {
		return nil, &model.AuthExchangeError{Platform: model.PlatformVideo, Op: "refresh", Detail: "no refresh token stored"}
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	tok, err := e.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, exchangeError(model.PlatformVideo, "refresh", err)
	}
	return tokenResult(tok), nil
}

func (e *VideoExchanger) FetchAccount(ctx context.Context, accessToken string) (*dto.AccountInfo, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	opts := []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))),
	}
	if e.apiBaseURL != "" {
		opts = append(opts, option.WithEndpoint(e.apiBaseURL))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, exchangeError(model.PlatformVideo, "channel lookup", err)
	}
	if len(resp.Items) == 0 {
		return nil, &model.AuthExchangeError{Platform: model.PlatformVideo, Op: "channel lookup", Detail: "account has no channel"}
	}
	ch := resp.Items[0]
	info := &dto.AccountInfo{ID: ch.Id}
	if ch.Snippet != nil {
		info.Name = ch.Snippet.Title
		info.Handle = ch.Snippet.CustomUrl
	}
	return info, nil
}

// withTimeout bounds the call and routes oauth2 traffic through the configured HTTP client.
func (e *VideoExchanger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func tokenResult(tok *oauth2.Token) *dto.TokenResult {
	res := &dto.TokenResult{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		res.ExpiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		res.Scope = scope
	}
	return res
}

func exchangeError(p model.Platform, op string, err error) error {
	authErr := &model.AuthExchangeError{Platform: p, Op: op, Err: err}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			authErr.StatusCode = re.Response.StatusCode
		}
		authErr.Detail = re.ErrorCode
		if authErr.Detail == "" {
			authErr.Detail = strings.TrimSpace(string(re.Body))
		}
		authErr.Err = nil
	}
	return authErr
}
