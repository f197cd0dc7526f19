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
	"social-publisher/infrastructure/clients/graph"
	"social-publisher/infrastructure/configuration"
)

type dialogParams struct {
	ClientID     string `url:"client_id"`
	RedirectURI  string `url:"redirect_uri"`
	State        string `url:"state"`
	Scope        string `url:"scope"`
	ResponseType string `url:"response_type"`
}

type codeParams struct {
	ClientID     string `url:"client_id"`
	ClientSecret string `url:"client_secret"`
	RedirectURI  string `url:"redirect_uri"`
	Code         string `url:"code"`
}

type extendParams struct {
	GrantType       string `url:"grant_type"`
	ClientID        string `url:"client_id"`
	ClientSecret    string `url:"client_secret"`
	FbExchangeToken string `url:"fb_exchange_token"`
}

type accountsParams struct {
	Fields      string `url:"fields"`
	AccessToken string `url:"access_token"`
}

type graphToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type accountResolver func(ctx context.Context, c *graph.Client, accessToken string) (*dto.AccountInfo, error)

// GraphExchanger implements the code exchange and long-lived extension used by the page and
// photo platforms. Neither issues refresh tokens.
type GraphExchanger struct {
	platform  model.Platform
	client    configuration.OAuthClient
	dialogURL string
	api       *graph.Client
	timeout   time.Duration
	resolve   accountResolver
}

// NewPageExchanger publishes as a page, so the account lookup returns the page's own token.
func NewPageExchanger(client configuration.OAuthClient, api configuration.GraphAPI, timeout time.Duration, httpClient *http.Client) repository.IOAuthExchanger {
	return newGraphExchanger(model.PlatformPage, client, api, timeout, httpClient, pageAccount(api.PageID))
}

// NewPhotoExchanger resolves the business account linked to the user's page.
func NewPhotoExchanger(client configuration.OAuthClient, api configuration.GraphAPI, timeout time.Duration, httpClient *http.Client) repository.IOAuthExchanger {
	return newGraphExchanger(model.PlatformPhoto, client, api, timeout, httpClient, photoAccount)
}

func newGraphExchanger(p model.Platform, client configuration.OAuthClient, api configuration.GraphAPI, timeout time.Duration, httpClient *http.Client, resolve accountResolver) *GraphExchanger {
	return &GraphExchanger{
		platform:  p,
		client:    client,
		dialogURL: api.DialogURL,
		api:       graph.NewClient(api.BaseURL, httpClient),
		timeout:   timeout,
		resolve:   resolve,
	}
}

func (e *GraphExchanger) Platform() model.Platform { return e.platform }

func (e *GraphExchanger) BuildAuthorizationURL(state string) (string, error) {
	if err := e.client.Validate(e.platform); err != nil {
		return "", err
	}
	v, err := graph.Values(dialogParams{
		ClientID:     e.client.ClientID,
		RedirectURI:  e.client.RedirectURI,
		State:        state,
		Scope:        strings.Join(e.client.Scopes, ","),
		ResponseType: "code",
	})
	if err != nil {
		return "", err
	}
	return e.dialogURL + "?" + v.Encode(), nil
}

// ExchangeCode returns a short-lived user token; callers must extend it before storing.
func (e *GraphExchanger) ExchangeCode(ctx context.Context, code string) (*dto.TokenResult, error) {
	if err := e.client.Validate(e.platform); err != nil {
		return nil, err
	}
	return e.token(ctx, "code exchange", codeParams{
		ClientID:     e.client.ClientID,
		ClientSecret: e.client.ClientSecret,
		RedirectURI:  e.client.RedirectURI,
		Code:         code,
	})
}

func (e *GraphExchanger) ExtendToken(ctx context.Context, token string) (*dto.TokenResult, error) {
	if err := e.client.Validate(e.platform); err != nil {
		return nil, err
	}
	return e.token(ctx, "token extension", extendParams{
		GrantType:       "fb_exchange_token",
		ClientID:        e.client.ClientID,
		ClientSecret:    e.client.ClientSecret,
		FbExchangeToken: token,
	})
}

func (e *GraphExchanger) RefreshToken(context.Context, string) (*dto.TokenResult, error) {
	return nil, model.ErrUnsupportedOperation
}

func (e *GraphExchanger) FetchAccount(ctx context.Context, accessToken string) (*dto.AccountInfo, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	info, err := e.resolve(ctx, e.api, accessToken)
	if err != nil {
		return nil, graphAuthError(e.platform, "account lookup", err)
	}
	return info, nil
}

func (e *GraphExchanger) token(ctx context.Context, op string, params any) (*dto.TokenResult, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	var tok graphToken
	if err := e.api.Get(ctx, "oauth/access_token", params, &tok); err != nil {
		return nil, graphAuthError(e.platform, op, err)
	}
	if tok.AccessToken == "" {
		return nil, &model.AuthExchangeError{Platform: e.platform, Op: op, Detail: "empty access token"}
	}
	return &dto.TokenResult{AccessToken: tok.AccessToken, ExpiresIn: time.Duration(tok.ExpiresIn) * time.Second}, nil
}

func (e *GraphExchanger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func graphAuthError(p model.Platform, op string, err error) error {
	var authErr *model.AuthExchangeError
	if errors.As(err, &authErr) {
		return err
	}
	out := &model.AuthExchangeError{Platform: p, Op: op, Err: err}
	var apiErr *graph.APIError
	if errors.As(err, &apiErr) {
		out.StatusCode = apiErr.StatusCode
		out.Detail = apiErr.Message
		out.Err = nil
	}
	return out
}

type pageList struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		AccessToken string `json:"access_token"`
		Business    *struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"instagram_business_account"`
	} `json:"data"`
}

func pageAccount(preferredPageID string) accountResolver {
	return func(ctx context.Context, c *graph.Client, accessToken string) (*dto.AccountInfo, error) {
		var pages pageList
		if err := c.Get(ctx, "me/accounts", accountsParams{Fields: "id,name,access_token", AccessToken: accessToken}, &pages); err != nil {
			return nil, err
		}
		for _, p := range pages.Data {
			if preferredPageID == "" || p.ID == preferredPageID {
				return &dto.AccountInfo{ID: p.ID, Name: p.Name, AccessToken: p.AccessToken}, nil
			}
		}
		return nil, &model.AuthExchangeError{Platform: model.PlatformPage, Op: "account lookup", Detail: "no manageable page granted"}
	}
}

func photoAccount(ctx context.Context, c *graph.Client, accessToken string) (*dto.AccountInfo, error) {
	var pages pageList
	if err := c.Get(ctx, "me/accounts", accountsParams{Fields: "name,instagram_business_account{id,username}", AccessToken: accessToken}, &pages); err != nil {
		return nil, err
	}
	for _, p := range pages.Data {
		if p.Business != nil && p.Business.ID != "" {
			name := p.Business.Username
			if name == "" {
				name = p.Name
			}
			return &dto.AccountInfo{ID: p.Business.ID, Name: name, Handle: p.Business.Username}, nil
		}
	}
	return nil, &model.AuthExchangeError{Platform: model.PlatformPhoto, Op: "account lookup", Detail: "no business account linked to a granted page"}
}
