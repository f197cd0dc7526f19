// Package graph is a small client for the graph API shared by the page and photo platforms.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"
)

const maxErrorBody = 4096

// APIError is a non-2xx graph response.
type APIError struct {
	StatusCode  int
	Message     string
	Type        string
	Code        int
	Subcode     int
	IsTransient bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph api status %d", e.StatusCode)
	}
	return fmt.Sprintf("graph api status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// Retryable reports whether repeating the same request later may succeed.
func (e *APIError) Retryable() bool {
	if e.IsTransient || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 {
		return true
	}
	switch e.Code {
	case 1, 2, 4, 17, 32, 341, 613:
		return true
	}
	return false
}

// InvalidToken reports an expired or revoked access token.
func (e *APIError) InvalidToken() bool {
	return e.Code == 190
}

type errorEnvelope struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
	} `json:"error"`
}

// DecodeError builds an APIError from a response body, falling back to the raw text.
func DecodeError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Type = env.Error.Type
		apiErr.Code = env.Error.Code
		apiErr.Subcode = env.Error.ErrorSubcode
		apiErr.IsTransient = env.Error.IsTransient
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Get issues GET baseURL/path with params encoded by go-querystring and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, params any, out any) error {
	u, err := c.url(path, params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.Do(req, out)
}

// PostForm issues a form-encoded POST.
func (c *Client) PostForm(ctx context.Context, path string, params any, out any) error {
	form, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	return c.PostValues(ctx, path, form, out)
}

// PostValues issues a form-encoded POST from prepared values.
func (c *Client) PostValues(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+strings.TrimLeft(path, "/"), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(req, out)
}

// Do sends req and decodes a 2xx JSON body into out. Non-2xx responses become *APIError.
func (c *Client) Do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return DecodeError(resp.StatusCode, body)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

func (c *Client) url(path string, params any) (string, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if params == nil {
		return u, nil
	}
	v, err := query.Values(params)
	if err != nil {
		return "", fmt.Errorf("encode query: %w", err)
	}
	if len(v) == 0 {
		return u, nil
	}
	return u + "?" + v.Encode(), nil
}

// Values encodes a tagged struct, for callers building their own requests.
func Values(params any) (url.Values, error) {
	return query.Values(params)
}
