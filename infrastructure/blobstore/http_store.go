package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
)

// HTTPStore reads media from an object store that exposes blobs over HTTP.
type HTTPStore struct {
	baseURL       string
	publicBaseURL string
	token         string
	httpClient    *http.Client
}

func NewHTTPStore(cfg configuration.BlobStore, httpClient *http.Client) repository.IBlobStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	public := cfg.PublicBaseURL
	if public == "" {
		public = cfg.BaseURL
	}
	return &HTTPStore{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		publicBaseURL: strings.TrimRight(public, "/"),
		token:         cfg.Token,
		httpClient:    httpClient,
	}
}

// PublicURL returns a URL platforms can fetch the blob from without credentials.
func (s *HTTPStore) PublicURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty blob key", model.ErrValidation)
	}
	if s.publicBaseURL == "" {
		return "", fmt.Errorf("blob store public base url is not configured")
	}
	return s.publicBaseURL + "/" + escapeKey(key), nil
}

func (s *HTTPStore) Open(ctx context.Context, key string) (io.ReadCloser, *dto.BlobInfo, error) {
	if key == "" {
		return nil, nil, fmt.Errorf("%w: empty blob key", model.ErrValidation)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+escapeKey(key), nil)
	if err != nil {
		return nil, nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, nil, fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
	case resp.StatusCode/100 != 2:
		resp.Body.Close()
		return nil, nil, fmt.Errorf("open blob %s: status %d", key, resp.StatusCode)
	}
	return resp.Body, &dto.BlobInfo{ContentType: resp.Header.Get("Content-Type"), Size: resp.ContentLength}, nil
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
