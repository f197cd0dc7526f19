// Package publisher implements the per-platform publish protocols.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/graph"

	"golang.org/x/time/rate"
)

// Registry maps each platform to its publisher.
type Registry map[model.Platform]repository.IPublisher

func NewRegistry(publishers ...repository.IPublisher) Registry {
	r := make(Registry, len(publishers))
	for _, p := range publishers {
		r[p.Platform()] = p
	}
	return r
}

// Options tunes outbound behaviour shared by all publishers.
type Options struct {
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Burst             int
}

func (o Options) limiter() *rate.Limiter {
	if o.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := o.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(o.RequestsPerSecond), burst)
}

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{}
}

// publishErr wraps err as a PublishError, deriving retryability from what failed.
func publishErr(p model.Platform, detail string, err error) error {
	var pubErr *model.PublishError
	if errors.As(err, &pubErr) {
		return err
	}
	out := &model.PublishError{Platform: p, Detail: detail, Err: err}
	var apiErr *graph.APIError
	switch {
	case errors.As(err, &apiErr):
		out.Retryable = apiErr.Retryable()
	case errors.Is(err, context.Canceled):
		out.Retryable = false
	default:
		// deadlines, resets and other transport failures
		out.Retryable = true
	}
	return out
}

// passThrough copies platform options into set, skipping keys the publisher owns.
func passThrough(opts map[string]string, set func(k, v string), reserved ...string) {
	for k, v := range opts {
		if slices.Contains(reserved, k) {
			continue
		}
		set(k, v)
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func report(onProgress dto.ProgressFunc, percent int) {
	if onProgress != nil {
		onProgress(percent)
	}
}

// progressReader reports bytes read as a percentage of total.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	last       int
	scale      int
	onProgress dto.ProgressFunc
}

func newProgressReader(r io.Reader, total int64, scale int, onProgress dto.ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, scale: scale, onProgress: onProgress, last: -1}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && p.onProgress != nil {
		pct := int(p.read * int64(p.scale) / p.total)
		if pct > p.scale {
			pct = p.scale
		}
		if pct != p.last {
			p.last = pct
			p.onProgress(pct)
		}
	}
	return n, err
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
}
