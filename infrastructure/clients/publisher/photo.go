package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/graph"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"

	"golang.org/x/time/rate"
)

const (
	containerFinished = "FINISHED"
	containerError    = "ERROR"
	containerExpired  = "EXPIRED"
)

type containerStatusParams struct {
	Fields      string `url:"fields"`
	AccessToken string `url:"access_token"`
}

type containerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type publishParams struct {
	CreationID  string `url:"creation_id"`
	AccessToken string `url:"access_token"`
}

// PhotoPublisher runs the three-step container protocol: create a media container from a public
// URL, poll until the platform finishes processing it, then publish the container.
type PhotoPublisher struct {
	api      *graph.Client
	limiter  *rate.Limiter
	interval time.Duration
	maxPolls int
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPhotoPublisher(api configuration.GraphAPI, interval time.Duration, maxPolls int, opts Options) repository.IPublisher {
	if maxPolls <= 0 {
		maxPolls = 30
	}
	return &PhotoPublisher{
		api:      graph.NewClient(api.BaseURL, opts.client()),
		limiter:  opts.limiter(),
		interval: interval,
		maxPolls: maxPolls,
		sleep:    sleep,
	}
}

func (p *PhotoPublisher) Platform() model.Platform { return model.PlatformPhoto }

func (p *PhotoPublisher) Publish(ctx context.Context, cred dto.Credential, content dto.ContentRef, meta dto.PublishMetadata, onProgress dto.ProgressFunc) (*dto.PublishResult, error) {
	if cred.AccountID == "" {
		return nil, &model.PublishError{Platform: model.PlatformPhoto, Detail: "no business account linked to this connection"}
	}
	if content.PublicURL == "" {
		return nil, &model.PublishError{Platform: model.PlatformPhoto, Detail: "media has no public URL"}
	}
	containerID, err := p.createContainer(ctx, cred, content, meta)
	if err != nil {
		return nil, err
	}
	report(onProgress, 0)
	if err := p.waitForContainer(ctx, cred, containerID, onProgress); err != nil {
		return nil, err
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, publishErr(model.PlatformPhoto, "rate limit wait", err)
	}
	var published struct {
		ID string `json:"id"`
	}
	if err := p.api.PostForm(ctx, cred.AccountID+"/media_publish", publishParams{CreationID: containerID, AccessToken: cred.AccessToken}, &published); err != nil {
		return nil, publishErr(model.PlatformPhoto, "publish container", err)
	}
	if published.ID == "" {
		return nil, &model.PublishError{Platform: model.PlatformPhoto, Detail: "publish response without media id"}
	}
	return &dto.PublishResult{ExternalID: published.ID, URL: p.permalink(ctx, cred, published.ID)}, nil
}

func (p *PhotoPublisher) createContainer(ctx context.Context, cred dto.Credential, content dto.ContentRef, meta dto.PublishMetadata) (string, error) {
	form, err := graph.Values(struct {
		AccessToken string `url:"access_token"`
		Caption     string `url:"caption,omitempty"`
	}{cred.AccessToken, meta.Caption()})
	if err != nil {
		return "", publishErr(model.PlatformPhoto, "encode container", err)
	}
	if strings.HasPrefix(content.ContentType, "image/") {
		form.Set("image_url", content.PublicURL)
	} else {
		form.Set("media_type", "REELS")
		form.Set("video_url", content.PublicURL)
		if content.CoverURL != "" {
			form.Set("cover_url", content.CoverURL)
		}
	}
	passThrough(meta.Options, form.Set, "access_token", "image_url", "video_url", "media_type")
	if err := p.limiter.Wait(ctx); err != nil {
		return "", publishErr(model.PlatformPhoto, "rate limit wait", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := p.api.PostValues(ctx, cred.AccountID+"/media", form, &created); err != nil {
		return "", publishErr(model.PlatformPhoto, "create container", err)
	}
	if created.ID == "" {
		return "", &model.PublishError{Platform: model.PlatformPhoto, Detail: "container response without id"}
	}
	return created.ID, nil
}

// waitForContainer polls the container status. Failed polls count as attempts.
func (p *PhotoPublisher) waitForContainer(ctx context.Context, cred dto.Credential, containerID string, onProgress dto.ProgressFunc) error {
	lg := logger.GetLogger().WithField("platform", model.PlatformPhoto).WithField("container_id", containerID)
	last := ""
	for attempt := 1; attempt <= p.maxPolls; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.interval); err != nil {
				return publishErr(model.PlatformPhoto, "container polling interrupted", err)
			}
		}
		status, err := p.pollOnce(ctx, cred, containerID)
		if err != nil {
			if ctx.Err() != nil {
				return publishErr(model.PlatformPhoto, "container polling interrupted", ctx.Err())
			}
			lg.WithField("attempt", attempt).WithField("error", err).Warn("Container status poll failed")
		} else {
			last = status.StatusCode
			switch status.StatusCode {
			case containerFinished:
				report(onProgress, 100)
				return nil
			case containerError, containerExpired:
				detail := "container processing " + strings.ToLower(status.StatusCode)
				if status.Status != "" {
					detail += ": " + status.Status
				}
				return &model.PublishError{Platform: model.PlatformPhoto, Detail: detail}
			}
		}
		report(onProgress, attempt*90/p.maxPolls)
	}
	detail := fmt.Sprintf("container not ready after %d polls", p.maxPolls)
	if last != "" {
		detail += " (last status " + last + ")"
	}
	return &model.PublishError{Platform: model.PlatformPhoto, Retryable: true, Detail: detail}
}

func (p *PhotoPublisher) pollOnce(ctx context.Context, cred dto.Credential, containerID string) (*containerStatus, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var status containerStatus
	err := p.api.Get(ctx, containerID, containerStatusParams{Fields: "status_code,status", AccessToken: cred.AccessToken}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// permalink is best effort; the media is already published when it runs.
func (p *PhotoPublisher) permalink(ctx context.Context, cred dto.Credential, mediaID string) string {
	var out struct {
		Permalink string `json:"permalink"`
	}
	if err := p.api.Get(ctx, mediaID, containerStatusParams{Fields: "permalink", AccessToken: cred.AccessToken}, &out); err != nil || out.Permalink == "" {
		logger.GetLogger().WithField("media_id", mediaID).WithField("error", err).Debug("Permalink lookup failed")
		return ""
	}
	return out.Permalink
}
