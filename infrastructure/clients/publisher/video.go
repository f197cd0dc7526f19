package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"

	"golang.org/x/time/rate"
	"google.golang.org/api/youtube/v3"
)

const statusResumeIncomplete = 308

// VideoPublisher uploads with the resumable protocol: one session per publish, the byte upload
// retried against that session so a network failure never creates a second video.
type VideoPublisher struct {
	uploadBaseURL string
	blobs         repository.IBlobStore
	httpClient    *http.Client
	limiter       *rate.Limiter
	maxUploads    int
	retryDelay    time.Duration
}

func NewVideoPublisher(api configuration.VideoAPI, blobs repository.IBlobStore, uploadAttempts int, opts Options) repository.IPublisher {
	if uploadAttempts <= 0 {
		uploadAttempts = 3
	}
	return &VideoPublisher{
		uploadBaseURL: strings.TrimRight(api.UploadBaseURL, "/"),
		blobs:         blobs,
		httpClient:    opts.client(),
		limiter:       opts.limiter(),
		maxUploads:    uploadAttempts,
		retryDelay:    2 * time.Second,
	}
}

func (p *VideoPublisher) Platform() model.Platform { return model.PlatformVideo }

func (p *VideoPublisher) Publish(ctx context.Context, cred dto.Credential, content dto.ContentRef, meta dto.PublishMetadata, onProgress dto.ProgressFunc) (*dto.PublishResult, error) {
	lg := logger.GetLogger().WithField("platform", model.PlatformVideo).WithField("content_id", content.ContentID)

	sessionURL, err := p.initiate(ctx, cred, content, meta)
	if err != nil {
		return nil, err
	}
	report(onProgress, 0)

	var lastErr error
	for attempt := 1; attempt <= p.maxUploads; attempt++ {
		video, retry, err := p.upload(ctx, cred, sessionURL, content, onProgress)
		if err == nil {
			report(onProgress, 100)
			return &dto.PublishResult{ExternalID: video.Id, URL: "https://www.youtube.com/watch?v=" + video.Id}, nil
		}
		if ctx.Err() != nil {
			return nil, publishErr(model.PlatformVideo, "upload interrupted", ctx.Err())
		}
		if !retry {
			return nil, &model.PublishError{Platform: model.PlatformVideo, Detail: "upload rejected", Err: err}
		}
		lastErr = err
		lg.WithField("attempt", attempt).WithField("error", err).Warn("Resumable upload failed, retrying on the same session")
		if attempt < p.maxUploads {
			if err := sleep(ctx, p.retryDelay); err != nil {
				return nil, publishErr(model.PlatformVideo, "upload interrupted", err)
			}
		}
	}
	return nil, &model.PublishError{
		Platform:  model.PlatformVideo,
		Retryable: true,
		Detail:    fmt.Sprintf("upload did not complete after %d attempts", p.maxUploads),
		Err:       lastErr,
	}
}

// initiate creates the upload session and returns its URL.
func (p *VideoPublisher) initiate(ctx context.Context, cred dto.Credential, content dto.ContentRef, meta dto.PublishMetadata) (string, error) {
	privacy := meta.Privacy
	if privacy == "" {
		privacy = "private"
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.Options["category_id"],
		},
		Status: &youtube.VideoStatus{PrivacyStatus: privacy},
	}
	body, err := json.Marshal(video)
	if err != nil {
		return "", publishErr(model.PlatformVideo, "encode metadata", err)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", publishErr(model.PlatformVideo, "rate limit wait", err)
	}
	u := p.uploadBaseURL + "/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", publishErr(model.PlatformVideo, "build init request", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	if content.ContentType != "" {
		req.Header.Set("X-Upload-Content-Type", content.ContentType)
	}
	if content.Size > 0 {
		req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(content.Size, 10))
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", publishErr(model.PlatformVideo, "init upload session", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &model.PublishError{
			Platform:  model.PlatformVideo,
			Retryable: retryableStatus(resp.StatusCode),
			Detail:    "init upload session",
			Err:       statusError(resp),
		}
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &model.PublishError{Platform: model.PlatformVideo, Detail: "init upload session returned no Location"}
	}
	return loc, nil
}

// upload sends the full byte stream. retry reports whether the same session may be tried again.
func (p *VideoPublisher) upload(ctx context.Context, cred dto.Credential, sessionURL string, content dto.ContentRef, onProgress dto.ProgressFunc) (*youtube.Video, bool, error) {
	rc, info, err := p.blobs.Open(ctx, content.BlobKey)
	if err != nil {
		return nil, true, fmt.Errorf("open blob: %w", err)
	}
	defer rc.Close()
	size := content.Size
	if size <= 0 && info != nil {
		size = info.Size
	}
	contentType := content.ContentType
	if contentType == "" && info != nil {
		contentType = info.ContentType
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, newProgressReader(rc, size, 99, onProgress))
	if err != nil {
		return nil, false, err
	}
	req.ContentLength = size
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var video youtube.Video
		if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
			return nil, false, fmt.Errorf("decode upload response: %w", err)
		}
		if video.Id == "" {
			return nil, false, fmt.Errorf("upload response without video id")
		}
		return &video, false, nil
	case resp.StatusCode == statusResumeIncomplete || retryableStatus(resp.StatusCode):
		return nil, true, statusError(resp)
	default:
		return nil, false, statusError(resp)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
