package publisher

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"sort"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/graph"
	"social-publisher/infrastructure/configuration"

	"golang.org/x/time/rate"
)

// PagePublisher uploads a video to a page in a single multipart request.
type PagePublisher struct {
	api     *graph.Client
	blobs   repository.IBlobStore
	limiter *rate.Limiter
}

func NewPagePublisher(api configuration.GraphAPI, blobs repository.IBlobStore, opts Options) repository.IPublisher {
	return &PagePublisher{
		api:     graph.NewClient(api.VideoBaseURL, opts.client()),
		blobs:   blobs,
		limiter: opts.limiter(),
	}
}

func (p *PagePublisher) Platform() model.Platform { return model.PlatformPage }

func (p *PagePublisher) Publish(ctx context.Context, cred dto.Credential, content dto.ContentRef, meta dto.PublishMetadata, onProgress dto.ProgressFunc) (*dto.PublishResult, error) {
	if cred.AccountID == "" {
		return nil, &model.PublishError{Platform: model.PlatformPage, Detail: "no page selected for this connection"}
	}
	rc, info, err := p.blobs.Open(ctx, content.BlobKey)
	if err != nil {
		return nil, publishErr(model.PlatformPage, "open media", err)
	}
	defer rc.Close()
	size := content.Size
	if size <= 0 && info != nil {
		size = info.Size
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, publishErr(model.PlatformPage, "rate limit wait", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writePageForm(mw, cred, content, meta, newProgressReader(rc, size, 99, onProgress)))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.api.BaseURL()+"/"+cred.AccountID+"/videos", pr)
	if err != nil {
		_ = pr.Close()
		return nil, publishErr(model.PlatformPage, "build upload request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		ID string `json:"id"`
	}
	if err := p.api.Do(req, &out); err != nil {
		_ = pr.CloseWithError(err)
		return nil, publishErr(model.PlatformPage, "video upload", err)
	}
	if out.ID == "" {
		return nil, &model.PublishError{Platform: model.PlatformPage, Detail: "upload response without video id"}
	}
	report(onProgress, 100)
	return &dto.PublishResult{
		ExternalID: out.ID,
		URL:        fmt.Sprintf("https://www.facebook.com/%s/videos/%s", cred.AccountID, out.ID),
	}, nil
}

func writePageForm(mw *multipart.Writer, cred dto.Credential, content dto.ContentRef, meta dto.PublishMetadata, media io.Reader) error {
	fields := map[string]string{
		"access_token": cred.AccessToken,
		"title":        meta.Title,
		"description":  meta.Description,
	}
	// platform-native options such as scheduled_publish_time are passed through untouched
	passThrough(meta.Options, func(k, v string) { fields[k] = v }, "access_token", "source")
	if _, ok := fields["scheduled_publish_time"]; ok {
		if _, set := fields["published"]; !set {
			fields["published"] = "false"
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if fields[k] == "" {
			continue
		}
		if err := mw.WriteField(k, fields[k]); err != nil {
			return err
		}
	}
	name := path.Base(content.BlobKey)
	if name == "." || name == "/" {
		name = content.ContentID + ".mp4"
	}
	part, err := mw.CreateFormFile("source", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, media); err != nil {
		return err
	}
	return mw.Close()
}
