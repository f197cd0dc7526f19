package publisher

import (
	"bytes"
	"context"
	"io"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

type memBlobs struct {
	data  map[string][]byte
	opens int
}

func (m *memBlobs) PublicURL(_ context.Context, key string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func (m *memBlobs) Open(_ context.Context, key string) (io.ReadCloser, *dto.BlobInfo, error) {
	b, ok := m.data[key]
	if !ok {
		return nil, nil, model.ErrNotFound
	}
	m.opens++
	return io.NopCloser(bytes.NewReader(b)), &dto.BlobInfo{ContentType: "video/mp4", Size: int64(len(b))}, nil
}

type progressLog struct{ values []int }

func (p *progressLog) record(pct int) { p.values = append(p.values, pct) }

func (p *progressLog) last() int {
	if len(p.values) == 0 {
		return -1
	}
	return p.values[len(p.values)-1]
}
