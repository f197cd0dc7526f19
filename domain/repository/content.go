package repository

import (
	"context"
	"io"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

type IContent interface {
	GetByID(ctx context.Context, id string) (*model.Content, error)
}

// IBlobStore resolves stored media to a public URL or a byte stream.
type IBlobStore interface {
	PublicURL(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *dto.BlobInfo, error)
}
