package repository

import (
	"context"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

// IOAuthExchanger performs one platform's OAuth exchanges. Operations a platform does not support
// return model.ErrUnsupportedOperation.
type IOAuthExchanger interface {
	Platform() model.Platform
	BuildAuthorizationURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*dto.TokenResult, error)
	ExtendToken(ctx context.Context, token string) (*dto.TokenResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResult, error)
	FetchAccount(ctx context.Context, accessToken string) (*dto.AccountInfo, error)
}

// IPublisher drives one platform's publish protocol. Failures are *model.PublishError.
type IPublisher interface {
	Platform() model.Platform
	Publish(ctx context.Context, cred dto.Credential, content dto.ContentRef, meta dto.PublishMetadata, onProgress dto.ProgressFunc) (*dto.PublishResult, error)
}

// INonceStore records one-time values such as OAuth state nonces and authorization codes.
type INonceStore interface {
	// Consume reports true the first time a key is seen and false afterwards.
	Consume(ctx context.Context, key string) (bool, error)
}

type IEventPublisher interface {
	Publish(evt model.Event)
}

// IEventSink forwards events to an external broker.
type IEventSink interface {
	Name() string
	Send(ctx context.Context, evt model.Event) error
}
