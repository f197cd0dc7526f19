package usecase

import (
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/utils"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// stateSigner mints and verifies the signed state parameter of an authorization redirect.
// The token's Id is a nonce the callback consumes exactly once.
type stateSigner struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func (s stateSigner) Sign(userID string, platform model.Platform) (string, error) {
	if s.secret == "" {
		return "", &model.ConfigurationError{Platform: platform, Field: "state signing secret"}
	}
	now := s.now()
	claims := model.OAuthStateClaims{
		Platform: platform,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	return utils.GenerateToken(claims, s.secret)
}

func (s stateSigner) Verify(state string, platform model.Platform) (*model.OAuthStateClaims, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: missing state", model.ErrInvalidState)
	}
	var claims model.OAuthStateClaims
	token, err := utils.ParseToken(state, s.secret, &claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidState, err)
	}
	if !token.Valid || claims.Subject == "" || claims.Id == "" {
		return nil, fmt.Errorf("%w: incomplete claims", model.ErrInvalidState)
	}
	if claims.Platform != platform {
		return nil, fmt.Errorf("%w: issued for %s", model.ErrInvalidState, claims.Platform)
	}
	return &claims, nil
}
