package model

import "github.com/golang-jwt/jwt"

// UserClaims are the bearer token claims issued by the dashboard's identity service.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}

// OAuthStateClaims are carried in the signed state parameter of an authorization redirect.
type OAuthStateClaims struct {
	Platform Platform `json:"platform"`
	jwt.StandardClaims
}
