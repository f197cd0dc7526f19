package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Auth validates the bearer token and sets "user_id" for handlers.
// Browsers cannot set headers on EventSource requests, so an access_token query parameter is accepted too.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}
		raw := bearer(ctx)
		if raw == "" || secretKey == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		var claims model.UserClaims
		token, err := utils.ParseToken(raw, secretKey, &claims)
		if err != nil || !token.Valid {
			res.ResponseMessage = reason(err)
			logger.GetLogger().WithField("error", res.ResponseMessage).Debug("Rejected bearer token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		uid := claims.Subject
		if uid == "" {
			uid = claims.Issuer
		}
		if uid == "" {
			res.ResponseMessage = "Token has no subject"
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		ctx.Set("user_id", uid)
		ctx.Set("user_name", claims.UserName)
		ctx.Next()
	}
}

func bearer(ctx *gin.Context) string {
	if h := ctx.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return ctx.Query("access_token")
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return "That's not even a token"
		case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return "Timing is everything"
		}
	}
	return fmt.Sprintf("Couldn't handle this token: %v", err)
}

// CronSecret guards internal trigger endpoints with a shared secret in X-Cron-Secret.
// An empty secret disables the endpoint.
func CronSecret(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if secret == "" {
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "cron trigger disabled"})
			return
		}
		got := ctx.GetHeader("X-Cron-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
			return
		}
		ctx.Next()
	}
}
