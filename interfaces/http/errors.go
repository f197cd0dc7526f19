package http

import (
	"errors"
	"net/http"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	var (
		cfgErr  *model.ConfigurationError
		authErr *model.AuthExchangeError
		credErr *model.CredentialExpiredError
	)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidState):
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &authErr):
		return http.StatusBadGateway
	case errors.As(err, &credErr):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(ctx *gin.Context, err error) {
	status := statusFor(err)
	lg := logger.GetLogger().WithField("path", ctx.FullPath()).WithField("error", err.Error())
	if status >= http.StatusInternalServerError {
		lg.Error("Request failed")
		if status == http.StatusInternalServerError {
			ctx.JSON(status, gin.H{"error": "internal error"})
			return
		}
	} else {
		lg.Warn("Request rejected")
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

// userID returns the authenticated user or writes 401.
func userID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString("user_id")
	if id == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return "", false
	}
	return id, true
}

func platformParam(ctx *gin.Context) (model.Platform, bool) {
	p, err := model.ParsePlatform(ctx.Param("platform"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return p, true
}
