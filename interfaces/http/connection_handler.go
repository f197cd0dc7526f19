package http

import (
	"errors"
	"net/http"
	"net/url"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IConnectionHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
}

type ConnectionHandler struct {
	connectionUsecase usecase.IConnectionUsecase
	connectionsURL    string
}

func NewConnectionHandler(uc usecase.IConnectionUsecase, connectionsURL string) IConnectionHandler {
	return &ConnectionHandler{connectionUsecase: uc, connectionsURL: connectionsURL}
}

// GetAuthURL handles GET /api/connections/:platform/auth-url
func (h *ConnectionHandler) GetAuthURL(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	authURL, err := h.connectionUsecase.BeginConnect(ctx.Request.Context(), uid, platform)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.AuthURLResponse{Platform: string(platform), AuthURL: authURL})
}

// Callback handles GET /auth/:platform/callback. It always redirects back to the dashboard.
func (h *ConnectionHandler) Callback(ctx *gin.Context) {
	lg := logger.GetLogger().WithField("platform", ctx.Param("platform"))
	platform, err := model.ParsePlatform(ctx.Param("platform"))
	if err != nil {
		h.redirect(ctx, "error", "unsupported_platform")
		return
	}
	if denied := ctx.Query("error"); denied != "" {
		lg.WithField("reason", denied).WithField("description", ctx.Query("error_description")).Warn("Authorization denied")
		h.redirect(ctx, "error", denied)
		return
	}

	conn, err := h.connectionUsecase.CompleteConnect(ctx.Request.Context(), platform, ctx.Query("code"), ctx.Query("state"))
	if err != nil {
		lg.WithField("error", err.Error()).Warn("OAuth callback failed")
		h.redirect(ctx, "error", callbackErrorCode(err))
		return
	}
	lg.WithField("user_id", conn.UserID).Info("OAuth callback completed")
	h.redirect(ctx, "connected", string(platform))
}

func callbackErrorCode(err error) string {
	var (
		authErr *model.AuthExchangeError
		cfgErr  *model.ConfigurationError
	)
	switch {
	case errors.Is(err, model.ErrInvalidState):
		return "invalid_state"
	case errors.As(err, &authErr):
		return "exchange_failed"
	case errors.As(err, &cfgErr):
		return "not_configured"
	}
	return "internal_error"
}

func (h *ConnectionHandler) redirect(ctx *gin.Context, key, value string) {
	target, err := url.Parse(h.connectionsURL)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "invalid connections url"})
		return
	}
	q := target.Query()
	q.Set(key, value)
	target.RawQuery = q.Encode()
	ctx.Redirect(http.StatusFound, target.String())
}

// Disconnect handles DELETE /api/connections/:platform
func (h *ConnectionHandler) Disconnect(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	if err := h.connectionUsecase.Disconnect(ctx.Request.Context(), uid, platform); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"platform": platform, "connected": false})
}
