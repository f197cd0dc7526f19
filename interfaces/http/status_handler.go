package http

import (
	"net/http"

	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IStatusHandler interface {
	Connections(ctx *gin.Context)
	Overview(ctx *gin.Context)
	Events(ctx *gin.Context)
}

// EventStream writes the authenticated user's events to the response.
type EventStream interface {
	Serve(ctx *gin.Context)
}

type StatusHandler struct {
	statusUsecase usecase.IStatusUsecase
	stream        EventStream
}

func NewStatusHandler(uc usecase.IStatusUsecase, stream EventStream) IStatusHandler {
	return &StatusHandler{statusUsecase: uc, stream: stream}
}

// Connections handles GET /api/connections
func (h *StatusHandler) Connections(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	list, err := h.statusUsecase.ListConnections(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"connections": list})
}

// Overview handles GET /api/status
func (h *StatusHandler) Overview(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	overview, err := h.statusUsecase.Overview(ctx.Request.Context(), uid)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, overview)
}

// Events handles GET /api/events
func (h *StatusHandler) Events(ctx *gin.Context) {
	if _, ok := userID(ctx); !ok {
		return
	}
	h.stream.Serve(ctx)
}
