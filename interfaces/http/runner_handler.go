package http

import (
	"net/http"

	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IRunnerHandler interface {
	ProcessJobs(ctx *gin.Context)
}

type RunnerHandler struct {
	runner usecase.IJobRunner
}

func NewRunnerHandler(runner usecase.IJobRunner) IRunnerHandler {
	return &RunnerHandler{runner: runner}
}

// ProcessJobs handles POST /internal/jobs/process, the periodic trigger.
func (h *RunnerHandler) ProcessJobs(ctx *gin.Context) {
	summary, err := h.runner.ProcessDueJobs(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}
