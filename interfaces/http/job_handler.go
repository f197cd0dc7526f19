package http

import (
	"net/http"
	"strconv"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IJobHandler interface {
	Create(ctx *gin.Context)
	List(ctx *gin.Context)
	Get(ctx *gin.Context)
	Cancel(ctx *gin.Context)
	Resubmit(ctx *gin.Context)
}

type JobHandler struct {
	scheduleUsecase usecase.IScheduleUsecase
	statusUsecase   usecase.IStatusUsecase
}

func NewJobHandler(scheduleUsecase usecase.IScheduleUsecase, statusUsecase usecase.IStatusUsecase) IJobHandler {
	return &JobHandler{scheduleUsecase: scheduleUsecase, statusUsecase: statusUsecase}
}

// Create handles POST /api/jobs
func (h *JobHandler) Create(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	var req dto.CreateJobRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	job, err := h.scheduleUsecase.Create(ctx.Request.Context(), uid, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, job)
}

// List handles GET /api/jobs?limit=
func (h *JobHandler) List(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	jobs, err := h.scheduleUsecase.List(ctx.Request.Context(), uid, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if jobs == nil {
		jobs = []*model.ScheduledJob{}
	}
	ctx.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// Get handles GET /api/jobs/:id and includes the job's publish attempts.
func (h *JobHandler) Get(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	view, err := h.statusUsecase.GetJob(ctx.Request.Context(), uid, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// Cancel handles POST /api/jobs/:id/cancel
func (h *JobHandler) Cancel(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	job, err := h.scheduleUsecase.Cancel(ctx.Request.Context(), uid, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}

// Resubmit handles POST /api/jobs/:id/resubmit. The body is optional.
func (h *JobHandler) Resubmit(ctx *gin.Context) {
	uid, ok := userID(ctx)
	if !ok {
		return
	}
	var req dto.ResubmitJobRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	job, err := h.scheduleUsecase.Resubmit(ctx.Request.Context(), uid, ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, job)
}
