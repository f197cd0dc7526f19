package server

import (
	"time"

	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Connection httpHandler.IConnectionHandler
	Job        httpHandler.IJobHandler
	Status     httpHandler.IStatusHandler
	Runner     httpHandler.IRunnerHandler
	Health     httpHandler.IHealthHandler
}

type RouterConfig struct {
	AllowedOrigins []string
	SecretKey      string
	CronSecret     string
}

func InitiateRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", h.Health.Health)
	router.GET("/auth/:platform/callback", h.Connection.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth(cfg.SecretKey))
	{
		api.GET("/connections", h.Status.Connections)
		api.GET("/connections/:platform/auth-url", h.Connection.GetAuthURL)
		api.DELETE("/connections/:platform", h.Connection.Disconnect)

		api.POST("/jobs", h.Job.Create)
		api.GET("/jobs", h.Job.List)
		api.GET("/jobs/:id", h.Job.Get)
		api.POST("/jobs/:id/cancel", h.Job.Cancel)
		api.POST("/jobs/:id/resubmit", h.Job.Resubmit)

		api.GET("/status", h.Status.Overview)
		api.GET("/events", h.Status.Events)
	}

	internal := router.Group("internal")
	internal.Use(middleware.CronSecret(cfg.CronSecret))
	internal.POST("/jobs/process", h.Runner.ProcessJobs)

	return router
}
