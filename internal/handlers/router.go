package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-funnel-tracker/internal/ratelimit"
	"github.com/justsurfingit/job-funnel-tracker/internal/services"
)

type RouterDeps struct {
	Jobs        *JobHandler
	Auth        *AuthHandler
	AI          *AIHandler
	AuthService *services.AuthService

	Limiter        ratelimit.Limiter
	AuthRateLimit  int
	AIRateLimit    int
	RateWindow     time.Duration
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d RouterDeps) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), Timeout(d.RequestTimeout))

	config := cors.DefaultConfig()
	if len(d.AllowedOrigins) == 0 || (len(d.AllowedOrigins) == 1 && d.AllowedOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = d.AllowedOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	window := d.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	authLimit := RateLimit(d.Limiter, "auth", ClientIPKey, d.AuthRateLimit, window)
	aiLimit := RateLimit(d.Limiter, "ai", UserOrIPKey, d.AIRateLimit, window)

	api := r.Group("/api")
	{
		api.GET("/health", HealthCheck)

		api.POST("/auth/signup", authLimit, d.Auth.Signup)
		api.POST("/auth/login", authLimit, d.Auth.Login)

		private := api.Group("", AuthRequired(d.AuthService))
		{
			private.GET("/statuses", d.Jobs.Statuses)
			private.GET("/stats/funnel", d.Jobs.FunnelStats)

			private.GET("/jobs", d.Jobs.ListJobs)
			private.POST("/jobs", d.Jobs.CreateJob)
			private.POST("/jobs/extract", aiLimit, d.Jobs.ParseJob)
			private.GET("/jobs/:id", d.Jobs.GetJob)
			private.PUT("/jobs/:id", d.Jobs.UpdateJob)
			private.PATCH("/jobs/:id", d.Jobs.UpdateJob)
			private.DELETE("/jobs/:id", d.Jobs.DeleteJob)
			private.GET("/jobs/:id/events", d.Jobs.JobEvents)

			private.POST("/ai/match", aiLimit, d.AI.Match)
			private.POST("/ai/coach", aiLimit, d.AI.Coach)
			private.POST("/resume", aiLimit, d.AI.UploadResume)
		}
	}
	return r
}
