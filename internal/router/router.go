package router

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/lexflow/lexflow-api/docs"
	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/lexflow/lexflow-api/internal/metrics"
	"github.com/lexflow/lexflow-api/internal/middleware"
	"github.com/lexflow/lexflow-api/internal/modules/handler"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
	"github.com/lexflow/lexflow-api/internal/realtime"
)

type RouterDeps struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Limiter *middleware.RateLimiter
	Auth    middleware.Authenticator
	Hub     *realtime.Hub

	AuthHandler          *handler.AuthHandler
	ProjectHandler       *handler.ProjectHandler
	CollaborationHandler *handler.CollaborationHandler
	PersonalHandler      *handler.PersonalHandler
	InsightHandler       *handler.InsightHandler
	SyncHandler          *handler.SyncHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(d.Config.CORS.AllowedOrigins))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		r.Use(middleware.TraceID())
	}
	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	if d.Metrics != nil && d.Config.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// swagger
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		limit = d.Limiter.Handler()
	}
	authed := middleware.UserAuth(d.Auth)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", limit, d.AuthHandler.Register)
		auth.POST("/login", limit, d.AuthHandler.Login)

		auth.GET("/verify", authed, d.AuthHandler.Verify)
		auth.GET("/profile", authed, d.AuthHandler.GetProfile)
		auth.PUT("/profile", authed, d.AuthHandler.UpdateProfile)
		auth.POST("/change-password", authed, limit, d.AuthHandler.ChangePassword)
		auth.POST("/logout", authed, d.AuthHandler.Logout)
	}

	collab := api.Group("/collaboration")
	{
		// public
		collab.GET("/shared/:token", d.CollaborationHandler.OpenSharedLink)

		collab.Use(authed)

		if d.Hub != nil {
			collab.GET("/ws", d.Hub.ServeWS(d.Config.CORS.AllowedOrigins))
		}

		projects := collab.Group("/projects")
		{
			projects.GET("", d.ProjectHandler.ListProjects)
			projects.POST("", d.ProjectHandler.CreateProject)
			projects.GET("/:id", d.ProjectHandler.GetProject)
			projects.PUT("/:id", d.ProjectHandler.UpdateProject)
			projects.DELETE("/:id", d.ProjectHandler.DeleteProject)

			projects.POST("/:id/tasks", d.ProjectHandler.CreateTask)
			projects.PUT("/:id/tasks/:tid", d.ProjectHandler.UpdateTask)
			projects.DELETE("/:id/tasks/:tid", d.ProjectHandler.DeleteTask)

			projects.GET("/:id/tasks/:tid/comments", d.CollaborationHandler.ListComments)
			projects.POST("/:id/tasks/:tid/comments", d.CollaborationHandler.AddComment)

			projects.POST("/:id/invite", d.CollaborationHandler.Invite)
			projects.GET("/:id/collaborators", d.CollaborationHandler.ListCollaborators)
			projects.DELETE("/:id/collaborators/:cid", d.CollaborationHandler.RemoveCollaborator)

			projects.GET("/:id/activity", d.CollaborationHandler.ListActivity)
			projects.POST("/:id/share", d.CollaborationHandler.CreateSharedLink)
		}

		collab.GET("/invitations", d.CollaborationHandler.ListInvitations)
		collab.POST("/invitations/:id/accept", d.CollaborationHandler.AcceptInvitation)

		collab.PUT("/comments/:cid", d.CollaborationHandler.UpdateComment)
		collab.DELETE("/comments/:cid", d.CollaborationHandler.DeleteComment)

		collab.GET("/notifications", d.CollaborationHandler.ListNotifications)
		collab.POST("/notifications/:nid/read", d.CollaborationHandler.MarkNotificationRead)
	}

	notes := api.Group("/quicknotes", authed)
	{
		notes.GET("", d.PersonalHandler.ListQuickNotes)
		notes.POST("", d.PersonalHandler.CreateQuickNote)
		notes.DELETE("/:id", d.PersonalHandler.DeleteQuickNote)
		notes.POST("/:id/convert-to-task", d.PersonalHandler.ConvertQuickNote)
	}

	pomodoro := api.Group("/pomodoro", authed)
	{
		pomodoro.GET("", d.PersonalHandler.GetPomodoro)
		pomodoro.POST("/settings", d.PersonalHandler.UpdatePomodoroSettings)
		pomodoro.POST("/log-session", d.PersonalHandler.LogPomodoroSession)
	}

	gamification := api.Group("/gamification", authed)
	{
		gamification.GET("", d.PersonalHandler.GetGamification)
		gamification.POST("/reset", d.PersonalHandler.ResetGamification)
		gamification.GET("/export", d.PersonalHandler.ExportGamification)
	}

	videos := api.Group("/videostudy/videos", authed)
	{
		videos.GET("", d.PersonalHandler.ListVideos)
		videos.POST("", d.PersonalHandler.CreateVideo)
		videos.PUT("/:id", d.PersonalHandler.UpdateVideo)
		videos.DELETE("/:id", d.PersonalHandler.DeleteVideo)
	}

	telos := api.Group("/telos", authed)
	{
		telos.GET("/framework", d.InsightHandler.GetTelosFramework)
		telos.POST("/framework", d.InsightHandler.SaveTelosFramework)
		telos.GET("/reviews", d.InsightHandler.ListTelosReviews)
		telos.POST("/review", d.InsightHandler.SaveTelosReview)
		telos.POST("/analyze", limit, d.InsightHandler.AnalyzeTelos)
	}

	analytics := api.Group("/analytics", authed)
	{
		analytics.GET("", d.InsightHandler.GetAnalytics)
		analytics.GET("/export", d.InsightHandler.ExportAnalytics)
	}

	ai := api.Group("/ai", authed, limit, countAI(d.Metrics))
	{
		ai.GET("/providers", d.InsightHandler.AIProviders)
		ai.GET("/health", d.InsightHandler.AIHealth)
		ai.POST("/task-suggestions", d.InsightHandler.Suggest(service.AITaskSuggestions))
		ai.POST("/productivity-insights", d.InsightHandler.Suggest(service.AIProductivityInsights))
		ai.POST("/study-recommendations", d.InsightHandler.Suggest(service.AIStudyRecommendations))
		ai.POST("/schedule-optimization", d.InsightHandler.Suggest(service.AIScheduleOptimization))
		ai.POST("/smart-categorization", d.InsightHandler.Categorize)
		ai.POST("/smart-summary", d.InsightHandler.Summarize)
		ai.POST("/priority-scoring", d.InsightHandler.ScorePriorities)
		ai.POST("/cache/clear", d.InsightHandler.ClearAICache)
	}

	cloud := api.Group("/cloud-sync")
	{
		// provider redirects carry no bearer token
		cloud.GET("/:provider/callback", d.SyncHandler.Callback)
		cloud.POST("/:provider/callback", d.SyncHandler.Callback)

		cloud.Use(authed)
		cloud.GET("/providers", d.SyncHandler.CloudProviders)
		cloud.POST("/connect/:provider", d.SyncHandler.Connect)
		cloud.POST("/save-connection", d.SyncHandler.SaveConnection)
		cloud.GET("/connections", d.SyncHandler.Connections)
		cloud.POST("/sync/:provider", d.SyncHandler.Sync)
		cloud.DELETE("/disconnect/:provider", d.SyncHandler.Disconnect)
		cloud.GET("/sync-status", d.SyncHandler.SyncStatus)
	}

	integrations := api.Group("/integrations", authed)
	{
		integrations.GET("", d.SyncHandler.GetIntegrations)
		integrations.POST("/config", d.SyncHandler.SaveIntegrations)
		integrations.GET("/test-connections", d.SyncHandler.TestConnections)
		integrations.POST("/sync/tasks", d.SyncHandler.SyncTasks)
		integrations.POST("/obsidian/export", d.SyncHandler.ObsidianExport)
	}

	r.NoRoute(spaFallback(d.Config.Static.Dir))
	return r
}

// countAI counts AI requests by endpoint.
func countAI(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m != nil {
			kind := strings.TrimPrefix(c.FullPath(), "/api/ai/")
			m.AIRequests.WithLabelValues(kind).Inc()
		}
		c.Next()
	}
}

// spaFallback serves the single page app for unmatched non-API paths:
// the requested file when it exists, index.html otherwise.
func spaFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		isAPI := p == "/api" || strings.HasPrefix(p, "/api/")
		isRead := c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead
		if isAPI || !isRead || dir == "" {
			c.JSON(http.StatusNotFound, serializer.NotFoundErr("route not found"))
			return
		}

		// http.ServeFile rejects any request path containing "..".
		clean := path.Clean("/" + p)
		c.Request.URL.Path = clean
		file := filepath.Join(dir, filepath.FromSlash(clean))
		if fi, err := os.Stat(file); err == nil && !fi.IsDir() {
			c.File(file)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
		c.JSON(http.StatusNotFound, serializer.NotFoundErr("route not found"))
	}
}
