package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/csi-showcase/showcase/docs"
	"github.com/csi-showcase/showcase/internal/config"
	"github.com/csi-showcase/showcase/internal/middleware"
	"github.com/csi-showcase/showcase/internal/modules/handler"
	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
)

type RouterDeps struct {
	Config         *config.Config
	Log            *zap.Logger
	AuthService    service.AuthService
	AuthHandler    *handler.AuthHandler
	ProjectHandler *handler.ProjectHandler
	FileHandler    *handler.FileHandler
	ReviewHandler  *handler.ReviewHandler
	UserHandler    *handler.UserHandler
	StatsHandler   *handler.StatsHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	serializer.SetLogger(d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.Metrics())
	r.Use(middleware.ZapLogger(d.Log))

	r.MaxMultipartMemory = 32 << 20

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// swagger
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	cookie := d.Config.Auth.CookieName
	requireAuth := middleware.Auth(d.AuthService, cookie)
	optionalAuth := middleware.OptionalAuth(d.AuthService, cookie)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "pong"}) })

		auth := v1.Group("/auth")
		{
			auth.POST("/login", d.AuthHandler.Login)
			auth.POST("/logout", d.AuthHandler.Logout)
			auth.GET("/me", requireAuth, d.AuthHandler.Me)
		}

		search := v1.Group("/search")
		{
			search.GET("/projects", optionalAuth, d.ProjectHandler.SearchProjects)
			search.GET("/users", requireAuth, d.UserHandler.SearchUsers)
		}

		projects := v1.Group("/projects")
		{
			projects.GET("", optionalAuth, d.ProjectHandler.ListProjects)
			projects.GET("/mine", requireAuth, d.ProjectHandler.ListMyProjects)
			projects.POST("/validate", requireAuth, d.ProjectHandler.ValidateDraft)
			projects.POST("", requireAuth, d.ProjectHandler.CreateProject)

			projects.GET("/:project_id", optionalAuth, d.ProjectHandler.GetProject)
			projects.PUT("/:project_id", requireAuth, d.ProjectHandler.UpdateProject)
			projects.DELETE("/:project_id", requireAuth, d.ProjectHandler.DeleteProject)

			projects.DELETE("/:project_id/files", requireAuth, d.FileHandler.DeleteFile)
			projects.GET("/:project_id/files/:file_id/download", optionalAuth, d.FileHandler.DownloadFile)
			projects.GET("/:project_id/reviews", requireAuth, d.ReviewHandler.GetReviews)
		}

		upload := v1.Group("/upload", requireAuth)
		{
			upload.POST("/profile-image", d.UserHandler.UploadProfileImage)
		}

		admin := v1.Group("/admin", requireAuth, middleware.AdminOnly(d.Config.Auth.AdminSecretKey))
		{
			ap := admin.Group("/projects")
			{
				ap.GET("", d.ProjectHandler.AdminListProjects)
				ap.GET("/:project_id", d.ProjectHandler.GetProject)
				ap.PUT("/:project_id", d.ProjectHandler.UpdateProject)
				ap.DELETE("/:project_id", d.ProjectHandler.DeleteProject)
				ap.POST("/:project_id/review", d.ReviewHandler.ReviewProject)
				ap.GET("/:project_id/reviews", d.ReviewHandler.GetReviews)
				ap.DELETE("/:project_id/files", d.FileHandler.DeleteFile)
			}

			users := admin.Group("/users")
			{
				users.GET("", d.UserHandler.ListUsers)
				users.POST("", d.UserHandler.CreateUser)
				users.PUT("/:user_id", d.UserHandler.UpdateUser)
				users.DELETE("/:user_id", d.UserHandler.DeleteUser)
			}

			logs := admin.Group("/logs")
			{
				logs.GET("/login", d.StatsHandler.GetLoginLogs)
				logs.GET("/visitors", d.StatsHandler.GetVisitorLogs)
				logs.GET("/reviews", d.StatsHandler.GetReviewLogs)
			}

			admin.GET("/stats/dashboard", d.StatsHandler.GetDashboard)
		}
	}
	return r
}
