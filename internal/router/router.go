package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mindfulpath/internal/handler"
	"github.com/mindfulpath/internal/metrics"
	"github.com/mindfulpath/internal/middleware"
	"github.com/mindfulpath/internal/security"
)

// Options 控制路由层的横切行为。
type Options struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// UploadDir 非空时以 UploadURLPath 提供本地上传目录的静态访问。
	UploadDir     string
	UploadURLPath string
	Logger        *zap.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(opts.CORSOrigins))

	if opts.UploadDir != "" {
		urlPath := opts.UploadURLPath
		if urlPath == "" {
			urlPath = "/static/uploads"
		}
		r.Static(strings.TrimRight(urlPath, "/"), opts.UploadDir)
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := r.Group("/api")
	if opts.RateLimitRequests > 0 && opts.RateLimitWindow > 0 {
		apiGroup.Use(middleware.NewRateLimiter(opts.RateLimitRequests, opts.RateLimitWindow).Middleware(logger))
	}
	apiGroup.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is working"})
	})
	apiGroup.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	tokens := api.Tokens()
	authed := middleware.Authenticate(tokens, logger)
	admin := middleware.RequireRole(security.RoleAdmin, logger)

	auth := apiGroup.Group("/auth")
	{
		auth.POST("/request-otp", api.RequestOTP)
		auth.POST("/register", api.Register)
		auth.POST("/login", api.Login)
		auth.POST("/forgot-password", api.ForgotPassword)
		auth.POST("/verify-otp", api.VerifyOTP)
		auth.POST("/reset-password", api.ResetPassword)
		auth.GET("/user/me", authed, api.CurrentUser)
		auth.PATCH("/update-profile", authed, api.UpdateProfile)
	}

	blogs := apiGroup.Group("/blogs")
	{
		blogs.GET("", api.ListBlogs)
		blogs.GET("/:id", middleware.OptionalAuth(tokens), api.GetBlog)
		blogs.GET("/user/saved", authed, api.SavedBlogs)
		blogs.POST("/:id/like", authed, api.ToggleLike)
		blogs.POST("/:id/bookmark", authed, api.ToggleBookmark)

		blogs.POST("", authed, admin, api.CreateBlog)
		blogs.PUT("/set-all-isLive", authed, admin, api.SetAllLive)
		blogs.PUT("/:id", authed, admin, api.UpdateBlog)
		blogs.DELETE("/:id", authed, admin, api.DeleteBlog)
	}

	categories := apiGroup.Group("/categories")
	{
		categories.GET("", api.ListCategories)
		categories.GET("/:id/subcategories", api.ListSubcategories)

		categories.POST("", authed, admin, api.CreateCategory)
		categories.PUT("/:id", authed, admin, api.UpdateCategory)
		categories.DELETE("/:id", authed, admin, api.DeleteCategory)
		categories.POST("/:id/subcategories", authed, admin, api.CreateSubcategory)
		categories.PUT("/subcategories/:id", authed, admin, api.UpdateSubcategory)
		categories.DELETE("/subcategories/:id", authed, admin, api.DeleteSubcategory)
	}

	comments := apiGroup.Group("/comments")
	{
		comments.GET("/:id", api.ListComments)
		comments.POST("/:id", authed, api.AddComment)
		comments.DELETE("/:id", authed, api.DeleteComment)
	}

	newsletter := apiGroup.Group("/newsletter")
	{
		newsletter.POST("", api.Subscribe)
		newsletter.GET("/count", authed, admin, api.SubscriberCount)
	}

	apiGroup.POST("/contact", api.SubmitContact)
	apiGroup.POST("/upload", authed, admin, api.UploadImage)

	analytics := apiGroup.Group("/analytics")
	{
		analytics.POST("/visit/start", api.StartVisit)
		analytics.POST("/visit/end", api.EndVisit)
		analytics.GET("/summary", authed, admin, api.AnalyticsSummary)
		analytics.GET("/article/:id", authed, admin, api.ArticleAnalytics)
		analytics.GET("/page", authed, admin, api.PageAnalytics)
		analytics.GET("/blogs", authed, admin, api.BlogViews)
	}

	return r
}
