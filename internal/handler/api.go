package handler

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mindfulpath/internal/mail"
	"github.com/mindfulpath/internal/otp"
	"github.com/mindfulpath/internal/security"
	"github.com/mindfulpath/internal/service"
	"github.com/mindfulpath/internal/storage"
)

// Dependencies 是构造 API 所需的基础设施。
type Dependencies struct {
	DB       *gorm.DB
	Issuer   *otp.Issuer
	Mailer   mail.Mailer
	Tokens   *security.JWTManager
	Uploader *storage.Uploader
	Logger   *zap.Logger
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	auth       *service.AuthService
	blogs      *service.BlogService
	categories *service.CategoryService
	comments   *service.CommentService
	engagement *service.EngagementService
	visits     *service.VisitService
	analytics  *service.AnalyticsService
	uploader   *storage.Uploader
	tokens     *security.JWTManager
	logger     *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		auth:       service.NewAuthService(deps.DB, deps.Issuer, deps.Mailer, deps.Tokens, deps.Uploader, logger),
		blogs:      service.NewBlogService(deps.DB, deps.Uploader, logger),
		categories: service.NewCategoryService(deps.DB, deps.Uploader, logger),
		comments:   service.NewCommentService(deps.DB),
		engagement: service.NewEngagementService(deps.DB),
		visits:     service.NewVisitService(deps.DB, logger),
		analytics:  service.NewAnalyticsService(deps.DB),
		uploader:   deps.Uploader,
		tokens:     deps.Tokens,
		logger:     logger.Named("http"),
	}
}

// Tokens exposes the token manager for authentication middleware.
func (a *API) Tokens() *security.JWTManager {
	return a.tokens
}

// Logger returns the handler logger.
func (a *API) Logger() *zap.Logger {
	return a.logger
}
