package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fanlinkhq/fanlink/internal/access"
	"github.com/fanlinkhq/fanlink/internal/cache"
	"github.com/fanlinkhq/fanlink/internal/config"
	apierrors "github.com/fanlinkhq/fanlink/internal/errors"
	"github.com/fanlinkhq/fanlink/internal/feed"
	"github.com/fanlinkhq/fanlink/internal/identity"
	"github.com/fanlinkhq/fanlink/internal/logging"
	"github.com/fanlinkhq/fanlink/internal/messaging"
	"github.com/fanlinkhq/fanlink/internal/middleware"
	"github.com/fanlinkhq/fanlink/internal/monitoring"
	"github.com/fanlinkhq/fanlink/internal/post"
	"github.com/fanlinkhq/fanlink/internal/profile"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/fanlinkhq/fanlink/internal/subscription"
	"github.com/fanlinkhq/fanlink/internal/tier"
)

// APIServer represents the main API server
type APIServer struct {
	config           *config.Config
	router           *gin.Engine
	db               *pgxpool.Pool
	jwtAuthenticator *middleware.JWTAuthenticator
	evaluator        *access.Evaluator

	identityService     *identity.Service
	profileService      *profile.Service
	tierService         *tier.Service
	postService         *post.Service
	feedService         *feed.Service
	subscriptionService *subscription.Service
	messagingService    *messaging.Service
}

// NewAPIServer creates a new API server instance. redisCache may be nil;
// the unread badge cache then degrades to direct store counts.
func NewAPIServer(cfg *config.Config, db *pgxpool.Pool, redisCache *cache.Redis) *APIServer {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware in order
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(logging.RequestLogger())

	st := store.New(db)
	evaluator := access.NewEvaluator(st, st)
	badge := cache.NewUnreadBadge(redisCache, cfg.Messaging.BadgePollInterval)

	srv := &APIServer{
		config:           cfg,
		router:           router,
		db:               db,
		jwtAuthenticator: middleware.NewJWTAuthenticator(&cfg.JWT),
		evaluator:        evaluator,

		identityService: identity.NewService(st, &cfg.JWT),
		profileService:  profile.NewService(st),
		tierService:     tier.NewService(st, tier.PolicyFromConfig(&cfg.Pricing)),
		postService:     post.NewService(st, evaluator),
		feedService:     feed.NewService(st, evaluator),
		subscriptionService: subscription.NewService(
			st, cfg.Subscription.ValidityWindow()),
		messagingService: messaging.NewService(
			st, evaluator, badge,
			cfg.Messaging.MaxMessageLength, cfg.Messaging.DefaultMessagesLimit),
	}

	srv.setupRoutes()
	return srv
}

// Router returns the gin router
func (s *APIServer) Router() http.Handler {
	return s.router
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		// Auth routes (public)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", s.handleRegister)
			authGroup.POST("/login", s.handleLogin)
			authGroup.POST("/logout", s.handleLogout)
			authGroup.POST("/refresh", s.handleRefresh)
			authGroup.GET("/session", s.jwtAuthenticator.JWTAuth(), s.handleSession)
		}

		// Own profile (protected)
		me := v1.Group("/profiles/me")
		me.Use(s.jwtAuthenticator.JWTAuth())
		{
			me.GET("", s.handleGetOwnProfile)
			me.PUT("", s.handleUpdateOwnProfile)
		}

		// Creator directory and public creator pages. Auth is optional:
		// anonymous viewers see everything public plus locked stubs for
		// the rest.
		creators := v1.Group("/creators")
		creators.Use(s.jwtAuthenticator.OptionalJWTAuth())
		{
			creators.GET("", s.handleListCreators)
			creators.GET("/:id", s.handleGetCreator)
			creators.GET("/:id/access", s.handleGetAccess)
			creators.GET("/:id/tiers", s.handleListTiers)
			creators.GET("/:id/posts", s.handleListPosts)
			creators.GET("/:id/posts/:slug", s.handleGetPost)
			creators.GET("/:id/feed", s.handleListFeed)
		}

		// Tier management (protected, creator role)
		tiers := v1.Group("/tiers")
		tiers.Use(s.jwtAuthenticator.JWTAuth())
		tiers.Use(middleware.RequireCreator())
		{
			tiers.PUT("/:level", s.handleUpsertTier)
			tiers.DELETE("/:level", s.handleDeleteTier)
		}

		// Post management (protected, creator role)
		posts := v1.Group("/posts")
		posts.Use(s.jwtAuthenticator.JWTAuth())
		posts.Use(middleware.RequireCreator())
		{
			posts.POST("", s.handleCreatePost)
			posts.DELETE("/:id", s.handleDeletePost)
		}

		// Feed publishing (protected, creator role)
		feedGroup := v1.Group("/feed")
		feedGroup.Use(s.jwtAuthenticator.JWTAuth())
		feedGroup.Use(middleware.RequireCreator())
		{
			feedGroup.POST("", s.handlePostToFeed)
		}

		// Subscription ledger (protected)
		subs := v1.Group("/subscriptions")
		subs.Use(s.jwtAuthenticator.JWTAuth())
		{
			subs.POST("", s.handleSubscribe)
			subs.DELETE("/:creatorID", s.handleUnsubscribe)
			subs.GET("/mine", s.handleListMySubscriptions)
			subs.GET("/subscribers", middleware.RequireCreator(), s.handleListSubscribers)
			subs.GET("/stats", middleware.RequireCreator(), s.handleSubscriptionStats)
		}

		// Messaging (protected)
		messages := v1.Group("/messages")
		messages.Use(s.jwtAuthenticator.JWTAuth())
		{
			messages.GET("/conversations", s.handleListConversations)
			messages.POST("/conversations", s.handleOpenConversation)
			messages.GET("/conversations/:id", s.handleGetMessages)
			messages.POST("/conversations/:id", s.handleSendMessage)
			messages.POST("/conversations/:id/read", s.handleMarkRead)
			messages.GET("/unread", s.handleUnreadTotal)
		}
	}
}

// Health check handler
func (s *APIServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "api",
	})
}

// respondFallbackError handles the failures every handler can hit: an
// unconfigured store surfaces as 503, anything else as 500.
func respondFallbackError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotConfigured) {
		respondError(c, apierrors.ErrNotConfiguredError)
		return
	}
	respondError(c, apierrors.ErrInternalServerError)
}

// respondError sends a standardized error response
func respondError(c *gin.Context, err *apierrors.APIError) {
	requestID, _ := c.Get("request_id")
	reqIDStr, _ := requestID.(string)

	c.JSON(err.HTTPStatus, apierrors.ErrorResponse{
		Error:     *err,
		RequestID: reqIDStr,
	})
}
