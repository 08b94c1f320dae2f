package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"anoa.com/bazaar/internal/config"
	"anoa.com/bazaar/internal/middleware"
	"anoa.com/bazaar/pkg/database"
	"anoa.com/bazaar/pkg/storage"

	chatHttp "anoa.com/bazaar/internal/modules/chat/delivery/http"
	chatRepo "anoa.com/bazaar/internal/modules/chat/repository"
	chatService "anoa.com/bazaar/internal/modules/chat/service"

	listingHttp "anoa.com/bazaar/internal/modules/listing/delivery/http"
	listingRepo "anoa.com/bazaar/internal/modules/listing/repository"
	listingService "anoa.com/bazaar/internal/modules/listing/service"

	notiHttp "anoa.com/bazaar/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/bazaar/internal/modules/notification/repository"
	notifService "anoa.com/bazaar/internal/modules/notification/service"

	panelHttp "anoa.com/bazaar/internal/modules/panel/delivery/http"
	panelRepo "anoa.com/bazaar/internal/modules/panel/repository"
	panelService "anoa.com/bazaar/internal/modules/panel/service"

	searchService "anoa.com/bazaar/internal/modules/search/service"

	userHttp "anoa.com/bazaar/internal/modules/user/delivery/http"
	userRepo "anoa.com/bazaar/internal/modules/user/repository"
	userService "anoa.com/bazaar/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	authLimiter *middleware.IPRateLimiter
	logger      zerolog.Logger
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger zerolog.Logger) (*Server, error) {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	var imageStorage storage.ImageStorage
	if cfg.CloudinaryURL != "" {
		s, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryUploadFolder)
		if err != nil {
			return nil, err
		}
		imageStorage = s
	} else {
		logger.Warn().Msg("CLOUDINARY_URL not set, image uploads are disabled")
	}

	var meiliSvc searchService.MeiliSearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		meiliSvc = searchService.NewMeiliSearchService(meiliClient, logger)
	} else {
		logger.Warn().Msg("MEILISEARCH_HOST not set, listing search index is disabled")
	}

	tx := database.NewTransactor(db)

	userRepository := userRepo.NewUserRepository(db)
	listingRepository := listingRepo.NewListingRepository(db)
	chatRepository := chatRepo.NewChatRepository(db)
	notificationRepository := notifRepo.NewNotificationRepository(db)
	panelRepository := panelRepo.NewPanelRepository(db)

	// Notification Module
	notificationSvc := notifService.NewNotificationService(notificationRepository, userRepository, chatRepository, redisClient, cfg.BroadcastBatchSize, logger)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient, cfg.AllowedOrigins, logger)

	authSvc := userService.NewAuthService(userRepository, imageStorage, meiliSvc, cfg.JWTSecret, cfg.JWTTTL, logger)
	authHandler := userHttp.NewAuthHandler(authSvc)

	listingSvc := listingService.NewListingService(listingRepository, chatRepository, notificationRepository, notificationSvc, tx, meiliSvc, logger)
	listingHandler := listingHttp.NewListingHandler(listingSvc)

	chatSvc := chatService.NewChatService(
		chatRepository,
		userRepository,
		listingRepository,
		notificationRepository,
		notificationSvc,
		tx,
		imageStorage,
		redisClient,
		chatService.Options{SendCooldown: cfg.RateLimitMessage},
		logger,
	)
	chatHandler := chatHttp.NewChatHandler(chatSvc)

	// Panel Module
	moderationSvc := panelService.NewModerationService(userRepository, listingRepository, notificationRepository, notificationSvc, tx, meiliSvc, logger)
	announcementSvc := panelService.NewAnnouncementService(panelRepository, notificationSvc, tx)
	supportSvc := panelService.NewSupportService(panelRepository, notificationRepository, notificationSvc, tx)
	directorySvc := panelService.NewDirectoryService(userRepository, listingRepository, chatRepository, cfg.OnlineWindow)
	panelHandler := panelHttp.NewPanelHandler(moderationSvc, announcementSvc, supportSvc, directorySvc)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger, "/metrics", "/healthz"))
	router.Use(middleware.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(userRepository, cfg.JWTSecret)
	authLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, logger)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authLimiter.Limit(), authHandler.Register)
		auth.POST("/login", authLimiter.Limit(), authHandler.Login)
	}

	api.GET("/listings", listingHandler.GetListings)
	api.GET("/listings/:id", listingHandler.GetListing)
	api.POST("/support/tickets", authMiddleware.OptionalAuth(), panelHandler.CreateTicket)

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.PUT("/auth/me", authHandler.UpdateMe)

		protected.POST("/listings", listingHandler.CreateListing)
		protected.POST("/listings/:id/sold", listingHandler.MarkSold)

		chat := protected.Group("/chat")
		{
			chat.GET("/dialogs", chatHandler.ListDialogs)
			chat.POST("/dialogs/start", chatHandler.StartDialog)
			chat.GET("/dialogs/:id/messages", chatHandler.GetMessages)
			chat.POST("/dialogs/:id/send", chatHandler.SendMessage)

			chat.GET("/notifications", notificationHandler.GetNotifications)
			chat.POST("/notifications/read", notificationHandler.MarkAllAsRead)
			chat.GET("/notifications/ws", notificationHandler.HandleWebSocket)
			chat.GET("/unread", notificationHandler.UnreadSummary)
		}

		panel := protected.Group("/panel")
		{
			panel.POST("/update-seen", authHandler.UpdateSeen)
			panel.GET("/announcement", panelHandler.GetAnnouncement)

			staff := panel.Group("")
			staff.Use(authMiddleware.RequireStaff())
			{
				staff.POST("/announcement", panelHandler.PublishAnnouncement)
				staff.DELETE("/announcement", panelHandler.ClearAnnouncement)

				staff.GET("/users", panelHandler.GetUsers)
				staff.POST("/users/:id/action", panelHandler.UserAction)
				staff.GET("/listings", panelHandler.GetListings)
				staff.POST("/listings/:id/action", panelHandler.ListingAction)

				staff.GET("/chats", panelHandler.GetChats)
				staff.GET("/chats/:id", panelHandler.GetChat)

				staff.GET("/support", panelHandler.ListTickets)
				staff.PATCH("/support/:id", panelHandler.UpdateTicket)
			}
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		authLimiter: authLimiter,
		logger:      logger,
	}, nil
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// StartBackground runs housekeeping loops until ctx is cancelled.
func (s *Server) StartBackground(ctx context.Context) {
	go s.authLimiter.Cleanup(ctx, 5*time.Minute)
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
