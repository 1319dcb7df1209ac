package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/bootstrap"
	"anoa.com/coinexchange/internal/config"
	"anoa.com/coinexchange/internal/middleware"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/internal/scheduler"
	"anoa.com/coinexchange/pkg/database"
	"anoa.com/coinexchange/pkg/logger"
	"anoa.com/coinexchange/pkg/metrics"
	"anoa.com/coinexchange/pkg/storage"

	exchangeHttp "anoa.com/coinexchange/internal/modules/exchange/delivery/http"
	exchangeService "anoa.com/coinexchange/internal/modules/exchange/service"

	interactionHttp "anoa.com/coinexchange/internal/modules/interaction/delivery/http"
	interactionRepo "anoa.com/coinexchange/internal/modules/interaction/repository"
	interactionService "anoa.com/coinexchange/internal/modules/interaction/service"

	leaderboardHttp "anoa.com/coinexchange/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "anoa.com/coinexchange/internal/modules/leaderboard/repository"
	leaderboardService "anoa.com/coinexchange/internal/modules/leaderboard/service"

	ledgerHttp "anoa.com/coinexchange/internal/modules/ledger/delivery/http"
	ledgerRepo "anoa.com/coinexchange/internal/modules/ledger/repository"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"

	notiHttp "anoa.com/coinexchange/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/coinexchange/internal/modules/notification/repository"
	notifService "anoa.com/coinexchange/internal/modules/notification/service"

	profileHttp "anoa.com/coinexchange/internal/modules/profile/delivery/http"
	profileRepo "anoa.com/coinexchange/internal/modules/profile/repository"
	profileService "anoa.com/coinexchange/internal/modules/profile/service"

	purchaseHttp "anoa.com/coinexchange/internal/modules/purchase/delivery/http"
	purchaseRepo "anoa.com/coinexchange/internal/modules/purchase/repository"
	purchaseService "anoa.com/coinexchange/internal/modules/purchase/service"

	searchService "anoa.com/coinexchange/internal/modules/search/service"

	statHttp "anoa.com/coinexchange/internal/modules/stat/delivery/http"
	statService "anoa.com/coinexchange/internal/modules/stat/service"

	ticketHttp "anoa.com/coinexchange/internal/modules/ticket/delivery/http"
	ticketRepo "anoa.com/coinexchange/internal/modules/ticket/repository"
	ticketService "anoa.com/coinexchange/internal/modules/ticket/service"

	verificationRepo "anoa.com/coinexchange/internal/modules/verification/repository"
	verificationService "anoa.com/coinexchange/internal/modules/verification/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the external clients the server is built from. Redis, search and storage
// may be nil; the features behind them degrade instead of failing.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Search    searchService.MeiliSearchService
	Storage   storage.EvidenceStorage
	Prices    *pricing.Table
	Scheduler *scheduler.Scheduler
}

type Server struct {
	engine    *gin.Engine
	http      *http.Server
	scheduler *scheduler.Scheduler
}

func NewServer(ctx context.Context, cfg *config.Config, deps Deps) (*Server, error) {
	db := deps.DB
	redisClient := deps.Redis
	prices := deps.Prices
	admins := authz.Admins(cfg.AdminIDs)
	tx := database.NewTransactor(db)

	// Ledger
	ledgerRepository := ledgerRepo.NewLedgerRepository(db)
	ledgerSvc := ledgerService.NewLedgerService(ledgerRepository, tx, admins, prices.DefaultBalance)
	ledgerHandler := ledgerHttp.NewLedgerHandler(ledgerSvc)

	if err := bootstrap.SeedAdmins(ctx, ledgerSvc, admins); err != nil {
		return nil, err
	}

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient, admins)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient)

	profileRepository := profileRepo.NewProfileRepository(db)
	profileSvc := profileService.NewProfileService(profileRepository, ledgerSvc, notificationSvc, admins)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	requestRepository := interactionRepo.NewRequestRepository(db)
	completionRepository := interactionRepo.NewCompletionRepository(db)
	interactionSvc := interactionService.NewInteractionService(requestRepository, ledgerSvc, tx, prices, admins, deps.Search)
	interactionHandler := interactionHttp.NewInteractionHandler(interactionSvc)

	evidenceRepository := verificationRepo.NewEvidenceRepository(db)
	verificationSvc := verificationService.NewVerificationService(evidenceRepository, deps.Storage, admins)

	leaderboardRepository := leaderboardRepo.NewLeaderboardRepository(db)
	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboardRepository, tx, prices, redisClient, notificationSvc, cfg.PeriodLocation)
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	exchangeSvc := exchangeService.NewExchangeService(
		ledgerSvc,
		profileSvc,
		interactionSvc,
		completionRepository,
		verificationSvc,
		leaderboardSvc,
		notificationSvc,
		tx,
		prices,
		redisClient,
		cfg.ClaimCooldown,
	)
	exchangeHandler := exchangeHttp.NewExchangeHandler(exchangeSvc, verificationSvc)

	purchaseRepository := purchaseRepo.NewPurchaseRepository(db)
	purchaseSvc := purchaseService.NewPurchaseService(purchaseRepository, ledgerSvc, notificationSvc, tx, prices, admins)
	purchaseHandler := purchaseHttp.NewPurchaseHandler(purchaseSvc)

	ticketSvc := ticketService.NewTicketService(ticketRepo.NewTicketRepository(db), ledgerSvc, notificationSvc, admins)
	ticketHandler := ticketHttp.NewTicketHandler(ticketSvc)

	statSvc := statService.NewStatService(ledgerRepository, requestRepository, completionRepository, evidenceRepository, purchaseRepository, admins)
	statHandler := statHttp.NewStatHandler(statSvc)

	if deps.Scheduler != nil {
		if err := deps.Scheduler.Register(scheduler.NewClosePeriodsJob(leaderboardSvc, cfg.PeriodLocation)); err != nil {
			return nil, err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	router.Use(metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	authMiddleware := middleware.NewAuthMiddleware(ledgerSvc, admins, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	api.GET("/packages", purchaseHandler.GetPackages)
	api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
	api.GET("/leaderboard/periods", leaderboardHandler.GetCurrentPeriods)

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/stats", statHandler.GetOverview)
			adminGroup.POST("/users/:id/adjust", exchangeHandler.AdjustBalance)
			adminGroup.POST("/users/:id/deactivate", ledgerHandler.DeactivateUser)
			adminGroup.PUT("/users/:id/profiles/:slot/verify", profileHandler.VerifyProfile)
			adminGroup.POST("/campaigns", interactionHandler.OpenCampaign)
			adminGroup.GET("/evidence", exchangeHandler.ListPendingEvidence)
			adminGroup.POST("/evidence/:id/approve", exchangeHandler.ApproveEvidence)
			adminGroup.POST("/evidence/:id/reject", exchangeHandler.RejectEvidence)
			adminGroup.GET("/purchases", purchaseHandler.ListPending)
			adminGroup.POST("/purchases/:id/fulfill", purchaseHandler.FulfillPurchase)
			adminGroup.POST("/purchases/:id/reject", purchaseHandler.RejectPurchase)
			adminGroup.POST("/leaderboard/close", leaderboardHandler.ClosePeriod)
			adminGroup.GET("/tickets", ticketHandler.ListOpen)
			adminGroup.POST("/tickets/:id/close", ticketHandler.CloseTicket)
			adminGroup.POST("/broadcast", notificationHandler.Broadcast)
		}

		protected.GET("/users/count", statHandler.GetTotalUsers)

		// Wallet routes
		protected.GET("/wallet", ledgerHandler.GetBalance)
		protected.GET("/wallet/history", ledgerHandler.GetHistory)

		// Profile routes
		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.POST("/profile", profileHandler.RegisterNext)
		protected.PUT("/profile/primary", profileHandler.RegisterPrimary)
		protected.PUT("/profile/secondary/:slot", profileHandler.RegisterSecondary)

		// Request routes
		protected.POST("/requests", interactionHandler.OpenRequest)
		protected.GET("/requests", interactionHandler.ListOpenRequests)
		protected.GET("/requests/search", interactionHandler.SearchRequests)
		protected.GET("/requests/:id", interactionHandler.GetRequest)
		protected.DELETE("/requests/:id", interactionHandler.CloseRequest)
		protected.POST("/requests/:id/claim", exchangeHandler.ClaimCompletion)

		// Completion routes
		protected.GET("/completions/me", exchangeHandler.GetMyCompletions)
		protected.PUT("/evidence/:id", exchangeHandler.AttachEvidence)

		// Purchase routes
		protected.POST("/purchases", purchaseHandler.CreatePurchase)
		protected.GET("/purchases/me", purchaseHandler.GetMyPurchases)

		// Support routes
		protected.POST("/tickets", ticketHandler.CreateTicket)
		protected.GET("/tickets/me", ticketHandler.GetMyTickets)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:    router,
		scheduler: deps.Scheduler,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	if s.scheduler != nil {
		s.scheduler.Start()
	}

	logger.Log.Info("server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Stop(ctx)
	}
	return s.http.Shutdown(ctx)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
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
