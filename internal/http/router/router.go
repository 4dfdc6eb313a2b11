package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskdom/backend/internal/config"
	"github.com/taskdom/backend/internal/http/handlers"
	"github.com/taskdom/backend/internal/http/middleware"
	"github.com/taskdom/backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	taskHandler *handlers.TaskHandler,
	bidHandler *handlers.BidHandler,
	paymentHandler *handlers.PaymentHandler,
	notificationHandler *handlers.NotificationHandler,
	mediaHandler *handlers.MediaHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Публичные маршруты
	api.GET("/tasks", taskHandler.ListTasks)
	api.GET("/tasks/nearby", taskHandler.ListNearbyTasks)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)

		protected.POST("/tasks", taskHandler.CreateTask)
		protected.GET("/tasks/my", taskHandler.ListMyTasks)
		protected.GET("/tasks/assigned", taskHandler.ListAssignedTasks)
		protected.GET("/tasks/:id", middleware.UUIDValidator("id"), taskHandler.GetTask)
		protected.POST("/tasks/:id/cancel", middleware.UUIDValidator("id"), taskHandler.CancelTask)
		protected.POST("/tasks/:id/arrived", middleware.UUIDValidator("id"), taskHandler.MarkArrived)
		protected.POST("/tasks/:id/completion/request", middleware.UUIDValidator("id"), taskHandler.RequestCompletion)
		protected.POST("/tasks/:id/completion/photo", middleware.UUIDValidator("id"), taskHandler.AttachCompletionPhoto)
		protected.POST("/tasks/:id/completion/approve", middleware.UUIDValidator("id"), taskHandler.ApproveCompletion)

		protected.POST("/tasks/:id/bids", middleware.UUIDValidator("id"), bidHandler.PlaceBid)
		protected.GET("/tasks/:id/bids", middleware.UUIDValidator("id"), bidHandler.ListTaskBids)
		protected.GET("/bids/my", bidHandler.ListMyBids)
		protected.POST("/bids/:id/accept", middleware.UUIDValidator("id"), bidHandler.AcceptBid)

		protected.GET("/payments/wallet", paymentHandler.GetWallet)
		protected.POST("/payments/deposit", paymentHandler.Deposit)
		protected.GET("/payments/transactions", paymentHandler.ListTransactions)
		protected.GET("/payments/escrow/:id", middleware.UUIDValidator("id"), paymentHandler.GetEscrow)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.Delete)

		protected.POST("/media/photos", mediaHandler.UploadPhoto)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), mediaHandler.DeleteMedia)
	}

	return r
}
