package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/lawncare-backend/internal/config"
	"github.com/ignatzorin/lawncare-backend/internal/http/handlers"
	"github.com/ignatzorin/lawncare-backend/internal/http/middleware"
	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/service"
)

// SetupRouter собирает маршруты приложения. Маршруты сгруппированы по ролям:
// заказчик, подрядчик, администратор; общие маршруты проверяют видимость в
// сервисном слое.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	addressHandler *handlers.AddressHandler,
	bookingHandler *handlers.BookingHandler,
	contractorHandler *handlers.ContractorHandler,
	adminHandler *handlers.AdminHandler,
	disputeHandler *handlers.DisputeHandler,
	photoHandler *handlers.PhotoHandler,
	notificationHandler *handlers.NotificationHandler,
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
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", authHandler.Me)

		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.DeleteNotification)

		protected.GET("/transactions", contractorHandler.ListTransactions)

		// Общие маршруты бронирований: видимость проверяет сервисный слой.
		protected.GET("/bookings/:id", middleware.UUIDValidator("id"), bookingHandler.GetBooking)
		protected.GET("/bookings/:id/photos", middleware.UUIDValidator("id"), photoHandler.ListPhotos)
		protected.GET("/bookings/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.ListBookingDisputes)
		protected.GET("/bookings/:id/suggestions", middleware.UUIDValidator("id"), bookingHandler.ListSuggestions)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.GetDispute)
	}

	customer := api.Group("/")
	customer.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleCustomer))
	{
		customer.POST("/addresses", addressHandler.CreateAddress)
		customer.GET("/addresses", addressHandler.ListAddresses)

		customer.POST("/bookings", bookingHandler.CreateBooking)
		customer.GET("/bookings/my", bookingHandler.ListMyBookings)
		customer.POST("/bookings/:id/cancel", middleware.UUIDValidator("id"), bookingHandler.CancelBooking)
		customer.PUT("/bookings/:id/payment-method", middleware.UUIDValidator("id"), bookingHandler.SetPaymentMethod)
		customer.POST("/bookings/:id/price/approve", middleware.UUIDValidator("id"), bookingHandler.ApprovePriceChange)
		customer.POST("/bookings/:id/price/reject", middleware.UUIDValidator("id"), bookingHandler.RejectPriceChange)
		customer.POST("/bookings/:id/approve-completion", middleware.UUIDValidator("id"), bookingHandler.ApproveCompletion)
		customer.POST("/bookings/:id/rating", middleware.UUIDValidator("id"), bookingHandler.RateBooking)
		customer.POST("/bookings/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.OpenDispute)

		customer.POST("/suggestions/:id/accept", middleware.UUIDValidator("id"), bookingHandler.AcceptSuggestion)
		customer.POST("/suggestions/:id/reject", middleware.UUIDValidator("id"), bookingHandler.RejectSuggestion)
	}

	contractor := api.Group("/")
	contractor.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleContractor))
	{
		contractor.PUT("/contractor/profile", contractorHandler.UpsertProfile)
		contractor.GET("/contractor/profile", contractorHandler.GetProfile)
		contractor.GET("/contractor/bookings", contractorHandler.ListMyBookings)
		contractor.GET("/contractor/bookings/available", contractorHandler.ListAvailableBookings)
		contractor.GET("/contractor/balance", contractorHandler.GetBalance)
		contractor.POST("/contractor/withdrawals", contractorHandler.Withdraw)
		contractor.GET("/contractor/withdrawals", contractorHandler.ListWithdrawals)

		contractor.POST("/bookings/:id/accept", middleware.UUIDValidator("id"), contractorHandler.AcceptBooking)
		contractor.POST("/bookings/:id/complete", middleware.UUIDValidator("id"), contractorHandler.CompleteBooking)
		contractor.POST("/bookings/:id/photos", middleware.UUIDValidator("id"), photoHandler.UploadPhoto)
		contractor.POST("/bookings/:id/suggestions", middleware.UUIDValidator("id"), contractorHandler.SuggestAlternative)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/addresses/pending", adminHandler.ListPendingAddresses)
		admin.POST("/addresses/:id/verify", middleware.UUIDValidator("id"), adminHandler.VerifyAddress)
		admin.POST("/addresses/:id/reject", middleware.UUIDValidator("id"), adminHandler.RejectAddress)
		admin.PUT("/contractors/:id/approval", middleware.UUIDValidator("id"), adminHandler.ApproveContractor)
		admin.GET("/disputes", adminHandler.ListOpenDisputes)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), adminHandler.ResolveDispute)
		admin.GET("/platform-account", adminHandler.GetPlatformAccount)
	}

	return r
}
