package routes

import (
	"github.com/gin-gonic/gin"

	"miniola/internal/handlers"
	"miniola/internal/middleware"
	"miniola/pkg/logger"
	"miniola/pkg/websocket"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Account   *handlers.AccountHandler
	Fare      *handlers.FareHandler
	Ride      *handlers.RideHandler
	Driver    *handlers.DriverHandler
	Payment   *handlers.PaymentHandler
	Health    *handlers.HealthHandler
	WebSocket *websocket.Handler
}

// SetupRoutes registers every endpoint under /api/v1 plus /health.
func SetupRoutes(r *gin.Engine, h *Handlers, tokens middleware.TokenParser, adminKey string, log *logger.Logger) {
	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	auth := middleware.AuthRequired(tokens)

	// Public auth routes
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register/rider", h.Auth.RegisterRider)
		authRoutes.POST("/register/driver", h.Auth.RegisterDriver)
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.POST("/refresh", h.Auth.Refresh)
		authRoutes.POST("/logout", h.Auth.Logout)
	}

	accounts := v1.Group("/accounts/me", auth)
	{
		accounts.GET("", h.Account.GetProfile)
		accounts.DELETE("", h.Account.DeleteAccount)
		accounts.POST("/wallet/topup", h.Account.TopUpWallet)
	}

	v1.POST("/fares/estimate", auth, h.Fare.Estimate)

	rides := v1.Group("/rides", auth)
	{
		rides.POST("", middleware.RiderRequired(), h.Ride.RequestRide)
		rides.GET("", h.Ride.ListRides)
		rides.GET("/open", middleware.DriverRequired(), h.Ride.ListOpenRides)
		rides.GET("/:id", h.Ride.GetRide)

		// Driver transitions
		rides.POST("/:id/accept", middleware.DriverRequired(), h.Ride.AcceptRide)
		rides.POST("/:id/arrive", middleware.DriverRequired(), h.Ride.MarkArrived)
		rides.POST("/:id/start", middleware.DriverRequired(), h.Ride.StartRide)
		rides.POST("/:id/complete", middleware.DriverRequired(), h.Ride.CompleteRide)

		rides.POST("/:id/cancel", h.Ride.CancelRide)
		rides.POST("/:id/rate", middleware.RiderRequired(), h.Ride.RateRide)
	}

	drivers := v1.Group("/drivers/me", auth, middleware.DriverRequired())
	{
		drivers.POST("/availability", h.Driver.ToggleAvailability)
		drivers.PUT("/location", h.Driver.UpdateLocation)
	}

	payments := v1.Group("/payments", auth)
	{
		payments.POST("", middleware.RiderRequired(), h.Payment.CreatePayment)
		payments.GET("/:id", h.Payment.GetPayment)
		payments.POST("/:id/process", middleware.RiderRequired(), h.Payment.ProcessPayment)
		payments.POST("/:id/refund", h.Payment.RefundPayment)
	}

	admin := v1.Group("/admin", middleware.AdminKeyRequired(adminKey, log))
	{
		admin.PUT("/drivers/:id/kyc", h.Driver.ReviewKYC)
	}

	// Websocket authenticates itself, tokens may arrive as a query parameter
	v1.GET("/ws", h.WebSocket.HandleWebSocket)
}
