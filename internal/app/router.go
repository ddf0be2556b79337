package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridehail/internal/handler"
	"ridehail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler   *handler.RideHandler
	TripHandler   *handler.TripHandler
	WalletHandler *handler.WalletHandler
	DriverHandler *handler.DriverHandler
	UserHandler   *handler.UserHandler
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Rider routes.
		users := v1.Group("/users")
		{
			users.POST("", deps.UserHandler.Register)
			users.GET("/:id", deps.UserHandler.Get)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("/:id", deps.DriverHandler.Get)
			drivers.POST("/:id/online", deps.DriverHandler.SetOnline)
			drivers.POST("/:id/approve", deps.DriverHandler.Approve)
		}

		// Ride lifecycle routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.RequestRide)
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.GET("/:id/history", deps.RideHandler.GetHistory)

			rides.POST("/:id/assign", deps.TripHandler.Assign)
			rides.POST("/:id/arrived", deps.TripHandler.Arrived)
			rides.POST("/:id/start", deps.TripHandler.Start)
			rides.POST("/:id/complete", deps.TripHandler.Complete)
			rides.POST("/:id/cancel", deps.TripHandler.Cancel)
			rides.POST("/:id/settle", deps.TripHandler.Settle)
			rides.POST("/:id/gps", deps.TripHandler.RecordGPS)
			rides.POST("/:id/tip", deps.TripHandler.Tip)
		}

		// Wallet routes.
		wallets := v1.Group("/wallets")
		{
			wallets.POST("", deps.WalletHandler.Create)
			wallets.GET("/:owner_type/:owner_id", deps.WalletHandler.Get)
			wallets.GET("/:owner_type/:owner_id/transactions", deps.WalletHandler.Statement)
			wallets.POST("/:owner_type/:owner_id/credit", deps.WalletHandler.Credit)
			wallets.POST("/:owner_type/:owner_id/debit", deps.WalletHandler.Debit)
		}
	}

	return router
}
