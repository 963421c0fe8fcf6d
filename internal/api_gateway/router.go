package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loyalty-ledger/internal/api_gateway/handler"
	"github.com/loyalty-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	programHandler *handler.ProgramHandler,
	rewardHandler *handler.RewardHandler,
	loyaltyHandler *handler.LoyaltyHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, merchant-scoped
	v1 := r.Group("/api/v1")
	v1.Use(middleware.MerchantIdentity())
	{
		// Program registry
		programs := v1.Group("/programs")
		{
			programs.POST("", programHandler.Create)
			programs.GET("", programHandler.List)
			programs.GET("/:id", programHandler.GetByID)
			programs.PUT("/:id", programHandler.Update)
			programs.POST("/:id/deactivate", programHandler.Deactivate)
			programs.POST("/:id/rewards", rewardHandler.Create)
			programs.GET("/:id/rewards", rewardHandler.ListByProgram)
		}

		// Reward catalog
		rewards := v1.Group("/rewards")
		{
			rewards.PUT("/:id", rewardHandler.Update)
			rewards.POST("/:id/availability", rewardHandler.SetAvailability)
		}

		// Ledger operations
		v1.POST("/earn", loyaltyHandler.Earn)
		v1.POST("/earn/async", loyaltyHandler.EarnAsync)
		v1.POST("/redeem", loyaltyHandler.Redeem)
		v1.GET("/entries/:id", loyaltyHandler.GetEntry)

		// Customer read side
		customers := v1.Group("/customers/:customer_id/programs/:program_id")
		{
			customers.GET("/balance", loyaltyHandler.GetBalance)
			customers.GET("/entries", loyaltyHandler.ListEntries)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
