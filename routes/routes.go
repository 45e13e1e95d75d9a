package routes

import (
	"github.com/gin-gonic/gin"

	"trade_sentinel_backend/controllers"
	"trade_sentinel_backend/middleware"
)

// Controllers bundles the handlers the route tree needs.
type Controllers struct {
	Auth     *controllers.AuthController
	Schedule *controllers.ScheduleController
	Trade    *controllers.TradeController
}

// SetupRoutes sets up all API routes. Read endpoints are open; every
// mutating endpoint requires a bearer token.
func SetupRoutes(router *gin.Engine, ctrl Controllers, jwtSecret string) {
	api := router.Group("/api/v1")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", middleware.LoginRateLimitMiddleware(), ctrl.Auth.Login)
		}

		// Schedule config routes
		schedules := api.Group("/schedules")
		{
			schedules.GET("", ctrl.Schedule.GetSchedules)
			schedules.GET("/:name", ctrl.Schedule.GetSchedule)

			protected := schedules.Group("")
			protected.Use(middleware.JWTAuthMiddleware(jwtSecret))
			{
				protected.POST("", ctrl.Schedule.CreateSchedule)
				protected.PUT("/:name", ctrl.Schedule.UpdateSchedule)
				protected.DELETE("/:name", ctrl.Schedule.DeleteSchedule)
				protected.POST("/:name/enable", ctrl.Schedule.EnableSchedule)
				protected.POST("/:name/disable", ctrl.Schedule.DisableSchedule)
			}
		}

		// Scheduler status
		api.GET("/scheduler/status", ctrl.Schedule.SchedulerStatus)

		// Trade routes
		trades := api.Group("/trades")
		{
			trades.GET("", ctrl.Trade.GetTrades)
			trades.GET("/statistics", ctrl.Trade.GetStatistics)
			trades.GET("/:id", ctrl.Trade.GetTrade)
			trades.PATCH("/:id/status", middleware.JWTAuthMiddleware(jwtSecret), ctrl.Trade.UpdateTradeStatus)
		}

		// Signal routes
		signals := api.Group("/signals")
		{
			signals.POST("/trigger", middleware.JWTAuthMiddleware(jwtSecret), ctrl.Trade.Trigger)
		}
	}
}
