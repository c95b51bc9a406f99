package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cubcen/auth-service/internal/app/auth/rbac"
	"cubcen/pkg/logger"
	"cubcen/pkg/metrics"
)

// SetupRoutes настраивает все маршруты приложения с использованием Gin
func SetupRoutes(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	authMiddleware *AuthMiddleware,
	corsOrigins []string,
) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов (ELK Stack)
	router.Use(logger.GinLoggerMiddleware())

	router.Use(metrics.GinPrometheusMiddleware("auth-service"))

	// Без CORS_ORIGINS кросс-доменный доступ закрыт
	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "auth-service",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/register", userHandler.Register)
		auth.GET("/me", authHandler.Me)

		protected := auth.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.POST("/change-password", userHandler.ChangePassword)
			protected.GET("/permissions", authHandler.Permissions)
		}
	}

	users := api.Group("/users")
	users.Use(authMiddleware.Authenticate())
	{
		users.GET("", authMiddleware.RequirePermission(rbac.ResourceUsers, rbac.ActionRead), userHandler.ListUsers)
		users.POST("", authMiddleware.RequirePermission(rbac.ResourceUsers, rbac.ActionCreate), userHandler.CreateUser)
		users.PUT("/:id/role", authMiddleware.RequirePermission(rbac.ResourceUsers, rbac.ActionUpdate), userHandler.UpdateRole)
	}

	return router
}
