package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bistro-app/bistro-api/config"
	"github.com/bistro-app/bistro-api/controllers"
	"github.com/bistro-app/bistro-api/models"
)

func main() {
	// Basic logging
	log.Println("Starting Bistro API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(&models.MenuItem{}, &models.Order{}, &models.OrderItem{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize Gin router
	router := gin.Default()
	router.Use(cors.Default())

	setupRoutes(router)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRoutes registers the management surface and the REST API
func setupRoutes(router *gin.Engine) {
	// Form-driven management surface
	manage := router.Group("/manage")
	{
		manage.GET("/orders", controllers.ManagementListing)
		manage.POST("/orders", controllers.ManagementDispatch)
		manage.GET("/orders/:id", controllers.ManagementOrderDetail)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		menu := v1.Group("/menu")
		{
			menu.GET("", controllers.ListMenuItems)
			menu.POST("", controllers.CreateMenuItem)
			menu.GET("/:id", controllers.GetMenuItem)
			menu.PUT("/:id", controllers.UpdateMenuItem)
			menu.DELETE("/:id", controllers.DeleteMenuItem)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("", controllers.ListOrders)
			orders.POST("", controllers.CreateOrder)
			orders.GET("/search", controllers.SearchOrders)
			orders.GET("/total_paid_orders", controllers.TotalPaidOrders)
			orders.GET("/:id", controllers.GetOrder)
			orders.DELETE("/:id", controllers.DeleteOrder)
			orders.PATCH("/:id/status", controllers.UpdateOrderStatus)
		}
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bistro API is running",
	})
}
