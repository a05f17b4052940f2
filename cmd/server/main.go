package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resto-system/config"
	"resto-system/internal/database"
	"resto-system/internal/engine"
	"resto-system/internal/events"
	"resto-system/internal/handlers"
	"resto-system/internal/middleware"
	"resto-system/internal/tickets"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	fanout := events.NewFanout(events.NewRedisBroadcaster(rdb))
	tracker := tickets.NewTracker(db)
	eng := engine.New(db, tracker, fanout)

	secret := []byte(cfg.Auth.JWTSecret)

	authHandler := handlers.NewAuthHandler(db, cfg.Auth)
	orderHandler := handlers.NewOrderHandler(db, eng)
	waiterHandler := handlers.NewWaiterHandler(db, eng, tracker)
	kitchenHandler := handlers.NewKitchenHandler(db, eng, tracker)
	receptionHandler := handlers.NewReceptionHandler(db, eng, cfg.App.TaxRate)
	ownerHandler := handlers.NewOwnerHandler(db)
	tableHandler := handlers.NewTableHandler(db, eng, fanout)
	menuHandler := handlers.NewMenuHandler(db)
	inventoryHandler := handlers.NewInventoryHandler(db, fanout)
	notificationHandler := handlers.NewNotificationHandler(db)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(cfg.App.RateLimit))

	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}
	}

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(secret, db))
	{
		protected.GET("/auth/user", authHandler.Me)

		waiter := protected.Group("/waiter")
		{
			waiter.GET("/tables", waiterHandler.Tables)
			waiter.GET("/orders", waiterHandler.MyOrders)
			waiter.POST("/tables/:id/assign", waiterHandler.AssignTable)
			waiter.POST("/tables/:id/unassign", waiterHandler.UnassignTable)
			waiter.POST("/orders/:id/items", waiterHandler.AddItems)
			waiter.POST("/orders/:id/send-to-kitchen", waiterHandler.SendToKitchen)
			waiter.PUT("/orders/:id/items/:itemId", waiterHandler.UpdateItem)
			waiter.DELETE("/orders/:id/items/:itemId", waiterHandler.RemoveItem)
			waiter.POST("/orders/:id/serve", waiterHandler.MarkServed)
			waiter.POST("/orders/:id/cancel", waiterHandler.CancelOrder)
		}

		kitchen := protected.Group("/kitchen")
		{
			kitchen.GET("/orders", kitchenHandler.ActiveOrders)
			kitchen.GET("/stats", kitchenHandler.Stats)
			kitchen.POST("/orders/:id/start-preparing", kitchenHandler.StartPreparing)
			kitchen.POST("/orders/:id/mark-ready", kitchenHandler.MarkReady)
			kitchen.POST("/orders/:id/serve", kitchenHandler.MarkServed)
			kitchen.PUT("/orders/:id/items/:itemId/status", kitchenHandler.UpdateItemStatus)
			kitchen.POST("/orders/:id/notes", kitchenHandler.AddNote)
			kitchen.POST("/orders/:id/report-issue", kitchenHandler.ReportIssue)
			kitchen.GET("/prints/today", kitchenHandler.TodayPrints)
			kitchen.GET("/orders/:id/prints", kitchenHandler.OrderPrints)
		}

		reception := protected.Group("/reception")
		{
			reception.GET("/tables", receptionHandler.Tables)
			reception.GET("/tables/stats", receptionHandler.TableStats)
			reception.GET("/orders", receptionHandler.ActiveOrders)
			reception.GET("/dashboard/stats", receptionHandler.DashboardStats)
			reception.GET("/orders/:id/bill", receptionHandler.Bill)
			reception.POST("/orders/:id/pay", receptionHandler.MarkPaid)
			reception.POST("/orders/:id/cancel", receptionHandler.CancelOrder)
		}

		owner := protected.Group("/owner")
		owner.Use(middleware.RequireRole("owner"))
		{
			owner.GET("/staff", ownerHandler.ListStaff)
			owner.POST("/staff", ownerHandler.CreateStaff)
			owner.PUT("/staff/:id", ownerHandler.UpdateStaff)
			owner.POST("/staff/:id/toggle", ownerHandler.ToggleStaff)
			owner.GET("/analytics", ownerHandler.Analytics)
		}

		tables := protected.Group("/tables")
		{
			tables.GET("", tableHandler.List)
			tables.GET("/stats", tableHandler.Stats)
			tables.GET("/layout", tableHandler.Layout)
			tables.GET("/:id", tableHandler.Get)
			tables.POST("/:id/reserve", tableHandler.Reserve)

			admin := tables.Group("")
			admin.Use(middleware.RequireRole("owner", "reception"))
			{
				admin.POST("", tableHandler.Create)
				admin.PUT("/layout", tableHandler.UpdateLayout)
				admin.PUT("/:id", tableHandler.Update)
				admin.DELETE("/:id", tableHandler.Delete)
			}
		}

		menu := protected.Group("/menu")
		{
			menu.GET("/categories", menuHandler.ListCategories)
			menu.GET("/items", menuHandler.ListItems)
			menu.GET("/items/:id", menuHandler.GetItem)

			admin := menu.Group("")
			admin.Use(middleware.RequireRole("owner"))
			{
				admin.POST("/categories", menuHandler.CreateCategory)
				admin.PUT("/categories/:id", menuHandler.UpdateCategory)
				admin.DELETE("/categories/:id", menuHandler.DeleteCategory)
				admin.POST("/items", menuHandler.CreateItem)
				admin.PUT("/items/:id", menuHandler.UpdateItem)
				admin.DELETE("/items/:id", menuHandler.DeleteItem)
			}
		}

		orders := protected.Group("/orders")
		{
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.POST("", orderHandler.Create)
		}

		inventory := protected.Group("/inventory")
		inventory.Use(middleware.RequireRole("owner", "kitchen"))
		{
			inventory.GET("/items", inventoryHandler.ListItems)
			inventory.GET("/items/:id", inventoryHandler.GetItem)
			inventory.POST("/items", inventoryHandler.CreateItem)
			inventory.PUT("/items/:id", inventoryHandler.UpdateItem)
			inventory.POST("/items/:id/stock", inventoryHandler.AdjustStock)
			inventory.GET("/items/:id/history", inventoryHandler.StockHistory)
			inventory.GET("/low-stock", inventoryHandler.LowStock)
			inventory.GET("/suppliers", inventoryHandler.ListSuppliers)
			inventory.POST("/suppliers", inventoryHandler.CreateSupplier)
			inventory.DELETE("/suppliers/:id", inventoryHandler.DeleteSupplier)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.DELETE("", notificationHandler.ClearAll)
			notifications.DELETE("/:id", notificationHandler.Delete)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	addr := ":" + cfg.App.Port
	log.Printf("Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
