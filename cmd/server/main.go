package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"schoolfee_app_echo/internal/handlers"
	"schoolfee_app_echo/internal/middleware"
	"schoolfee_app_echo/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	ctx := context.Background()

	// Firebase Auth + Firestore back everything; without them there is no app
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}
	authClient, fsClient, err := services.InitFirebase(ctx, credPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	defer fsClient.Close()

	store := services.NewFeeStore(fsClient)

	// Outbox database; receipts and reminders need it, fee recording does not
	var queue handlers.TaskQueue
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := services.InitDB(databaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := services.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}
		queue = services.NewGormTaskQueue(db)
	} else {
		log.Println("Warning: DATABASE_URL not set, receipt emails disabled")
	}

	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, running without locks and caching: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.HTTPErrorHandler = middleware.CustomErrorHandler

	feeHandler := handlers.NewFeeHandler(store, cache, queue)
	authHandler := handlers.NewAuthHandler(authClient)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.Use(middleware.RequireAuth(authClient))

	api.POST("/collect-fee", feeHandler.CollectFee, middleware.RequireStaff())
	api.POST("/change-password", authHandler.ChangePassword)

	students := api.Group("/students/:id", middleware.RequireSelfOrStaff())
	students.GET("/fee-summary", feeHandler.FeeSummary)
	students.GET("/transactions", feeHandler.ListTransactions)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
