package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pakuni-app/notification-engine/internal/config"
	"github.com/pakuni-app/notification-engine/internal/database"
	"github.com/pakuni-app/notification-engine/internal/directory"
	"github.com/pakuni-app/notification-engine/internal/dispatch"
	"github.com/pakuni-app/notification-engine/internal/handlers"
	"github.com/pakuni-app/notification-engine/internal/repository"
	"github.com/pakuni-app/notification-engine/internal/scheduler"
	"github.com/pakuni-app/notification-engine/internal/services"
	"github.com/pakuni-app/notification-engine/internal/targeting"
	"github.com/pakuni-app/notification-engine/pkg/email"
	"github.com/pakuni-app/notification-engine/pkg/logger"
	"github.com/pakuni-app/notification-engine/pkg/middleware"
	"github.com/pakuni-app/notification-engine/pkg/push"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	triggerRepo := repository.NewTriggerRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// --- Collaborators ---
	dirClient := directory.NewClient(cfg.DirectoryURL, cfg.DirectoryAPIKey)
	resolver := targeting.NewResolver(dirClient)

	var transport dispatch.Transport
	if cfg.PushGatewayURL != "" {
		transport = push.NewClient(cfg.PushGatewayURL, cfg.PushAPIKey)
	} else {
		// no push gateway configured (local/staging): deliver via SMTP
		transport = email.NewTransport(cfg.SMTPSender, cfg.SMTPPassword, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPDomain)
		logger.Log.Warn("PUSH_GATEWAY_URL not set, falling back to email transport")
	}

	// --- Engine ---
	orchestrator := dispatch.NewOrchestrator(triggerRepo, notificationRepo, resolver, transport, cfg.DispatchWorkers, cfg.LeaseTTL)

	// --- Services ---
	triggerService := services.NewTriggerService(triggerRepo, orchestrator)
	notificationService := services.NewNotificationService(notificationRepo, orchestrator)
	metricsService := services.NewMetricsService(notificationRepo)

	// --- Scheduler sweep ---
	sweeper := scheduler.NewSweeper(triggerRepo, orchestrator, dirClient, cfg.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// --- Handlers ---
	triggerHandler := handlers.NewTriggerHandler(triggerService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	callbackHandler := handlers.NewCallbackHandler(metricsService)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// Trigger routes (admin only)
	triggerRoutes := router.PathPrefix("/triggers").Subrouter()
	triggerRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	triggerRoutes.Use(middleware.RequireRole("admin"))
	triggerRoutes.HandleFunc("", triggerHandler.CreateTriggerHandler).Methods("POST")
	triggerRoutes.HandleFunc("", triggerHandler.ListTriggersHandler).Methods("GET")
	triggerRoutes.HandleFunc("/stats", triggerHandler.TriggerStatsHandler).Methods("GET")
	triggerRoutes.HandleFunc("/{id}", triggerHandler.GetTriggerHandler).Methods("GET")
	triggerRoutes.HandleFunc("/{id}", triggerHandler.UpdateTriggerHandler).Methods("PUT")
	triggerRoutes.HandleFunc("/{id}", triggerHandler.DeleteTriggerHandler).Methods("DELETE")
	triggerRoutes.HandleFunc("/{id}/toggle", triggerHandler.ToggleTriggerHandler).Methods("PATCH")
	triggerRoutes.HandleFunc("/{id}/execute", triggerHandler.ExecuteTriggerHandler).Methods("POST")

	// Notification routes (admin only)
	notificationRoutes := router.PathPrefix("/notifications").Subrouter()
	notificationRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	notificationRoutes.Use(middleware.RequireRole("admin"))
	notificationRoutes.HandleFunc("", notificationHandler.CreateNotificationHandler).Methods("POST")
	notificationRoutes.HandleFunc("", notificationHandler.GetNotificationsHandler).Methods("GET")
	notificationRoutes.HandleFunc("/stats", notificationHandler.NotificationStatsHandler).Methods("GET")
	notificationRoutes.HandleFunc("/{id}", notificationHandler.GetNotificationHandler).Methods("GET")
	notificationRoutes.HandleFunc("/{id}", notificationHandler.UpdateNotificationHandler).Methods("PUT")
	notificationRoutes.HandleFunc("/{id}", notificationHandler.DeleteNotificationHandler).Methods("DELETE")
	notificationRoutes.HandleFunc("/{id}/send", notificationHandler.SendNotificationHandler).Methods("POST")
	notificationRoutes.HandleFunc("/{id}/retry", notificationHandler.RetryNotificationHandler).Methods("POST")

	// Transport callback routes (called by the push gateway)
	callbackRoutes := router.PathPrefix("/callbacks").Subrouter()
	callbackRoutes.HandleFunc("/{id}/delivered", callbackHandler.DeliveredHandler).Methods("POST")
	callbackRoutes.HandleFunc("/{id}/opened", callbackHandler.OpenedHandler).Methods("POST")
	callbackRoutes.HandleFunc("/{id}/clicked", callbackHandler.ClickedHandler).Methods("POST")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
