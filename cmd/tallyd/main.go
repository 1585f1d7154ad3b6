package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tallyhq/tally/internal/api/handlers"
	"github.com/tallyhq/tally/internal/api/middleware"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/database"
	"github.com/tallyhq/tally/internal/logger"
	"github.com/tallyhq/tally/internal/session"
	"github.com/tallyhq/tally/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	}

	// Set Gin mode
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open database
	logger.Infof("Opening database: %s", cfg.DatabasePath)
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Errorf("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize JWT manager
	jwtManager, err := crypto.NewJWTManager(cfg.MasterSecret)
	if err != nil {
		logger.Errorf("Failed to create JWT manager: %v", err)
		os.Exit(1)
	}

	// Initialize session store, stream server and runtime
	store := session.NewSQLStore(db.DB)
	streamServer := websocket.NewServer()
	defer streamServer.Close()

	runtime := session.NewManager(store, streamServer)
	streamServer.SetRuntime(runtime)

	// Create Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Logging middleware
	router.Use(middleware.Logging())

	// Root endpoint - returns plain text for client validation
	router.GET("/", func(c *gin.Context) {
		c.String(200, "Welcome to Tally Server!")
	})

	// Static browser adapter
	if cfg.WebDir != "" {
		router.Static("/app", cfg.WebDir)
	}

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(store, runtime, jwtManager)

	// Public routes (no auth required)
	v1 := router.Group("/v1")
	{
		v1.POST("/sessions", sessionHandler.CreateSession)
	}

	// Protected routes (session token required)
	protected := v1.Group("")
	protected.Use(middleware.Auth(jwtManager))
	{
		protected.GET("/sessions/:id", sessionHandler.GetSession)
		protected.POST("/sessions/:id/keys", sessionHandler.PressKey)
		protected.DELETE("/sessions/:id", sessionHandler.DeleteSession)
		protected.GET("/sessions/:id/stream", streamServer.HandleStream)
	}

	// Start HTTP server
	logger.Infof("Tally Server starting on %s", cfg.Addr)
	logger.Infof("Database: %s", cfg.DatabasePath)

	if cfg.TLS != nil {
		err = router.RunTLS(cfg.Addr, cfg.TLS.CertFile, cfg.TLS.KeyFile)
	} else {
		err = router.Run(cfg.Addr)
	}
	if err != nil {
		logger.Errorf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
