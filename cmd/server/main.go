package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/viper"

	"github.com/entwine-app/entwine/config"
	"github.com/entwine-app/entwine/internal/api"
	"github.com/entwine-app/entwine/internal/auth"
	"github.com/entwine-app/entwine/internal/database"
	"github.com/entwine-app/entwine/internal/services"
	"github.com/entwine-app/entwine/internal/websocket"
)

func setupViper() {
	// Read local config file for overrides (ignored by git)
	viper.SetConfigName("config.local")
	viper.AddConfigPath(".")
	viper.MergeInConfig()

	// Read environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func main() {
	setupViper()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	r := mux.NewRouter()

	// WebSocket routes carry their own upgrade handshake and sit outside
	// the identity middleware.
	hub := websocket.RegisterRoutes(r)

	userService := services.NewUserService(db)
	gardenService := services.NewGardenService(db, hub)
	gardenService.SetAbandonAfterDays(cfg.Garden.AbandonAfterDays)
	quizService := services.NewQuizService(db, hub, cfg.Quiz.RoundsPerPlayer)

	publicRouter := r.PathPrefix("/").Subrouter()

	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(auth.Middleware)

	api.RegisterRoutes(publicRouter, authRouter, api.Deps{
		Users:   userService,
		Gardens: gardenService,
		Quiz:    quizService,
	})

	// Background abandon sweep, disabled when the interval is 0; gardens
	// are still refreshed lazily on every read and write.
	if cfg.Garden.SweepIntervalMinutes > 0 {
		interval := time.Duration(cfg.Garden.SweepIntervalMinutes) * time.Minute
		go func() {
			for range time.Tick(interval) {
				if n, err := gardenService.SweepAbandoned(); err != nil {
					log.Printf("abandon sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("abandon sweep marked %d gardens", n)
				}
			}
		}()
	}

	// CORS setup for development
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Entwine server starting on %s", addr)
	log.Printf("Database: %s", cfg.Database.Path)

	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
