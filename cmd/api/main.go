package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"lifeone/internal/auth"
	"lifeone/internal/blueprint"
	"lifeone/internal/chat"
	"lifeone/internal/coach"
	"lifeone/internal/database"
	"lifeone/internal/food"
	"lifeone/internal/meal"
	"lifeone/internal/profile"
	"lifeone/internal/server"
	"lifeone/internal/workout"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	done <- true
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	dbService := database.NewService()
	defer dbService.Close()

	db := dbService.DB()
	auth.Init(db)
	workout.Init(db)
	meal.Init(db)
	food.Init(db)
	coach.Init(db)

	programs := blueprint.NewStore(blueprint.KindProgram, envOr("LIFE_ONE_PROGRAMS_DIR", "data/programs"))
	diets := blueprint.NewStore(blueprint.KindDiet, envOr("LIFE_ONE_DIETS_DIR", "data/diets"))

	chat.Init(db, programs)
	profile.Init(db, programs, diets)

	apiServer := server.NewServer(dbService, programs, diets)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, done)

	log.Info().Str("addr", apiServer.Addr).Msg("starting server")
	err := apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	log.Info().Msg("graceful shutdown complete")
}
