/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the
domain packages to their routes.
*/
package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"

	"lifeone/internal/blueprint"
	"lifeone/internal/database"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides access to the database service and connection pool.
	db database.Service

	// programs and diets are the profile-scoped document stores.
	programs *blueprint.Handlers
	diets    *blueprint.Handlers

	// Echo is the underlying web framework instance.
	*echo.Echo
}

// NewServer initializes a new Server instance and returns a configured
// *http.Server. It reads configuration from environment variables and
// sets production-ready network timeouts.
func NewServer(db database.Service, programs, diets *blueprint.Store) *http.Server {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port == 0 {
		port = 8080
	}

	newApp := &Server{
		port:     port,
		db:       db,
		programs: blueprint.NewHandlers(programs),
		diets:    blueprint.NewHandlers(diets),
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // chat completions can run long
	}

	return server
}
