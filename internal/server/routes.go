package server

import (
	"net/http"
	"runtime"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"lifeone/internal/apperr"
	"lifeone/internal/auth"
	"lifeone/internal/blueprint"
	"lifeone/internal/chat"
	"lifeone/internal/coach"
	"lifeone/internal/food"
	"lifeone/internal/meal"
	"lifeone/internal/profile"
	"lifeone/internal/workout"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", s.healthHandler)

	e.POST("/api/auth/register", auth.RegisterHandler)
	e.POST("/api/auth/login", auth.LoginHandler)

	// Protected routes
	protected := e.Group("/api")
	protected.Use(auth.JwtAuthMiddleware)

	protected.GET("/auth/me", auth.MeHandler)

	// Profile routes
	protected.GET("/profiles", profile.ListHandler)
	protected.GET("/profiles/:name", profile.GetHandler)
	protected.PATCH("/profile", profile.RenameHandler)
	protected.GET("/profile/export", profile.ExportHandler)
	protected.POST("/profile/import", profile.ImportHandler)

	// Program and diet document routes share one handler set per kind.
	registerBlueprintRoutes(protected.Group("/programs"), s.programs)
	registerBlueprintRoutes(protected.Group("/diets"), s.diets)

	// Workout log routes
	protected.GET("/workouts", workout.ListHandler)
	protected.GET("/workouts/last", workout.LastDateHandler)
	protected.GET("/workouts/:exercise_name/:date", workout.GetForDateHandler)
	protected.POST("/workouts", workout.GetOrCreateHandler)
	protected.POST("/workouts/sets", workout.AddSetHandler)
	protected.PUT("/workouts/sets", workout.UpdateSetHandler)

	// Meal log routes
	protected.GET("/meals", meal.ListHandler)
	protected.GET("/meals/:date", meal.GetForDateHandler)
	protected.POST("/meals", meal.GetOrCreateHandler)
	protected.POST("/meals/foods", meal.AddFoodHandler)
	protected.PUT("/meals/foods/:food_entry_id", meal.UpdateFoodHandler)
	protected.DELETE("/meals/foods/:food_entry_id", meal.DeleteFoodHandler)

	// Food reference routes
	protected.GET("/foods", food.ListHandler)
	protected.GET("/foods/:id_or_name", food.GetHandler)

	// Coach configuration routes
	protected.GET("/coach/presets", coach.ListPresetsHandler)
	protected.GET("/coach/settings", coach.GetSettingsHandler)
	protected.PUT("/coach/settings", coach.PutSettingsHandler)
	protected.GET("/coach/personas", coach.ListPersonasHandler)
	protected.POST("/coach/personas", coach.CreatePersonaHandler)
	protected.PUT("/coach/personas/:persona_id", coach.UpdatePersonaHandler)
	protected.DELETE("/coach/personas/:persona_id", coach.DeletePersonaHandler)
	protected.GET("/coach/context-files", coach.ListContextFilesHandler)
	protected.POST("/coach/context-files", coach.CreateContextFileHandler)
	protected.DELETE("/coach/context-files/:file_id", coach.DeleteContextFileHandler)
	protected.GET("/coach/handoff-sheet", coach.GetHandoffSheetHandler)
	protected.PUT("/coach/handoff-sheet", coach.PutHandoffSheetHandler)

	// Chat routes
	protected.GET("/chat/history", chat.HistoryHandler)
	protected.GET("/chat/context", chat.ContextHandler)
	protected.POST("/chat/message", chat.SendMessageHandler)
	protected.GET("/chat/settings", chat.GetAISettingsHandler)
	protected.PUT("/chat/settings", chat.PutAISettingsHandler)

	return e
}

func registerBlueprintRoutes(g *echo.Group, h *blueprint.Handlers) {
	g.GET("", h.ListHandler)
	g.POST("", h.CreateHandler)
	g.POST("/import", h.ImportHandler)
	g.GET("/:blueprint_id", h.GetHandler)
	g.PUT("/:blueprint_id", h.UpdateHandler)
	g.DELETE("/:blueprint_id", h.DeleteHandler)
	g.POST("/:blueprint_id/sections", h.AddSectionHandler)
	g.PUT("/:blueprint_id/sections/:section_id", h.UpdateSectionHandler)
	g.DELETE("/:blueprint_id/sections/:section_id", h.DeleteSectionHandler)
	g.POST("/:blueprint_id/sections/:section_id/items", h.AddItemsHandler)
	g.PUT("/:blueprint_id/sections/:section_id/items", h.ReorderItemsHandler)
	g.DELETE("/:blueprint_id/sections/:section_id/items/:item_name", h.RemoveItemHandler)
}

func (s *Server) healthHandler(c echo.Context) error {
	stats := map[string]any{"database": s.db.Health()}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats["cpu_used_percent"] = percents[0]
	}
	stats["goroutines"] = runtime.NumGoroutine()

	return c.JSON(http.StatusOK, stats)
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().
			Str("request_id", requestID).
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Logger()
		c.Set("logger", &logger)

		err := next(c)
		if err != nil {
			logger.Warn().Err(err).Msg("request failed")
		} else {
			logger.Info().Int("status", c.Response().Status).Msg("request")
		}
		return err
	}
}
