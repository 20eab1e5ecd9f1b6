package food

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"lifeone/internal/apperr"
)

// ListHandler searches the food table. Supports ?q, ?limit (1..500,
// default 100) and ?offset.
func ListHandler(c echo.Context) error {
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return apperr.Validationf("limit must be between 1 and 500")
		}
		limit = n
	}
	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return apperr.Validationf("offset must be a non-negative integer")
		}
		offset = n
	}

	foods, err := List(c.Request().Context(), c.QueryParam("q"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, foods)
}

// GetHandler resolves a food by id or exact name.
func GetHandler(c echo.Context) error {
	f, err := Get(c.Request().Context(), c.Param("id_or_name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}
