package profile

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lifeone/internal/apperr"
	"lifeone/internal/auth"
)

// ListHandler returns the authenticated profile. Path-supplied names
// are advisory; data access is always scoped to the verified identity.
func ListHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	p, err := byID(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, []Profile{*p})
}

// GetHandler resolves a profile by display name.
func GetHandler(c echo.Context) error {
	if _, err := auth.ProfileID(c); err != nil {
		return err
	}
	p, err := ByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// RenameHandler updates the authenticated profile's display name.
func RenameHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	p, err := Rename(c.Request().Context(), profileID, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// ExportHandler dumps all of the profile's data.
func ExportHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	export, err := ExportAll(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, export)
}

// ImportHandler bulk-loads program/diet documents and workout logs.
func ImportHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var data ImportData
	if err := c.Bind(&data); err != nil {
		return apperr.Validationf("Invalid request body")
	}
	res, err := ImportAll(c.Request().Context(), profileID, data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
