// Package auth implements registration, login, and the JWT bearer
// middleware that resolves the verified profile identity for every
// protected route. Authorization is always by the verified identity;
// profile-name path segments are advisory only.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"lifeone/internal/apperr"
)

const (
	TokenDuration = 7 * 24 * time.Hour
	maxNameLength = 200
)

var db *sql.DB

// Init wires the package to the database. Must be called before any
// handler or the middleware runs.
func Init(database *sql.DB) {
	db = database
}

func jwtSecret() []byte {
	secret := os.Getenv("LIFE_ONE_JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-in-production"
	}
	return []byte(secret)
}

type JwtCustomClaims struct {
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type ProfileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type AuthResponse struct {
	Token   string      `json:"token"`
	Profile ProfileInfo `json:"profile"`
}

// CreateToken issues a signed HS256 token carrying the profile identity.
func CreateToken(profileID, name string) (string, error) {
	now := time.Now()
	claims := &JwtCustomClaims{
		ProfileID: profileID,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func parseToken(tokenString string) (*JwtCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Authf("Token expired")
		}
		return nil, apperr.Authf("Invalid token")
	}
	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok || !token.Valid || claims.ProfileID == "" || claims.Name == "" {
		return nil, apperr.Authf("Invalid token")
	}
	return claims, nil
}

// RegisterHandler creates a profile with name + password and returns a
// token plus the profile.
func RegisterHandler(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperr.Validationf("name is required")
	}
	if req.Password == "" {
		return apperr.Validationf("password is required")
	}
	if len(name) > maxNameLength {
		return apperr.Validationf("name too long")
	}

	ctx := c.Request().Context()
	var existing string
	err := db.QueryRowContext(ctx, `SELECT id FROM profiles WHERE name = ?`, name).Scan(&existing)
	if err == nil {
		return apperr.Conflictf("Profile with this name already exists")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking profile name: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	profileID := uuid.New().String()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, password_hash) VALUES (?, ?, ?)`,
		profileID, name, string(hash),
	); err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}

	token, err := CreateToken(profileID, name)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}

	log.Info().Str("profile_id", profileID).Msg("profile registered")
	return c.JSON(http.StatusOK, AuthResponse{
		Token:   token,
		Profile: ProfileInfo{ID: profileID, Name: name},
	})
}

// LoginHandler verifies name + password and returns a token plus the
// profile.
func LoginHandler(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperr.Validationf("name is required")
	}
	if req.Password == "" {
		return apperr.Validationf("password is required")
	}

	ctx := c.Request().Context()
	var (
		profileID   string
		profileName string
		hash        sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, name, password_hash FROM profiles WHERE name = ?`, name,
	).Scan(&profileID, &profileName, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Authf("Invalid name or password")
	}
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	if !hash.Valid || hash.String == "" {
		return apperr.Authf("Profile has no password set")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(req.Password)) != nil {
		return apperr.Authf("Invalid name or password")
	}

	token, err := CreateToken(profileID, profileName)
	if err != nil {
		return fmt.Errorf("signing token: %w", err)
	}
	return c.JSON(http.StatusOK, AuthResponse{
		Token:   token,
		Profile: ProfileInfo{ID: profileID, Name: profileName},
	})
}

// MeHandler returns the identity carried by the bearer token.
func MeHandler(c echo.Context) error {
	profileID, err := ProfileID(c)
	if err != nil {
		return err
	}
	name, _ := c.Get("profile_name").(string)
	return c.JSON(http.StatusOK, map[string]string{
		"profile_id": profileID,
		"name":       name,
	})
}

// JwtAuthMiddleware requires a valid bearer token and checks that the
// profile still exists. The verified identity is stored on the context
// for the handlers.
func JwtAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return apperr.Authf("Missing or invalid authorization")
		}
		claims, err := parseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return err
		}

		var id string
		err = db.QueryRowContext(c.Request().Context(),
			`SELECT id FROM profiles WHERE id = ?`, claims.ProfileID,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFoundf("Profile not found")
		}
		if err != nil {
			return fmt.Errorf("resolving profile: %w", err)
		}

		c.Set("profile_id", claims.ProfileID)
		c.Set("profile_name", claims.Name)
		return next(c)
	}
}

// ProfileID returns the verified profile id set by JwtAuthMiddleware.
func ProfileID(c echo.Context) (string, error) {
	profileID, ok := c.Get("profile_id").(string)
	if !ok || profileID == "" {
		return "", apperr.Authf("profile identity not found in context")
	}
	return profileID, nil
}
