package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeone/internal/apperr"
	"lifeone/internal/database/testutil"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	return e
}

func doJSON(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func registerRoutes(e *echo.Echo) {
	e.POST("/api/auth/register", RegisterHandler)
	e.POST("/api/auth/login", LoginHandler)
	protected := e.Group("/api")
	protected.Use(JwtAuthMiddleware)
	protected.GET("/auth/me", MeHandler)
}

func TestRegisterAndLogin(t *testing.T) {
	Init(testutil.NewTestDB(t))
	e := newEcho()
	registerRoutes(e)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Alex","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reg AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "Alex", reg.Profile.Name)
	assert.NotEmpty(t, reg.Profile.ID)

	rec = doJSON(e, http.MethodPost, "/api/auth/login", `{"name":"Alex","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, reg.Profile.ID, login.Profile.ID)
}

func TestRegisterDuplicateNameConflicts(t *testing.T) {
	Init(testutil.NewTestDB(t))
	e := newEcho()
	registerRoutes(e)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Alex","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Alex","password":"other"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	Init(testutil.NewTestDB(t))
	e := newEcho()
	registerRoutes(e)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"  ","password":"pw"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Alex","password":""}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	long := strings.Repeat("n", 201)
	rec = doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"`+long+`","password":"pw"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	Init(testutil.NewTestDB(t))
	e := newEcho()
	registerRoutes(e)

	doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Alex","password":"pw"}`, "")
	rec := doJSON(e, http.MethodPost, "/api/auth/login", `{"name":"Alex","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	Init(testutil.NewTestDB(t))
	e := newEcho()
	registerRoutes(e)

	rec := doJSON(e, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/auth/me", "", "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteResolvesIdentity(t *testing.T) {
	Init(testutil.NewTestDB(t))
	e := newEcho()
	registerRoutes(e)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Alex","password":"pw"}`, "")
	var reg AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

	rec = doJSON(e, http.MethodGet, "/api/auth/me", "", reg.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, reg.Profile.ID, me["profile_id"])
	assert.Equal(t, "Alex", me["name"])
}

func TestTokenForDeletedProfile(t *testing.T) {
	testdb := testutil.NewTestDB(t)
	Init(testdb)
	e := newEcho()
	registerRoutes(e)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", `{"name":"Alex","password":"pw"}`, "")
	var reg AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

	// Simulate an out-of-band removal; the token is valid but stale.
	_, err := testdb.Exec(`DELETE FROM profiles WHERE id = ?`, reg.Profile.ID)
	require.NoError(t, err)

	rec = doJSON(e, http.MethodGet, "/api/auth/me", "", reg.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
