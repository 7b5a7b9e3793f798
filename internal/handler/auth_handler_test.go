package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/middleware"
	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/internal/service"
	"github.com/signalflags/signalflags-api/internal/storage"
	"github.com/signalflags/signalflags-api/pkg/config"
)

type fakeDirectory struct {
	users    map[string]*models.User
	byDevice map[string]*models.User
	creates  int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]*models.User), byDevice: make(map[string]*models.User)}
}

func (f *fakeDirectory) CreateUser(ctx context.Context, data models.UserRegistrationData, identityToken string) (*models.User, error) {
	f.creates++
	user := &models.User{
		UserID:    identityToken,
		Rank:      data.Rank,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		DeviceID:  data.DeviceID,
	}
	f.users[user.UserID] = user
	f.byDevice[user.DeviceID] = user
	return user, nil
}

func (f *fakeDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeDirectory) GetUserByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	return f.byDevice[deviceID], nil
}

func (f *fakeDirectory) StampLastLogin(ctx context.Context, id string) {}

type envelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
}

func newAuthRouter(directory *fakeDirectory) *gin.Engine {
	gin.SetMode(gin.TestMode)

	stores := make(map[string]storage.DeviceStorage)
	factory := func(installID string) storage.DeviceStorage {
		if s, ok := stores[installID]; ok {
			return s
		}
		s := storage.NewMemoryStorage()
		stores[installID] = s
		return s
	}

	cfg := config.SessionConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "signalflags-api"}
	sessions := service.NewSessionManager(factory, directory, zap.NewNop(), cfg)
	h := NewAuthHandler(sessions)

	r := gin.New()
	auth := r.Group("/auth", middleware.InstallID())
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.POST("/refresh", h.Refresh)
	auth.GET("/session", h.Session)
	return r
}

func doJSON(r *gin.Engine, method, path, installID, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if installID != "" {
		req.Header.Set(middleware.InstallIDHeader, installID)
	}
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterFreshInstall(t *testing.T) {
	directory := newFakeDirectory()
	r := newAuthRouter(directory)

	rec := doJSON(r, http.MethodPost, "/auth/register", "install-1",
		`{"rank":"OC","first_name":"Alex","last_name":"Morgan"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, true, env.Data["success"])
	assert.NotEmpty(t, env.Data["token"])

	user := env.Data["user"].(map[string]interface{})
	assert.Equal(t, "OC", user["rank"])
	assert.Equal(t, "Alex", user["first_name"])
	assert.NotEmpty(t, user["device_id"])

	// The session endpoint now reflects an initialized, authenticated state.
	rec = doJSON(r, http.MethodGet, "/auth/session", "install-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, true, env.Data["initialized"])
	assert.NotNil(t, env.Data["user"])
}

func TestRegisterIsIdempotentPerInstall(t *testing.T) {
	directory := newFakeDirectory()
	r := newAuthRouter(directory)

	payload := `{"rank":"LT","first_name":"Sam","last_name":"Carter"}`
	first := doJSON(r, http.MethodPost, "/auth/register", "install-1", payload)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(r, http.MethodPost, "/auth/register", "install-1", payload)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 1, directory.creates)
}

func TestRegisterValidationFailure(t *testing.T) {
	r := newAuthRouter(newFakeDirectory())

	rec := doJSON(r, http.MethodPost, "/auth/register", "install-1",
		`{"rank":"ADMIRAL","first_name":"","last_name":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, false, env.Data["success"])
	assert.NotEmpty(t, env.Data["message"])
}

func TestRegisterRequiresInstallID(t *testing.T) {
	r := newAuthRouter(newFakeDirectory())

	rec := doJSON(r, http.MethodPost, "/auth/register", "",
		`{"rank":"OC","first_name":"Alex","last_name":"Morgan"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginWithDanglingCachedSession(t *testing.T) {
	directory := newFakeDirectory()
	r := newAuthRouter(directory)

	rec := doJSON(r, http.MethodPost, "/auth/register", "install-1",
		`{"rank":"OC","first_name":"Alex","last_name":"Morgan"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The remote document disappears; login must fail cleanly and clear the
	// cached session rather than resurrect it.
	for id := range directory.users {
		delete(directory.users, id)
	}

	rec = doJSON(r, http.MethodPost, "/auth/login", "install-1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(r, http.MethodGet, "/auth/session", "install-1", "")
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Nil(t, env.Data["user"])
}

func TestLogoutThenReRegisterAdoptsSameUser(t *testing.T) {
	directory := newFakeDirectory()
	r := newAuthRouter(directory)

	payload := `{"rank":"CDR","first_name":"Kim","last_name":"Lee"}`
	first := doJSON(r, http.MethodPost, "/auth/register", "install-1", payload)
	require.Equal(t, http.StatusCreated, first.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &env))
	firstID := env.Data["user"].(map[string]interface{})["user_id"]

	rec := doJSON(r, http.MethodPost, "/auth/logout", "install-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The device identity survives logout, so registration re-adopts the
	// existing account instead of minting a new one.
	second := doJSON(r, http.MethodPost, "/auth/register", "install-1", payload)
	require.Equal(t, http.StatusCreated, second.Code)
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &env))
	assert.Equal(t, firstID, env.Data["user"].(map[string]interface{})["user_id"])
	assert.Equal(t, 1, directory.creates)
}
