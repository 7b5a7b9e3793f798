package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/internal/storage"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
)

type mockDirectory struct {
	users       map[string]*models.User
	byDevice    map[string]*models.User
	createCalls int
	createErr   error
	findErr     error
	stamped     []string
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users:    make(map[string]*models.User),
		byDevice: make(map[string]*models.User),
	}
}

func (m *mockDirectory) CreateUser(ctx context.Context, data models.UserRegistrationData, identityToken string) (*models.User, error) {
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	user := &models.User{
		UserID:    identityToken,
		Rank:      data.Rank,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		DeviceID:  data.DeviceID,
	}
	m.users[user.UserID] = user
	m.byDevice[user.DeviceID] = user
	return user, nil
}

func (m *mockDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.users[id], nil
}

func (m *mockDirectory) GetUserByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.byDevice[deviceID], nil
}

func (m *mockDirectory) StampLastLogin(ctx context.Context, id string) {
	m.stamped = append(m.stamped, id)
}

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, appErrors.ErrStorage
}
func (failingStorage) Set(context.Context, string, string) error { return appErrors.ErrStorage }
func (failingStorage) Remove(context.Context, string) error      { return appErrors.ErrStorage }
func (failingStorage) Clear(context.Context) error               { return appErrors.ErrStorage }
func (failingStorage) Keys(context.Context) ([]string, error)    { return nil, appErrors.ErrStorage }

func validRegistration() models.UserRegistrationData {
	return models.UserRegistrationData{Rank: models.RankOfficerCadet, FirstName: "Alex", LastName: "Morgan"}
}

func TestInitializeAuthFreshInstall(t *testing.T) {
	store := storage.NewMemoryStorage()
	directory := newMockDirectory()
	orch := NewAuthOrchestrator(store, directory, zap.NewNop())

	orch.InitializeAuth(context.Background())

	state := orch.State()
	assert.True(t, state.Initialized)
	assert.False(t, state.Loading)
	assert.False(t, state.Authenticated())

	// First contact mints a device id that later registration reuses.
	deviceID, _, err := store.Get(context.Background(), storage.DeviceIDKey)
	require.NoError(t, err)
	assert.NotEmpty(t, deviceID)
}

func TestInitializeAuthRestoresCachedUser(t *testing.T) {
	store := storage.NewMemoryStorage()
	directory := newMockDirectory()
	directory.users["u1"] = &models.User{UserID: "u1", Rank: models.RankCaptain, FirstName: "Dana", LastName: "Reyes"}
	require.NoError(t, store.Set(context.Background(), storage.CachedUserIDKey, "u1"))

	orch := NewAuthOrchestrator(store, directory, zap.NewNop())
	orch.InitializeAuth(context.Background())

	state := orch.State()
	assert.True(t, state.Initialized)
	require.True(t, state.Authenticated())
	assert.Equal(t, "u1", state.User.UserID)
	assert.Equal(t, []string{"u1"}, directory.stamped)
}

func TestInitializeAuthDanglingCachedID(t *testing.T) {
	store := storage.NewMemoryStorage()
	directory := newMockDirectory()
	require.NoError(t, store.Set(context.Background(), storage.CachedUserIDKey, "gone"))

	orch := NewAuthOrchestrator(store, directory, zap.NewNop())
	orch.InitializeAuth(context.Background())

	state := orch.State()
	assert.True(t, state.Initialized)
	assert.False(t, state.Authenticated())

	// The stale cache entry is dropped so the next startup goes straight to
	// the device-id path.
	_, found, err := store.Get(context.Background(), storage.CachedUserIDKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInitializeAuthAlwaysFinishesInitialized(t *testing.T) {
	t.Run("storage failure", func(t *testing.T) {
		orch := NewAuthOrchestrator(failingStorage{}, newMockDirectory(), zap.NewNop())
		orch.InitializeAuth(context.Background())

		state := orch.State()
		assert.True(t, state.Initialized)
		assert.False(t, state.Loading)
		assert.False(t, state.Authenticated())
		assert.NotEmpty(t, state.Err)
	})

	t.Run("directory failure", func(t *testing.T) {
		store := storage.NewMemoryStorage()
		directory := newMockDirectory()
		directory.findErr = appErrors.ErrUnavailable

		orch := NewAuthOrchestrator(store, directory, zap.NewNop())
		orch.InitializeAuth(context.Background())

		state := orch.State()
		assert.True(t, state.Initialized)
		assert.False(t, state.Loading)
	})
}

func TestRegisterUser(t *testing.T) {
	t.Run("creates and authenticates", func(t *testing.T) {
		store := storage.NewMemoryStorage()
		directory := newMockDirectory()
		orch := NewAuthOrchestrator(store, directory, zap.NewNop())

		result := orch.RegisterUser(context.Background(), validRegistration())
		require.True(t, result.Success)
		require.NotNil(t, result.User)
		assert.Equal(t, models.RankOfficerCadet, result.User.Rank)
		assert.True(t, orch.IsAuthenticated())

		cachedID, found, err := store.Get(context.Background(), storage.CachedUserIDKey)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, result.User.UserID, cachedID)
	})

	t.Run("rejects invalid data as a result value", func(t *testing.T) {
		orch := NewAuthOrchestrator(storage.NewMemoryStorage(), newMockDirectory(), zap.NewNop())

		result := orch.RegisterUser(context.Background(), models.UserRegistrationData{Rank: "ADMIRAL"})
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Message)
		assert.False(t, orch.IsAuthenticated())
	})

	t.Run("is idempotent per device", func(t *testing.T) {
		store := storage.NewMemoryStorage()
		directory := newMockDirectory()
		orch := NewAuthOrchestrator(store, directory, zap.NewNop())

		first := orch.RegisterUser(context.Background(), validRegistration())
		require.True(t, first.Success)

		second := orch.RegisterUser(context.Background(), validRegistration())
		require.True(t, second.Success)
		assert.Equal(t, first.User.UserID, second.User.UserID)
		assert.Equal(t, 1, directory.createCalls)
	})
}

func TestAutoLogin(t *testing.T) {
	t.Run("fails without cached session", func(t *testing.T) {
		orch := NewAuthOrchestrator(storage.NewMemoryStorage(), newMockDirectory(), zap.NewNop())
		result := orch.AutoLogin(context.Background())
		assert.False(t, result.Success)
	})

	t.Run("restores and stamps last login", func(t *testing.T) {
		store := storage.NewMemoryStorage()
		directory := newMockDirectory()
		directory.users["u1"] = &models.User{UserID: "u1", Rank: models.RankCommander, FirstName: "Kim", LastName: "Lee"}
		require.NoError(t, store.Set(context.Background(), storage.CachedUserIDKey, "u1"))

		orch := NewAuthOrchestrator(store, directory, zap.NewNop())
		result := orch.AutoLogin(context.Background())
		require.True(t, result.Success)
		assert.Equal(t, []string{"u1"}, directory.stamped)
	})
}

func TestLogoutKeepsDeviceIdentity(t *testing.T) {
	store := storage.NewMemoryStorage()
	directory := newMockDirectory()
	orch := NewAuthOrchestrator(store, directory, zap.NewNop())

	result := orch.RegisterUser(context.Background(), validRegistration())
	require.True(t, result.Success)

	deviceID, _, err := store.Get(context.Background(), storage.DeviceIDKey)
	require.NoError(t, err)

	orch.Logout(context.Background())

	assert.False(t, orch.IsAuthenticated())
	_, found, err := store.Get(context.Background(), storage.CachedUserIDKey)
	require.NoError(t, err)
	assert.False(t, found)

	// The device identity survives so the account can be re-adopted.
	afterLogout, found, err := store.Get(context.Background(), storage.DeviceIDKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, deviceID, afterLogout)

	relogin := orch.RegisterUser(context.Background(), validRegistration())
	require.True(t, relogin.Success)
	assert.Equal(t, result.User.UserID, relogin.User.UserID)
}

func TestRefreshSessionClearsWhenRemoteGone(t *testing.T) {
	store := storage.NewMemoryStorage()
	directory := newMockDirectory()
	orch := NewAuthOrchestrator(store, directory, zap.NewNop())

	result := orch.RegisterUser(context.Background(), validRegistration())
	require.True(t, result.Success)

	// Remote document disappears out from under the session.
	delete(directory.users, result.User.UserID)
	orch.RefreshSession(context.Background())

	assert.False(t, orch.IsAuthenticated())
}

func TestRefreshSessionSurvivesTransientFailure(t *testing.T) {
	store := storage.NewMemoryStorage()
	directory := newMockDirectory()
	orch := NewAuthOrchestrator(store, directory, zap.NewNop())

	result := orch.RegisterUser(context.Background(), validRegistration())
	require.True(t, result.Success)

	directory.findErr = appErrors.ErrUnavailable
	orch.RefreshSession(context.Background())

	// A blip never logs the user out.
	assert.True(t, orch.IsAuthenticated())
}

func TestSubscribeReceivesCommittedSnapshots(t *testing.T) {
	orch := NewAuthOrchestrator(storage.NewMemoryStorage(), newMockDirectory(), zap.NewNop())

	var snapshots []models.AuthState
	unsubscribe := orch.Subscribe(func(s models.AuthState) {
		snapshots = append(snapshots, s)
	})

	orch.InitializeAuth(context.Background())
	require.NotEmpty(t, snapshots)
	final := snapshots[len(snapshots)-1]
	assert.True(t, final.Initialized)

	unsubscribe()
	seen := len(snapshots)
	orch.Logout(context.Background())
	assert.Len(t, snapshots, seen)
}
