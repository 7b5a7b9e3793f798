package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/internal/storage"
)

type directoryClient interface {
	CreateUser(ctx context.Context, data models.UserRegistrationData, identityToken string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByDeviceID(ctx context.Context, deviceID string) (*models.User, error)
	StampLastLogin(ctx context.Context, id string)
}

// AuthOrchestrator is the per-install session state machine. It reconciles
// device storage, the user directory and in-memory state; all transitions
// happen under one mutex so synchronous accessors always observe a fully
// committed state.
type AuthOrchestrator struct {
	storage   storage.DeviceStorage
	directory directoryClient
	logger    *zap.Logger

	mu          sync.Mutex
	state       models.AuthState
	subscribers map[int]func(models.AuthState)
	nextSubID   int
}

// NewAuthOrchestrator creates an orchestrator in the uninitialized state.
func NewAuthOrchestrator(store storage.DeviceStorage, directory directoryClient, logger *zap.Logger) *AuthOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthOrchestrator{
		storage:     store,
		directory:   directory,
		logger:      logger,
		subscribers: make(map[int]func(models.AuthState)),
	}
}

// InitializeAuth restores a session at startup. It tries the cached user id
// first, then a device-id lookup, and always finishes with Loading=false and
// Initialized=true regardless of any failure along the way.
func (o *AuthOrchestrator) InitializeAuth(ctx context.Context) {
	o.commit(func(s *models.AuthState) {
		s.Loading = true
		s.Err = ""
	})

	defer o.commit(func(s *models.AuthState) {
		s.Loading = false
		s.Initialized = true
	})

	cachedID, found, err := o.storage.Get(ctx, storage.CachedUserIDKey)
	if err != nil {
		o.failUnauthenticated(err)
		return
	}

	if found && cachedID != "" {
		user, err := o.directory.GetUserByID(ctx, cachedID)
		if err != nil {
			o.failUnauthenticated(err)
			return
		}
		if user == nil {
			// Cached id points at a deleted document; drop the stale cache.
			o.clearCachedUser(ctx)
			o.commit(func(s *models.AuthState) { s.User = nil })
			return
		}
		o.directory.StampLastLogin(ctx, user.UserID)
		o.cacheUser(ctx, user)
		o.commit(func(s *models.AuthState) { s.User = user })
		return
	}

	deviceID, err := storage.GetOrCreateDeviceID(ctx, o.storage)
	if err != nil {
		o.failUnauthenticated(err)
		return
	}

	user, err := o.directory.GetUserByDeviceID(ctx, deviceID)
	if err != nil {
		o.failUnauthenticated(err)
		return
	}
	if user == nil {
		// First run on this install.
		o.commit(func(s *models.AuthState) { s.User = nil })
		return
	}

	o.cacheUser(ctx, user)
	o.commit(func(s *models.AuthState) { s.User = user })
}

// RegisterUser validates the payload and creates (or re-adopts) the user
// bound to this install's device identifier. Expected failures come back as
// a result value; the authenticated state is left untouched on failure.
func (o *AuthOrchestrator) RegisterUser(ctx context.Context, data models.UserRegistrationData) models.AuthResult {
	if result := ValidateUserData(data); !result.Valid {
		return models.AuthResult{Success: false, Message: strings.Join(result.Errors, "; ")}
	}

	deviceID, err := storage.GetOrCreateDeviceID(ctx, o.storage)
	if err != nil {
		return models.AuthResult{Success: false, Message: err.Error()}
	}
	data.DeviceID = deviceID

	// A user already bound to this device makes registration an idempotent
	// re-login; two racing calls cannot create a second document.
	existing, err := o.directory.GetUserByDeviceID(ctx, deviceID)
	if err != nil {
		return models.AuthResult{Success: false, Message: err.Error()}
	}
	if existing != nil {
		o.cacheUser(ctx, existing)
		o.commit(func(s *models.AuthState) {
			s.User = existing
			s.Err = ""
		})
		return models.AuthResult{Success: true, User: existing}
	}

	user, err := o.directory.CreateUser(ctx, data, uuid.NewString())
	if err != nil {
		return models.AuthResult{Success: false, Message: err.Error()}
	}

	o.cacheUser(ctx, user)
	o.commit(func(s *models.AuthState) {
		s.User = user
		s.Err = ""
	})
	return models.AuthResult{Success: true, User: user}
}

// AutoLogin re-runs the cached-id restore path and reports the outcome as
// an explicit result; used by manual retry flows.
func (o *AuthOrchestrator) AutoLogin(ctx context.Context) models.AuthResult {
	cachedID, found, err := o.storage.Get(ctx, storage.CachedUserIDKey)
	if err != nil {
		return models.AuthResult{Success: false, Message: err.Error()}
	}
	if !found || cachedID == "" {
		return models.AuthResult{Success: false, Message: "no cached session"}
	}

	user, err := o.directory.GetUserByID(ctx, cachedID)
	if err != nil {
		return models.AuthResult{Success: false, Message: err.Error()}
	}
	if user == nil {
		o.clearCachedUser(ctx)
		o.commit(func(s *models.AuthState) { s.User = nil })
		return models.AuthResult{Success: false, Message: "stored user no longer exists"}
	}

	o.directory.StampLastLogin(ctx, user.UserID)
	o.cacheUser(ctx, user)
	o.commit(func(s *models.AuthState) {
		s.User = user
		s.Err = ""
	})
	return models.AuthResult{Success: true, User: user}
}

// Logout clears the cached user while preserving the device identifier. A
// storage failure is logged but never blocks the in-memory transition.
func (o *AuthOrchestrator) Logout(ctx context.Context) {
	o.clearCachedUser(ctx)
	o.commit(func(s *models.AuthState) {
		s.User = nil
		s.Err = ""
	})
}

// RefreshSession opportunistically re-checks that the cached user still
// exists remotely, clearing the session when it does not. It never fails:
// this runs on app foreground where a transient blip must not log anyone
// out of the UI flow.
func (o *AuthOrchestrator) RefreshSession(ctx context.Context) {
	cachedID, found, err := o.storage.Get(ctx, storage.CachedUserIDKey)
	if err != nil {
		o.logger.Warn("refresh session: storage read failed", zap.Error(err))
		return
	}
	if !found || cachedID == "" {
		return
	}

	user, err := o.directory.GetUserByID(ctx, cachedID)
	if err != nil {
		o.logger.Warn("refresh session: directory lookup failed", zap.Error(err))
		return
	}
	if user == nil {
		o.clearCachedUser(ctx)
		o.commit(func(s *models.AuthState) { s.User = nil })
		return
	}

	o.cacheUser(ctx, user)
	o.commit(func(s *models.AuthState) { s.User = user })
}

// ValidateSession reports whether the cached user still exists remotely,
// clearing the session on invalidation.
func (o *AuthOrchestrator) ValidateSession(ctx context.Context) bool {
	cachedID, found, err := o.storage.Get(ctx, storage.CachedUserIDKey)
	if err != nil || !found || cachedID == "" {
		return false
	}

	user, err := o.directory.GetUserByID(ctx, cachedID)
	if err != nil {
		o.logger.Warn("validate session: directory lookup failed", zap.Error(err))
		return false
	}
	if user == nil {
		o.clearCachedUser(ctx)
		o.commit(func(s *models.AuthState) { s.User = nil })
		return false
	}
	return true
}

// CurrentUser returns the signed-in user, or nil.
func (o *AuthOrchestrator) CurrentUser() *models.User {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.User
}

// IsAuthenticated reports whether a user is signed in.
func (o *AuthOrchestrator) IsAuthenticated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Authenticated()
}

// IsInitialized reports whether startup restore has completed.
func (o *AuthOrchestrator) IsInitialized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Initialized
}

// State returns a snapshot of the full auth state.
func (o *AuthOrchestrator) State() models.AuthState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers a callback fired with a full snapshot after every
// committed transition. The returned function cancels the subscription.
func (o *AuthOrchestrator) Subscribe(fn func(models.AuthState)) func() {
	o.mu.Lock()
	id := o.nextSubID
	o.nextSubID++
	o.subscribers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subscribers, id)
		o.mu.Unlock()
	}
}

// commit applies a mutation under the lock and notifies subscribers with
// the committed snapshot. Initialized never reverts once set.
func (o *AuthOrchestrator) commit(mutate func(*models.AuthState)) {
	o.mu.Lock()
	initialized := o.state.Initialized
	mutate(&o.state)
	if initialized {
		o.state.Initialized = true
	}
	snapshot := o.state
	fns := make([]func(models.AuthState), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (o *AuthOrchestrator) failUnauthenticated(err error) {
	o.logger.Warn("auth initialization failed", zap.Error(err))
	o.commit(func(s *models.AuthState) {
		s.User = nil
		s.Err = err.Error()
	})
}

func (o *AuthOrchestrator) cacheUser(ctx context.Context, user *models.User) {
	if err := o.storage.Set(ctx, storage.CachedUserIDKey, user.UserID); err != nil {
		o.logger.Warn("failed to cache user id", zap.Error(err))
		return
	}
	snapshot, err := json.Marshal(user)
	if err == nil {
		if err := o.storage.Set(ctx, storage.CachedUserKey, string(snapshot)); err != nil {
			o.logger.Warn("failed to cache user snapshot", zap.Error(err))
		}
	}
}

func (o *AuthOrchestrator) clearCachedUser(ctx context.Context) {
	if err := o.storage.Remove(ctx, storage.CachedUserIDKey); err != nil {
		o.logger.Warn("failed to clear cached user id", zap.Error(err))
	}
	if err := o.storage.Remove(ctx, storage.CachedUserKey); err != nil {
		o.logger.Warn("failed to clear cached user snapshot", zap.Error(err))
	}
}
