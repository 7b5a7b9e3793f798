package service

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/internal/storage"
	"github.com/signalflags/signalflags-api/pkg/config"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
)

// StorageFactory builds the device storage backing one install.
type StorageFactory func(installID string) storage.DeviceStorage

// SessionManager keeps one auth orchestrator per app install and signs the
// session tokens the HTTP layer hands back to clients.
type SessionManager struct {
	factory   StorageFactory
	directory directoryClient
	logger    *zap.Logger
	cfg       config.SessionConfig

	mu            sync.Mutex
	orchestrators map[string]*AuthOrchestrator
}

// NewSessionManager constructs the manager.
func NewSessionManager(factory StorageFactory, directory directoryClient, logger *zap.Logger, cfg config.SessionConfig) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		factory:       factory,
		directory:     directory,
		logger:        logger,
		cfg:           cfg,
		orchestrators: make(map[string]*AuthOrchestrator),
	}
}

// ForInstall returns the orchestrator bound to an install id, creating it
// on first contact.
func (m *SessionManager) ForInstall(installID string) *AuthOrchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()
	if orch, ok := m.orchestrators[installID]; ok {
		return orch
	}
	orch := NewAuthOrchestrator(m.factory(installID), m.directory, m.logger)
	m.orchestrators[installID] = orch
	return orch
}

// IssueToken signs a session token for an authenticated install.
func (m *SessionManager) IssueToken(user *models.User, installID, deviceID string) (string, error) {
	now := time.Now().UTC()
	claims := models.SessionClaims{
		UserID:    user.UserID,
		InstallID: installID,
		DeviceID:  deviceID,
		IsAdmin:   user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.Expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	return signed, nil
}

// ParseToken validates a session token and returns its claims.
func (m *SessionManager) ParseToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(m.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session token")
	}
	return claims, nil
}
