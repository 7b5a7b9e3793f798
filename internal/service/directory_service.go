package service

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/models"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
	"github.com/signalflags/signalflags-api/pkg/jobs"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByDeviceID(ctx context.Context, deviceID string) (*models.User, error)
	Update(ctx context.Context, id string, fields bson.M) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	Deactivate(ctx context.Context, id string) error
}

// DirectoryService is the CRUD facade over the remote user-document
// collection.
type DirectoryService struct {
	store       userStore
	logger      *zap.Logger
	loginStamps *jobs.Queue
}

// NewDirectoryService constructs the directory client. The queue is
// optional; when nil, last-login stamps are written inline.
func NewDirectoryService(store userStore, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{store: store, logger: logger}
}

// UseLoginStampQueue routes best-effort last-login writes through a worker
// queue so they never delay a caller.
func (s *DirectoryService) UseLoginStampQueue(q *jobs.Queue) {
	s.loginStamps = q
}

// StampLastLoginJob is the queue handler companion to UseLoginStampQueue.
func (s *DirectoryService) StampLastLoginJob(ctx context.Context, job jobs.Job) error {
	userID, ok := job.Payload.(string)
	if !ok || userID == "" {
		return nil
	}
	return s.store.UpdateLastLogin(ctx, userID, time.Now().UTC())
}

// CreateUser validates registration data, writes a new document keyed by
// identityToken and returns the persisted record with server timestamps.
func (s *DirectoryService) CreateUser(ctx context.Context, data models.UserRegistrationData, identityToken string) (*models.User, error) {
	if result := ValidateUserData(data); !result.Valid {
		return nil, appErrors.Clone(appErrors.ErrValidation, strings.Join(result.Errors, "; "))
	}

	user := &models.User{
		UserID:    identityToken,
		Rank:      data.Rank,
		FirstName: strings.TrimSpace(data.FirstName),
		LastName:  strings.TrimSpace(data.LastName),
		DeviceID:  data.DeviceID,
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID returns nil without error when no document exists.
func (s *DirectoryService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.store.FindByID(ctx, id)
}

// GetUserByDeviceID returns the at-most-one user bound to a device.
func (s *DirectoryService) GetUserByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	return s.store.FindByDeviceID(ctx, deviceID)
}

// UpdateUser validates whichever rank/name fields the partial update
// carries, trims string fields and writes the remainder.
func (s *DirectoryService) UpdateUser(ctx context.Context, id string, update models.UserUpdate) error {
	if result := validateUserUpdate(update); !result.Valid {
		return appErrors.Clone(appErrors.ErrValidation, strings.Join(result.Errors, "; "))
	}

	fields := bson.M{}
	if update.Rank != nil {
		fields["rank"] = *update.Rank
	}
	if update.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*update.LastName)
	}

	return s.store.Update(ctx, id, fields)
}

// StampLastLogin records a successful session restore. Best-effort by
// contract: failures are logged and never propagated, so app startup is
// never blocked on it.
func (s *DirectoryService) StampLastLogin(ctx context.Context, id string) {
	if s.loginStamps != nil {
		if err := s.loginStamps.Enqueue(jobs.Job{ID: id, Type: "last_login", Payload: id}); err == nil {
			return
		}
		// Queue unavailable; fall through to the inline write.
	}
	if err := s.store.UpdateLastLogin(ctx, id, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to stamp last login", zap.String("user_id", id), zap.Error(err))
	}
}

// DeactivateUser clears the admin flag; user documents are never deleted.
func (s *DirectoryService) DeactivateUser(ctx context.Context, id string) error {
	return s.store.Deactivate(ctx, id)
}
