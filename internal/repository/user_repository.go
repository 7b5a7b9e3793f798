package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/signalflags/signalflags-api/internal/models"
)

// UsersCollection is the remote user-document collection name.
const UsersCollection = "users"

// UserRepository provides document access for the user directory.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(UsersCollection)}
}

// Create inserts a new user document keyed by user.UserID and stamps the
// server-assigned creation timestamp.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedDate.IsZero() {
		user.CreatedDate = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		return mapMongoError(err, "create user")
	}
	return nil
}

// FindByID returns a user by identifier, or nil when no document exists.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapMongoError(err, "find user by id")
	}
	return &user, nil
}

// FindByDeviceID returns the at-most-one user bound to a device identifier.
func (r *UserRepository) FindByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_date", Value: 1}})
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"device_id": deviceID}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapMongoError(err, "find user by device id")
	}
	return &user, nil
}

// Update applies a partial field update to a user document.
func (r *UserRepository) Update(ctx context.Context, id string, fields bson.M) error {
	if len(fields) == 0 {
		return nil
	}
	if _, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": fields}); err != nil {
		return mapMongoError(err, "update user")
	}
	return nil
}

// UpdateLastLogin stamps the last_login timestamp.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login": ts}}); err != nil {
		return mapMongoError(err, "update last login")
	}
	return nil
}

// Deactivate clears the admin flag. User documents are never hard-deleted.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_admin": false}}); err != nil {
		return mapMongoError(err, "deactivate user")
	}
	return nil
}
