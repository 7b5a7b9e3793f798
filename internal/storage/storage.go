// Package storage provides the device key-value persistence layer. One
// adapter instance corresponds to one app install; the device identifier and
// the cached user snapshot live here across restarts.
package storage

import (
	"context"

	"github.com/google/uuid"
)

// Well-known keys.
const (
	DeviceIDKey     = "signalflags_device_id"
	CachedUserIDKey = "signalflags_cached_user_id"
	CachedUserKey   = "signalflags_cached_user"
)

// DeviceStorage is the string key-value contract backing an install. A
// missing key is reported as found=false, never as an error; errors are
// reserved for I/O failures.
type DeviceStorage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
}

// GetOrCreateDeviceID reads the persisted device identifier, generating and
// persisting a fresh UUID-v4 token on first call. Idempotent once set; the
// identifier survives logout and is removed only by a full Clear.
func GetOrCreateDeviceID(ctx context.Context, store DeviceStorage) (string, error) {
	value, found, err := store.Get(ctx, DeviceIDKey)
	if err != nil {
		return "", err
	}
	if found && value != "" {
		return value, nil
	}

	id := uuid.NewString()
	if err := store.Set(ctx, DeviceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}
