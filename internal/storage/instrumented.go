package storage

import (
	"context"
	"time"
)

// InstrumentedStorage wraps a DeviceStorage and reports the latency of
// every operation through an observe callback, keeping this package free
// of a metrics dependency.
type InstrumentedStorage struct {
	inner   DeviceStorage
	observe func(op string, d time.Duration)
}

// NewInstrumentedStorage decorates inner. A nil observe returns inner
// unchanged.
func NewInstrumentedStorage(inner DeviceStorage, observe func(op string, d time.Duration)) DeviceStorage {
	if observe == nil {
		return inner
	}
	return &InstrumentedStorage{inner: inner, observe: observe}
}

func (s *InstrumentedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, found, err := s.inner.Get(ctx, key)
	s.observe("get", time.Since(start))
	return value, found, err
}

func (s *InstrumentedStorage) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.inner.Set(ctx, key, value)
	s.observe("set", time.Since(start))
	return err
}

func (s *InstrumentedStorage) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.inner.Remove(ctx, key)
	s.observe("remove", time.Since(start))
	return err
}

func (s *InstrumentedStorage) Clear(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Clear(ctx)
	s.observe("clear", time.Since(start))
	return err
}

func (s *InstrumentedStorage) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.inner.Keys(ctx)
	s.observe("keys", time.Since(start))
	return keys, err
}
