package repository

import (
	"context"
	"time"
)

// EventDeduper records processed webhook idempotency keys.
type EventDeduper interface {
	// MarkProcessed records the key and reports whether this was its first
	// occurrence within the ttl window.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget releases a key so the event can be retried. Used when
	// processing fails after the key was marked.
	Forget(ctx context.Context, key string) error
}

// Locker serializes the two racing subscription writers per user.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
