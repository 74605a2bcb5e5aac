package redis

import (
	"context"
	"time"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/repository"
)

var _ repository.EventDeduper = (*Deduper)(nil)

// Deduper records processed webhook idempotency keys with a TTL window.
type Deduper struct {
	cli *Client
}

func NewDeduper(c *Client) *Deduper {
	return &Deduper{cli: c}
}

// MarkProcessed sets the key if absent and reports whether this was the
// first occurrence within the window.
func (d *Deduper) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.cli.cli.SetNX(ctx, key, "1", ttl).Result()
}

// Forget releases a marked key so the provider's redelivery of a failed
// event is not suppressed.
func (d *Deduper) Forget(ctx context.Context, key string) error {
	return d.cli.cli.Del(ctx, key).Err()
}
