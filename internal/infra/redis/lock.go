package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/repository"
)

var _ repository.Locker = (*Locker)(nil)

// Locker serializes the two racing subscription writers per user.
type Locker struct {
	cli *Client
}

func NewLocker(c *Client) *Locker {
	return &Locker{cli: c}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < 5; i++ { // 5 tries
		ok, err := l.cli.cli.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			continue
		}
		if ok {
			return token, nil
		}
		time.Sleep(50 * time.Millisecond) // wait before retrying
	}
	return "", domain.ErrOperationFailed
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli.cli, []string{key}, token).Result()
	return err
}
