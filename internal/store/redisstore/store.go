package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leyuan-dev/paper-translator/internal/common"
	"github.com/leyuan-dev/paper-translator/internal/translation"
)

// lockTTL bounds how long a crashed continuation can hold a conversation.
const lockTTL = 5 * time.Minute

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Acquire takes the per-conversation advisory lock. The token-checked
// release keeps a stale holder from dropping a lock it no longer owns.
func (s *Store) Acquire(ctx context.Context, conversationID string) (func(), error) {
	key := "conv_lock:" + conversationID
	token, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	okk, err := s.client.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !okk {
		return nil, translation.ErrLocked
	}

	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, s.client, []string{key}, token).Err()
	}, nil
}
