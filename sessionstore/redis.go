package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/openlms/extauth/handshake"
	"github.com/redis/go-redis/v9"
)

// redis key prefix for browser sessions
const redisSessionKeyPrefix = "extauth:session:"

// takeScript reads and deletes a hash field in one step, so a state token
// can never be observed twice even by racing instances.
var takeScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], ARGV[1])
if v then redis.call('HDEL', KEYS[1], ARGV[1]) end
return v
`)

// Redis is a Store backed by a Redis hash per browser session. It is the
// store to use when more than one application instance serves the
// handshake, since both legs of a handshake can then land on different
// instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// ensure that Redis implements the Store interface
var _ Store = (*Redis)(nil)

// NewRedis creates a Redis-backed session store. A zero ttl means
// DefaultSessionTTL.
func NewRedis(client *redis.Client, ttl time.Duration) (*Redis, error) {
	const op = "sessionstore.NewRedis"
	if client == nil {
		return nil, fmt.Errorf("%s: redis client is nil: %w", op, ErrNilParameter)
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Session returns the session for id. The returned session is bound to ctx
// and valid for the life of the request that fetched it.
func (r *Redis) Session(ctx context.Context, id string) (handshake.Session, error) {
	const op = "sessionstore.Redis.Session"
	if id == "" {
		return nil, fmt.Errorf("%s: session id is empty: %w", op, ErrInvalidParameter)
	}
	return &redisSession{
		ctx:    ctx,
		client: r.client,
		key:    redisSessionKeyPrefix + id,
		ttl:    r.ttl,
	}, nil
}

// Destroy removes the session and all its state.
func (r *Redis) Destroy(ctx context.Context, id string) error {
	const op = "sessionstore.Redis.Destroy"
	if err := r.client.Del(ctx, redisSessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// redisSession implements handshake.Session over a redis hash. Redis
// errors surface as absent values; the handshake treats a missing state
// token as invalid, which fails closed.
type redisSession struct {
	ctx    context.Context
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *redisSession) Get(key string) (string, bool) {
	v, err := s.client.HGet(s.ctx, s.key, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *redisSession) Set(key, value string) {
	pipe := s.client.TxPipeline()
	pipe.HSet(s.ctx, s.key, key, value)
	pipe.Expire(s.ctx, s.key, s.ttl)
	_, _ = pipe.Exec(s.ctx)
}

func (s *redisSession) Unset(key string) {
	_ = s.client.HDel(s.ctx, s.key, key).Err()
}

func (s *redisSession) Take(key string) (string, bool) {
	v, err := takeScript.Run(s.ctx, s.client, []string{s.key}, key).Result()
	if err != nil {
		return "", false
	}
	str, ok := v.(string)
	if !ok {
		return "", false
	}
	return str, true
}
