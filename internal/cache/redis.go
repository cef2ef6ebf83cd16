package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockHeld   = errors.New("lock held by another holder")
	ErrTicketMiss = errors.New("ticket not found or expired")
)

// releaseScript deletes the lock only if it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes work per key across API instances.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lock for key or returns ErrLockHeld. The returned release
// func is safe to call after the lock expired.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(key), owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{lockKey(key)}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis release failed: %w", err)
		}
		return nil
	}
	return release, nil
}

// TicketClaims is what a cancellation confirmation token stands for.
type TicketClaims struct {
	OrderID string `json:"orderId"`
	BuyerID string `json:"buyerId"`
}

// TicketStore keeps single-use confirmation tokens.
type TicketStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTicketStore(client *redis.Client, ttl time.Duration) *TicketStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TicketStore{client: client, ttl: ttl}
}

func (s *TicketStore) TTL() time.Duration {
	return s.ttl
}

func (s *TicketStore) Issue(ctx context.Context, claims TicketClaims) (string, time.Time, error) {
	token := uuid.NewString()
	body, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal ticket failed: %w", err)
	}
	expires := time.Now().Add(s.ttl)
	if err := s.client.Set(ctx, ticketKey(token), body, s.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("redis set failed: %w", err)
	}
	return token, expires, nil
}

// Consume returns the claims and deletes the token in one step, so a token works once.
func (s *TicketStore) Consume(ctx context.Context, token string) (TicketClaims, error) {
	var claims TicketClaims
	if token == "" {
		return claims, ErrTicketMiss
	}
	data, err := s.client.GetDel(ctx, ticketKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return claims, ErrTicketMiss
	}
	if err != nil {
		return claims, fmt.Errorf("redis getdel failed: %w", err)
	}
	if err := json.Unmarshal(data, &claims); err != nil {
		return claims, fmt.Errorf("unmarshal ticket failed: %w", err)
	}
	return claims, nil
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

func ticketKey(token string) string {
	return fmt.Sprintf("cancel-ticket:%s", token)
}
