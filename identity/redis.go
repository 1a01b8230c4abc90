package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "authgate:user"

// RedisStore keeps each user in a hash under <prefix>:id:<id> and claims the email with
// SETNX on <prefix>:email:<email>. Ids come from INCR on <prefix>:seq.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store under prefix; an empty prefix uses "authgate:user".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) idKey(id string) string       { return s.prefix + ":id:" + id }
func (s *RedisStore) emailKey(email string) string { return s.prefix + ":email:" + email }

// Create allocates an id, claims the email and writes the user hash.
func (s *RedisStore) Create(ctx context.Context, u User) (User, error) {
	u.Email = NormalizeEmail(u.Email)

	seq, err := s.rdb.Incr(ctx, s.prefix+":seq").Result()
	if err != nil {
		return User{}, fmt.Errorf("identity: allocate id: %w", err)
	}
	u.ID = strconv.FormatInt(seq, 10)

	claimed, err := s.rdb.SetNX(ctx, s.emailKey(u.Email), u.ID, 0).Result()
	if err != nil {
		return User{}, fmt.Errorf("identity: claim email: %w", err)
	}
	if !claimed {
		return User{}, ErrEmailTaken
	}

	err = s.rdb.HSet(ctx, s.idKey(u.ID), map[string]any{
		"name":          u.Name,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"created_at":    u.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":    u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		// release the email so the user can retry
		s.rdb.Del(ctx, s.emailKey(u.Email))
		return User{}, fmt.Errorf("identity: write user: %w", err)
	}
	return u, nil
}

// ByEmail resolves the email claim and loads the user it points to.
func (s *RedisStore) ByEmail(ctx context.Context, email string) (User, error) {
	id, err := s.rdb.Get(ctx, s.emailKey(NormalizeEmail(email))).Result()
	if errors.Is(err, redis.Nil) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("identity: lookup email: %w", err)
	}
	return s.ByID(ctx, id)
}

// ByID returns ErrNotFound when the user hash is missing.
func (s *RedisStore) ByID(ctx context.Context, id string) (User, error) {
	fields, err := s.rdb.HGetAll(ctx, s.idKey(id)).Result()
	if err != nil {
		return User{}, fmt.Errorf("identity: load user: %w", err)
	}
	if len(fields) == 0 {
		return User{}, ErrNotFound
	}

	u := User{
		ID:           id,
		Name:         fields["name"],
		Email:        fields["email"],
		PasswordHash: fields["password_hash"],
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return u, nil
}
