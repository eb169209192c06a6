package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lowimpl "github.com/redis/go-redis/v9"
)

// KeyPrefix 是用户记录在 redis 中的键前缀。
const KeyPrefix = "quire:user:"

// RedisStore 把每个用户保存为一个 JSON 字符串，键为 KeyPrefix + email。
type RedisStore struct {
	internal *lowimpl.Client
}

var _ Store = (*RedisStore)(nil)

// RedisOptions 是连接参数。
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore 创建 redis 存储。连接是惰性的，可以先调用 Ping 检查。
func NewRedisStore(opts RedisOptions) *RedisStore {
	return &RedisStore{internal: lowimpl.NewClient(&lowimpl.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})}
}

// Ping 检查 redis 是否可用。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.internal.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if s.internal == nil {
		return nil
	}
	return s.internal.Close()
}

func (s *RedisStore) Create(ctx context.Context, u *User) error {
	val, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	// SETNX 保证并发注册同一 email 时只有一个成功
	ok, err := s.internal.SetNX(ctx, KeyPrefix+u.Email, val, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrUserExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (*User, error) {
	val, err := s.internal.Get(ctx, KeyPrefix+email).Bytes()
	if errors.Is(err, lowimpl.Nil) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var u User
	if err := json.Unmarshal(val, &u); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", email, err)
	}
	return &u, nil
}
