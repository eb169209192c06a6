// Package auth 管理 HTTP 服务的账号：注册、登录与令牌校验。
//
// 密码以 bcrypt 哈希保存，登录成功后签发 HS256 JWT。用户可以存放在内存或 redis 中。
package auth

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// Sentinel errors for auth operations.
var (
	ErrUserExists         = errors.New("auth: user already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInvalidToken       = errors.New("auth: invalid token")
)

// User 是一个已注册的账号。
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash []byte    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store 保存用户，键为规范化后的 email。
type Store interface {
	// Create 在 email 已存在时返回 ErrUserExists。
	Create(ctx context.Context, u *User) error
	// Get 在用户不存在时返回 ErrUserNotFound。
	Get(ctx context.Context, email string) (*User, error)
}

// MemoryStore 是进程内的用户存储，重启后数据丢失。
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]User{}}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return ErrUserExists
	}
	cp := *u
	cp.PasswordHash = slices.Clone(u.PasswordHash)
	s.users[u.Email] = cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.PasswordHash = slices.Clone(u.PasswordHash)
	return &u, nil
}

// Emails 按字典序列出已注册的 email。
func (s *MemoryStore) Emails() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.users))
}
