package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ByLCY/quire/errs"
)

// 口令与令牌的约束。
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt 只使用前 72 字节
	DefaultTokenTTL   = 7 * 24 * time.Hour
	issuer            = "quire"
)

// Claims 是令牌中携带的声明，sub 为用户 ID。
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Service 实现注册、登录与令牌校验。
type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// Option 配置 Service。
type Option func(*Service)

// WithTTL 设置令牌有效期。
func WithTTL(ttl time.Duration) Option { return func(s *Service) { s.ttl = ttl } }

// WithBcryptCost 设置 bcrypt 代价，测试中可以用 bcrypt.MinCost 加速。
func WithBcryptCost(cost int) Option { return func(s *Service) { s.cost = cost } }

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService 创建认证服务。secret 用于签名令牌，不能为空。
func NewService(store Store, secret []byte, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: nil store")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	s := &Service{
		store:  store,
		secret: secret,
		ttl:    DefaultTokenTTL,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive, got %v", s.ttl)
	}
	return s, nil
}

// NormalizeEmail 去掉首尾空白并转为小写。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 创建账号。email 已被占用时返回 ErrUserExists；
// email 格式错误或密码不满足长度要求时返回 ValidationError。
func (s *Service) Register(ctx context.Context, email, password, name string) (*User, error) {
	const op = "register"
	email = NormalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, errs.Validation(op, "email 格式不正确：%q", email)
	}
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return nil, errs.Validation(op, "密码长度必须在 %d 到 %d 字节之间", MinPasswordLength, MaxPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           id,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 校验口令并签发令牌。用户不存在与密码错误返回同一个 ErrInvalidCredentials。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.store.Get(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *Service) issue(u *User) (string, error) {
	now := s.now()
	claims := Claims{
		Email: u.Email,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify 校验令牌签名、签发者与有效期，只接受 HS256。
func (s *Service) Verify(signed string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// newID generates a URL-safe opaque user id.
func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
