package config

import (
	"fmt"
	"strings"
	"time"
)

// TokenStoreKind selects where the access token is kept after sign-in.
type TokenStoreKind string

const (
	// TokenStoreSession keeps the token inside the signed session cookie.
	TokenStoreSession TokenStoreKind = "session"
	// TokenStoreRedis keeps the token in Redis, keyed by session id.
	TokenStoreRedis TokenStoreKind = "redis"
	// TokenStoreMemory keeps the token in process memory (tests, single instance dev).
	TokenStoreMemory TokenStoreKind = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for TokenStoreKind.
func (k *TokenStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "session", "redis", "memory":
		*k = TokenStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid TokenStoreKind: %q (valid options: session, redis, memory)", v)
	}
}

// RedisConfig contains Redis connection settings for the token store.
type RedisConfig struct {
	Addr      string        `env:"ADDR"      envDefault:"localhost:6379"`
	Password  string        `env:"PASSWORD"  envDefault:""`
	DB        int           `env:"DB"        envDefault:"0"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"signin"`
}

// TokenStoreConfig picks and configures the token store backend.
type TokenStoreConfig struct {
	Kind  TokenStoreKind `env:"TOKEN_STORE" envDefault:"session"`
	Redis RedisConfig    `envPrefix:"REDIS_"`
}

// Sanitize restores defaults for empty values.
func (t *TokenStoreConfig) Sanitize() {
	t.Redis.Addr = strings.TrimSpace(t.Redis.Addr)
	if t.Redis.TokenTTL <= 0 {
		t.Redis.TokenTTL = 12 * time.Hour
	}
	if strings.TrimSpace(t.Redis.KeyPrefix) == "" {
		t.Redis.KeyPrefix = "signin"
	}
}

func (t TokenStoreConfig) missing() []string {
	if t.Kind == TokenStoreRedis && t.Redis.Addr == "" {
		return []string{"REDIS_ADDR"}
	}
	return nil
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	HashKey      string        `env:"HASH_KEY"`
	BlockKey     string        `env:"BLOCK_KEY"`
	CookieName   string        `env:"COOKIE_NAME"   envDefault:"signin_session"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	Lifetime     time.Duration `env:"LIFETIME"      envDefault:"12h"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT"  envDefault:"30m"`
}

// Sanitize restores defaults for empty values.
func (s *SessionConfig) Sanitize() {
	if strings.TrimSpace(s.CookieName) == "" {
		s.CookieName = "signin_session"
	}
	if s.Lifetime <= 0 {
		s.Lifetime = 12 * time.Hour
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = 30 * time.Minute
	}
}

func (s SessionConfig) missing() []string {
	switch len(s.BlockKey) {
	case 0, 16, 24, 32:
		return nil
	default:
		return []string{"SESSION_BLOCK_KEY"}
	}
}

// CSRFConfig controls the double-submit cookie.
type CSRFConfig struct {
	CookieName string `env:"COOKIE_NAME" envDefault:"signin_csrf"`
	HeaderName string `env:"HEADER_NAME" envDefault:"X-CSRF-Token"`
}

// Sanitize restores defaults for empty values.
func (c *CSRFConfig) Sanitize() {
	if strings.TrimSpace(c.CookieName) == "" {
		c.CookieName = "signin_csrf"
	}
	if strings.TrimSpace(c.HeaderName) == "" {
		c.HeaderName = "X-CSRF-Token"
	}
}
