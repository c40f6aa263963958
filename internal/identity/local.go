package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// localUser is one entry of the local users file.
type localUser struct {
	UID          string `yaml:"uid"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	Disabled     bool   `yaml:"disabled"`
}

type localUsersFile struct {
	Users []localUser `yaml:"users"`
}

type localClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalConfig configures LocalProvider.
type LocalConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// LocalProvider checks credentials against an in-memory user list and issues HS256 tokens.
// It stands in for Firebase during development.
type LocalProvider struct {
	users  map[string]localUser
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// dummyHash keeps the response time of unknown emails close to that of wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("signin-local-dummy"), bcrypt.MinCost)

// NewLocalProvider builds a provider from the YAML users document in r. A nil reader yields
// a provider without users.
func NewLocalProvider(r io.Reader, cfg LocalConfig) (*LocalProvider, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("local token secret is required")
	}
	p := &LocalProvider{
		users:  make(map[string]localUser),
		secret: append([]byte(nil), cfg.Secret...),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	if p.ttl <= 0 {
		p.ttl = time.Hour
	}
	if p.now == nil {
		p.now = time.Now
	}
	if r == nil {
		return p, nil
	}

	var file localUsersFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode local users: %w", err)
	}
	for i, u := range file.Users {
		key := normalizeEmail(u.Email)
		if key == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("local user %d: email and password_hash are required", i)
		}
		if _, dup := p.users[key]; dup {
			return nil, fmt.Errorf("local user %d: duplicate email %s", i, key)
		}
		if u.UID == "" {
			u.UID = key
		}
		p.users[key] = u
	}
	return p, nil
}

// NewLocalProviderFromFile reads the users document at path. An empty path yields a provider
// without users.
func NewLocalProviderFromFile(path string, cfg LocalConfig) (*LocalProvider, error) {
	if strings.TrimSpace(path) == "" {
		return NewLocalProvider(nil, cfg)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open local users: %w", err)
	}
	defer f.Close()
	return NewLocalProvider(f, cfg)
}

// Authenticate compares password against the stored bcrypt hash.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(ReasonProviderUnavailable, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}
	key := normalizeEmail(email)
	if key == "" || password == "" {
		return nil, NewError(ReasonMissingCredentials, ErrMissingCredentials)
	}

	u, ok := p.users[key]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, NewError(ReasonInvalidCredentials, ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, NewError(ReasonInvalidCredentials, ErrInvalidCredentials)
	}
	if u.Disabled {
		return nil, NewError(ReasonUserDisabled, ErrInvalidCredentials)
	}

	now := p.now()
	expires := now.Add(p.ttl)
	claims := localClaims{
		Email: key,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, NewError(ReasonProviderUnavailable, fmt.Errorf("%w: sign token: %v", ErrProviderUnavailable, err))
	}

	return &Credential{
		User:      User{UID: u.UID, Email: key, AccessToken: signed},
		ExpiresAt: expires.UTC(),
	}, nil
}

// Verify parses a token issued by Authenticate.
func (p *LocalProvider) Verify(_ context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewError(ReasonMissingCredentials, ErrMissingCredentials)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	if p.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(p.issuer))
	}

	var claims localClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, NewError(ReasonTokenExpired, fmt.Errorf("%w: %v", ErrTokenInvalid, err))
		}
		return nil, NewError(ReasonTokenInvalid, fmt.Errorf("%w: %v", ErrTokenInvalid, err))
	}

	u, ok := p.users[normalizeEmail(claims.Email)]
	if !ok || u.Disabled || u.UID != claims.Subject {
		return nil, NewError(ReasonTokenInvalid, ErrTokenInvalid)
	}
	return &User{UID: claims.Subject, Email: claims.Email, AccessToken: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
