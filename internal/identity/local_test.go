package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func usersDoc(t *testing.T) string {
	t.Helper()
	anaHash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	beaHash, err := bcrypt.GenerateFromPassword([]byte("password456"), bcrypt.MinCost)
	require.NoError(t, err)

	return fmt.Sprintf(`users:
  - uid: user-ana
    email: Ana@Example.com
    password_hash: %q
  - email: bea@example.com
    password_hash: %q
    disabled: true
`, anaHash, beaHash)
}

func newLocal(t *testing.T, now func() time.Time) *LocalProvider {
	t.Helper()
	p, err := NewLocalProvider(strings.NewReader(usersDoc(t)), LocalConfig{
		Secret: []byte("test-secret"),
		Issuer: "signin-local",
		TTL:    time.Hour,
		Now:    now,
	})
	require.NoError(t, err)
	return p
}

func TestLocalProviderAuthenticateAndVerify(t *testing.T) {
	now := time.Now()
	p := newLocal(t, func() time.Time { return now })

	cred, err := p.Authenticate(context.Background(), " ana@example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "user-ana", cred.User.UID)
	assert.Equal(t, "ana@example.com", cred.User.Email)
	assert.NotEmpty(t, cred.User.AccessToken)
	assert.WithinDuration(t, now.Add(time.Hour), cred.ExpiresAt, time.Second)

	user, err := p.Verify(context.Background(), cred.User.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-ana", user.UID)
	assert.Equal(t, "ana@example.com", user.Email)
}

func TestLocalProviderRejectsBadCredentials(t *testing.T) {
	p := newLocal(t, nil)

	_, err := p.Authenticate(context.Background(), "ana@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, ReasonInvalidCredentials, ReasonOf(err))

	_, err = p.Authenticate(context.Background(), "nobody@example.com", "secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.Authenticate(context.Background(), "bea@example.com", "password456")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, ReasonUserDisabled, ReasonOf(err))

	_, err = p.Authenticate(context.Background(), "", "secret123")
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLocalProviderHonoursCancelledContext(t *testing.T) {
	p := newLocal(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Authenticate(ctx, "ana@example.com", "secret123")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestLocalProviderVerifyRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	clock := issued
	p := newLocal(t, func() time.Time { return clock })

	cred, err := p.Authenticate(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)

	clock = time.Now()
	_, err = p.Verify(context.Background(), cred.User.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, ReasonTokenExpired, ReasonOf(err))
}

func TestLocalProviderVerifyRejectsForeignTokens(t *testing.T) {
	p := newLocal(t, nil)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, localClaims{
		Email: "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-ana",
			Issuer:    "signin-local",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = p.Verify(context.Background(), forged)
	require.ErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, ReasonTokenInvalid, ReasonOf(err))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-ana"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = p.Verify(context.Background(), unsigned)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = p.Verify(context.Background(), " ")
	assert.Equal(t, ReasonMissingCredentials, ReasonOf(err))
}

func TestNewLocalProviderValidatesInput(t *testing.T) {
	_, err := NewLocalProvider(nil, LocalConfig{})
	require.Error(t, err)

	_, err = NewLocalProvider(strings.NewReader("users:\n  - email: a@b.co\n"), LocalConfig{Secret: []byte("s")})
	require.Error(t, err)

	dup := "users:\n  - email: a@b.co\n    password_hash: x\n  - email: A@B.co\n    password_hash: y\n"
	_, err = NewLocalProvider(strings.NewReader(dup), LocalConfig{Secret: []byte("s")})
	require.Error(t, err)

	p, err := NewLocalProvider(strings.NewReader(""), LocalConfig{Secret: []byte("s")})
	require.NoError(t, err)
	_, err = p.Authenticate(context.Background(), "a@b.co", "whatever1")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestNewLocalProviderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(usersDoc(t)), 0o600))

	p, err := NewLocalProviderFromFile(path, LocalConfig{Secret: []byte("s")})
	require.NoError(t, err)
	_, err = p.Authenticate(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)

	_, err = NewLocalProviderFromFile(filepath.Join(t.TempDir(), "missing.yaml"), LocalConfig{Secret: []byte("s")})
	require.Error(t, err)

	_, err = NewLocalProviderFromFile("", LocalConfig{Secret: []byte("s")})
	require.NoError(t, err)
}
