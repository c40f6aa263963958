package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthProvider selects the identity provider the form delegates to.
type AuthProvider string

const (
	// AuthProviderFirebase signs in against Firebase Authentication.
	AuthProviderFirebase AuthProvider = "firebase"
	// AuthProviderLocal checks a YAML user list and issues local tokens (development only).
	AuthProviderLocal AuthProvider = "local"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthProvider.
func (a *AuthProvider) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "firebase", "local":
		*a = AuthProvider(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthProvider: %q (valid options: firebase, local)", v)
	}
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string        `env:"PROJECT_ID"`
	APIKey          string        `env:"API_KEY"`
	CredentialsFile string        `env:"CREDENTIALS_FILE"`
	Timeout         time.Duration `env:"TIMEOUT"          envDefault:"10s"`
}

// LocalAuthConfig configures the development authenticator.
type LocalAuthConfig struct {
	UsersFile   string        `env:"USERS_FILE"`
	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL"    envDefault:"1h"`
	Issuer      string        `env:"TOKEN_ISSUER" envDefault:"signin-local"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	Provider AuthProvider    `env:"AUTH_PROVIDER" envDefault:"local"`
	Firebase FirebaseConfig  `envPrefix:"FIREBASE_"`
	Local    LocalAuthConfig `envPrefix:"LOCAL_"`
}

// Sanitize trims values and restores defaults for non-positive durations.
func (a *AuthConfig) Sanitize() {
	a.Firebase.ProjectID = strings.TrimSpace(a.Firebase.ProjectID)
	a.Firebase.APIKey = strings.TrimSpace(a.Firebase.APIKey)
	a.Firebase.CredentialsFile = strings.TrimSpace(a.Firebase.CredentialsFile)
	if a.Firebase.Timeout <= 0 {
		a.Firebase.Timeout = 10 * time.Second
	}
	a.Local.UsersFile = strings.TrimSpace(a.Local.UsersFile)
	if a.Local.TokenTTL <= 0 {
		a.Local.TokenTTL = time.Hour
	}
	if strings.TrimSpace(a.Local.Issuer) == "" {
		a.Local.Issuer = "signin-local"
	}
}

func (a AuthConfig) missing() []string {
	var fields []string
	switch a.Provider {
	case AuthProviderFirebase:
		if a.Firebase.ProjectID == "" {
			fields = append(fields, "FIREBASE_PROJECT_ID")
		}
		if a.Firebase.APIKey == "" {
			fields = append(fields, "FIREBASE_API_KEY")
		}
	}
	return fields
}
