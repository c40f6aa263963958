package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// AppConfig is the runtime configuration, loaded from environment variables with
// github.com/caarlos0/env struct tags. Auth and storage settings live in auth.go and
// storage.go.
type AppConfig struct {
	HTTP        HTTPConfig
	Auth        AuthConfig
	Tokens      TokenStoreConfig
	Session     SessionConfig `envPrefix:"SESSION_"`
	CSRF        CSRFConfig    `envPrefix:"CSRF_"`
	I18n        I18nConfig    `envPrefix:"SIGNIN_"`
	LogLevel    string        `env:"LOG_LEVEL"          envDefault:"info"`
	Environment string        `env:"SIGNIN_ENVIRONMENT" envDefault:"Development"`
	AppTitle    string        `env:"SIGNIN_APP_TITLE"`
}

// HTTPConfig configures the listener and the paths the form navigates between.
type HTTPConfig struct {
	Address      string        `env:"SIGNIN_HTTP_ADDR"     envDefault:":8080"`
	SignInPath   string        `env:"SIGNIN_PATH"          envDefault:"/"`
	HomePath     string        `env:"SIGNIN_HOME_PATH"     envDefault:"/home"`
	SignUpPath   string        `env:"SIGNIN_SIGNUP_PATH"   envDefault:"/sign-up"`
	SignOutPath  string        `env:"SIGNIN_SIGNOUT_PATH"  envDefault:"/sign-out"`
	ReadTimeout  time.Duration `env:"SIGNIN_READ_TIMEOUT"  envDefault:"10s"`
	WriteTimeout time.Duration `env:"SIGNIN_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"SIGNIN_IDLE_TIMEOUT"  envDefault:"60s"`
}

// I18nConfig selects the message catalogs.
type I18nConfig struct {
	DefaultLocale string   `env:"DEFAULT_LOCALE" envDefault:"pt"`
	Locales       []string `env:"LOCALES"        envDefault:"pt,en" envSeparator:","`
}

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	envFile   string
	envMap    map[string]string
	systemEnv bool
}

// WithEnvFile reads variables from the given dotenv file. An empty path disables it;
// a missing file is ignored.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// WithEnvMap overlays explicit values on top of every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loadOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loadOptions) { o.systemEnv = false }
}

// Load assembles configuration from the dotenv file, the process environment and any
// explicit overrides (later sources win), then sanitises and validates it.
func Load(opts ...Option) (AppConfig, error) {
	o := loadOptions{envFile: defaultEnvFile, systemEnv: true}
	for _, opt := range opts {
		opt(&o)
	}

	environ := map[string]string{}
	if o.envFile != "" {
		values, err := godotenv.Read(o.envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("load %s: %w", o.envFile, err)
		}
		for k, v := range values {
			environ[k] = v
		}
	}
	if o.systemEnv {
		for k, v := range env.ToMap(os.Environ()) {
			environ[k] = v
		}
	}
	for k, v := range o.envMap {
		environ[k] = v
	}

	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return AppConfig{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Sanitize applies guard rails to values loaded from the environment.
func (c *AppConfig) Sanitize() {
	c.HTTP.SignInPath = normalizePath(c.HTTP.SignInPath, "/")
	c.HTTP.HomePath = normalizePath(c.HTTP.HomePath, "/home")
	c.HTTP.SignUpPath = normalizePath(c.HTTP.SignUpPath, "/sign-up")
	c.HTTP.SignOutPath = normalizePath(c.HTTP.SignOutPath, "/sign-out")
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout <= 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}

	c.I18n.DefaultLocale = strings.ToLower(strings.TrimSpace(c.I18n.DefaultLocale))
	locales := c.I18n.Locales[:0]
	for _, l := range c.I18n.Locales {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			locales = append(locales, l)
		}
	}
	c.I18n.Locales = locales
	if c.I18n.DefaultLocale == "" {
		c.I18n.DefaultLocale = "pt"
	}

	c.Environment = strings.TrimSpace(c.Environment)
	if c.Environment == "" {
		c.Environment = "Development"
	}

	c.Auth.Sanitize()
	c.Tokens.Sanitize()
	c.Session.Sanitize()
	c.CSRF.Sanitize()
}

// ValidationError lists the fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c AppConfig) Validate() error {
	var fields []string
	fields = append(fields, c.Auth.missing()...)
	fields = append(fields, c.Tokens.missing()...)
	fields = append(fields, c.Session.missing()...)
	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

// IsDevelopment reports whether the deployment label is the development default.
func (c AppConfig) IsDevelopment() bool {
	switch strings.ToLower(c.Environment) {
	case "development", "dev", "local":
		return true
	default:
		return false
	}
}

func normalizePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}
