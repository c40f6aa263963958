package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"finitefield.org/signin/internal/config"
	"finitefield.org/signin/internal/httpserver"
	"finitefield.org/signin/internal/httpserver/middleware"
	"finitefield.org/signin/internal/i18n"
	"finitefield.org/signin/internal/identity"
	"finitefield.org/signin/internal/observability"
	"finitefield.org/signin/internal/session"
	"finitefield.org/signin/internal/tokenstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("signin").With(zap.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise identity provider", zap.Error(err))
	}

	sessions, err := buildSessions(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise sessions", zap.Error(err))
	}

	tokens, health, cleanup, err := buildTokenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise token store", zap.Error(err))
	}
	defer cleanup()

	bundle, err := i18n.Load(i18n.Locales(), cfg.I18n.DefaultLocale, cfg.I18n.Locales)
	if err != nil {
		logger.Fatal("failed to load message catalogs", zap.Error(err))
	}

	srv, err := httpserver.New(httpserver.Config{
		Address: cfg.HTTP.Address,
		Paths: httpserver.Paths{
			SignIn:  cfg.HTTP.SignInPath,
			Home:    cfg.HTTP.HomePath,
			SignUp:  cfg.HTTP.SignUpPath,
			SignOut: cfg.HTTP.SignOutPath,
		},
		AppTitle:      cfg.AppTitle,
		Authenticator: provider,
		Verifier:      provider,
		Tokens:        tokens,
		Sessions:      sessions,
		Translations:  bundle,
		CSRF: middleware.CSRFConfig{
			CookieName: cfg.CSRF.CookieName,
			HeaderName: cfg.CSRF.HeaderName,
			Secure:     cfg.Session.CookieSecure,
		},
		Logger:       logger.Named("http"),
		Health:       health,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	})
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	serverLogger := logger.Named("http").With(zap.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	serverLogger.Info("sign-in server listening",
		zap.String("auth_provider", string(cfg.Auth.Provider)),
		zap.String("token_store", string(cfg.Tokens.Kind)),
	)

	<-ctx.Done()
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildProvider(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (identity.Provider, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderFirebase:
		provider, err := identity.NewFirebaseAuthenticator(ctx, cfg.Auth.Firebase)
		if err != nil {
			return nil, err
		}
		logger.Info("firebase authenticator enabled", zap.String("project", cfg.Auth.Firebase.ProjectID))
		return provider, nil
	default:
		secret := []byte(cfg.Auth.Local.TokenSecret)
		if len(secret) == 0 {
			logger.Warn("LOCAL_TOKEN_SECRET not set; generated an ephemeral secret, tokens will not survive restarts")
			secret = session.GenerateKey(32)
		}
		provider, err := identity.NewLocalProviderFromFile(cfg.Auth.Local.UsersFile, identity.LocalConfig{
			Secret: secret,
			Issuer: cfg.Auth.Local.Issuer,
			TTL:    cfg.Auth.Local.TokenTTL,
		})
		if err != nil {
			return nil, err
		}
		if !cfg.IsDevelopment() {
			logger.Warn("local authenticator enabled outside development")
		}
		logger.Info("local authenticator enabled", zap.String("users_file", cfg.Auth.Local.UsersFile))
		return provider, nil
	}
}

func buildSessions(cfg config.AppConfig, logger *zap.Logger) (*session.Manager, error) {
	hashKey := []byte(cfg.Session.HashKey)
	if len(hashKey) == 0 {
		logger.Warn("SESSION_HASH_KEY not set; generated an ephemeral key, sessions will not survive restarts")
		hashKey = session.GenerateKey(64)
	}
	var blockKey []byte
	if cfg.Session.BlockKey != "" {
		blockKey = []byte(cfg.Session.BlockKey)
	}
	return session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookieSecure: cfg.Session.CookieSecure,
		Lifetime:     cfg.Session.Lifetime,
		IdleTimeout:  cfg.Session.IdleTimeout,
	})
}

func buildTokenStore(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (tokenstore.Provider, func(context.Context) error, func(), error) {
	switch cfg.Tokens.Kind {
	case config.TokenStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Tokens.Redis.Addr,
			Password: cfg.Tokens.Redis.Password,
			DB:       cfg.Tokens.Redis.DB,
		})
		store := tokenstore.NewRedis(client, cfg.Tokens.Redis.KeyPrefix, cfg.Tokens.Redis.TokenTTL)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Tokens.Redis.Addr, err)
		}
		logger.Info("redis token store enabled", zap.String("addr", cfg.Tokens.Redis.Addr))
		return store, store.Ping, func() { _ = client.Close() }, nil
	case config.TokenStoreMemory:
		logger.Info("in-memory token store enabled")
		return tokenstore.NewMemory(), nil, func() {}, nil
	default:
		return tokenstore.SessionProvider{}, nil, func() {}, nil
	}
}
