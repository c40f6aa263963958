package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/signin/internal/identity"
	"finitefield.org/signin/internal/observability"
	"finitefield.org/signin/internal/tokenstore"
)

type authContextKey string

const userContextKey authContextKey = "auth.user"

// Auth resolves the access token kept for the session (or sent as a Bearer header), verifies it
// and attaches the user to the context. Anonymous requests are sent to the sign-in page.
func Auth(verifier identity.Verifier, tokens tokenstore.Provider, loginPath string) func(http.Handler) http.Handler {
	if verifier == nil {
		panic("auth: verifier is required")
	}
	if tokens == nil {
		panic("auth: token provider is required")
	}
	if loginPath == "" {
		loginPath = "/"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := ResolveUser(r, verifier, tokens)
			if err != nil {
				reason := identity.ReasonOf(err)
				if reason == "" {
					reason = identity.ReasonTokenInvalid
				}
				observability.FromContext(r.Context()).Info("auth failure",
					zap.String("reason", reason),
					zap.Error(err),
				)
				if reason != identity.ReasonMissingCredentials {
					forgetToken(r, tokens)
				}
				handleUnauthorized(w, r, loginPath, reason)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveUser verifies the request's access token without enforcing authentication.
func ResolveUser(r *http.Request, verifier identity.Verifier, tokens tokenstore.Provider) (*identity.User, error) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = storedToken(r, tokens)
	}
	if strings.TrimSpace(token) == "" {
		return nil, identity.NewError(identity.ReasonMissingCredentials, identity.ErrMissingCredentials)
	}

	user, err := verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, identity.NewError(identity.ReasonTokenInvalid, identity.ErrTokenInvalid)
	}
	return user, nil
}

// UserFromContext retrieves the authenticated user if present.
func UserFromContext(ctx context.Context) (*identity.User, bool) {
	user, ok := ctx.Value(userContextKey).(*identity.User)
	return user, ok && user != nil
}

// TokenStoreFor returns the token store bound to the request's session.
func TokenStoreFor(r *http.Request, tokens tokenstore.Provider) (tokenstore.Store, bool) {
	sess, ok := SessionFromContext(r.Context())
	if !ok || tokens == nil {
		return nil, false
	}
	return tokens.For(sess), true
}

func storedToken(r *http.Request, tokens tokenstore.Provider) string {
	store, ok := TokenStoreFor(r, tokens)
	if !ok {
		return ""
	}
	token, err := store.GetItem(r.Context(), tokenstore.AccessTokenKey)
	if err != nil {
		if !errors.Is(err, tokenstore.ErrNotFound) {
			observability.FromContext(r.Context()).Warn("token store read failed", zap.Error(err))
		}
		return ""
	}
	return token
}

func forgetToken(r *http.Request, tokens tokenstore.Provider) {
	store, ok := TokenStoreFor(r, tokens)
	if !ok {
		return
	}
	if err := store.RemoveItem(r.Context(), tokenstore.AccessTokenKey); err != nil {
		observability.FromContext(r.Context()).Warn("token store cleanup failed", zap.Error(err))
	}
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func handleUnauthorized(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	redirectURL := loginPath
	if reason == identity.ReasonTokenExpired {
		if u, err := url.Parse(loginPath); err == nil {
			q := u.Query()
			q.Set("reason", "expired")
			u.RawQuery = q.Encode()
			redirectURL = u.String()
		}
	}

	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", redirectURL)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}
