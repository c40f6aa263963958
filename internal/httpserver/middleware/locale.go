package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"finitefield.org/signin/internal/i18n"
)

type localeContextKey string

const translatorContextKey localeContextKey = "locale.translator"

// Locale picks the message language for the request. An explicit ?lang= wins and is remembered
// in the session; otherwise the session choice, then Accept-Language.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	if bundle == nil {
		panic("locale: bundle is required")
	}
	supported := bundle.Supported()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, hasSession := SessionFromContext(r.Context())

			lang := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("lang")))
			switch {
			case lang != "" && slices.Contains(supported, lang):
				if hasSession {
					sess.SetLocale(lang)
				}
			case hasSession && slices.Contains(supported, sess.Locale()):
				lang = sess.Locale()
			default:
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}

			ctx := context.WithValue(r.Context(), translatorContextKey, bundle.For(lang))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TranslatorFromContext returns the request translator. Without the Locale middleware it
// returns a translator that echoes keys.
func TranslatorFromContext(ctx context.Context) i18n.Translator {
	if tr, ok := ctx.Value(translatorContextKey).(i18n.Translator); ok {
		return tr
	}
	return i18n.Translator{}
}
