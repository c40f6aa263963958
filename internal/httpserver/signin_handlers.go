package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/signin/internal/form"
	custommw "finitefield.org/signin/internal/httpserver/middleware"
	"finitefield.org/signin/internal/identity"
	"finitefield.org/signin/internal/observability"
	"finitefield.org/signin/internal/signin"
	"finitefield.org/signin/internal/templates/home"
	signinview "finitefield.org/signin/internal/templates/signin"
	"finitefield.org/signin/internal/templates/signup"
	"finitefield.org/signin/internal/tokenstore"
)

type signinHandlersConfig struct {
	Authenticator identity.Authenticator
	Verifier      identity.Verifier
	Tokens        tokenstore.Provider
	Paths         Paths
	AppTitle      string
}

type signinHandlers struct {
	authenticator identity.Authenticator
	verifier      identity.Verifier
	tokens        tokenstore.Provider
	paths         Paths
	appTitle      string
}

func newSigninHandlers(cfg signinHandlersConfig) *signinHandlers {
	if cfg.Authenticator == nil || cfg.Verifier == nil || cfg.Tokens == nil {
		panic("signin handlers: authenticator, verifier and token provider are required")
	}
	return &signinHandlers{
		authenticator: cfg.Authenticator,
		verifier:      cfg.Verifier,
		tokens:        cfg.Tokens,
		paths:         cfg.Paths,
		appTitle:      cfg.AppTitle,
	}
}

// SignInForm renders the pristine form, or sends already signed-in users home.
func (h *signinHandlers) SignInForm(w http.ResponseWriter, r *http.Request) {
	if user, err := custommw.ResolveUser(r, h.verifier, h.tokens); err == nil && user != nil {
		http.Redirect(w, r, h.paths.Home, http.StatusFound)
		return
	}
	h.renderSignIn(w, r, signin.State{Phase: signin.PhaseIdle}, http.StatusOK)
}

// SignInSubmit runs one submit cycle through a request-scoped controller. Posts carrying the
// validate intent only re-validate the fields and answer with their error slots.
func (h *signinHandlers) SignInSubmit(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		logger.Info("sign-in form unreadable", zap.Error(err))
		h.renderSignIn(w, r, signin.State{Phase: signin.PhaseIdle}, http.StatusBadRequest)
		return
	}

	store, ok := custommw.TokenStoreFor(r, h.tokens)
	if !ok {
		logger.Error("sign-in without session")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	validateOnly := r.PostFormValue(signinview.IntentField) == signinview.IntentValidate

	var target string
	ctrl, err := signin.New(signin.Options{
		Authenticator: h.authenticator,
		Store:         store,
		Navigator:     signin.NavigatorFunc(func(path string) { target = path }),
		HomePath:      h.paths.Home,
		Submitted:     validateOnly,
	})
	if err != nil {
		logger.Error("sign-in controller init failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer ctrl.Close()

	creds := form.Credentials{
		Email:    r.PostFormValue(string(form.FieldEmail)),
		Password: r.PostFormValue(string(form.FieldPassword)),
	}
	if validateOnly {
		h.renderFeedback(w, r, ctrl.Input(creds))
		return
	}

	state := ctrl.Submit(r.Context(), creds)

	switch {
	case target != "":
		custommw.Redirect(w, r, target)
	case state.AuthError:
		h.renderSignIn(w, r, state, http.StatusUnauthorized)
	default:
		h.renderSignIn(w, r, state, http.StatusUnprocessableEntity)
	}
}

// SignUp renders the registration placeholder.
func (h *signinHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	tr := custommw.TranslatorFromContext(r.Context())
	data := signup.BuildPage(tr, h.paths.SignIn)
	if h.appTitle != "" {
		data.AppTitle = h.appTitle
	}
	templ.Handler(signup.Page(data)).ServeHTTP(w, r)
}

// Home renders the landing page for the authenticated user.
func (h *signinHandlers) Home(w http.ResponseWriter, r *http.Request) {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, h.paths.SignIn, http.StatusFound)
		return
	}
	tr := custommw.TranslatorFromContext(r.Context())
	data := home.BuildPage(tr, user.Email, h.paths.SignOut, custommw.CSRFTokenFromContext(r.Context()))
	if h.appTitle != "" {
		data.AppTitle = h.appTitle
	}
	templ.Handler(home.Page(data)).ServeHTTP(w, r)
}

// SignOut forgets the access token, ends the session and returns to the sign-in page.
func (h *signinHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if store, ok := custommw.TokenStoreFor(r, h.tokens); ok {
		if err := store.RemoveItem(r.Context(), tokenstore.AccessTokenKey); err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
			observability.FromContext(r.Context()).Warn("sign-out token cleanup failed", zap.Error(err))
		}
	}
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.Destroy()
	}
	custommw.Redirect(w, r, h.signInURLWithParams(map[string]string{"status": "signed_out"}))
}

func (h *signinHandlers) renderSignIn(w http.ResponseWriter, r *http.Request, state signin.State, status int) {
	tr := custommw.TranslatorFromContext(r.Context())
	csrfToken := custommw.CSRFTokenFromContext(r.Context())
	paths := signinview.Paths{Action: h.paths.SignIn, SignUp: h.paths.SignUp}

	var component templ.Component
	if custommw.IsHTMXRequest(r.Context()) && r.Method == http.MethodPost {
		component = signinview.Form(signinview.BuildForm(state, tr, paths, csrfToken))
	} else {
		data := signinview.BuildPage(state, tr, paths, csrfToken)
		if h.appTitle != "" {
			data.AppTitle = h.appTitle
		}
		if key := noticeKeyFor(r.URL.Query()); key != "" {
			data.Notice = tr.T(key)
		}
		component = signinview.Page(data)
	}
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *signinHandlers) renderFeedback(w http.ResponseWriter, r *http.Request, state signin.State) {
	tr := custommw.TranslatorFromContext(r.Context())
	paths := signinview.Paths{Action: h.paths.SignIn, SignUp: h.paths.SignUp}
	view := signinview.BuildForm(state, tr, paths, custommw.CSRFTokenFromContext(r.Context()))
	templ.Handler(signinview.Feedback(view)).ServeHTTP(w, r)
}

func noticeKeyFor(q url.Values) string {
	if q.Get("status") == "signed_out" {
		return "signin.notice.signed_out"
	}
	switch q.Get("reason") {
	case "expired", identity.ReasonTokenExpired:
		return "signin.notice.expired"
	default:
		return ""
	}
}

func (h *signinHandlers) signInURLWithParams(params map[string]string) string {
	parsed, err := url.Parse(h.paths.SignIn)
	if err != nil {
		return h.paths.SignIn
	}
	q := parsed.Query()
	for key, val := range params {
		if val == "" {
			continue
		}
		q.Set(key, val)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
