package signin

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"finitefield.org/signin/internal/form"
	"finitefield.org/signin/internal/i18n"
	signincore "finitefield.org/signin/internal/signin"
)

var testPaths = Paths{Action: "/", SignUp: "/sign-up"}

func translator(t *testing.T, lang string) i18n.Translator {
	t.Helper()
	bundle, err := i18n.Load(i18n.Locales(), "pt", []string{"pt", "en"})
	require.NoError(t, err)
	return bundle.For(lang)
}

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf), "component must render without error")

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err, "html must parse")
	return doc
}

func TestFormRendersPristineState(t *testing.T) {
	t.Parallel()

	view := BuildForm(signincore.State{Phase: signincore.PhaseIdle}, translator(t, "pt"), testPaths, "csrf-123")
	doc := render(t, Form(view))

	formSel := doc.Find("form#" + FormID)
	require.Equal(t, 1, formSel.Length())
	require.Equal(t, "/", formSel.AttrOr("hx-post", ""))
	require.Equal(t, "/", formSel.AttrOr("action", ""))
	require.Equal(t, "csrf-123", doc.Find(`input[name="_csrf"]`).AttrOr("value", ""))

	email := doc.Find("input#email")
	require.Equal(t, "email", email.AttrOr("type", ""))
	require.Equal(t, "email@exemplo.com", email.AttrOr("placeholder", ""))
	require.Equal(t, "input", email.AttrOr("class", ""))

	password := doc.Find("input#password")
	require.Equal(t, "password", password.AttrOr("type", ""))
	require.Equal(t, "Senha", password.AttrOr("placeholder", ""))

	require.Equal(t, 0, doc.Find("[data-field-error]").Length(), "no field errors before submit")
	require.Equal(t, 0, doc.Find("[data-auth-error]").Length(), "no auth error before submit")

	button := doc.Find(`button[type="submit"]`)
	_, disabled := button.Attr("disabled")
	require.False(t, disabled)
	require.Equal(t, "btn btn--primary", button.AttrOr("class", ""))
	require.Equal(t, "Entrar", strings.TrimSpace(button.Find(".btn__label").Text()))

	require.Zero(t, doc.Find("[data-signup-link]").Length(), "the sign-up prompt belongs to the page")
	_, posts := email.Attr("hx-post")
	require.False(t, posts, "inputs stay quiet before the first submit")
}

func TestFormRendersRequiredMessagesTogether(t *testing.T) {
	t.Parallel()

	state := signincore.State{
		Errors:    form.Validate(form.Credentials{}),
		Submitted: true,
	}
	doc := render(t, Form(BuildForm(state, translator(t, "pt"), testPaths, "")))

	require.Equal(t, "Email é obrigatório", strings.TrimSpace(doc.Find(`[data-field-error="email"]`).Text()))
	require.Equal(t, "Senha é obrigatória", strings.TrimSpace(doc.Find(`[data-field-error="password"]`).Text()))
	require.Equal(t, "input input--error", doc.Find("input#email").AttrOr("class", ""))
	require.Equal(t, "input input--error", doc.Find("input#password").AttrOr("class", ""))
	require.Equal(t, "true", doc.Find("input#email").AttrOr("aria-invalid", ""))
	require.Equal(t, "email-error", doc.Find("input#email").AttrOr("aria-describedby", ""))
}

func TestFormRevalidatesInputsAfterSubmit(t *testing.T) {
	t.Parallel()

	state := signincore.State{Errors: form.Validate(form.Credentials{}), Submitted: true}
	doc := render(t, Form(BuildForm(state, translator(t, "pt"), testPaths, "")))

	for _, id := range []string{"email", "password"} {
		input := doc.Find("input#" + id)
		require.Equal(t, "/", input.AttrOr("hx-post", ""), id)
		require.Equal(t, "input changed delay:300ms", input.AttrOr("hx-trigger", ""), id)
		require.Equal(t, "none", input.AttrOr("hx-swap", ""), id)
		require.Equal(t, `{"_intent":"validate"}`, input.AttrOr("hx-vals", ""), id)
	}
}

func TestFeedbackRendersOutOfBandSlots(t *testing.T) {
	t.Parallel()

	creds := form.Credentials{Email: "", Password: "longenough"}
	state := signincore.State{Errors: form.Validate(creds), Submitted: true}
	doc := render(t, Feedback(BuildForm(state, translator(t, "pt"), testPaths, "")))

	require.Zero(t, doc.Find("form").Length())
	require.Zero(t, doc.Find("input").Length())

	email := doc.Find("#email-feedback")
	require.Equal(t, "true", email.AttrOr("hx-swap-oob", ""))
	require.Equal(t, "email", email.AttrOr("data-for", ""))
	_, invalid := email.Attr("data-invalid")
	require.True(t, invalid)
	require.Equal(t, "Email é obrigatório", strings.TrimSpace(email.Find(`[data-field-error="email"]`).Text()))

	password := doc.Find("#password-feedback")
	require.Equal(t, "true", password.AttrOr("hx-swap-oob", ""))
	_, invalid = password.Attr("data-invalid")
	require.False(t, invalid)
	require.Zero(t, password.Find("[data-field-error]").Length(), "a cleared field empties its slot")
}

func TestFormShowsMinLengthWithoutEmailBorder(t *testing.T) {
	t.Parallel()

	creds := form.Credentials{Email: "a@b", Password: "short"}
	state := signincore.State{Email: creds.Email, Errors: form.Validate(creds), Submitted: true}
	doc := render(t, Form(BuildForm(state, translator(t, "pt"), testPaths, "")))

	require.Equal(t, "O email precisa ter pelo menos cinco caracteres",
		strings.TrimSpace(doc.Find(`[data-field-error="email"]`).Text()))
	require.Equal(t, "input", doc.Find("input#email").AttrOr("class", ""), "email border only marks the required rule")
	require.Equal(t, "a@b", doc.Find("input#email").AttrOr("value", ""))

	require.Equal(t, "A senha precisa ter pelo menos oito caracteres",
		strings.TrimSpace(doc.Find(`[data-field-error="password"]`).Text()))
	require.Equal(t, "input input--error", doc.Find("input#password").AttrOr("class", ""))
}

func TestFormNeverEchoesPassword(t *testing.T) {
	t.Parallel()

	view := BuildForm(signincore.State{Email: "ana@example.com", AuthError: true}, translator(t, "pt"), testPaths, "")
	doc := render(t, Form(view))

	_, hasValue := doc.Find("input#password").Attr("value")
	require.False(t, hasValue)
}

func TestFormShowsAuthError(t *testing.T) {
	t.Parallel()

	state := signincore.State{Phase: signincore.PhaseFailed, Email: "ana@example.com", AuthError: true}
	doc := render(t, Form(BuildForm(state, translator(t, "pt"), testPaths, "")))

	alert := doc.Find("[data-auth-error]")
	require.Equal(t, 1, alert.Length())
	require.Equal(t, "alert", alert.AttrOr("role", ""))
	require.Equal(t, "Credenciais inválidas. Por favor, tente novamente.", strings.TrimSpace(alert.Text()))
	require.Equal(t, 0, doc.Find("[data-field-error]").Length())
}

func TestFormRendersBusyState(t *testing.T) {
	t.Parallel()

	state := signincore.State{Phase: signincore.PhaseSubmitting, Submitting: true, Email: "ana@example.com"}
	doc := render(t, Form(BuildForm(state, translator(t, "pt"), testPaths, "")))

	button := doc.Find(`button[type="submit"]`)
	_, disabled := button.Attr("disabled")
	require.True(t, disabled)
	require.Equal(t, "true", button.AttrOr("aria-busy", ""))
	require.Equal(t, "btn btn--primary btn--busy", button.AttrOr("class", ""))
	require.Equal(t, "Entrando...", strings.TrimSpace(button.Find(".btn__label").Text()))
	require.Equal(t, 0, doc.Find("[data-auth-error]").Length())
}

func TestFormTranslatesToEnglish(t *testing.T) {
	t.Parallel()

	state := signincore.State{Errors: form.Validate(form.Credentials{}), AuthError: true}
	doc := render(t, Form(BuildForm(state, translator(t, "en"), testPaths, "")))

	require.Equal(t, "Email is required", strings.TrimSpace(doc.Find(`[data-field-error="email"]`).Text()))
	require.Equal(t, "Sign in", strings.TrimSpace(doc.Find(".btn__label").Text()))
}

func TestPageWrapsFormInLayout(t *testing.T) {
	t.Parallel()

	data := BuildPage(signincore.State{}, translator(t, "en"), testPaths, "csrf-xyz")
	doc := render(t, Page(data))

	require.Equal(t, "en", doc.Find("html").AttrOr("lang", ""))
	require.Equal(t, "csrf-xyz", doc.Find(`meta[name="csrf-token"]`).AttrOr("content", ""))
	require.Contains(t, doc.Find("title").Text(), data.Title)
	require.Equal(t, data.AppTitle, strings.TrimSpace(doc.Find("h1").Text()))
	require.Equal(t, 1, doc.Find("[data-signin-page] form#"+FormID).Length())
}

func TestPageRendersSignUpPromptOutsideForm(t *testing.T) {
	t.Parallel()

	doc := render(t, Page(BuildPage(signincore.State{}, translator(t, "pt"), testPaths, "")))

	link := doc.Find("[data-signin-page] > p.signup [data-signup-link]")
	require.Equal(t, "/sign-up", link.AttrOr("href", ""))
	require.Equal(t, "Crie uma agora!", strings.TrimSpace(link.Text()))
	require.Contains(t, doc.Find("p.signup").Text(), "Não possui uma conta?")
	require.Zero(t, doc.Find("form#"+FormID+" [data-signup-link]").Length())
}

func TestPageRendersNoticeOnlyWhenSet(t *testing.T) {
	t.Parallel()

	tr := translator(t, "pt")
	data := BuildPage(signincore.State{}, tr, testPaths, "")
	require.Zero(t, render(t, Page(data)).Find("[data-notice]").Length())

	data.Notice = tr.T("signin.notice.expired")
	notice := render(t, Page(data)).Find("[data-notice]")
	require.Equal(t, "Sua sessão expirou. Entre novamente.", strings.TrimSpace(notice.Text()))
	require.Equal(t, "status", notice.AttrOr("role", ""))
}
