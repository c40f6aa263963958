package signin

import (
	"finitefield.org/signin/internal/form"
	"finitefield.org/signin/internal/i18n"
	signincore "finitefield.org/signin/internal/signin"
)

// CSRFField is the form field carrying the CSRF token.
const CSRFField = "_csrf"

// IntentField marks background posts that only re-validate the fields.
const (
	IntentField    = "_intent"
	IntentValidate = "validate"
)

// FieldView is the rendering state of one input.
type FieldView struct {
	ID           string
	Name         string
	Type         string
	Value        string
	Placeholder  string
	Autocomplete string
	Message      string
	// Invalid toggles the error border.
	Invalid bool
}

// FormView is everything the form fragment renders.
type FormView struct {
	Action          string
	CSRFToken       string
	Email           FieldView
	Password        FieldView
	AuthError       string
	Submitting      bool
	SubmitLabel     string
	SubmittingLabel string
	// Revalidate is set once the form has been submitted; inputs then post every change.
	Revalidate bool
}

// PageData encapsulates rendering state for the sign-in screen.
type PageData struct {
	Title     string
	AppTitle  string
	Lang      string
	CSRFToken string
	// Notice is an informational banner above the form (signed out, session expired).
	Notice string
	Form   FormView

	SignUpPrompt string
	SignUpLabel  string
	SignUpHref   string
}

// Paths are the routes the form links to.
type Paths struct {
	Action string
	SignUp string
}

// BuildForm projects controller state onto the form view. The password is never echoed.
func BuildForm(state signincore.State, tr i18n.Translator, paths Paths, csrfToken string) FormView {
	view := FormView{
		Action:          paths.Action,
		CSRFToken:       csrfToken,
		Submitting:      state.Submitting,
		SubmitLabel:     tr.T("signin.submit"),
		SubmittingLabel: tr.T("signin.submitting"),
		Revalidate:      state.Submitted,
		Email: FieldView{
			ID:           "email",
			Name:         string(form.FieldEmail),
			Type:         "email",
			Value:        state.Email,
			Placeholder:  tr.T("signin.email.placeholder"),
			Autocomplete: "email",
		},
		Password: FieldView{
			ID:           "password",
			Name:         string(form.FieldPassword),
			Type:         "password",
			Placeholder:  tr.T("signin.password.placeholder"),
			Autocomplete: "current-password",
		},
	}

	if rule, ok := state.Errors.First(form.FieldEmail); ok {
		view.Email.Message = tr.T(form.MessageKey(form.FieldEmail, rule))
		view.Email.Invalid = rule == form.RuleRequired
	}
	if rule, ok := state.Errors.First(form.FieldPassword); ok {
		view.Password.Message = tr.T(form.MessageKey(form.FieldPassword, rule))
		view.Password.Invalid = true
	}
	if state.AuthError && !state.Submitting {
		view.AuthError = tr.T("signin.auth_error")
	}
	return view
}

// BuildPage wraps the form view with page-level details.
func BuildPage(state signincore.State, tr i18n.Translator, paths Paths, csrfToken string) PageData {
	return PageData{
		Title:     tr.T("signin.page_title"),
		AppTitle:  tr.T("app.title"),
		Lang:      tr.Lang(),
		CSRFToken: csrfToken,
		Form:      BuildForm(state, tr, paths, csrfToken),

		SignUpPrompt: tr.T("signin.signup_prompt"),
		SignUpLabel:  tr.T("signin.signup_link"),
		SignUpHref:   paths.SignUp,
	}
}
