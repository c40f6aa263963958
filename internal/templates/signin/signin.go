// Package signin renders the sign-in page and its form fragment.
package signin

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/signin/internal/templates/helpers"
	"finitefield.org/signin/internal/templates/layout"
)

// FormID is the DOM id of the form fragment; htmx swaps it in place.
const FormID = "signin-form"

// Page renders the full sign-in document.
func Page(data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := helpers.NewHTML(w)
		h.Raw(`<section class="card" data-signin-page>`)
		h.Raw(`<h1 class="card__title">`).Text(data.AppTitle).Raw("</h1>")
		if data.Notice != "" {
			h.Raw(`<p class="notice" role="status" data-notice>`).Text(data.Notice).Raw("</p>")
		}
		h.Component(ctx, Form(data.Form))
		h.Raw(`<p class="signup">`).Text(data.SignUpPrompt).Raw(" ")
		h.Raw("<a").URLAttr("href", data.SignUpHref).BoolAttr("data-signup-link", true).Raw(">").
			Text(data.SignUpLabel).Raw("</a></p>")
		h.Raw("</section>")
		return h.Err()
	})
	return layout.App(layout.Page{
		Title:     data.Title,
		Lang:      data.Lang,
		AppTitle:  data.AppTitle,
		CSRFToken: data.CSRFToken,
	}, body)
}

// Form renders the form fragment returned to htmx requests.
func Form(view FormView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := helpers.NewHTML(w)
		h.Raw("<form").
			Attr("id", FormID).
			Attr("class", "signin-form").
			Attr("method", "post").
			URLAttr("action", view.Action).
			URLAttr("hx-post", view.Action).
			Attr("hx-target", "this").
			Attr("hx-swap", "outerHTML").
			Attr("hx-disabled-elt", "find button[type='submit']").
			BoolAttr("novalidate", true).
			BoolAttr("data-signin-form", true).
			Raw(">")

		h.Raw(`<input type="hidden"`).Attr("name", CSRFField).Attr("value", view.CSRFToken).Raw(">")

		field(h, view, view.Email)
		field(h, view, view.Password)

		if view.AuthError != "" {
			h.Raw(`<p class="auth-error" role="alert" data-auth-error>`).Text(view.AuthError).Raw("</p>")
		}

		label := view.SubmitLabel
		if view.Submitting {
			label = view.SubmittingLabel
		}
		h.Raw(`<button type="submit"`).
			Attr("class", helpers.ButtonClass(view.Submitting)).
			BoolAttr("disabled", view.Submitting).
			AttrIf(view.Submitting, "aria-busy", "true").
			Raw(">").
			Raw(`<span class="btn__label">`).Text(label).Raw("</span>").
			Raw(`<span class="btn__busy" aria-hidden="true">`).Text(view.SubmittingLabel).Raw("</span>").
			Raw("</button>")

		h.Raw("</form>")
		return h.Err()
	})
}

// Feedback renders only the field error slots as out-of-band swaps, answering a re-validation post.
func Feedback(view FormView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := helpers.NewHTML(w)
		feedback(h, view.Email, true)
		feedback(h, view.Password, true)
		return h.Err()
	})
}

func field(h *helpers.HTML, view FormView, f FieldView) {
	h.Raw(`<div class="field">`)
	h.Raw("<input").
		Attr("id", f.ID).
		Attr("name", f.Name).
		Attr("type", f.Type).
		Attr("placeholder", f.Placeholder).
		Attr("autocomplete", f.Autocomplete).
		AttrIf(f.Value != "", "value", f.Value).
		Attr("class", helpers.InputClass(f.Invalid)).
		AttrIf(f.Message != "", "aria-invalid", "true").
		AttrIf(f.Message != "", "aria-describedby", f.ID+"-error")
	if view.Revalidate {
		h.URLAttr("hx-post", view.Action).
			Attr("hx-trigger", "input changed delay:300ms").
			Attr("hx-swap", "none").
			Attr("hx-sync", "closest form:abort").
			Attr("hx-vals", `{"`+IntentField+`":"`+IntentValidate+`"}`)
	}
	h.Raw(">")
	feedback(h, f, false)
	h.Raw("</div>")
}

func feedback(h *helpers.HTML, f FieldView, oob bool) {
	errID := f.ID + "-error"
	h.Raw(`<div class="field__feedback"`).
		Attr("id", f.ID+"-feedback").
		Attr("data-for", f.ID).
		BoolAttr("data-invalid", f.Invalid).
		AttrIf(oob, "hx-swap-oob", "true").
		Raw(">")
	if f.Message != "" {
		h.Raw(`<p class="field-error"`).Attr("id", errID).Attr("data-field-error", f.Name).Raw(">").
			Text(f.Message).Raw("</p>")
	}
	h.Raw("</div>")
}
