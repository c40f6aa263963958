// Package home renders the landing page shown after sign-in.
package home

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/signin/internal/i18n"
	"finitefield.org/signin/internal/templates/helpers"
	"finitefield.org/signin/internal/templates/layout"
)

// PageData encapsulates rendering state for the home page.
type PageData struct {
	Title         string
	AppTitle      string
	Lang          string
	CSRFToken     string
	Email         string
	Greeting      string
	SignOutLabel  string
	SignOutAction string
}

// BuildPage fills PageData from the translator and the signed-in user.
func BuildPage(tr i18n.Translator, email, signOutAction, csrfToken string) PageData {
	return PageData{
		Title:         tr.T("home.page_title"),
		AppTitle:      tr.T("app.title"),
		Lang:          tr.Lang(),
		CSRFToken:     csrfToken,
		Email:         email,
		Greeting:      tr.T("home.greeting"),
		SignOutLabel:  tr.T("home.sign_out"),
		SignOutAction: signOutAction,
	}
}

// Page renders the home document.
func Page(data PageData) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := helpers.NewHTML(w)
		h.Raw(`<section class="card" data-home-page>`)
		h.Raw(`<h1 class="card__title">`).Text(data.AppTitle).Raw("</h1>")
		h.Raw(`<p class="greeting">`).Text(data.Greeting).Raw(" ")
		h.Raw(`<strong data-user-email>`).Text(data.Email).Raw("</strong></p>")
		h.Raw(`<form method="post"`).URLAttr("action", data.SignOutAction).BoolAttr("data-sign-out", true).Raw(">")
		h.Raw(`<input type="hidden" name="_csrf"`).Attr("value", data.CSRFToken).Raw(">")
		h.Raw(`<button type="submit"`).Attr("class", helpers.ButtonClass(false)).Raw(">").
			Text(data.SignOutLabel).Raw("</button>")
		h.Raw("</form></section>")
		return h.Err()
	})
	return layout.App(layout.Page{
		Title:     data.Title,
		Lang:      data.Lang,
		AppTitle:  data.AppTitle,
		CSRFToken: data.CSRFToken,
	}, body)
}
