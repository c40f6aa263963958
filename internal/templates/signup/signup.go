// Package signup renders the placeholder registration page.
package signup

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/signin/internal/i18n"
	"finitefield.org/signin/internal/templates/helpers"
	"finitefield.org/signin/internal/templates/layout"
)

// PageData encapsulates rendering state for the sign-up page.
type PageData struct {
	Title     string
	AppTitle  string
	Lang      string
	Body      string
	BackLabel string
	BackHref  string
}

// BuildPage fills PageData from the translator.
func BuildPage(tr i18n.Translator, signInPath string) PageData {
	return PageData{
		Title:     tr.T("signup.page_title"),
		AppTitle:  tr.T("app.title"),
		Lang:      tr.Lang(),
		Body:      tr.T("signup.body"),
		BackLabel: tr.T("signup.back"),
		BackHref:  signInPath,
	}
}

// Page renders the sign-up document.
func Page(data PageData) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := helpers.NewHTML(w)
		h.Raw(`<section class="card" data-signup-page>`)
		h.Raw(`<h1 class="card__title">`).Text(data.Title).Raw("</h1>")
		h.Raw("<p>").Text(data.Body).Raw("</p>")
		h.Raw("<a").URLAttr("href", data.BackHref).BoolAttr("data-back-link", true).Raw(">").
			Text(data.BackLabel).Raw("</a>")
		h.Raw("</section>")
		return h.Err()
	})
	return layout.App(layout.Page{Title: data.Title, Lang: data.Lang, AppTitle: data.AppTitle}, body)
}
