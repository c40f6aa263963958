// Package layout renders the HTML shell shared by every page.
package layout

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/signin/internal/templates/helpers"
)

const htmxSrc = "https://unpkg.com/htmx.org@2.0.4"

// Page describes the document around a body component.
type Page struct {
	Title     string
	Lang      string
	AppTitle  string
	CSRFToken string
}

// App renders the document shell. The CSRF token is exposed in a meta tag so htmx requests
// can echo it in a header.
func App(page Page, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		lang := page.Lang
		if lang == "" {
			lang = "pt"
		}
		title := page.Title
		if page.AppTitle != "" && page.AppTitle != title {
			if title != "" {
				title += " · "
			}
			title += page.AppTitle
		}

		h := helpers.NewHTML(w)
		h.Raw("<!DOCTYPE html><html").Attr("lang", lang).Raw(">")
		h.Raw(`<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.Raw("<title>").Text(title).Raw("</title>")
		h.Raw(`<meta name="csrf-token"`).Attr("content", page.CSRFToken).Raw(">")
		h.Raw(`<link rel="stylesheet" href="/static/app.css">`)
		h.Raw("<script defer").URLAttr("src", htmxSrc).Raw("></script>")
		h.Raw(`<script defer src="/static/app.js"></script>`)
		h.Raw("</head>")
		h.Raw(`<body class="page"><main class="page__main">`)
		h.Component(ctx, body)
		h.Raw("</main></body></html>")
		return h.Err()
	})
}
