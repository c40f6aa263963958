package helpers

import "github.com/a-h/templ"

// InputClass returns the classes of a text input, adding the error border when invalid.
func InputClass(invalid bool) string {
	return templ.Classes(
		"input",
		templ.KV("input--error", invalid),
	).String()
}

// ButtonClass returns the classes of the primary submit button.
func ButtonClass(busy bool) string {
	return templ.Classes(
		"btn",
		"btn--primary",
		templ.KV("btn--busy", busy),
	).String()
}
