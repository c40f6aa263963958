package helpers

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// HTML writes markup for templ.ComponentFunc bodies. The first write error sticks and every
// later call becomes a no-op; read it with Err.
type HTML struct {
	w   io.Writer
	err error
}

// NewHTML wraps w.
func NewHTML(w io.Writer) *HTML {
	return &HTML{w: w}
}

// Raw writes s unescaped.
func (h *HTML) Raw(s string) *HTML {
	if h.err != nil {
		return h
	}
	_, h.err = io.WriteString(h.w, s)
	return h
}

// Text writes s with HTML escaping.
func (h *HTML) Text(s string) *HTML {
	return h.Raw(templ.EscapeString(s))
}

// Attr writes ` name="value"` with the value escaped.
func (h *HTML) Attr(name, value string) *HTML {
	return h.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// AttrIf writes the attribute only when cond holds.
func (h *HTML) AttrIf(cond bool, name, value string) *HTML {
	if !cond {
		return h
	}
	return h.Attr(name, value)
}

// URLAttr writes a URL-valued attribute after templ's URL sanitisation.
func (h *HTML) URLAttr(name, value string) *HTML {
	return h.Attr(name, string(templ.URL(value)))
}

// BoolAttr writes a valueless attribute such as disabled when on is true.
func (h *HTML) BoolAttr(name string, on bool) *HTML {
	if !on {
		return h
	}
	return h.Raw(" " + name)
}

// Component renders c in place.
func (h *HTML) Component(ctx context.Context, c templ.Component) *HTML {
	if h.err != nil || c == nil {
		return h
	}
	h.err = c.Render(ctx, h.w)
	return h
}

// Err returns the first error encountered.
func (h *HTML) Err() error {
	return h.err
}
