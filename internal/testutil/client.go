package testutil

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// Browser is a cookie-keeping client that does not follow redirects.
type Browser struct {
	t      testing.TB
	server *httptest.Server
	Client *http.Client
}

// NewBrowser returns a Browser bound to server.
func NewBrowser(t testing.TB, server *httptest.Server) *Browser {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Browser{
		t:      t,
		server: server,
		Client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get issues a GET for path with optional header pairs.
func (b *Browser) Get(path string, headers ...string) (*http.Response, []byte) {
	b.t.Helper()
	return b.do(http.MethodGet, path, nil, headers)
}

// PostForm submits values to path with optional header pairs.
func (b *Browser) PostForm(path string, values url.Values, headers ...string) (*http.Response, []byte) {
	b.t.Helper()
	headers = append(headers, "Content-Type", "application/x-www-form-urlencoded")
	return b.do(http.MethodPost, path, strings.NewReader(values.Encode()), headers)
}

// CSRFToken loads the sign-in page once and returns the token from its meta tag.
func (b *Browser) CSRFToken() string {
	b.t.Helper()

	_, body := b.Get("/")
	token, ok := ParseHTML(b.t, body).Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok || token == "" {
		b.t.Fatalf("csrf meta tag missing")
	}
	return token
}

// Cookie returns the named cookie stored for the server.
func (b *Browser) Cookie(name string) *http.Cookie {
	u, err := url.Parse(b.server.URL)
	if err != nil {
		b.t.Fatalf("parse server url: %v", err)
	}
	for _, c := range b.Client.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (b *Browser) do(method, path string, body io.Reader, headers []string) (*http.Response, []byte) {
	b.t.Helper()

	req, err := http.NewRequest(method, b.server.URL+path, body)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		b.t.Fatalf("read body: %v", err)
	}
	return resp, payload
}
