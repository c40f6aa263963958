package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	hashKey := []byte("12345678901234567890123456789012")
	blockKey := []byte("abcdefghijklmnopqrstuv0123456789")
	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	httpOnly := true
	mgr, err := NewManager(Config{
		CookieName:     "test_session",
		HashKey:        hashKey,
		BlockKey:       blockKey,
		CookiePath:     "/",
		CookieHTTPOnly: &httpOnly,
		IdleTimeout:    10 * time.Minute,
		Lifetime:       2 * time.Hour,
		Now:            clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return mgr, clock
}

func TestManager_NewSessionLifecycle(t *testing.T) {
	mgr, clock := newTestManager(t)

	req := httptest.NewRequest("GET", "/", nil)
	sess, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sess == nil {
		t.Fatalf("expected session")
	}
	if sess.ID() == "" {
		t.Fatalf("expected session ID")
	}
	if !sess.data.CreatedAt.Equal(clock.current) {
		t.Fatalf("unexpected CreatedAt: %v", sess.data.CreatedAt)
	}
	if !sess.data.ExpiresAt.Equal(clock.current.Add(2 * time.Hour)) {
		t.Fatalf("unexpected ExpiresAt: %v", sess.data.ExpiresAt)
	}

	sess.SetItem("access-token", "tok-1")
	sess.SetLocale("en")

	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected session cookie to be set")
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes: %#v", cookie)
	}

	clock.current = clock.current.Add(5 * time.Minute)
	req2 := httptest.NewRequest("GET", "/", nil)
	req2.AddCookie(cookie)
	sess2, err := mgr.Load(req2)
	if err != nil {
		t.Fatalf("Load existing error: %v", err)
	}
	if sess2.ID() != sess.ID() {
		t.Fatalf("expected session id to persist")
	}
	if got, ok := sess2.Item("access-token"); !ok || got != "tok-1" {
		t.Fatalf("expected item to persist, got %q", got)
	}
	if sess2.Locale() != "en" {
		t.Fatalf("expected locale to persist")
	}
	if sess2.Dirty() {
		t.Fatalf("loaded session should start clean")
	}
}

func TestSession_Items(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.SetItem("a", "1")

	snap := sess.snapshot()
	snap.Items["a"] = "changed"
	if got, _ := sess.Item("a"); got != "1" {
		t.Fatalf("snapshot must copy items, got %q", got)
	}

	sess.RemoveItem("a")
	if _, ok := sess.Item("a"); ok {
		t.Fatalf("expected item removed")
	}
	sess.RemoveItem("missing")
}

func TestSession_SetItemMarksDirtyOnlyOnChange(t *testing.T) {
	sess := &Session{data: Data{Items: map[string]string{"k": "v"}}}
	sess.SetItem("k", "v")
	if sess.Dirty() {
		t.Fatalf("unchanged value should not mark dirty")
	}
	sess.SetItem("k", "w")
	if !sess.Dirty() {
		t.Fatalf("changed value should mark dirty")
	}
}

func TestManager_SaveSkipsUnchangedSession(t *testing.T) {
	mgr, clock := newTestManager(t)

	rec := httptest.NewRecorder()
	sess := mgr.New()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected cookie for a new session")
	}

	clock.current = clock.current.Add(30 * time.Second)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	loaded, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	rec = httptest.NewRecorder()
	if err := mgr.Save(rec, loaded); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if findCookie(rec.Result().Cookies(), "test_session") != nil {
		t.Fatalf("unchanged session within the touch interval must not be rewritten")
	}

	loaded.SetItem("access-token", "tok")
	rec = httptest.NewRecorder()
	if err := mgr.Save(rec, loaded); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if findCookie(rec.Result().Cookies(), "test_session") == nil {
		t.Fatalf("changed session must be rewritten")
	}
	if loaded.Dirty() {
		t.Fatalf("saved session should be clean")
	}
}

func TestManager_SaveRefreshesActivityAfterInterval(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess := mgr.New()
	if err := mgr.Save(httptest.NewRecorder(), sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	clock.current = clock.current.Add(2 * time.Minute)
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if findCookie(rec.Result().Cookies(), "test_session") == nil {
		t.Fatalf("expected cookie once the touch interval has passed")
	}
	if !sess.data.LastActive.Equal(clock.current) {
		t.Fatalf("unexpected LastActive: %v", sess.data.LastActive)
	}
}

func TestManager_IdleTimeout(t *testing.T) {
	mgr, clock := newTestManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	sess, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")

	clock.current = clock.current.Add(20 * time.Minute)
	req2 := httptest.NewRequest("GET", "/", nil)
	req2.AddCookie(cookie)
	if _, err := mgr.Load(req2); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestManager_TamperedCookieStartsFresh(t *testing.T) {
	mgr, _ := newTestManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "garbage"})

	sess, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(sess.data.Items) != 0 || !sess.Dirty() {
		t.Fatalf("expected a fresh session")
	}
}

func TestManager_Destroy(t *testing.T) {
	mgr, _ := newTestManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	sess, _ := mgr.Load(req)
	rec := httptest.NewRecorder()
	sess.Destroy()
	if err := mgr.Save(rec, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatalf("expected session cookie cleared")
	}
}

func TestNewManager_RejectsBadKeys(t *testing.T) {
	if _, err := NewManager(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for missing hash key, got %v", err)
	}
	if _, err := NewManager(Config{HashKey: GenerateKey(32), BlockKey: []byte("short")}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for bad block key, got %v", err)
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
