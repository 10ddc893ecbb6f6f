package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{CookieName: "test_session", TTL: time.Hour}
}

func TestStartThenSubject_RoundTrips(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager() err=%v", err)
	}

	rec := httptest.NewRecorder()
	m.Start(rec, "alice")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("len(cookies)=%d, want 1", len(cookies))
	}
	cookie := cookies[0]
	if !cookie.HttpOnly {
		t.Fatalf("cookie must be httpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("SameSite=%v, want Lax", cookie.SameSite)
	}

	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	req.AddCookie(cookie)
	subject, ok := m.Subject(req)
	if !ok || subject != "alice" {
		t.Fatalf("Subject()=(%q,%v), want (alice,true)", subject, ok)
	}
}

func TestSubject_NoCookie(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager() err=%v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	if _, ok := m.Subject(req); ok {
		t.Fatalf("expected no subject without cookie")
	}
}

func TestSubject_ExpiredSessionDropped(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager() err=%v", err)
	}

	rec := httptest.NewRecorder()
	m.Start(rec, "bob")
	cookie := rec.Result().Cookies()[0]

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	req.AddCookie(cookie)
	if _, ok := m.Subject(req); ok {
		t.Fatalf("expected expired session to miss")
	}
}

func TestClear_InvalidatesSession(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager() err=%v", err)
	}

	rec := httptest.NewRecorder()
	m.Start(rec, "carol")
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "http://example.test/logout", nil)
	req.AddCookie(cookie)
	clearRec := httptest.NewRecorder()
	m.Clear(clearRec, req)

	cleared := clearRec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Fatalf("expected expiring cookie, got %+v", cleared)
	}

	again := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	again.AddCookie(cookie)
	if _, ok := m.Subject(again); ok {
		t.Fatalf("session should be gone after Clear")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{CookieName: "", TTL: time.Hour}).Validate(); err == nil {
		t.Fatalf("expected error for empty cookie name")
	}
	if err := (Config{CookieName: "c", TTL: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero TTL")
	}
}
