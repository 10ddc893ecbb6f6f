package session

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsline/opsline-go/internal/platform/env"
)

type Config struct {
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
}

func ConfigFromEnv(service string) (Config, error) {
	prefix := strings.ToUpper(service)
	secure, err := env.Bool(prefix+"_SESSION_COOKIE_SECURE", false)
	if err != nil {
		return Config{}, err
	}
	ttl, err := env.Duration(prefix+"_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		CookieName:   env.String(prefix+"_SESSION_COOKIE_NAME", service+"_session"),
		CookieSecure: secure,
		TTL:          ttl,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.CookieName) == "" {
		return errors.New("cookie name is required")
	}
	if c.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	return nil
}

type entry struct {
	subject   string
	expiresAt time.Time
}

// Manager keeps server-side sessions in memory, keyed by an opaque token
// delivered in an httpOnly SameSite=Lax cookie.
type Manager struct {
	cfg      Config
	mu       sync.Mutex
	sessions map[string]entry
	now      func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]entry),
		now:      time.Now,
	}, nil
}

// Start creates a session for subject and sets the cookie on the response.
func (m *Manager) Start(w http.ResponseWriter, subject string) string {
	token := uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = entry{subject: subject, expiresAt: m.now().Add(m.cfg.TTL)}
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

// Subject resolves the request's session cookie to its subject. Expired
// sessions are dropped on lookup.
func (m *Manager) Subject(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[cookie.Value]
	if !ok {
		return "", false
	}
	if m.now().After(e.expiresAt) {
		delete(m.sessions, cookie.Value)
		return "", false
	}
	return e.subject, true
}

// Clear deletes the request's session and expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(m.cfg.CookieName); err == nil && cookie.Value != "" {
		m.mu.Lock()
		delete(m.sessions, cookie.Value)
		m.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
