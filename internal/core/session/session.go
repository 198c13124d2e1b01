// Package session binds cookie-identified sessions to a domain.SessionRepository.
//
// A session is created lazily: no record is written and no cookie is issued
// until a user ID is set. The record's lifetime is absolute; loading a session
// never extends it.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/duynhne/user-auth/internal/core/domain"
)

// Options configures the session cookie.
type Options struct {
	CookieName string
	Secret     string
	MaxAge     time.Duration
	Secure     bool
}

// Manager loads and issues sessions.
type Manager struct {
	store domain.SessionRepository
	opts  Options
	codec *securecookie.SecureCookie
}

// NewManager creates a Manager backed by store. Cookie values are the session
// id authenticated with HMAC-SHA256 under opts.Secret.
func NewManager(store domain.SessionRepository, opts Options) *Manager {
	var hashKey []byte
	if opts.Secret != "" {
		hashKey = []byte(opts.Secret)
	}
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(opts.MaxAge / time.Second))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Manager{store: store, opts: opts, codec: codec}
}

// Load resolves the session referenced by the request cookie. A missing or
// tampered cookie, or one whose record has expired, yields an empty session.
// Store failures are returned as errors.
func (m *Manager) Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	s := &Session{manager: m, w: w}

	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return s, nil
	}

	id, ok := m.decode(cookie.Value)
	if !ok {
		return s, nil
	}

	data, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if data == nil {
		return s, nil
	}

	s.id = id
	s.data = *data
	return s, nil
}

func (m *Manager) encode(id string) (string, error) {
	value, err := m.codec.Encode(m.opts.CookieName, id)
	if err != nil {
		return "", fmt.Errorf("encode session cookie: %w", err)
	}
	return value, nil
}

func (m *Manager) decode(value string) (string, bool) {
	var id string
	if err := m.codec.Decode(m.opts.CookieName, value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	}
	return c
}

// Session is one request's view of its cookie session. It implements domain.Session.
// A Session is not safe for concurrent use.
type Session struct {
	manager *Manager
	w       http.ResponseWriter
	id      string
	data    domain.SessionData
}

// ID returns the session identifier, or "" if the session was never saved.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the authenticated user, if any.
func (s *Session) UserID() (int, bool) {
	return s.data.UserID, s.data.UserID > 0
}

// SetUserID persists the user ID and (re)issues the session cookie.
func (s *Session) SetUserID(ctx context.Context, userID int) error {
	if s.id == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		s.id = id
	}

	value, err := s.manager.encode(s.id)
	if err != nil {
		return err
	}

	s.data.UserID = userID
	if err := s.manager.store.Set(ctx, s.id, s.data, s.manager.opts.MaxAge); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	http.SetCookie(s.w, s.manager.cookie(value, int(s.manager.opts.MaxAge/time.Second)))
	return nil
}

// Destroy deletes the session record and expires the cookie. The cookie is
// cleared and local state reset even when the store reports an error.
func (s *Session) Destroy(ctx context.Context) error {
	var err error
	if s.id != "" {
		err = s.manager.store.Destroy(ctx, s.id)
	}

	http.SetCookie(s.w, s.manager.cookie("", -1))
	s.id = ""
	s.data = domain.SessionData{}

	if err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func newID() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", errors.New("generate session id: random source unavailable")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
