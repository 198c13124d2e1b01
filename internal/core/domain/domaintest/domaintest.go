// Package domaintest provides in-memory implementations of the domain
// contracts for tests.
package domaintest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/duynhne/user-auth/internal/core/domain"
)

// UserRepository is an in-memory domain.UserRepository. Insert enforces
// email uniqueness under a lock, like a unique index would.
type UserRepository struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*domain.User

	// Err, when set, is returned by every method.
	Err error
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{nextID: 1, byID: make(map[int]*domain.User)}
}

func (r *UserRepository) Insert(_ context.Context, email, name, passwordHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.byID {
		if u.Email == email {
			return nil, domain.ErrDuplicateEmail
		}
	}

	now := time.Now().UTC()
	u := &domain.User{ID: r.nextID, Email: email, Name: name, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	r.byID[u.ID] = u
	r.nextID++

	cp := *u
	return &cp, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) FindByID(_ context.Context, id int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if u, ok := r.byID[id]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Delete removes a user, simulating an account removed out of band.
func (r *UserRepository) Delete(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Session is an in-memory domain.Session.
type Session struct {
	mu        sync.Mutex
	userID    int
	destroyed bool

	// SetErr and DestroyErr, when set, are returned by the matching method.
	SetErr     error
	DestroyErr error
}

func (s *Session) UserID() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userID > 0
}

func (s *Session) SetUserID(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.userID = userID
	s.destroyed = false
	return nil
}

func (s *Session) Destroy(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = 0
	s.destroyed = true
	return s.DestroyErr
}

// Destroyed reports whether Destroy was called since the last SetUserID.
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Message is one email captured by Mailer.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer records sent messages.
type Mailer struct {
	mu   sync.Mutex
	sent []Message

	// Err, when set, is returned by Send after recording the message.
	Err error
}

func (m *Mailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Message{To: to, Subject: subject, HTML: html})
	return m.Err
}

// Sent returns a copy of the recorded messages.
func (m *Mailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// ErrUnavailable is a stand-in infrastructure failure.
var ErrUnavailable = errors.New("store unavailable")
