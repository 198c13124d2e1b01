package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/user-auth/internal/core/repository"
)

const lifetime = 10 * 365 * 24 * time.Hour

func newManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m := NewManager(repository.NewSessionRepository(client), Options{
		CookieName: "qid",
		Secret:     "test-secret",
		MaxAge:     lifetime,
	})
	return m, mr
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "qid" {
			return c
		}
	}
	return nil
}

func TestLoad_NoCookieIsAnonymous(t *testing.T) {
	m, mr := newManager(t)
	rec := httptest.NewRecorder()

	s, err := m.Load(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	_, ok := s.UserID()
	assert.False(t, ok)
	assert.Empty(t, s.ID())
	assert.Nil(t, sessionCookie(t, rec), "anonymous sessions are not issued a cookie")
	assert.Empty(t, mr.Keys())
}

func TestSetUserID_PersistsAndIssuesCookie(t *testing.T) {
	ctx := context.Background()
	m, mr := newManager(t)

	rec := httptest.NewRecorder()
	s, err := m.Load(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	require.NoError(t, s.SetUserID(ctx, 7))

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(lifetime/time.Second), cookie.MaxAge)
	assert.Equal(t, lifetime, mr.TTL("sess:"+s.ID()))

	// A second request presenting the cookie sees the same user.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	again, err := m.Load(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)
	userID, ok := again.UserID()
	assert.True(t, ok)
	assert.Equal(t, 7, userID)
	assert.Equal(t, s.ID(), again.ID())
}

func TestLoad_DoesNotExtendLifetime(t *testing.T) {
	ctx := context.Background()
	m, mr := newManager(t)

	rec := httptest.NewRecorder()
	s, err := m.Load(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	require.NoError(t, s.SetUserID(ctx, 1))

	mr.FastForward(time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rec))
	_, err = m.Load(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)

	assert.Equal(t, lifetime-time.Hour, mr.TTL("sess:"+s.ID()))
}

func TestLoad_TamperedCookieIsAnonymous(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	rec := httptest.NewRecorder()
	s, err := m.Load(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	require.NoError(t, s.SetUserID(ctx, 1))

	issued := sessionCookie(t, rec).Value
	flipped := []byte(issued)
	mid := len(flipped) / 2
	if flipped[mid] == 'A' {
		flipped[mid] = 'B'
	} else {
		flipped[mid] = 'A'
	}

	for _, value := range []string{
		s.ID(),
		s.ID() + ".forged",
		string(flipped),
		issued[:len(issued)/2],
		".",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "qid", Value: value})
		got, err := m.Load(ctx, httptest.NewRecorder(), req)
		require.NoError(t, err)
		_, ok := got.UserID()
		assert.False(t, ok, "cookie %q must not authenticate", value)
	}
}

func TestLoad_OtherSecretRejected(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	rec := httptest.NewRecorder()
	s, err := m.Load(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	require.NoError(t, s.SetUserID(ctx, 1))

	other := NewManager(m.store, Options{CookieName: "qid", Secret: "rotated", MaxAge: lifetime})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rec))
	got, err := other.Load(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)
	_, ok := got.UserID()
	assert.False(t, ok)
}

func TestSetUserID_WithoutSecretFails(t *testing.T) {
	ctx := context.Background()
	m, mr := newManager(t)
	unsigned := NewManager(m.store, Options{CookieName: "qid", MaxAge: lifetime})

	rec := httptest.NewRecorder()
	s, err := unsigned.Load(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)

	require.Error(t, s.SetUserID(ctx, 1))
	assert.Nil(t, sessionCookie(t, rec))
	assert.Empty(t, mr.Keys(), "nothing is stored for a cookie that cannot be signed")
}

func TestDestroy_RemovesRecordAndClearsCookie(t *testing.T) {
	ctx := context.Background()
	m, mr := newManager(t)

	rec := httptest.NewRecorder()
	s, err := m.Load(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	require.NoError(t, s.SetUserID(ctx, 3))
	id := s.ID()
	issued := sessionCookie(t, rec)

	logoutRec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(issued)
	loaded, err := m.Load(ctx, logoutRec, req)
	require.NoError(t, err)
	require.NoError(t, loaded.Destroy(ctx))

	assert.False(t, mr.Exists("sess:"+id))
	cleared := sessionCookie(t, logoutRec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
	_, ok := loaded.UserID()
	assert.False(t, ok)

	// The old cookie no longer resolves.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issued)
	after, err := m.Load(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)
	_, ok = after.UserID()
	assert.False(t, ok)
}

func TestDestroy_StoreFailureStillClearsCookie(t *testing.T) {
	ctx := context.Background()
	m, mr := newManager(t)

	rec := httptest.NewRecorder()
	s, err := m.Load(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	require.NoError(t, s.SetUserID(ctx, 3))

	mr.Close()
	logoutRec := httptest.NewRecorder()
	s.w = logoutRec
	require.Error(t, s.Destroy(ctx))

	cleared := sessionCookie(t, logoutRec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLoad_StoreFailure(t *testing.T) {
	ctx := context.Background()
	m, mr := newManager(t)

	rec := httptest.NewRecorder()
	s, err := m.Load(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	require.NoError(t, s.SetUserID(ctx, 3))

	mr.Close()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rec))
	_, err = m.Load(ctx, httptest.NewRecorder(), req)
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := &Session{}
	got, ok := FromContext(NewContext(context.Background(), s))
	assert.True(t, ok)
	assert.Same(t, s, got)
}
