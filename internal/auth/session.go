package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"studygroup/internal/config"
)

const userIDKey = "user_id"

var ErrNoSession = errors.New("session not found")

// SessionManager keeps the logged-in user id in a signed cookie.
// Only the id is stored; the user row is loaded from the store on every request.
type SessionManager struct {
	store sessions.Store
	name  string
}

// NewSessionManager builds a cookie-backed session manager.
func NewSessionManager(cfg config.SessionConfig) *SessionManager {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, name: cfg.Name}
}

// Login binds userID to the browser session.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID int) error {
	session, _ := m.store.Get(r, m.name)
	session.Values[userIDKey] = userID
	return session.Save(r, w)
}

// UserID returns the logged-in user id carried by the request, if any.
func (m *SessionManager) UserID(r *http.Request) (int, error) {
	session, err := m.store.Get(r, m.name)
	if err != nil {
		return 0, ErrNoSession
	}
	id, ok := session.Values[userIDKey].(int)
	if !ok || id == 0 {
		return 0, ErrNoSession
	}
	return id, nil
}

// Logout destroys the session whether or not one exists.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, m.name)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
