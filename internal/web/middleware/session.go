package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/secureface/secureface/internal/authflow"
)

const (
	sessionCookieName = "secureface_session"
	sessionDuration   = 24 * time.Hour
)

// Session is one browser's flow context. Enrollment and login controllers
// live here between HTTP calls; nothing about them is persisted.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu         sync.Mutex
	enrollment *authflow.Enrollment
	login      *authflow.Login
}

// StartEnrollment replaces any previous enrollment flow with a fresh one.
func (s *Session) StartEnrollment(deps authflow.Deps) *authflow.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollment = authflow.NewEnrollment(deps)
	return s.enrollment
}

func (s *Session) Enrollment() *authflow.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollment
}

// StartLogin replaces any previous login flow with a fresh one.
func (s *Session) StartLogin(deps authflow.Deps) *authflow.Login {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = authflow.NewLogin(deps)
	return s.login
}

func (s *Session) Login() *authflow.Login {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login
}

// Authenticated reports whether this session's login flow completed.
func (s *Session) Authenticated() bool {
	l := s.Login()
	return l != nil && l.Step() == authflow.StepAuthenticated
}

// SessionManager creates and validates sessions. Cookies carry the session
// ID plus an HMAC signature; the flow state itself stays server-side.
type SessionManager struct {
	secret   []byte
	sessions map[string]*Session
	mu       sync.RWMutex
}

func NewSessionManager(secret string) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "secureface-dev-secret-change-in-production"
	}
	return &SessionManager{
		secret:   []byte(secret),
		sessions: make(map[string]*Session),
	}
}

// CreateSession creates a new anonymous session.
func (sm *SessionManager) CreateSession() (*Session, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	sessionID := base64.URLEncoding.EncodeToString(idBytes)

	session := &Session{
		ID:        sessionID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(sessionDuration),
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by ID, dropping it if expired.
func (sm *SessionManager) GetSession(sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return nil
	}

	if time.Now().After(session.ExpiresAt) {
		sm.DeleteSession(sessionID)
		return nil
	}
	return session
}

func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()
}

// Ensure returns the request's session, creating one (and setting its
// cookie) if the request carries none. Flows start before authentication,
// so every visitor gets a session.
func (sm *SessionManager) Ensure(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if session := sm.GetSessionFromRequest(r); session != nil {
		return session, nil
	}

	session, err := sm.CreateSession()
	if err != nil {
		return nil, err
	}
	sm.SetSessionCookie(w, session)
	return session, nil
}

// SetSessionCookie sets the signed session cookie on the response.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, session *Session) {
	signature := sm.signData(session.ID)
	cookieValue := session.ID + "." + signature

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts and validates the session cookie.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}

	parts := strings.SplitN(cookie.Value, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	if !sm.verifySignature(parts[0], parts[1]) {
		return nil
	}
	return sm.GetSession(parts[0])
}

func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}
