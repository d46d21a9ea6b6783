package auth

import "sync"

// User is the signed-in identity. Sign-in itself happens with an external
// provider; the session only holds its result.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Identity exposes the current user to services.
type Identity interface {
	CurrentUser() (User, bool)
}

// Session is the process-wide holder of the signed-in user.
type Session struct {
	mu   sync.RWMutex
	user *User
}

var _ Identity = (*Session)(nil)

// NewSession returns a session signed in as u, or signed out when u.ID is
// empty.
func NewSession(u User) *Session {
	s := &Session{}
	if u.ID != "" {
		s.SignIn(u)
	}
	return s
}

func (s *Session) SignIn(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// CurrentUser returns the signed-in user. false means nobody is signed in.
func (s *Session) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}
