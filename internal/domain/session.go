package domain

import "time"

// TokenPair is the access/refresh credential pair issued by the backend.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Identity is derived from an access token and never stored on its own.
type Identity struct {
	Username  string
	Role      Role
	ExpiresAt time.Time
}

// Expired reports whether the access token carried an exp claim that lies before now.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// SessionState is a snapshot of the token store. Tokens and Identity are both nil or both set.
type SessionState struct {
	Tokens   *TokenPair
	Identity *Identity
}

// Authenticated reports whether the snapshot holds credentials.
func (s SessionState) Authenticated() bool {
	return s.Tokens != nil && s.Identity != nil
}

// SessionStatus is the lifecycle position of a session.
type SessionStatus int

const (
	SessionAnonymous SessionStatus = iota
	SessionAuthenticated
	SessionRenewing
)

func (s SessionStatus) String() string {
	switch s {
	case SessionAuthenticated:
		return "authenticated"
	case SessionRenewing:
		return "renewing"
	default:
		return "anonymous"
	}
}
