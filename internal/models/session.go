package models

import "time"

// Session is the credential returned by the gateway on login. It is persisted
// as JSON in the local store and reloaded at startup.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Exp          int64  `json:"exp"`
}

// Expired reports whether the session's expiry epoch has passed.
func (s Session) Expired(now time.Time) bool {
	return s.Exp > 0 && now.Unix() >= s.Exp
}

// Valid reports whether the session carries a usable access token.
func (s Session) Valid(now time.Time) bool {
	return s.AccessToken != "" && !s.Expired(now)
}
