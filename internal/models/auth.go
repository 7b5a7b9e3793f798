package models

import "github.com/golang-jwt/jwt/v5"

// AuthState is the orchestrator's process-lifetime session state. Initialized
// latches true exactly once per install run and never reverts.
type AuthState struct {
	User        *User  `json:"user,omitempty"`
	Loading     bool   `json:"loading"`
	Initialized bool   `json:"initialized"`
	Err         string `json:"error,omitempty"`
}

// Authenticated reports whether the state carries a signed-in user.
func (s AuthState) Authenticated() bool {
	return s.User != nil
}

// AuthResult is the uniform result shape returned by user-facing auth
// operations; expected failures are values, never errors.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token,omitempty"`
}

// SessionClaims are embedded in signed session tokens issued to installs.
type SessionClaims struct {
	UserID    string `json:"uid"`
	InstallID string `json:"install_id"`
	DeviceID  string `json:"device_id"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}
