package guard

import "github.com/signalflags/signalflags-api/internal/models"

// Route targets used in redirect decisions.
const (
	RouteRegister = "/register"
	RouteHome     = "/home"
)

// Decision is the outcome of evaluating one guard against an auth state.
// When Allowed is false, RedirectTo names where the caller should go
// instead; ReturnURL optionally preserves the originally requested path so
// it can be resumed after sign-in.
type Decision struct {
	Allowed    bool
	RedirectTo string
	ReturnURL  string
}

// Auth admits authenticated users. A state that has not finished the
// startup restore is admitted as-is, deferring to the initialization flow:
// the caller settles the state before evaluation, and a request that would
// be valid once restore completes must not be bounced for arriving early.
func Auth(state models.AuthState, attemptedPath string) Decision {
	if !state.Initialized {
		return Decision{Allowed: true}
	}
	if !state.Authenticated() {
		return Decision{Allowed: false, RedirectTo: RouteRegister, ReturnURL: attemptedPath}
	}
	return Decision{Allowed: true}
}

// Guest admits unauthenticated users only; a signed-in user is bounced to
// home. Guest and Auth are complementary over any settled state: exactly
// one of them admits.
func Guest(state models.AuthState, attemptedPath string) Decision {
	if !state.Initialized {
		return Decision{Allowed: true}
	}
	if state.Authenticated() {
		return Decision{Allowed: false, RedirectTo: RouteHome}
	}
	return Decision{Allowed: true}
}

// Admin admits authenticated users carrying the admin flag. Unlike Auth it
// requires a live session even before initialization settles; a signed-in
// non-admin lands on home rather than registration, because they have a
// session, just not the privilege.
func Admin(state models.AuthState, attemptedPath string) Decision {
	if !state.Authenticated() {
		return Decision{Allowed: false, RedirectTo: RouteRegister, ReturnURL: attemptedPath}
	}
	if !state.User.IsAdmin {
		return Decision{Allowed: false, RedirectTo: RouteHome}
	}
	return Decision{Allowed: true}
}
