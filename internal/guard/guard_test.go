package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalflags/signalflags-api/internal/models"
)

func settledState(user *models.User) models.AuthState {
	return models.AuthState{User: user, Initialized: true}
}

func TestAuthGuard(t *testing.T) {
	t.Run("admits authenticated user", func(t *testing.T) {
		decision := Auth(settledState(&models.User{UserID: "u1"}), "/quiz")
		assert.True(t, decision.Allowed)
		assert.Empty(t, decision.RedirectTo)
	})

	t.Run("redirects unauthenticated to register with return url", func(t *testing.T) {
		decision := Auth(settledState(nil), "/leaderboard")
		assert.False(t, decision.Allowed)
		assert.Equal(t, RouteRegister, decision.RedirectTo)
		assert.Equal(t, "/leaderboard", decision.ReturnURL)
	})

	t.Run("defers to the startup flow before initialization", func(t *testing.T) {
		decision := Auth(models.AuthState{}, "/quiz")
		assert.True(t, decision.Allowed)
		assert.Empty(t, decision.RedirectTo)
	})
}

func TestGuestGuard(t *testing.T) {
	t.Run("admits unauthenticated user", func(t *testing.T) {
		decision := Guest(settledState(nil), RouteRegister)
		assert.True(t, decision.Allowed)
	})

	t.Run("bounces signed-in user to home", func(t *testing.T) {
		decision := Guest(settledState(&models.User{UserID: "u1"}), RouteRegister)
		assert.False(t, decision.Allowed)
		assert.Equal(t, RouteHome, decision.RedirectTo)
	})
}

// Over any settled state exactly one of Auth and Guest admits.
func TestAuthAndGuestAreComplementary(t *testing.T) {
	states := []models.AuthState{
		settledState(nil),
		settledState(&models.User{UserID: "u1"}),
		settledState(&models.User{UserID: "u2", IsAdmin: true}),
	}

	for _, state := range states {
		authAdmits := Auth(state, "/x").Allowed
		guestAdmits := Guest(state, "/x").Allowed
		assert.NotEqual(t, authAdmits, guestAdmits)
	}
}

func TestAdminGuard(t *testing.T) {
	t.Run("admits admin", func(t *testing.T) {
		decision := Admin(settledState(&models.User{UserID: "u1", IsAdmin: true}), "/admin")
		assert.True(t, decision.Allowed)
	})

	t.Run("sends signed-in non-admin home", func(t *testing.T) {
		decision := Admin(settledState(&models.User{UserID: "u1"}), "/admin")
		assert.False(t, decision.Allowed)
		assert.Equal(t, RouteHome, decision.RedirectTo)
	})

	t.Run("sends unauthenticated to register", func(t *testing.T) {
		decision := Admin(settledState(nil), "/admin")
		assert.False(t, decision.Allowed)
		assert.Equal(t, RouteRegister, decision.RedirectTo)
		assert.Equal(t, "/admin", decision.ReturnURL)
	})

	t.Run("requires a session even before initialization", func(t *testing.T) {
		decision := Admin(models.AuthState{}, "/admin")
		assert.False(t, decision.Allowed)
		assert.Equal(t, RouteRegister, decision.RedirectTo)
	})
}
