package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/signalflags/signalflags-api/internal/guard"
	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/internal/service"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
	"github.com/signalflags/signalflags-api/pkg/response"
)

// Gin context keys set by the session middleware chain.
const (
	ContextInstallIDKey = "installID"
	ContextClaimsKey    = "sessionClaims"
	ContextUserKey      = "currentUser"
)

// InstallIDHeader carries the per-install identifier every client sends.
const InstallIDHeader = "X-Install-ID"

// InstallID requires the install identifier header and stores it on the
// context. Every auth and quiz route needs it to reach the right
// orchestrator.
func InstallID() gin.HandlerFunc {
	return func(c *gin.Context) {
		installID := strings.TrimSpace(c.GetHeader(InstallIDHeader))
		if installID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing X-Install-ID header"))
			c.Abort()
			return
		}
		c.Set(ContextInstallIDKey, installID)
		c.Next()
	}
}

// Session validates the bearer token, resolves the install's orchestrator
// state and stores claims plus the current user on the context. It does not
// enforce a guard by itself.
func Session(sessions *service.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := sessions.ParseToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)

		installID := GetInstallID(c)
		if installID == "" {
			installID = claims.InstallID
			c.Set(ContextInstallIDKey, installID)
		}

		// A presented token implies a prior session; run the startup restore
		// if this process has not seen the install yet, so a valid token is
		// not stranded on a fresh orchestrator after a restart.
		orch := sessions.ForInstall(installID)
		if !orch.IsInitialized() {
			orch.InitializeAuth(c.Request.Context())
		}
		if user := orch.CurrentUser(); user != nil {
			c.Set(ContextUserKey, user)
		}
		c.Next()
	}
}

// RequireAuth admits only requests whose install has a settled,
// authenticated state.
func RequireAuth(sessions *service.SessionManager) gin.HandlerFunc {
	return requireGuard(sessions, guard.Auth)
}

// RequireGuest admits only requests whose install is not signed in.
func RequireGuest(sessions *service.SessionManager) gin.HandlerFunc {
	return requireGuard(sessions, guard.Guest)
}

// RequireAdmin admits only authenticated admins.
func RequireAdmin(sessions *service.SessionManager) gin.HandlerFunc {
	return requireGuard(sessions, guard.Admin)
}

func requireGuard(sessions *service.SessionManager, predicate func(models.AuthState, string) guard.Decision) gin.HandlerFunc {
	return func(c *gin.Context) {
		installID := GetInstallID(c)
		if installID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing X-Install-ID header"))
			c.Abort()
			return
		}

		orch := sessions.ForInstall(installID)
		if !orch.IsInitialized() {
			orch.InitializeAuth(c.Request.Context())
		}
		state := orch.State()
		decision := predicate(state, c.Request.URL.Path)
		if !decision.Allowed {
			err := appErrors.Clone(appErrors.ErrForbidden, "not permitted for this session")
			if decision.RedirectTo == guard.RouteRegister {
				err = appErrors.Clone(appErrors.ErrUnauthorized, "sign in required")
			}
			c.Header("X-Redirect-To", decision.RedirectTo)
			if decision.ReturnURL != "" {
				c.Header("X-Return-URL", decision.ReturnURL)
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		if state.User != nil {
			c.Set(ContextUserKey, state.User)
		}
		c.Next()
	}
}

// GetInstallID reads the install id set by InstallID or Session.
func GetInstallID(c *gin.Context) string {
	if v, ok := c.Get(ContextInstallIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetCurrentUser reads the authenticated user, or nil.
func GetCurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// GetClaims reads the parsed session claims, or nil.
func GetClaims(c *gin.Context) *models.SessionClaims {
	if v, ok := c.Get(ContextClaimsKey); ok {
		if claims, ok := v.(*models.SessionClaims); ok {
			return claims
		}
	}
	return nil
}
