package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gangway/pkg/ctxkeys"
)

// SessionCookieName is the httpOnly cookie carrying the session token.
const SessionCookieName = "access_token"

const claimsContextKey = "auth_claims"

// IdentityMiddleware parses the session token from the Authorization header
// or the session cookie and, when valid, attaches the claims to the request.
// It never aborts: requests without a usable token simply carry no principal,
// and the admission layer decides what that means for the route.
func IdentityMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := ValidateJWT(token, secret)
		if err != nil {
			c.Next()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Set(string(ctxkeys.KeyUserID), claims.UserID)
		c.Set(string(ctxkeys.KeyEmail), claims.Email)
		c.Set(string(ctxkeys.KeyRole), claims.Role)
		c.Next()
	}
}

// CurrentClaims returns the authenticated principal for this request, if any.
func CurrentClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// RequireAdmin guards administrative routes. It assumes the admission
// middleware already ran, so an attached principal is admitted and current.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok || claims.Role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetSessionCookie attaches the session token as an httpOnly cookie.
func SetSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(ttl/time.Second), "/", "", false, true)
}

// ClearSessionCookie removes the session cookie. Called on logout and on
// every forced logout so a denied request cannot be replayed transparently.
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		parts := strings.Split(auth, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	// Browser clients use the httpOnly cookie
	if cookieToken, err := c.Cookie(SessionCookieName); err == nil && cookieToken != "" {
		return cookieToken
	}
	return ""
}
