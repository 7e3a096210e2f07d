package admission

import (
	"github.com/gin-gonic/gin"

	"gangway/pkg/auth"
	"gangway/pkg/ctxkeys"
	"gangway/pkg/models"
)

// Middleware gates a route group behind the admission controller. It must run
// after auth.IdentityMiddleware. On admission the tenant binding travels with
// the request context only; nothing request-scoped is ever stored globally.
func Middleware(ctrl *Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := auth.CurrentClaims(c)

		req := Request{
			Principal:   claims,
			ClientIP:    c.ClientIP(),
			UserAgent:   c.Request.UserAgent(),
			Fingerprint: headerPtr(c, "X-Device-Fingerprint"),
		}

		d := ctrl.Admit(c.Request.Context(), req)
		if !d.Allowed() {
			if d.ForceLogout {
				auth.ClearSessionCookie(c)
			}
			c.JSON(d.HTTPStatus(), models.ErrorResponse{
				Error:  d.Message(),
				Reason: string(d.Reason),
			})
			c.Abort()
			return
		}

		rctx := ctxkeys.WithUserID(c.Request.Context(), claims.UserID)
		if d.TenantID != "" {
			rctx = ctxkeys.WithTenantID(rctx, d.TenantID)
			c.Set(string(ctxkeys.KeyTenantID), d.TenantID)
		}
		c.Request = c.Request.WithContext(rctx)
		c.Next()
	}
}

func headerPtr(c *gin.Context, name string) *string {
	if v := c.GetHeader(name); v != "" {
		return &v
	}
	return nil
}
