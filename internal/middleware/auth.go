package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/serializer"
	"github.com/csi-showcase/showcase/internal/modules/service"
)

// AdminSecretHeader carries the static admin key on every admin request.
const AdminSecretHeader = "admin_secret_key"

// AdminKey marks a request that passed AdminOnly. Handlers only grant
// admin powers when it is set.
const AdminKey = "admin"

// bearerOrCookie reads the session token from the Authorization header,
// falling back to the auth cookie.
func bearerOrCookie(c *gin.Context, cookieName string) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if v, err := c.Cookie(cookieName); err == nil {
		return v
	}
	return ""
}

func setUser(c *gin.Context, u *model.User) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.SpanContext().IsValid() {
		span.SetAttributes(attribute.String("user_id", u.ID.String()))
	}
	c.Set("user", u)
}

// Auth returns a middleware that requires a valid session token and sets the
// authenticated *model.User in the context under "user".
func Auth(svc service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerOrCookie(c, cookieName)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		u, err := svc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		setUser(c, u)
		c.Next()
	}
}

// OptionalAuth sets the user when a valid token is present and lets anonymous
// requests through. An invalid token is treated as anonymous.
func OptionalAuth(svc service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerOrCookie(c, cookieName); raw != "" {
			if u, err := svc.Authenticate(c.Request.Context(), raw); err == nil {
				setUser(c, u)
			}
		}
		c.Next()
	}
}

// AdminOnly must run after Auth. It requires the admin role and the static
// admin secret header.
func AdminOnly(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("user")
		u, _ := v.(*model.User)
		if !ok || u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		if !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, serializer.ForbiddenErr("admin only"))
			return
		}
		got := c.GetHeader(AdminSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, serializer.ForbiddenErr("invalid admin secret"))
			return
		}
		c.Set(AdminKey, true)
		c.Next()
	}
}
