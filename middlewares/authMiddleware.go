package middlewares

import (
	"context"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"rms-be/models"
	"rms-be/utils"
)

// TokenCookie is the cookie that carries the session token.
const TokenCookie = "token"

const userKey = "user"

// Authenticator resolves a session token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware rejects requests without a valid session token.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			utils.RespondError(c, models.ErrUnauthorized)
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFrom(c); token != "" {
			if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}

// Authorize admits only users holding one of roles. It must run after AuthMiddleware.
func Authorize(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			utils.RespondError(c, models.ErrUnauthorized)
			return
		}
		if !slices.Contains(roles, user.Role) {
			utils.RespondError(c, models.ErrForbidden)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set("user_id", user.ID.Hex())
}

// tokenFrom reads "Authorization: Bearer <token>" first, then the cookie.
func tokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token, err := c.Cookie(TokenCookie); err == nil {
		return token
	}
	return ""
}
