package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskloop/backend/internal/model"
	"github.com/taskloop/backend/internal/service"
)

const authUserKey = "auth_user"

// AuthMiddleware is the only place that reads the Authorization header.
// It requires the exact `Bearer <token>` form, verifies the token, and
// attaches the resulting identity to the request context. Handlers behind
// it can assume CurrentUser is set.
func AuthMiddleware(codec *service.TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight carries no credentials and is never gated.
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "missing or malformed credentials"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "missing or malformed credentials"})
			c.Abort()
			return
		}

		user, err := codec.Decode(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *model.AuthUser {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.AuthUser); ok {
			return user
		}
	}
	return nil
}

// RequireSelf rejects requests whose path-embedded user identifier differs
// from the token subject. The comparison is byte-for-byte against the
// subject's canonical form; whether the path user exists is irrelevant.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "missing or malformed credentials"})
			c.Abort()
			return
		}

		if c.Param(param) != user.ID.String() {
			c.JSON(http.StatusForbidden, model.ErrorResponse{Error: "user id in path does not match authenticated user"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		c.Next()
	}
}
