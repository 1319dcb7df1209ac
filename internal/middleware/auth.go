package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"anoa.com/coinexchange/internal/authz"
	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserEnsurer creates the account on first sight. The ledger service implements it.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, userID int64) (*entity.User, error)
}

type AuthMiddleware struct {
	users  UserEnsurer
	admins authz.Admins
	secret []byte
}

func NewAuthMiddleware(users UserEnsurer, admins authz.Admins, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		users:  users,
		admins: admins,
		secret: []byte(secret),
	}
}

// RequireAuth accepts an HMAC signed token whose subject is the chat platform user id.
// The account is created on the first authenticated request.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			abortUnauthorized(c, "authorization required")
			return
		}

		userID, err := m.subject(raw)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		user, err := m.users.EnsureUser(c.Request.Context(), userID)
		if err == nil && !user.Active {
			err = apperror.ErrUserInactive
		}
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			abortUnauthorized(c, "user not authenticated")
			return
		}

		if !m.admins.IsAdmin(userID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required", "code": "unauthorized"})
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) subject(raw string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("subject %q is not a user id", claims.Subject)
	}
	return userID, nil
}

// tokenFromRequest reads the bearer header, falling back to the token query
// parameter for websocket upgrades.
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && scheme == "Bearer" {
			return strings.TrimSpace(token)
		}
	}
	return c.Query("token")
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "code": "unauthenticated"})
}
