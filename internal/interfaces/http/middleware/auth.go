package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/interfaces/http/response"
	"kailospay.backend/pkg/jwt"
	"kailospay.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// TokenQueryParam carries the token for links opened outside fetch (file previews).
	TokenQueryParam = "token"
	// AdminTokenHeader lets operators reach admin routes without a user account.
	AdminTokenHeader = "X-Admin-Token"
	// InternalCallHeader marks a trusted service-to-service call.
	InternalCallHeader = "X-Internal-Call"

	// UserIDKey is the context key for user ID
	UserIDKey = "userId"
	// UserEmailKey is the context key for user email
	UserEmailKey = "userEmail"
	// IsAdminKey is set once RequireAdmin has admitted the caller.
	IsAdminKey = "isAdmin"
	// InternalCallKey is set when the request came in with a valid internal token.
	InternalCallKey = "internalCall"
)

// UserLookup is the slice of the user repository the admin check needs.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
}

// AuthMiddleware requires a valid JWT in the Authorization header or the
// token query parameter. Every failure gets the same 401 body.
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, jwtService) {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// InternalCallOrAuth admits either a trusted internal caller or a JWT
// holder. Internal callers name the user in the request body.
func InternalCallOrAuth(jwtService *jwt.JWTService, internalToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretEqual(c.GetHeader(InternalCallHeader), internalToken) {
			c.Set(InternalCallKey, true)
			c.Next()
			return
		}
		if !authenticate(c, jwtService) {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireAdmin admits callers holding the admin token, or JWT holders whose
// user row has isAdmin set. The flag is read from the database on every
// request so a demotion takes effect immediately.
func RequireAdmin(jwtService *jwt.JWTService, users UserLookup, adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretEqual(c.GetHeader(AdminTokenHeader), adminToken) {
			c.Set(IsAdminKey, true)
			c.Next()
			return
		}
		if !authenticate(c, jwtService) {
			response.Unauthorized(c)
			return
		}

		userID, _ := GetUserID(c)
		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil || !user.IsAdmin {
			if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
				logger.WithContext(c.Request.Context()).Error("admin lookup failed", zap.Error(err))
			}
			response.Abort(c, domainerrors.Forbidden("admin only"))
			return
		}

		c.Set(IsAdminKey, true)
		c.Next()
	}
}

func authenticate(c *gin.Context, jwtService *jwt.JWTService) bool {
	token := bearerToken(c)
	if token == "" {
		return false
	}

	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		logger.WithContext(c.Request.Context()).Debug("token rejected",
			zap.String("path", c.Request.URL.Path), zap.Error(err))
		return false
	}

	c.Set(UserIDKey, claims.UserID)
	c.Set(UserEmailKey, claims.Email)
	ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, claims.UserID.String())
	c.Request = c.Request.WithContext(ctx)
	return true
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader(AuthorizationHeader); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	}
	return strings.TrimSpace(c.Query(TokenQueryParam))
}

// secretEqual compares in constant time. An unset secret never matches.
func secretEqual(got, want string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// GetUserID gets the user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	return id, ok
}

// IsInternalCall reports whether InternalCallOrAuth admitted the request by token.
func IsInternalCall(c *gin.Context) bool {
	return c.GetBool(InternalCallKey)
}

// GetActor describes the caller for document access checks. Outside the
// admin group the admin flag is read from the user row.
func GetActor(c *gin.Context, users UserLookup) entities.Actor {
	userID, _ := GetUserID(c)
	actor := entities.Actor{UserID: userID, IsAdmin: c.GetBool(IsAdminKey)}
	if actor.IsAdmin || userID == uuid.Nil || users == nil {
		return actor
	}
	if user, err := users.GetByID(c.Request.Context(), userID); err == nil {
		actor.IsAdmin = user.IsAdmin
	}
	return actor
}

// ReviewerID is the admin's user id, or null when the admin token was used.
func ReviewerID(c *gin.Context) uuid.NullUUID {
	userID, ok := GetUserID(c)
	if !ok {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: userID, Valid: true}
}
