package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"eventbooking/internal/logger"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

// Claims carried by bearer tokens
type Claims struct {
	Role   models.Role `json:"role"`
	Active bool        `json:"active"`
	jwt.RegisteredClaims
}

// HashPassword returns the hex SHA-256 digest stored in users.password_hash
func HashPassword(password string) string {
	hash := sha256.Sum256([]byte(password))
	return fmt.Sprintf("%x", hash)
}

// IssueToken signs an HS256 token for user valid for ttl
func IssueToken(secret []byte, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role:   user.Role,
		Active: user.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates an HS256 token and returns the principal it carries
func ParseToken(secret []byte, tokenStr string) (models.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Principal{}, err
	}
	if !token.Valid {
		return models.Principal{}, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid subject: %w", err)
	}

	role := claims.Role
	if role != models.RoleAdmin {
		role = models.RoleUser
	}
	return models.Principal{UserID: userID, Role: role, IsActive: claims.Active}, nil
}

// Auth resolves the caller from a bearer token (when jwtSecret is set) or
// HTTP Basic credentials checked against the users table. Either way the
// user must still exist and be active.
func Auth(users repository.UserStore, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authenticate(c, users, jwtSecret)
		if !ok {
			c.Header("WWW-Authenticate", "Basic realm=\"Restricted\"")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
				"code":  "unauthorized",
			})
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(UserIDKey, principal.UserID.String())
		ctx := ContextWithPrincipal(c.Request.Context(), principal)
		ctx = logger.ContextWithUserID(ctx, principal.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func authenticate(c *gin.Context, users repository.UserStore, jwtSecret []byte) (models.Principal, bool) {
	header := c.GetHeader("Authorization")

	if token, found := strings.CutPrefix(header, "Bearer "); found {
		if len(jwtSecret) == 0 {
			return models.Principal{}, false
		}
		principal, err := ParseToken(jwtSecret, strings.TrimSpace(token))
		if err != nil {
			slog.Debug("Bearer token rejected", "error", err)
			return models.Principal{}, false
		}
		// a user blocked after the token was issued loses access at once
		user, err := users.GetByID(c.Request.Context(), principal.UserID)
		if err != nil {
			slog.Error("Failed to load user for authentication", "error", err)
			return models.Principal{}, false
		}
		if user == nil || !user.IsActive {
			return models.Principal{}, false
		}
		principal.Role = user.Role
		return principal, true
	}

	email, password, ok := c.Request.BasicAuth()
	if !ok {
		return models.Principal{}, false
	}

	user, err := users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		slog.Error("Failed to load user for authentication", "error", err)
		return models.Principal{}, false
	}
	if user == nil || !user.IsActive || user.PasswordHash == "" {
		return models.Principal{}, false
	}

	given := HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(given), []byte(user.PasswordHash)) != 1 {
		return models.Principal{}, false
	}

	return models.Principal{UserID: user.ID, Role: user.Role, IsActive: user.IsActive}, true
}
