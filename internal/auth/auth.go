// Package auth validates the platform's bearer tokens and exposes the
// resulting claims to request handlers.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles issued by the identity service.
const (
	RoleClient  = "client"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)

// Config holds signer verification parameters shared by the FitSync
// services.
type Config struct {
	Secret string
	Issuer string
}

// Claims represents the payload extracted from a JWT. Raw carries the
// original token so handlers can forward it to sibling services.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
	Raw       string
}

// ErrMissingToken is returned when the Authorization header is absent.
var ErrMissingToken = errors.New("missing bearer token")

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// Parse validates a JWT and returns normalized claims.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrInvalidToken
	}
	role, _ := claims["role"].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	return &Claims{
		Subject:   subject,
		Role:      role,
		ExpiresAt: exp.Time,
		Raw:       token,
	}, nil
}

// IsStaff reports whether the claims belong to a trainer or admin.
func (c *Claims) IsStaff() bool {
	if c == nil {
		return false
	}
	return c.Role == RoleTrainer || c.Role == RoleAdmin
}

// CanAccessUser reports whether the claims may read or write data
// belonging to userID. Clients only reach their own records.
func (c *Claims) CanAccessUser(userID string) bool {
	if c == nil {
		return false
	}
	return c.Subject == userID || c.IsStaff()
}
