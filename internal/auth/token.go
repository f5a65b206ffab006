package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims describes JWT payload. Identity is issued upstream; the service
// trusts these claims once the signature verifies.
type Claims struct {
	SubjectID      string      `json:"sub"`
	Role           domain.Role `json:"role"`
	OrganizationID string      `json:"org_id,omitempty"`
	VendorID       *string     `json:"vendor_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts claims into the engine's actor.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{
		ID:             c.SubjectID,
		Role:           c.Role,
		OrganizationID: c.OrganizationID,
		VendorID:       c.VendorID,
	}
}

// GenerateToken builds and signs a JWT for the actor.
func (tm *TokenManager) GenerateToken(actor domain.Actor) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		SubjectID:      actor.ID,
		Role:           actor.Role,
		OrganizationID: actor.OrganizationID,
		VendorID:       actor.VendorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.SubjectID == "" || !claims.Role.Valid() {
		return nil, errors.New("token missing subject or role")
	}
	if claims.Role == domain.RoleVendor && (claims.VendorID == nil || *claims.VendorID == "") {
		return nil, errors.New("vendor token missing vendor_id")
	}
	return claims, nil
}
