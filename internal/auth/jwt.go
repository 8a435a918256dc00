package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingTenant = errors.New("token has no tenant")
)

// Claims defines the structured data carried by identity provider tokens.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager validates HS256 tokens issued by the identity provider.
// GenerateToken mints tokens with the same secret for local development
// and tests.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	issuer    string
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secretKey: []byte(secret), ttl: ttl}
}

// WithIssuer requires tokens to carry the given iss claim.
func (tm *TokenManager) WithIssuer(issuer string) *TokenManager {
	tm.issuer = issuer
	return tm
}

// GenerateToken creates a new JWT access token
func (tm *TokenManager) GenerateToken(userID, tenantID uuid.UUID, name, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		TenantID: tenantID,
		Name:     name,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID.String(),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string. Both the user and
// the tenant must be present.
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return tm.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	if claims.TenantID == uuid.Nil {
		return nil, ErrMissingTenant
	}

	return claims, nil
}
