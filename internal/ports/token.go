package ports

import "github.com/complior/complior/internal/domain"

// TokenClaims is the identity carried by an access token.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// TokenService validates and issues access tokens for the API surface.
type TokenService interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

var ErrInvalidToken = domain.NewDomainError("invalid or expired token")
