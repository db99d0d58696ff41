package token

import (
	"testing"
	"time"

	"github.com/complior/complior/internal/ports"
)

func TestTokenService(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	t.Run("GenerateAccessToken", func(t *testing.T) {
		token, err := service.GenerateAccessToken(ports.TokenClaims{UserID: "user123", TenantID: "t1", Role: "admin"})
		if err != nil {
			t.Errorf("Failed to generate access token: %v", err)
		}
		if token == "" {
			t.Error("Access token should not be empty")
		}
	})

	t.Run("ValidateAccessToken", func(t *testing.T) {
		tokenString, err := service.GenerateAccessToken(ports.TokenClaims{UserID: "user123", TenantID: "t1", Role: "admin"})
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}

		claims, err := service.ValidateAccessToken(tokenString)
		if err != nil {
			t.Errorf("Failed to validate token: %v", err)
		}
		if claims != nil && claims.UserID != "user123" {
			t.Errorf("Expected user ID 'user123', got '%s'", claims.UserID)
		}
		if claims != nil && claims.TenantID != "t1" {
			t.Errorf("Expected tenant ID 't1', got '%s'", claims.TenantID)
		}
	})

	t.Run("ValidateInvalidToken", func(t *testing.T) {
		if _, err := service.ValidateAccessToken("invalid-token"); err != ports.ErrInvalidToken {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("ValidateTokenWithWrongSecret", func(t *testing.T) {
		other := NewService("other-secret", time.Hour)
		tokenString, err := other.GenerateAccessToken(ports.TokenClaims{UserID: "user123"})
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}
		if _, err := service.ValidateAccessToken(tokenString); err != ports.ErrInvalidToken {
			t.Errorf("Expected ErrInvalidToken for foreign signature, got %v", err)
		}
	})

	t.Run("ValidateExpiredToken", func(t *testing.T) {
		expired := NewService("test-secret", -time.Minute)
		tokenString, err := expired.GenerateAccessToken(ports.TokenClaims{UserID: "user123"})
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}
		if _, err := service.ValidateAccessToken(tokenString); err != ports.ErrInvalidToken {
			t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
		}
	})
}
