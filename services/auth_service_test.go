package services

import (
	"testing"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/config"
)

func newTestAuthService() *AuthService {
	return NewAuthService(config.JWTConfig{
		Secret:      "test-secret-key",
		ExpiryHours: 24,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestAuthService()

	token, err := svc.GenerateToken("dashboard", "reader")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("token should not be empty")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "dashboard" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "dashboard")
	}
	if claims.Role != "reader" {
		t.Errorf("Role = %q, want %q", claims.Role, "reader")
	}
	if claims.ExpiresAt == nil {
		t.Error("ExpiresAt should be set")
	}
	if claims.IssuedAt == nil {
		t.Error("IssuedAt should be set")
	}
}

func TestGenerateTokenWithoutSecret(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{ExpiryHours: 24})
	if _, err := svc.GenerateToken("dashboard", "reader"); err == nil {
		t.Error("expected error when no secret is configured")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	svc := newTestAuthService()

	if _, err := svc.ValidateToken("invalid.token.string"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc1 := NewAuthService(config.JWTConfig{Secret: "secret-1", ExpiryHours: 24})
	svc2 := NewAuthService(config.JWTConfig{Secret: "secret-2", ExpiryHours: 24})

	token, _ := svc1.GenerateToken("dashboard", "reader")

	if _, err := svc2.ValidateToken(token); err == nil {
		t.Error("expected error when validating with wrong secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret-key", ExpiryHours: -1})

	token, err := svc.GenerateToken("dashboard", "reader")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}
