package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func TestNewJWTService_ValidConfig(t *testing.T) {
	service, err := NewJWTService(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if service == nil {
		t.Fatal("Expected service to be non-nil")
	}
	if service.TokenDuration() != 24*time.Hour {
		t.Errorf("Expected default duration 24h, got %v", service.TokenDuration())
	}
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	for _, secret := range []string{"", "short"} {
		if _, err := NewJWTService(JWTConfig{Secret: secret}); !errors.Is(err, ErrInvalidSecretLength) {
			t.Errorf("secret %q: err = %v", secret, err)
		}
	}
}

func TestGenerateToken(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret, TokenDuration: time.Hour})

	token, err := service.GenerateToken("ops", RoleOperator)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if token.AccessToken == "" {
		t.Error("Expected non-empty access token")
	}
	if token.TokenType != "Bearer" {
		t.Errorf("Expected token type Bearer, got %q", token.TokenType)
	}
	if token.ExpiresIn != 3600 {
		t.Errorf("Expected expires_in 3600, got %d", token.ExpiresIn)
	}
}

func TestGenerateToken_InvalidRole(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret})

	if _, err := service.GenerateToken("ops", Role("superuser")); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
}

func TestValidateToken_RoundTrip(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret})

	token, err := service.GenerateToken("ops", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := service.ValidateToken(token.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "ops" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if claims.Issuer != "sharescan" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
	if !claims.IsAdmin() {
		t.Error("admin token not recognized as admin")
	}
}

func TestValidateToken_OperatorNotAdmin(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret})

	token, _ := service.GenerateToken("ops", RoleOperator)
	claims, err := service.ValidateToken(token.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.IsAdmin() {
		t.Error("operator token recognized as admin")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret})
	other, _ := NewJWTService(JWTConfig{Secret: "another-secret-key-that-is-32-chars"})

	token, _ := service.GenerateToken("ops", RoleOperator)
	if _, err := other.ValidateToken(token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret, TokenDuration: -time.Minute})

	token, err := service.GenerateToken("ops", RoleOperator)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := service.ValidateToken(token.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	service, _ := NewJWTService(JWTConfig{Secret: testSecret})

	if _, err := service.ValidateToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
