package auth

import (
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("user-1", "tenant-1", "user@example.com", "member", time.Hour, testSecret)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", claims.UserID)
	}
	if claims.TenantID != "tenant-1" {
		t.Errorf("expected tenant-1, got %s", claims.TenantID)
	}
	if claims.Role != "member" {
		t.Errorf("expected member, got %s", claims.Role)
	}
	if claims.IssuedAt == nil {
		t.Error("expected issued-at to be set")
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT("user-1", "", "user@example.com", "member", time.Hour, testSecret)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := ValidateJWT(token, []byte("other-secret")); err != ErrInvalidJWT {
		t.Fatalf("expected ErrInvalidJWT, got %v", err)
	}
}

func TestValidateJWTExpired(t *testing.T) {
	token, err := GenerateJWT("user-1", "", "user@example.com", "member", time.Nanosecond, testSecret)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := ValidateJWT(token, testSecret); err != ErrExpiredJWT {
		t.Fatalf("expected ErrExpiredJWT, got %v", err)
	}
}

func TestValidateJWTGarbage(t *testing.T) {
	if _, err := ValidateJWT("not.a.token", testSecret); err != ErrInvalidJWT {
		t.Fatalf("expected ErrInvalidJWT, got %v", err)
	}
}
