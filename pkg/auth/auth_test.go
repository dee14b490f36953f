package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"patientsurvey/pkg/config"
)

func testService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return NewService(config.AdminConfig{
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		JWTSecret:    "test-secret",
		SessionTTL:   time.Hour,
	})
}

func TestLoginIssuesValidToken(t *testing.T) {
	s := testService(t)
	session, token, err := s.Login(context.Background(), Credentials{Email: " Admin@Example.com ", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" || session.Email != "admin@example.com" {
		t.Fatalf("unexpected session %+v token %q", session, token)
	}
	if got := session.ExpiresAt.Sub(session.IssuedAt); got != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", got)
	}

	current, ok := s.CurrentSession(token)
	if !ok || current.Email != "admin@example.com" {
		t.Fatalf("expected current session, got %+v ok=%t", current, ok)
	}
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	s := testService(t)
	for _, creds := range []Credentials{
		{Email: "admin@example.com", Password: "wrong"},
		{Email: "other@example.com", Password: "s3cret-pass"},
		{Email: "", Password: ""},
	} {
		if _, _, err := s.Login(context.Background(), creds); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%+v: expected ErrInvalidCredentials, got %v", creds, err)
		}
	}
}

func TestLoginNotConfigured(t *testing.T) {
	s := NewService(config.AdminConfig{Email: "admin@example.com"})
	if _, _, err := s.Login(context.Background(), Credentials{Email: "admin@example.com", Password: "x"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if s.TTL() != 12*time.Hour {
		t.Fatalf("expected default ttl 12h, got %v", s.TTL())
	}
}

func TestCurrentSessionRejectsExpiredToken(t *testing.T) {
	s := testService(t)
	issued := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	_, token, err := s.Login(context.Background(), Credentials{Email: "admin@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, ok := s.CurrentSession(token); ok {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	s := testService(t)

	wrongSecret := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, _ := wrongSecret.SignedString([]byte("other-secret"))
	if _, err := s.ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, _ = wrongIssuer.SignedString([]byte("test-secret"))
	if _, err := s.ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}

	if _, ok := s.CurrentSession(""); ok {
		t.Fatalf("expected empty token to have no session")
	}
	if _, ok := s.CurrentSession("garbage"); ok {
		t.Fatalf("expected garbage token to have no session")
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")) != nil {
		t.Fatalf("hash does not verify")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
