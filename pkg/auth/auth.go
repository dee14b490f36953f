// Package auth implements admin login backed by a bcrypt hash and HS256 session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"patientsurvey/pkg/config"
)

// Issuer is the iss claim of every session token.
const Issuer = "patientsurvey-admin"

// User-facing messages. Failures never reveal which credential was wrong.
const (
	LoginFailedMessage   = "로그인에 실패했습니다. 다시 시도해주세요."
	NotConfiguredMessage = "설정 오류: 관리자에게 문의하세요."
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfigured      = errors.New("admin login is not configured")
	ErrInvalidToken       = errors.New("invalid session token")
)

// Credentials is a login attempt.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Session describes an authenticated admin.
type Session struct {
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims represents the JWT claims.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service authenticates the single configured admin account.
type Service struct {
	cfg config.AdminConfig
	now func() time.Time
}

func NewService(cfg config.AdminConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &Service{cfg: cfg, now: time.Now}
}

// Configured reports whether logins can succeed.
func (s *Service) Configured() bool {
	return s.cfg.Configured()
}

// TTL returns the lifetime of issued sessions.
func (s *Service) TTL() time.Duration {
	return s.cfg.SessionTTL
}

// Login checks creds and issues a signed session token.
func (s *Service) Login(ctx context.Context, creds Credentials) (Session, string, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, "", err
	}
	if !s.cfg.Configured() {
		log.Printf("[Login] Admin credentials are not configured")
		return Session{}, "", ErrNotConfigured
	}

	emailOK := strings.EqualFold(strings.TrimSpace(creds.Email), s.cfg.Email)
	pwErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(creds.Password))
	if !emailOK || pwErr != nil {
		if pwErr != nil && !errors.Is(pwErr, bcrypt.ErrMismatchedHashAndPassword) {
			log.Printf("[Login] Stored password hash is unusable: %v", pwErr)
		}
		return Session{}, "", ErrInvalidCredentials
	}

	now := s.now()
	session := Session{
		Email:     s.cfg.Email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	claims := &Claims{
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   session.Email,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return Session{}, "", fmt.Errorf("failed to sign session token: %w", err)
	}
	log.Printf("[Login] Admin session issued, expires %s", session.ExpiresAt.Format(time.RFC3339))
	return session, signed, nil
}

// ValidateToken parses and verifies a session token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if !s.cfg.Configured() {
		return nil, ErrNotConfigured
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if !strings.EqualFold(claims.Email, s.cfg.Email) {
		return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	return claims, nil
}

// CurrentSession returns the session carried by tokenString, if valid.
func (s *Service) CurrentSession(tokenString string) (*Session, bool) {
	if tokenString == "" {
		return nil, false
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, false
	}
	session := &Session{Email: claims.Email}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, true
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
