package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token süreleri
const (
	TokenExpiryLogin       = 7 * 24 * time.Hour
	TokenExpiryReset       = 15 * time.Minute
	TokenExpiryEmailVerify = 24 * time.Hour
)

// Token purposes, carried in the "type" claim so a reset token cannot be
// used as a login token and vice versa.
const (
	PurposeAccess      = "access"
	PurposeReset       = "password_reset"
	PurposeEmailVerify = "email_verification"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"type"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewManager(secret, issuer string) *Manager {
	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

func (m *Manager) GenerateToken(userID uint, email, role string) (string, error) {
	return m.sign(userID, email, role, PurposeAccess, TokenExpiryLogin)
}

func (m *Manager) GenerateResetToken(userID uint, email string) (string, error) {
	return m.sign(userID, email, "", PurposeReset, TokenExpiryReset)
}

func (m *Manager) GenerateVerificationToken(userID uint, email string) (string, error) {
	return m.sign(userID, email, "", PurposeEmailVerify, TokenExpiryEmailVerify)
}

func (m *Manager) sign(userID uint, email, role, purpose string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:  userID,
		Email:   email,
		Role:    role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses tokenString and checks the signature, expiry and
// that the token was issued for purpose.
func (m *Manager) ValidateToken(tokenString, purpose string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
