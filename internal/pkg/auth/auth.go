package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Sessions issues and validates HS256 bearer tokens
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

// NewSessions creates the session manager
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if secret == "" {
		return nil, fmt.Errorf("no auth secret")
	}
	if ttl <= 0 {
		ttl = time.Hour * 24 * 7
	}
	return &Sessions{secret: []byte(secret), ttl: ttl}, nil
}

// NewToken signs a token carrying the user ID
func (s *Sessions) NewToken(userID int64) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	res, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("can't sign token: %w", err)
	}
	return res, nil
}

// Parse validates the token and returns the user ID
func (s *Sessions) Parse(token string) (int64, error) {
	t, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("can't parse token: %w", err)
	}
	claims, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, fmt.Errorf("no subject")
	}
	res, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("wrong subject '%s': %w", claims.Subject, err)
	}
	return res, nil
}

// HashPassword makes a bcrypt hash for storing
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("can't hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword compares the stored hash with a candidate
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
