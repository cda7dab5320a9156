package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// TimeNow is replaced in tests.
var TimeNow = time.Now

var (
	ErrTokenNotValid = errors.New("token is not valid")
	ErrTokenExpired  = errors.New("token expired")
)

// Sessions signs and verifies session tokens. A token carries only the
// account id and username; nothing is stored server side.
type Sessions struct {
	secret   []byte
	duration time.Duration
}

// NewSessions returns a Sessions signing with secret, issuing tokens valid
// for duration.
func NewSessions(secret []byte, duration time.Duration) *Sessions {
	return &Sessions{secret: secret, duration: duration}
}

// Duration returns how long issued tokens stay valid.
func (s *Sessions) Duration() time.Duration { return s.duration }

// Issue returns a signed token for the given account.
func (s *Sessions) Issue(userID int64, username string) (string, error) {
	now := TimeNow()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(userID, 10),
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.duration).Unix(),
		"username": username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the account id.
func (s *Sessions) Verify(token string) (int64, error) {
	parser := jwt.Parser{SkipClaimsValidation: true}
	parsed, err := parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("jwt parse: %v: %w", err, ErrTokenNotValid)
	}
	if !parsed.Valid {
		return 0, ErrTokenNotValid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("jwt claims type assertion failed")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0, ErrTokenNotValid
	}
	if int64(exp) < TimeNow().Unix() {
		return 0, fmt.Errorf("token expired at %v: %w", time.Unix(int64(exp), 0), ErrTokenExpired)
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenNotValid
	}
	return id, nil
}
