package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tero-session/errors"
)

// BindClaims is the payload of a bind token: the identity a client
// presents when attaching a connection to a game session. Tokens are
// issued by the platform; this service only verifies them.
type BindClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Validator checks bind tokens with the shared HMAC key. The key comes
// from configuration, never from source.
type Validator struct {
	key []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{key: []byte(secret)}
}

// UserID validates the token signature and expiry and extracts the user
// id. Any failure is reported as Upstream: the token was minted by the
// platform, not by us.
func (v *Validator) UserID(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &BindClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return uuid.Nil, errors.Upstream
	}

	claims, ok := token.Claims.(*BindClaims)
	if !ok || !token.Valid {
		return uuid.Nil, errors.Upstream
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, errors.Upstream
	}
	return userID, nil
}

// IssueBindToken signs a bind token for userID. Only used by tests and
// local tooling; production tokens come from the platform.
func IssueBindToken(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	claims := &BindClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "tero-session",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
