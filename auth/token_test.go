package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tero-session/errors"
)

const secret = "test-signing-secret"

func Test_UserID_From_Valid_Token(t *testing.T) {
	req := require.New(t)
	userID := uuid.New()
	token, err := IssueBindToken(secret, userID, time.Minute)
	req.NoError(err)

	validator := NewValidator(secret)
	parsed, err := validator.UserID(token)

	req.NoError(err)
	req.Equal(userID, parsed)
}

func Test_UserID_Rejects_Wrong_Key(t *testing.T) {
	req := require.New(t)
	token, err := IssueBindToken("another-secret", uuid.New(), time.Minute)
	req.NoError(err)

	validator := NewValidator(secret)
	_, err = validator.UserID(token)

	req.ErrorIs(err, errors.Upstream)
}

func Test_UserID_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	token, err := IssueBindToken(secret, uuid.New(), -time.Minute)
	req.NoError(err)

	validator := NewValidator(secret)
	_, err = validator.UserID(token)

	req.ErrorIs(err, errors.Upstream)
}

func Test_UserID_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	validator := NewValidator(secret)

	_, err := validator.UserID("not-a-token")

	req.ErrorIs(err, errors.Upstream)
}
