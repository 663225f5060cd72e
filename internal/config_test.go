package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_CharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("*")
	req.NoError(err)
	req.Equal('*', r)

	// Multi-byte characters are fine as long as it is one rune
	r, err = CharacterRune("█")
	req.NoError(err)
	req.Equal('█', r)

	_, err = CharacterRune("")
	req.Error(err)

	_, err = CharacterRune("**")
	req.Error(err)
}
