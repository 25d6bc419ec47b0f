package rcon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripANSI(t *testing.T) {
	in := "\x1b[32mHello\x1b[0m World"
	assert.Equal(t, "Hello World", StripANSI(in))
}

func TestParsePlayerListWithPlayers(t *testing.T) {
	names, err := ParsePlayerList("There are 2 of a max of 20 players online: Alice, Bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, names)
}

func TestParsePlayerListEmpty(t *testing.T) {
	names, err := ParsePlayerList("There are 0 of a max of 20 players online:")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestParsePlayerListUnrecognized(t *testing.T) {
	_, err := ParsePlayerList("garbage")
	require.Error(t, err)
}
