package domain

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		expected string
		valid    bool
	}{
		{"Lower-cases mixed case", "Test_User", "test_user", true},
		{"Allows dots and dashes", "john.doe-1", "john.doe-1", true},
		{"Minimum length", "abc", "abc", true},
		{"Maximum length", strings.Repeat("a", 30), strings.Repeat("a", 30), true},
		{"Leading dot allowed", ".abc", ".abc", true},
		{"Too short", "ab", "", false},
		{"Too long", strings.Repeat("a", 31), "", false},
		{"Invalid character", "a!", "", false},
		{"Contains @", "me@home", "", false},
		{"Contains space", "my name", "", false},
		{"Empty", "", "", false},
		{"Non-ASCII letters", "jürgen", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePrefix(tt.prefix)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
				assert.True(t, IsValidPrefix(got))
			} else {
				assert.ErrorIs(t, err, ErrPrefixInvalid)
				assert.Empty(t, got)
			}
		})
	}
}

func TestRandomPrefix(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9]{8}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		p, err := RandomPrefix(DefaultRandomLength)
		require.NoError(t, err)
		assert.Regexp(t, pattern, p)
		assert.True(t, IsValidPrefix(p))
		seen[p] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)

	p, err := RandomPrefix(0)
	require.NoError(t, err)
	assert.Len(t, p, DefaultRandomLength)
}

func TestRandomPassword(t *testing.T) {
	a, err := RandomPassword(24)
	require.NoError(t, err)
	b, err := RandomPassword(24)
	require.NoError(t, err)

	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
}

func TestSplitAddress(t *testing.T) {
	local, d, err := SplitAddress(" Test_User@PunkProof.com ")
	require.NoError(t, err)
	assert.Equal(t, "test_user", local)
	assert.Equal(t, "punkproof.com", d)

	for _, bad := range []string{"", "nodomain", "@punkproof.com", "user@"} {
		_, _, err := SplitAddress(bad)
		assert.ErrorIs(t, err, ErrAddressInvalid, bad)
	}

	acc := &Account{Address: "abc@example.com"}
	assert.Equal(t, "example.com", acc.Domain())
	assert.Equal(t, "abc@example.com", JoinAddress("abc", "example.com"))
}
