package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigningKey(t *testing.T) {
	a, err := NewSigningKey()
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	b, err := NewSigningKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// usable as an issuer secret
	iss := NewIssuer(a, time.Hour)
	tok, _, err := iss.Issue(uuid.New(), "student")
	require.NoError(t, err)
	_, _, err = iss.Parse(tok)
	assert.NoError(t, err)
}

func TestNewAdminKey(t *testing.T) {
	a, err := NewAdminKey()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(a, AdminKeyPrefix))
	body := strings.TrimPrefix(a, AdminKeyPrefix)
	assert.Len(t, body, 40)
	for _, r := range body {
		assert.True(t, strings.ContainsRune(adminAlphabet, r), "unexpected %q", r)
	}

	b, err := NewAdminKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
