package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/featurec/internal/auth"
)

func TestGenerateKey(t *testing.T) {
	seen := map[string]bool{}
	for range 8 {
		key, err := auth.GenerateKey()
		require.NoError(t, err)
		assert.Len(t, key, auth.GeneratedKeyLength)
		for _, r := range key {
			assert.True(t, strings.ContainsRune(auth.Base62Chars, r), "unexpected rune %q", r)
		}
		seen[key] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "simple", password: "hunter2"},
		{name: "unicode", password: "pässwört"},
		{name: "empty", password: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := auth.DeriveKey(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, 32)
			again, err := auth.DeriveKey(tt.password)
			require.NoError(t, err)
			assert.Equal(t, key, again)
		})
	}
}

func TestSessionKeyDependsOnEveryInput(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	sn := []byte("server-nonce")
	cn := []byte("client-nonce")
	base := auth.SessionKey(key, sn, cn)
	assert.Len(t, base, 32)
	assert.Equal(t, base, auth.SessionKey(key, sn, cn))
	assert.NotEqual(t, base, auth.SessionKey([]byte("another key"), sn, cn))
	assert.NotEqual(t, base, auth.SessionKey(key, cn, sn))
}
