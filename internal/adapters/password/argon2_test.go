package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func TestArgon2_HashAndVerify(t *testing.T) {
	h, err := NewArgon2(fastConfig())
	require.NoError(t, err)

	encoded, err := h.Hash("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := h.Verify("correct horse battery", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong horse battery", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2_SaltsDiffer(t *testing.T) {
	h, err := NewArgon2(fastConfig())
	require.NoError(t, err)
	a, err := h.Hash("same password!")
	require.NoError(t, err)
	b, err := h.Hash("same password!")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestArgon2_ShortPassword(t *testing.T) {
	h, err := NewArgon2(fastConfig())
	require.NoError(t, err)
	_, err = h.Hash("short")
	require.Error(t, err)
}

func TestArgon2_MalformedHash(t *testing.T) {
	h, err := NewArgon2(fastConfig())
	require.NoError(t, err)
	for _, bad := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$!!",
	} {
		_, err := h.Verify("whatever password", bad)
		assert.ErrorIs(t, err, ErrMalformedHash, bad)
	}
}

func TestNewArgon2_RejectsWeakConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.Memory = 1024
	_, err := NewArgon2(cfg)
	require.Error(t, err)

	cfg = fastConfig()
	cfg.SaltLength = 8
	_, err = NewArgon2(cfg)
	require.Error(t, err)
}
