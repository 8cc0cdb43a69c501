package kv

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// JetStream KV 的键规则.
var jetStreamKey = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

func TestNATSKeyRoundTrip(t *testing.T) {
	for _, key := range []string{
		"upload.session.abc-123",
		"upload:session:abc",
		"upload.session.ZGVwbG95+bWVudA==",
		".leading",
		"trailing.",
		"a..b",
		"a=3Ab",
		"空格 与 unicode",
	} {
		escaped := natsKey(key)

		assert.Regexp(t, jetStreamKey, escaped, key)
		assert.NotEqual(t, '.', rune(escaped[0]), key)
		assert.NotEqual(t, '.', rune(escaped[len(escaped)-1]), key)
		assert.NotContains(t, escaped, "..", key)

		back, err := fromNATSKey(escaped)
		require.NoError(t, err, key)
		assert.Equal(t, key, back)
	}
}

func TestNATSKeyKeepsSafeKeys(t *testing.T) {
	assert.Equal(t, "upload.session.abc-123", natsKey("upload.session.abc-123"))
}

func TestFromNATSKeyRejectsBadEscape(t *testing.T) {
	_, err := fromNATSKey("abc=4")
	assert.Error(t, err)

	_, err = fromNATSKey("abc=ZZ")
	assert.Error(t, err)
}
