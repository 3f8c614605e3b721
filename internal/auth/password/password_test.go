package password

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.True(t, Verify("correct horse battery staple", hash))
	require.False(t, Verify("correct horse battery stable", hash))
}

func TestVerifyHonorsEmbeddedParameters(t *testing.T) {
	// A hash produced under different cost parameters still verifies;
	// raising the defaults must not lock out existing accounts.
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("hunter2"), salt, 1, 64*1024, 4, 32)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=65536,t=1,p=4$%s$%s",
		argon2.Version,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	require.True(t, Verify("hunter2", encoded))
	require.False(t, Verify("hunter3", encoded))
}

func TestVerifyRejectsMalformedEncodings(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$AA$AA",
		"$argon2id$v=18$m=1,t=1,p=1$AA$AA",
		"$argon2id$v=19$m=1,t=1$AA$AA",
		"$argon2id$v=19$m=1,t=1,p=1$!!$AA",
		"$argon2id$v=19$m=1,t=1,p=1$AA$!!",
	} {
		require.False(t, Verify("x", encoded), encoded)
	}
}
