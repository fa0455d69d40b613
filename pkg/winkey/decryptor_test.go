package winkey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"hash"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetstack/winpass/api"
)

// encryptLikeAgent encrypts a password the way the guest agent does.
func encryptLikeAgent(t *testing.T, h hash.Hash, pub *rsa.PublicKey, password []byte) string {
	t.Helper()

	ciphertext, err := rsa.EncryptOAEP(h, rand.Reader, pub, password, nil)
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(ciphertext)
}

func TestNewDecryptor_NilKey(t *testing.T) {
	dec, err := NewDecryptor(nil, SHA1)
	require.Error(t, err)
	require.Nil(t, dec)
	require.Contains(t, err.Error(), "cannot be nil")
}

func TestNewDecryptor_UnknownHash(t *testing.T) {
	dec, err := NewDecryptor(testKey(), HashFunction("md5"))
	require.Error(t, err)
	require.Nil(t, dec)
}

func TestDecrypt_RoundTrip(t *testing.T) {
	key := testKey()

	passwords := map[string]string{
		"ascii":           `Xk3!p~Q9{z_]w@e`,
		"unicode":         "pässwörd-密码-🔑",
		"single byte":     "a",
		"windows special": `~!@#$%^&*_-+=|\(){}[]:;<>,.?/`,
	}

	for _, hf := range []HashFunction{SHA1, SHA256, SHA512} {
		for name, password := range passwords {
			t.Run(string(hf)+"/"+name, func(t *testing.T) {
				dec, err := NewDecryptor(key, hf)
				require.NoError(t, err)

				encrypted := encryptLikeAgent(t, hf.New(), &key.PublicKey, []byte(password))

				got, err := dec.Decrypt(encrypted)
				require.NoError(t, err)
				assert.Equal(t, password, got)
			})
		}
	}
}

func TestDecrypt_DefaultHashIsSHA1(t *testing.T) {
	key := testKey()

	dec, err := NewDecryptor(key, "")
	require.NoError(t, err)

	got, err := dec.Decrypt(encryptLikeAgent(t, sha1.New(), &key.PublicKey, []byte("secret")))
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestDecrypt_Failures(t *testing.T) {
	key := testKey()
	other, err := rsa.GenerateKey(rand.Reader, DefaultKeySize)
	require.NoError(t, err)

	tests := map[string]struct {
		encrypted string
		contains  string
	}{
		"malformed base64": {
			encrypted: "not base64!",
			contains:  "failed to decode",
		},
		"wrong ciphertext size": {
			encrypted: base64.StdEncoding.EncodeToString([]byte("short")),
			contains:  "expected 256 bytes",
		},
		"hash mismatch": {
			encrypted: encryptLikeAgent(t, SHA256.New(), &key.PublicKey, []byte("secret")),
			contains:  "RSA-OAEP-sha1",
		},
		"different key": {
			encrypted: encryptLikeAgent(t, SHA1.New(), &other.PublicKey, []byte("secret")),
			contains:  "failed to decrypt",
		},
		"not utf-8": {
			encrypted: encryptLikeAgent(t, SHA1.New(), &key.PublicKey, []byte{0xff, 0xfe, 0xfd}),
			contains:  "not valid UTF-8",
		},
	}

	dec, err := NewDecryptor(key, SHA1)
	require.NoError(t, err)

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := dec.Decrypt(tt.encrypted)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.ErrorIs(t, err, api.ErrDecryption)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
