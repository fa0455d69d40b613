package winkey

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jetstack/winpass/api"
)

// Decryptor decrypts the password returned by the agent with the private key of
// the current run.
type Decryptor struct {
	privateKey   *rsa.PrivateKey
	hashFunction HashFunction
}

// NewDecryptor creates a Decryptor. hashFunction must match the hash the agent
// encrypted with; an empty value selects DefaultHashFunction.
func NewDecryptor(privateKey *rsa.PrivateKey, hashFunction HashFunction) (*Decryptor, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("RSA private key cannot be nil")
	}

	h, err := ParseHashFunction(string(hashFunction))
	if err != nil {
		return nil, err
	}

	return &Decryptor{
		privateKey:   privateKey,
		hashFunction: h,
	}, nil
}

// Decrypt decodes the base64 ciphertext and decrypts it with RSA-OAEP. Every
// failure is a DecryptionFailure error.
func (d *Decryptor) Decrypt(encryptedPassword string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encryptedPassword))
	if err != nil {
		return "", api.NewError(api.DecryptionFailure, "failed to decode encrypted password: %w", err)
	}

	if len(ciphertext) != d.privateKey.Size() {
		return "", api.NewError(api.DecryptionFailure, "ciphertext is %d bytes, expected %d bytes for this key", len(ciphertext), d.privateKey.Size())
	}

	plaintext, err := rsa.DecryptOAEP(d.hashFunction.New(), rand.Reader, d.privateKey, ciphertext, nil)
	if err != nil {
		return "", api.NewError(api.DecryptionFailure, "failed to decrypt password with RSA-OAEP-%s: %w", d.hashFunction, err)
	}

	if !utf8.Valid(plaintext) {
		return "", api.NewError(api.DecryptionFailure, "decrypted password is not valid UTF-8")
	}

	return string(plaintext), nil
}
