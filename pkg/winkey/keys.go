package winkey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/jetstack/winpass/api"
)

const (
	// DefaultKeySize is the modulus size used by the guest agent documentation.
	DefaultKeySize = 2048

	// minRSAKeySize is the smallest modulus we are willing to publish.
	minRSAKeySize = 2048
)

// GenerateKey returns a fresh RSA keypair of the given size read from
// crypto/rand. Failures are KeyGenerationFailure errors and are not retried.
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	if bits < minRSAKeySize {
		return nil, api.NewError(api.KeyGenerationFailure, "RSA key size must be at least %d bits, got %d bits", minRSAKeySize, bits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, api.NewError(api.KeyGenerationFailure, "failed to generate %d bit RSA key: %w", bits, err)
	}

	return key, nil
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint of the public key,
// base64url encoded. It identifies the key of a run in logs without printing
// the key itself.
func Thumbprint(publicKey *rsa.PublicKey) (string, error) {
	if publicKey == nil {
		return "", fmt.Errorf("RSA public key cannot be nil")
	}

	key, err := jwk.Import(publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to convert public key to JWK: %w", err)
	}

	sum, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to compute JWK thumbprint: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(sum), nil
}
