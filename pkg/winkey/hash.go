package winkey

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"
)

// HashFunction names the hash used for OAEP padding, using the identifiers
// understood by the guest agent.
type HashFunction string

const (
	SHA1   HashFunction = "sha1"
	SHA256 HashFunction = "sha256"
	SHA512 HashFunction = "sha512"

	// DefaultHashFunction is the hash the agent uses when none is requested.
	DefaultHashFunction = SHA1
)

// ParseHashFunction validates a hash function name. An empty name selects
// DefaultHashFunction.
func ParseHashFunction(name string) (HashFunction, error) {
	switch h := HashFunction(strings.ToLower(strings.TrimSpace(name))); h {
	case "":
		return DefaultHashFunction, nil
	case SHA1, SHA256, SHA512:
		return h, nil
	default:
		return "", fmt.Errorf("unknown hash function %q, expected one of %s, %s, %s", name, SHA1, SHA256, SHA512)
	}
}

// New returns a new hash.Hash for h. It panics on unknown names, which
// ParseHashFunction rules out.
func (h HashFunction) New() hash.Hash {
	switch h {
	case SHA1, "":
		return sha1.New()
	case SHA256:
		return sha256.New()
	case SHA512:
		return sha512.New()
	}
	panic(fmt.Sprintf("winkey: unknown hash function %q", string(h)))
}

func (h HashFunction) String() string {
	if h == "" {
		return string(DefaultHashFunction)
	}
	return string(h)
}
