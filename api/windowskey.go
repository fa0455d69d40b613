package api

import (
	"time"
)

// DefaultMetadataKey is the instance metadata key watched by the Windows guest
// agent for password reset requests.
const DefaultMetadataKey = "windows-keys"

// WindowsKey is the record published in instance metadata. The guest agent
// creates or resets the account named UserName and encrypts the new password
// with the public key described by Modulus and Exponent.
type WindowsKey struct {
	// Modulus is the base64 encoded big-endian modulus, without sign byte.
	Modulus string `json:"modulus"`
	// Exponent is the base64 encoded big-endian public exponent.
	Exponent string `json:"exponent"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	// ExpireOn is the time after which the agent ignores this record.
	ExpireOn Time `json:"expireOn"`
	// HashFunction selects the OAEP hash used by the agent. Agents that predate
	// this field always use sha1.
	HashFunction string `json:"hashFunction,omitempty"`
}

// Expired reports whether the record is no longer valid at now.
func (k *WindowsKey) Expired(now time.Time) bool {
	return !k.ExpireOn.After(now)
}
