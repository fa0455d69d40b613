package winkey

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"time"

	"github.com/jetstack/winpass/api"
)

// DefaultValidity is how long the agent honours a published key. Keys are one
// time use; the window only has to cover clock skew between client and VM.
const DefaultValidity = 5 * time.Minute

// Encoder turns a public key into the WindowsKey record read by the agent.
type Encoder struct {
	UserName string
	Email    string
	// Validity defaults to DefaultValidity.
	Validity time.Duration
	// HashFunction is announced to the agent. Defaults to DefaultHashFunction.
	HashFunction HashFunction
	// Now defaults to time.Now.
	Now func() time.Time
}

// Encode builds the record for publicKey. Malformed keys produce an
// EncodingFailure error.
func (e *Encoder) Encode(publicKey *rsa.PublicKey) (*api.WindowsKey, error) {
	if publicKey == nil {
		return nil, api.NewError(api.EncodingFailure, "RSA public key cannot be nil")
	}
	if publicKey.N == nil || publicKey.N.Sign() <= 0 {
		return nil, api.NewError(api.EncodingFailure, "RSA modulus must be positive")
	}
	if publicKey.E <= 0 {
		return nil, api.NewError(api.EncodingFailure, "RSA public exponent must be positive, got %d", publicKey.E)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	validity := e.Validity
	if validity <= 0 {
		validity = DefaultValidity
	}

	return &api.WindowsKey{
		Modulus:      EncodeModulus(publicKey.N),
		Exponent:     EncodeExponent(publicKey.E),
		UserName:     e.UserName,
		Email:        e.Email,
		ExpireOn:     ExpireOn(now(), validity),
		HashFunction: e.HashFunction.String(),
	}, nil
}

// Marshal renders the record as the single line of JSON stored in metadata.
func Marshal(key *api.WindowsKey) (string, error) {
	data, err := json.Marshal(key)
	if err != nil {
		return "", api.NewError(api.EncodingFailure, "failed to marshal windows key: %w", err)
	}
	return string(data), nil
}

// ExpireOn returns now+validity truncated to the second, in UTC.
func ExpireOn(now time.Time, validity time.Duration) api.Time {
	return api.Time{Time: now.Add(validity).UTC().Truncate(time.Second)}
}

// EncodeModulus encodes n as unsigned big-endian bytes in standard base64.
func EncodeModulus(n *big.Int) string {
	return base64.StdEncoding.EncodeToString(stripSignByte(signedBytes(n)))
}

// EncodeExponent encodes e as signed big-endian bytes in standard base64.
// Unlike the modulus, a sign byte is kept. Existing clients publish the
// exponent in this form and the agent reads both as unsigned integers.
func EncodeExponent(e int) string {
	return base64.StdEncoding.EncodeToString(signedBytes(big.NewInt(int64(e))))
}

// signedBytes returns the minimal two's complement big-endian form of a
// non-negative x, which carries a leading zero byte when the top bit of the
// magnitude is set.
func signedBytes(x *big.Int) []byte {
	b := x.Bytes()
	if len(b) == 0 || b[0]&0x80 != 0 {
		return append([]byte{0}, b...)
	}
	return b
}

// stripSignByte drops exactly one leading zero byte, never more.
func stripSignByte(b []byte) []byte {
	if len(b) > 1 && b[0] == 0 {
		return b[1:]
	}
	return b
}
