package api

// PasswordReply is one line of JSON written by the guest agent to the serial
// port after it processed a WindowsKey.
type PasswordReply struct {
	UserName          string `json:"userName"`
	EncryptedPassword string `json:"encryptedPassword"`

	// The fields below are written by newer agents only.
	Modulus       string `json:"modulus,omitempty"`
	Exponent      string `json:"exponent,omitempty"`
	HashFunction  string `json:"hashFunction,omitempty"`
	PasswordFound bool   `json:"passwordFound,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}
