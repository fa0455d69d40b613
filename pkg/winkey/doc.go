// Package winkey generates the ephemeral RSA keypair used for one Windows
// password reset, encodes its public half in the format read by the Windows
// guest agent, and decrypts the password the agent sends back.
//
// The agent encrypts the password with RSA-OAEP. The OAEP hash must be the same
// on both sides; it defaults to SHA-1, which is what every agent version
// supports, and is announced to the agent in the hashFunction field of the
// published key.
package winkey
