// Package serial parses the password replies written by the Windows guest agent
// to a virtual serial port.
//
// Each reply is one line of JSON and the most recent line answering the
// current request is the one that counts. Errors distinguish "no reply yet" (api.ReplyUnavailable), which a caller can
// poll on, from replies that can never be used for the current key.
package serial

import (
	"encoding/json"
	"strings"

	"github.com/jetstack/winpass/api"
)

// DefaultPort is the serial port (COM4) the agent writes replies to.
const DefaultPort = 4

// ParseReply extracts the reply on the last non-empty line of contents.
func ParseReply(contents string) (*api.PasswordReply, error) {
	return Matcher{}.Match(contents)
}

// Matcher parses replies for one key.
type Matcher struct {
	// Modulus is the encoded modulus of the published key. When set, replies
	// that name a different modulus are treated as not yet available, since
	// they answer an earlier request.
	Modulus string
	// UserName, when set, makes replies for other accounts count as not yet
	// available. Windows account names are compared case-insensitively.
	UserName string
}

// Match returns the most recent reply for the matcher's key and user. Replies
// for other keys or users written after it are skipped, as are unparseable
// lines before the last one. A last line that is not JSON is malformed.
func (m Matcher) Match(contents string) (*api.PasswordReply, error) {
	lines := nonEmptyLines(contents)
	if len(lines) == 0 {
		return nil, api.NewError(api.ReplyUnavailable, "no reply in serial port output")
	}

	var stale error
	for i := len(lines) - 1; i >= 0; i-- {
		var reply api.PasswordReply
		if err := json.Unmarshal([]byte(lines[i]), &reply); err != nil {
			if i == len(lines)-1 {
				return nil, api.NewError(api.ReplyMalformed, "last line of serial port output is not a JSON object: %w", err)
			}
			continue
		}

		if err := m.other(&reply); err != nil {
			if stale == nil {
				stale = err
			}
			continue
		}

		return check(&reply)
	}

	return nil, stale
}

// other returns a ReplyUnavailable error if reply answers a different request.
func (m Matcher) other(reply *api.PasswordReply) error {
	if m.Modulus != "" && reply.Modulus != "" && reply.Modulus != m.Modulus {
		return api.NewError(api.ReplyUnavailable, "no reply for this key in serial port output")
	}
	if m.UserName != "" && reply.UserName != "" && !strings.EqualFold(reply.UserName, m.UserName) {
		return api.NewError(api.ReplyUnavailable, "no reply for user %q in serial port output, last reply is for user %q", m.UserName, reply.UserName)
	}
	return nil
}

func check(reply *api.PasswordReply) (*api.PasswordReply, error) {
	if reply.ErrorMessage != "" {
		return nil, api.NewError(api.ReplyRejected, "agent failed to reset password for user %q: %s", reply.UserName, reply.ErrorMessage)
	}

	var missing []string
	if reply.UserName == "" {
		missing = append(missing, "userName")
	}
	if reply.EncryptedPassword == "" {
		missing = append(missing, "encryptedPassword")
	}
	if len(missing) > 0 {
		return nil, api.NewError(api.ReplyMalformed, "reply is missing required fields: %s", strings.Join(missing, ", "))
	}

	return reply, nil
}

// nonEmptyLines returns the lines of s that are not blank, trimmed, in order.
func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
