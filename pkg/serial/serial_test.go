package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetstack/winpass/api"
)

func TestParseReply(t *testing.T) {
	tests := map[string]struct {
		contents          string
		expectedUser      string
		expectedPassword  string
		expectedErrorKind api.ErrorKind
	}{
		"last line wins": {
			contents:         "{\"userName\":\"a\",\"encryptedPassword\":\"X\"}\n{\"userName\":\"a\",\"encryptedPassword\":\"Y\"}",
			expectedUser:     "a",
			expectedPassword: "Y",
		},
		"trailing newline and blank lines are skipped": {
			contents:         "{\"userName\":\"a\",\"encryptedPassword\":\"X\"}\n\n  \n",
			expectedUser:     "a",
			expectedPassword: "X",
		},
		"carriage returns are tolerated": {
			contents:         "{\"userName\":\"b\",\"encryptedPassword\":\"Z\"}\r\n",
			expectedUser:     "b",
			expectedPassword: "Z",
		},
		"extra fields are ignored": {
			contents:         `{"userName":"a","encryptedPassword":"X","passwordFound":true,"modulus":"AQAB","extra":1}`,
			expectedUser:     "a",
			expectedPassword: "X",
		},
		"empty output": {
			contents:          "",
			expectedErrorKind: api.ReplyUnavailable,
		},
		"only whitespace": {
			contents:          "\n \r\n\t\n",
			expectedErrorKind: api.ReplyUnavailable,
		},
		"truncated last line": {
			contents:          "{\"userName\":\"a\",\"encryptedPassword\":\"X\"}\n{\"userName\":\"a\",\"encrypt",
			expectedErrorKind: api.ReplyMalformed,
		},
		"last line is not an object": {
			contents:          `["userName","a"]`,
			expectedErrorKind: api.ReplyMalformed,
		},
		"last line is null": {
			contents:          "null",
			expectedErrorKind: api.ReplyMalformed,
		},
		"missing encrypted password": {
			contents:          `{"userName":"a"}`,
			expectedErrorKind: api.ReplyMalformed,
		},
		"missing user name": {
			contents:          `{"encryptedPassword":"X"}`,
			expectedErrorKind: api.ReplyMalformed,
		},
		"agent error": {
			contents:          `{"userName":"a","passwordFound":false,"errorMessage":"error running resetPwd"}`,
			expectedErrorKind: api.ReplyRejected,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			reply, err := ParseReply(tt.contents)
			if tt.expectedErrorKind != api.UnknownFailure {
				require.Error(t, err)
				assert.Nil(t, reply)
				assert.Equal(t, tt.expectedErrorKind, api.KindOf(err), err.Error())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedUser, reply.UserName)
			assert.Equal(t, tt.expectedPassword, reply.EncryptedPassword)
		})
	}
}

func TestParseReply_ErrorMentionsMissingFields(t *testing.T) {
	_, err := ParseReply(`{"passwordFound":true}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "userName, encryptedPassword")
}

func TestMatcher_Match(t *testing.T) {
	m := Matcher{Modulus: "bW9kLTI="}

	t.Run("matching modulus", func(t *testing.T) {
		reply, err := m.Match(`{"userName":"a","encryptedPassword":"X","modulus":"bW9kLTI="}`)
		require.NoError(t, err)
		assert.Equal(t, "X", reply.EncryptedPassword)
	})

	t.Run("reply for an earlier key", func(t *testing.T) {
		_, err := m.Match(`{"userName":"a","encryptedPassword":"X","modulus":"bW9kLTE="}`)
		require.Error(t, err)
		assert.ErrorIs(t, err, api.ErrReplyUnavailable)
	})

	t.Run("agent error for an earlier key", func(t *testing.T) {
		_, err := m.Match(`{"userName":"a","errorMessage":"boom","modulus":"bW9kLTE="}`)
		require.Error(t, err)
		assert.ErrorIs(t, err, api.ErrReplyUnavailable)
	})

	t.Run("older agents omit the modulus", func(t *testing.T) {
		reply, err := m.Match(`{"userName":"a","encryptedPassword":"X"}`)
		require.NoError(t, err)
		assert.Equal(t, "a", reply.UserName)
	})

	t.Run("reply followed by replies for other keys", func(t *testing.T) {
		contents := `{"userName":"a","encryptedPassword":"X","modulus":"bW9kLTI="}` + "\n" +
			"garbage\n" +
			`{"userName":"b","encryptedPassword":"Y","modulus":"bW9kLTM="}` + "\n"

		reply, err := m.Match(contents)
		require.NoError(t, err)
		assert.Equal(t, "X", reply.EncryptedPassword)
	})

	t.Run("latest reply for this key wins", func(t *testing.T) {
		contents := `{"userName":"a","encryptedPassword":"X","modulus":"bW9kLTI="}` + "\n" +
			`{"userName":"a","errorMessage":"boom","modulus":"bW9kLTI="}` + "\n" +
			`{"userName":"b","encryptedPassword":"Y","modulus":"bW9kLTM="}` + "\n"

		_, err := m.Match(contents)
		assert.ErrorIs(t, err, api.ErrReplyRejected)
	})

	t.Run("only replies for other keys", func(t *testing.T) {
		contents := `{"userName":"a","encryptedPassword":"X","modulus":"bW9kLTE="}` + "\n" +
			`{"userName":"b","encryptedPassword":"Y","modulus":"bW9kLTM="}` + "\n"

		_, err := m.Match(contents)
		assert.ErrorIs(t, err, api.ErrReplyUnavailable)
	})

	t.Run("truncated last line is malformed even after a matching reply", func(t *testing.T) {
		contents := `{"userName":"a","encryptedPassword":"X","modulus":"bW9kLTI="}` + "\n" + `{"userName":"a","encr`

		_, err := m.Match(contents)
		assert.ErrorIs(t, err, api.ErrReplyMalformed)
	})

	t.Run("reply for another user", func(t *testing.T) {
		m := Matcher{UserName: "Administrator"}

		_, err := m.Match(`{"userName":"someone","encryptedPassword":"X"}`)
		require.Error(t, err)
		assert.ErrorIs(t, err, api.ErrReplyUnavailable)

		reply, err := m.Match(`{"userName":"administrator","encryptedPassword":"X"}`)
		require.NoError(t, err)
		assert.Equal(t, "X", reply.EncryptedPassword)
	})
}
