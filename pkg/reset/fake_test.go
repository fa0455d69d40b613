package reset

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	compute "google.golang.org/api/compute/v1"

	"github.com/jetstack/winpass/api"
	"github.com/jetstack/winpass/pkg/metadata"
	"github.com/jetstack/winpass/pkg/winkey"
)

// fakeCompute is an in-memory instance with a Windows guest agent that answers
// password reset requests on the serial port.
type fakeCompute struct {
	t *testing.T

	md     *compute.Metadata
	serial string

	getErr error
	setErr error
	// blockGet and blockSet make the metadata calls hang until ctx is done,
	// like a slow API or an operation that never finishes.
	blockGet bool
	blockSet bool
	// failReads makes the first n serial port reads after the update fail.
	failReads int
	// replyAfterReads delays the agent reply until that many reads happened
	// after the update.
	replyAfterReads int
	// respond builds the lines the agent writes for a published key. One line
	// becomes visible per read. A nil respond makes the agent never answer.
	respond func(t *testing.T, key api.WindowsKey) string
	// revealAll makes every line of the reply visible on the same read.
	revealAll bool

	published    *api.WindowsKey
	pending      []string
	readsAfter   int
	setCalls     int
	cancelOnRead context.CancelFunc
}

func (f *fakeCompute) InstanceMetadata(ctx context.Context, _ Instance) (*compute.Metadata, error) {
	if f.blockGet {
		<-ctx.Done()
		return nil, fmt.Errorf("failed to get instance: %w", ctx.Err())
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.md, nil
}

func (f *fakeCompute) SetInstanceMetadata(ctx context.Context, _ Instance, md *compute.Metadata) error {
	f.setCalls++
	if f.blockSet {
		<-ctx.Done()
		return fmt.Errorf("failed to wait for operation op-1: %w", ctx.Err())
	}
	if f.setErr != nil {
		return f.setErr
	}
	f.md = md

	value, ok := metadata.Lookup(md, api.DefaultMetadataKey)
	require.True(f.t, ok, "windows-keys entry should have been published")

	var key api.WindowsKey
	require.NoError(f.t, json.Unmarshal([]byte(value), &key))
	f.published = &key

	if f.respond != nil {
		for _, line := range strings.SplitAfter(f.respond(f.t, key), "\n") {
			if line != "" {
				f.pending = append(f.pending, line)
			}
		}
	}
	return nil
}

func (f *fakeCompute) SerialPortOutput(_ context.Context, _ Instance, port int64, start int64) (*SerialOutput, error) {
	require.Equal(f.t, int64(4), port)

	if f.published != nil {
		if f.cancelOnRead != nil {
			f.cancelOnRead()
		}
		f.readsAfter++
		if f.readsAfter <= f.failReads {
			return nil, context.DeadlineExceeded
		}
		if len(f.pending) > 0 && f.readsAfter > f.replyAfterReads {
			n := 1
			if f.revealAll {
				n = len(f.pending)
			}
			f.serial += strings.Join(f.pending[:n], "")
			f.pending = f.pending[n:]
		}
	}

	if start > int64(len(f.serial)) {
		start = int64(len(f.serial))
	}
	return &SerialOutput{Contents: f.serial[start:], Next: int64(len(f.serial))}, nil
}

// agentReply encrypts password for key the way the guest agent does and
// returns the serial port line it writes.
func agentReply(password string) func(t *testing.T, key api.WindowsKey) string {
	return func(t *testing.T, key api.WindowsKey) string {
		t.Helper()

		mod, err := base64.StdEncoding.DecodeString(key.Modulus)
		require.NoError(t, err)
		exp, err := base64.StdEncoding.DecodeString(key.Exponent)
		require.NoError(t, err)

		pub := &rsa.PublicKey{
			N: new(big.Int).SetBytes(mod),
			E: int(new(big.Int).SetBytes(exp).Int64()),
		}

		h, err := winkey.ParseHashFunction(key.HashFunction)
		require.NoError(t, err)

		ciphertext, err := rsa.EncryptOAEP(h.New(), rand.Reader, pub, []byte(password), nil)
		require.NoError(t, err)

		return replyLine(t, api.PasswordReply{
			UserName:          key.UserName,
			EncryptedPassword: base64.StdEncoding.EncodeToString(ciphertext),
			Modulus:           key.Modulus,
			Exponent:          key.Exponent,
			HashFunction:      key.HashFunction,
			PasswordFound:     true,
		})
	}
}

func replyLine(t *testing.T, reply api.PasswordReply) string {
	t.Helper()

	data, err := json.Marshal(reply)
	require.NoError(t, err)
	return string(data) + "\n"
}
