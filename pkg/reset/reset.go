// Package reset resets the password of a Windows account on a Compute Engine
// instance.
//
// A reset generates an ephemeral RSA key, publishes its public half in the
// instance metadata, waits for the Windows guest agent to write the new
// password, encrypted with that key, to a serial port, and decrypts it. The key
// only lives for the duration of one call to Resetter.Reset.
package reset

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/jetstack/winpass/api"
	"github.com/jetstack/winpass/pkg/logs"
	"github.com/jetstack/winpass/pkg/metadata"
	"github.com/jetstack/winpass/pkg/serial"
	"github.com/jetstack/winpass/pkg/winkey"
)

// Result is the outcome of a successful reset.
type Result struct {
	Instance Instance
	UserName string
	Password string
}

// Resetter performs password resets through a Compute client.
type Resetter struct {
	compute Compute
	opts    Options
}

// New returns a Resetter. The options are validated here so that a bad
// configuration is reported before any key is generated.
func New(c Compute, opts Options) (*Resetter, error) {
	if c == nil {
		return nil, fmt.Errorf("compute client cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reset options: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Resetter{
		compute: c,
		opts:    opts,
	}, nil
}

// Reset creates or resets the configured account on instance and returns its
// new password. Every failure is an *api.Error; only the wait for the reply is
// retried.
func (r *Resetter) Reset(ctx context.Context, instance Instance) (*Result, error) {
	logger := klog.FromContext(ctx).WithValues("instance", instance.String(), "user", r.opts.UserName)
	ctx = klog.NewContext(ctx, logger)

	logger.Info("Generating public/private key pair", "bits", r.opts.KeySize)
	key, err := winkey.GenerateKey(r.opts.KeySize)
	if err != nil {
		return nil, err
	}

	if thumbprint, err := winkey.Thumbprint(&key.PublicKey); err == nil {
		logger = logger.WithValues("key", thumbprint)
		ctx = klog.NewContext(ctx, logger)
	} else {
		logger.V(logs.Debug).Info("Could not compute key thumbprint", "err", err)
	}

	encoder := &winkey.Encoder{
		UserName:     r.opts.UserName,
		Email:        r.opts.Email,
		Validity:     r.opts.KeyValidity,
		HashFunction: r.opts.HashFunction,
		Now:          r.opts.Now,
	}
	record, err := encoder.Encode(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	if record.Expired(r.opts.Now()) {
		return nil, api.NewError(api.EncodingFailure, "key record would expire on %s, before it is published: increase the key validity", record.ExpireOn)
	}
	value, err := winkey.Marshal(record)
	if err != nil {
		return nil, err
	}

	md, err := r.compute.InstanceMetadata(ctx, instance)
	if err != nil {
		return nil, metadataError(ctx, instance, "get", err)
	}

	// Only output written after the metadata update can answer this key.
	start := r.serialOffset(ctx, instance)

	logger.Info("Setting new metadata entry", "key", r.opts.MetadataKey, "expireOn", record.ExpireOn.String())
	md = metadata.Merge(md, r.opts.MetadataKey, value)
	if err := r.compute.SetInstanceMetadata(ctx, instance, md); err != nil {
		return nil, metadataError(ctx, instance, "set", err)
	}

	logger.Info("Waiting for encrypted password", "serialPort", r.opts.SerialPort)
	matcher := serial.Matcher{Modulus: record.Modulus, UserName: r.opts.UserName}
	reply, err := r.poll(ctx, instance, matcher, start)
	if err != nil {
		return nil, err
	}

	logger.Info("Decrypting password")
	decryptor, err := winkey.NewDecryptor(key, r.opts.HashFunction)
	if err != nil {
		return nil, api.WrapError(api.DecryptionFailure, err)
	}
	password, err := decryptor.Decrypt(reply.EncryptedPassword)
	if err != nil {
		return nil, err
	}

	return &Result{
		Instance: instance,
		UserName: reply.UserName,
		Password: password,
	}, nil
}

// serialOffset returns the offset of the end of the serial port output. Any
// failure falls back to reading from the start, which the matcher tolerates.
func (r *Resetter) serialOffset(ctx context.Context, instance Instance) int64 {
	logger := klog.FromContext(ctx)

	out, err := r.compute.SerialPortOutput(ctx, instance, r.opts.SerialPort, 0)
	if err != nil {
		logger.V(logs.Debug).Info("Could not read serial port output before the update, reading from the start", "err", err)
		return 0
	}
	return out.Next
}

// metadataError classifies a failed metadata call. A call cut short by the
// deadline or cancellation of ctx is a Timeout, whatever the client returned.
func metadataError(ctx context.Context, instance Instance, verb string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return api.NewError(api.Timeout, "stopped while trying to %s metadata of instance %s: %w", verb, instance, ctxErr)
	}
	return api.NewError(api.MetadataUpdateFailure, "failed to %s metadata of instance %s: %w", verb, instance, err)
}
