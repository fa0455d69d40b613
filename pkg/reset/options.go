package reset

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/jetstack/winpass/api"
	"github.com/jetstack/winpass/pkg/serial"
	"github.com/jetstack/winpass/pkg/winkey"
)

// Options configures a Resetter.
type Options struct {
	// UserName is the Windows account to create or reset.
	UserName string
	// Email is published alongside the key for auditing on the instance.
	Email string

	// MetadataKey is the instance metadata key watched by the agent.
	MetadataKey string
	// KeySize is the RSA modulus size in bits.
	KeySize int
	// KeyValidity is how long the agent accepts the published key.
	KeyValidity time.Duration
	// HashFunction is the OAEP hash requested from the agent and used to decrypt.
	HashFunction winkey.HashFunction
	// SerialPort is the port the agent writes replies to.
	SerialPort int64

	Polling PollingOptions

	// Now defaults to time.Now.
	Now func() time.Time
}

// PollingOptions controls how the serial port is polled for the reply.
type PollingOptions struct {
	// InitialInterval is the wait after the first unsuccessful read.
	InitialInterval time.Duration
	// Multiplier grows the wait after each unsuccessful read.
	Multiplier float64
	// MaxInterval caps the wait between reads.
	MaxInterval time.Duration
	// Timeout is the longest time to wait for a reply after the metadata
	// update has been applied.
	Timeout time.Duration
}

// DefaultOptions returns the options used by the Windows guest agent
// documentation, without a user name.
func DefaultOptions() Options {
	return Options{
		MetadataKey:  api.DefaultMetadataKey,
		KeySize:      winkey.DefaultKeySize,
		KeyValidity:  winkey.DefaultValidity,
		HashFunction: winkey.DefaultHashFunction,
		SerialPort:   serial.DefaultPort,
		Polling:      DefaultPollingOptions(),
	}
}

// DefaultPollingOptions returns the default polling strategy.
func DefaultPollingOptions() PollingOptions {
	return PollingOptions{
		InitialInterval: 2 * time.Second,
		Multiplier:      1.5,
		MaxInterval:     15 * time.Second,
		Timeout:         5 * time.Minute,
	}
}

// Validate checks that the options describe a usable reset.
func (o *Options) Validate() error {
	var result *multierror.Error

	if o.UserName == "" {
		result = multierror.Append(result, fmt.Errorf("user name is required"))
	}
	if o.MetadataKey == "" {
		result = multierror.Append(result, fmt.Errorf("metadata key is required"))
	}
	if o.KeySize < winkey.DefaultKeySize {
		result = multierror.Append(result, fmt.Errorf("key size must be at least %d bits, got %d", winkey.DefaultKeySize, o.KeySize))
	}
	if o.KeyValidity <= 0 {
		result = multierror.Append(result, fmt.Errorf("key validity must be positive, got %s", o.KeyValidity))
	}
	if _, err := winkey.ParseHashFunction(string(o.HashFunction)); err != nil {
		result = multierror.Append(result, err)
	}
	if o.SerialPort < 1 || o.SerialPort > 4 {
		result = multierror.Append(result, fmt.Errorf("serial port must be between 1 and 4, got %d", o.SerialPort))
	}
	if err := o.Polling.validate(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

func (p *PollingOptions) validate() error {
	var result *multierror.Error

	if p.InitialInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("polling initial interval must be positive, got %s", p.InitialInterval))
	}
	if p.Multiplier < 1 {
		result = multierror.Append(result, fmt.Errorf("polling multiplier must be at least 1, got %v", p.Multiplier))
	}
	if p.MaxInterval < p.InitialInterval {
		result = multierror.Append(result, fmt.Errorf("polling max interval %s is shorter than the initial interval %s", p.MaxInterval, p.InitialInterval))
	}
	if p.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("polling timeout must be positive, got %s", p.Timeout))
	}

	return result.ErrorOrNil()
}
