// Package config loads the winpass configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/jetstack/winpass/pkg/reset"
	"github.com/jetstack/winpass/pkg/winkey"
)

// Config wraps the options for a password reset.
type Config struct {
	Project         string `yaml:"project"`
	Zone            string `yaml:"zone"`
	Instance        string `yaml:"instance"`
	CredentialsFile string `yaml:"credentials-file,omitempty"`

	UserName string `yaml:"user-name"`
	Email    string `yaml:"email,omitempty"`

	MetadataKey  string        `yaml:"metadata-key"`
	KeySize      int           `yaml:"key-size"`
	KeyValidity  time.Duration `yaml:"key-validity"`
	HashFunction string        `yaml:"hash-function"`
	SerialPort   int64         `yaml:"serial-port"`

	Polling Polling `yaml:"polling"`
}

// Polling configures how long and how often the serial port is read.
type Polling struct {
	InitialInterval time.Duration `yaml:"initial-interval"`
	Multiplier      float64       `yaml:"multiplier"`
	MaxInterval     time.Duration `yaml:"max-interval"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Default returns a Config with every optional field set to its default.
func Default() Config {
	opts := reset.DefaultOptions()
	return Config{
		MetadataKey:  opts.MetadataKey,
		KeySize:      opts.KeySize,
		KeyValidity:  opts.KeyValidity,
		HashFunction: string(opts.HashFunction),
		SerialPort:   opts.SerialPort,
		Polling: Polling{
			InitialInterval: opts.Polling.InitialInterval,
			Multiplier:      opts.Polling.Multiplier,
			MaxInterval:     opts.Polling.MaxInterval,
			Timeout:         opts.Polling.Timeout,
		},
	}
}

// Dump generates a YAML string of the Config object
func (c *Config) Dump() (string, error) {
	d, err := yaml.Marshal(&c)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate YAML dump of config")
	}

	return string(d), nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Project == "" {
		result = multierror.Append(result, fmt.Errorf("project is required"))
	}
	if c.Zone == "" {
		result = multierror.Append(result, fmt.Errorf("zone is required"))
	}
	if c.Instance == "" {
		result = multierror.Append(result, fmt.Errorf("instance is required"))
	}

	opts, err := c.Options()
	if err != nil {
		result = multierror.Append(result, err)
	} else if err := opts.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// Target returns the instance to reset.
func (c *Config) Target() reset.Instance {
	return reset.Instance{
		Project: c.Project,
		Zone:    c.Zone,
		Name:    c.Instance,
	}
}

// Options returns the reset options described by the configuration.
func (c *Config) Options() (reset.Options, error) {
	hashFunction, err := winkey.ParseHashFunction(c.HashFunction)
	if err != nil {
		return reset.Options{}, err
	}

	return reset.Options{
		UserName:     c.UserName,
		Email:        c.Email,
		MetadataKey:  c.MetadataKey,
		KeySize:      c.KeySize,
		KeyValidity:  c.KeyValidity,
		HashFunction: hashFunction,
		SerialPort:   c.SerialPort,
		Polling: reset.PollingOptions{
			InitialInterval: c.Polling.InitialInterval,
			Multiplier:      c.Polling.Multiplier,
			MaxInterval:     c.Polling.MaxInterval,
			Timeout:         c.Polling.Timeout,
		},
	}, nil
}

// ParseConfig reads YAML config on top of the defaults. It does not validate,
// since command-line flags may still fill in missing values.
func ParseConfig(data []byte) (Config, error) {
	config := Default()

	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return config, errors.Wrap(err, "failed to parse config")
	}

	return config, nil
}

// LoadConfig reads the config file at path. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), errors.Wrapf(err, "failed to read config file %s", path)
	}

	return ParseConfig(data)
}
