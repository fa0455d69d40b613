package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/jetstack/winpass/pkg/config"
	"github.com/jetstack/winpass/pkg/gce"
	"github.com/jetstack/winpass/pkg/logs"
	"github.com/jetstack/winpass/pkg/output"
	"github.com/jetstack/winpass/pkg/reset"
)

// resetFlags holds everything set on the command line for the reset command.
// Only flags that were explicitly changed are applied on top of the config
// file.
type resetFlags struct {
	configFile string
	format     string
	deadline   time.Duration

	values config.Config
}

func init() {
	rootCmd.AddCommand(newResetCmd(newResetFlags()))
}

func newResetFlags() *resetFlags {
	return &resetFlags{values: config.Default()}
}

func newResetCmd(flags *resetFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset [INSTANCE]",
		Short: "Reset the password of a Windows user",
		Long: `Reset the password of a Windows user on a Compute Engine instance.

A fresh RSA key is published in the instance metadata, the guest agent
replies on the serial port with the new password encrypted for that key,
and the decrypted password is printed to stdout. The user is created if
it does not exist yet.`,
		Example: `  winpass reset my-instance --project my-project --zone europe-west1-b --user-name admin
  winpass reset --config winpass.yaml -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd.Flags(), args)
			if err != nil {
				return err
			}
			return runReset(cmd, cfg, flags)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flags.configFile, "config", "c", "", "Path to a YAML config file. Flags take precedence over the file.")
	fs.StringVarP(&flags.format, "output", "o", output.FormatText, fmt.Sprintf("Output format, one of %q or %q.", output.FormatText, output.FormatJSON))
	fs.DurationVar(&flags.deadline, "timeout", 0, "Give up on the whole reset after this long. Zero means no limit beyond --poll-timeout.")
	addConfigFlags(fs, &flags.values)

	return cmd
}

func addConfigFlags(fs *pflag.FlagSet, c *config.Config) {
	fs.StringVar(&c.Project, "project", c.Project, "Project that owns the instance.")
	fs.StringVar(&c.Zone, "zone", c.Zone, "Zone of the instance.")
	fs.StringVar(&c.Instance, "instance", c.Instance, "Name of the instance. May also be given as the only argument.")
	fs.StringVarP(&c.CredentialsFile, "credentials-file", "k", c.CredentialsFile, "Service account key file. Application default credentials are used when empty.")
	fs.StringVarP(&c.UserName, "user-name", "u", c.UserName, "Windows user to create or reset.")
	fs.StringVar(&c.Email, "email", c.Email, "Email recorded with the key.")
	fs.StringVar(&c.MetadataKey, "metadata-key", c.MetadataKey, "Instance metadata key the agent watches.")
	fs.IntVar(&c.KeySize, "key-size", c.KeySize, "Size of the one-time RSA key in bits.")
	fs.DurationVar(&c.KeyValidity, "key-validity", c.KeyValidity, "How long the agent may act on the published key.")
	fs.StringVar(&c.HashFunction, "hash-function", c.HashFunction, "Hash used with RSA-OAEP: sha1, sha256 or sha512.")
	fs.Int64Var(&c.SerialPort, "serial-port", c.SerialPort, "Serial port the agent writes its reply to.")
	fs.DurationVar(&c.Polling.InitialInterval, "poll-initial-interval", c.Polling.InitialInterval, "First wait between serial port reads.")
	fs.Float64Var(&c.Polling.Multiplier, "poll-multiplier", c.Polling.Multiplier, "Growth factor of the wait between reads.")
	fs.DurationVar(&c.Polling.MaxInterval, "poll-max-interval", c.Polling.MaxInterval, "Longest wait between reads.")
	fs.DurationVar(&c.Polling.Timeout, "poll-timeout", c.Polling.Timeout, "How long to wait for the agent to reply.")
}

// load reads the config file and applies changed flags and the positional
// instance name on top of it.
func (f *resetFlags) load(fs *pflag.FlagSet, args []string) (config.Config, error) {
	cfg, err := config.LoadConfig(f.configFile)
	if err != nil {
		return cfg, err
	}

	v := &f.values
	overrides := map[string]func(){
		"project":               func() { cfg.Project = v.Project },
		"zone":                  func() { cfg.Zone = v.Zone },
		"instance":              func() { cfg.Instance = v.Instance },
		"credentials-file":      func() { cfg.CredentialsFile = v.CredentialsFile },
		"user-name":             func() { cfg.UserName = v.UserName },
		"email":                 func() { cfg.Email = v.Email },
		"metadata-key":          func() { cfg.MetadataKey = v.MetadataKey },
		"key-size":              func() { cfg.KeySize = v.KeySize },
		"key-validity":          func() { cfg.KeyValidity = v.KeyValidity },
		"hash-function":         func() { cfg.HashFunction = v.HashFunction },
		"serial-port":           func() { cfg.SerialPort = v.SerialPort },
		"poll-initial-interval": func() { cfg.Polling.InitialInterval = v.Polling.InitialInterval },
		"poll-multiplier":       func() { cfg.Polling.Multiplier = v.Polling.Multiplier },
		"poll-max-interval":     func() { cfg.Polling.MaxInterval = v.Polling.MaxInterval },
		"poll-timeout":          func() { cfg.Polling.Timeout = v.Polling.Timeout },
	}
	for name, apply := range overrides {
		if fs.Changed(name) {
			apply()
		}
	}

	if len(args) == 1 {
		if fs.Changed("instance") && args[0] != cfg.Instance {
			return cfg, fmt.Errorf("instance given twice: %q and --instance=%q", args[0], cfg.Instance)
		}
		cfg.Instance = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func runReset(cmd *cobra.Command, cfg config.Config, flags *resetFlags) error {
	ctx := cmd.Context()
	logger := klog.FromContext(ctx)

	out, err := output.NewOutput(flags.format)
	if err != nil {
		return err
	}

	if dump, err := cfg.Dump(); err == nil {
		logger.V(logs.Debug).Info("Loaded configuration", "config", dump)
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	if flags.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.deadline)
		defer cancel()
	}

	client, err := gce.NewClient(ctx, cfg.CredentialsFile)
	if err != nil {
		return err
	}

	resetter, err := reset.New(client, opts)
	if err != nil {
		return err
	}

	result, err := resetter.Reset(ctx, cfg.Target())
	if err != nil {
		return err
	}

	return out.Write(cmd.OutOrStdout(), result)
}
