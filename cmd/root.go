package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/jetstack/winpass/pkg/logs"
)

const envPrefix = "WINPASS_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "winpass",
	Short: "Reset the password of a Windows account on a Compute Engine VM",
	Long: `winpass creates or resets a Windows user account on a running
Compute Engine instance and prints the new password.

The password is encrypted by the guest agent with a one-time RSA key and
never leaves the instance in plain text.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setFlagsFromEnv(envPrefix, cmd.Flags()); err != nil {
			return err
		}
		if err := logs.Initialize(); err != nil {
			return err
		}
		cmd.SetContext(klog.NewContext(cmd.Context(), klog.Background()))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	logs.AddFlags(rootCmd.PersistentFlags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// setFlagsFromEnv fills in every flag not given on the command line from the
// matching environment variable, e.g. --user-name from WINPASS_USER_NAME.
func setFlagsFromEnv(prefix string, fs *pflag.FlagSet) error {
	set := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) {
		set[f.Name] = true
	})

	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		// ignore flags set from the commandline
		if set[f.Name] || err != nil {
			return
		}
		// remove trailing _ to reduce common errors with the prefix, i.e. people setting it to MY_PROG_
		cleanPrefix := strings.TrimSuffix(prefix, "_")
		name := fmt.Sprintf("%s_%s", cleanPrefix, strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_"))
		if e, ok := os.LookupEnv(name); ok {
			// fs.Set marks the flag as changed so it overrides the config file.
			if setErr := fs.Set(f.Name, e); setErr != nil {
				err = fmt.Errorf("invalid value for %s: %w", name, setErr)
			}
		}
	})
	return err
}
