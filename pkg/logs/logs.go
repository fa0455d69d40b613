package logs

import (
	"fmt"

	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/component-base/featuregate"
	"k8s.io/component-base/logs"
	logsapi "k8s.io/component-base/logs/api/v1"

	_ "k8s.io/component-base/logs/json/register"
)

// winpass writes logs in the Kubernetes text logging format by default, or JSON
// with --logging-format=json. All logs go to stderr so that stdout only carries
// the result printed by the output package. Passwords are never logged.

var (
	// All but the essential logging flags are hidden. The hidden flags can
	// still be used.
	visibleFlagNames = sets.New[string]("v", "vmodule", "logging-format")
	// This default logging configuration will be updated with values from the
	// logging flags, even those that are hidden.
	configuration = logsapi.NewLoggingConfiguration()
	// Logging features will be added to this feature gate, but the
	// feature-gates flag will be hidden from the user.
	features = featuregate.NewFeatureGate()
)

const (
	// Standard log verbosity levels.
	// Use these instead of integers in winpass code.
	Info  = 0
	Debug = 1
	Trace = 2
)

func init() {
	runtime.Must(logsapi.AddFeatureGates(features))
	// Turn on ALPHA options so that the hidden split-stream flags can be used.
	runtime.Must(features.OverrideDefault(logsapi.LoggingAlphaOptions, true))
}

// AddFlags adds log related flags to the supplied flag set.
func AddFlags(fs *pflag.FlagSet) {
	var tfs pflag.FlagSet
	logsapi.AddFlags(configuration, &tfs)
	features.AddFlag(&tfs)
	tfs.VisitAll(func(f *pflag.Flag) {
		if !visibleFlagNames.Has(f.Name) {
			_ = tfs.MarkHidden(f.Name)
		}

		if f.Name == "logging-format" {
			f.Usage = `Sets the log format. Permitted formats: "json", "text".`
		}

		if f.Name == "v" {
			f.Name = "log-level"
			f.Shorthand = "v"
			f.Usage = fmt.Sprintf("%s. 0=Info, 1=Debug, 2=Trace. Use 6-9 for increasingly verbose HTTP request logging. (default: 0)", f.Usage)
		}
	})
	fs.AddFlagSet(&tfs)
}

// Initialize uses k8s.io/component-base/logs to configure the global klog and
// slog loggers from the parsed flags.
func Initialize() error {
	logs.InitLogs()
	if err := logsapi.ValidateAndApply(configuration, features); err != nil {
		return fmt.Errorf("Error in logging configuration: %s", err)
	}
	return nil
}
