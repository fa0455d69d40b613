// Package output prints the result of a password reset.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jetstack/winpass/pkg/reset"
)

const (
	// FormatText prints a short human readable summary.
	FormatText = "text"
	// FormatJSON prints a single JSON object, for scripts.
	FormatJSON = "json"
)

// Output writes a reset result.
type Output interface {
	Write(w io.Writer, result *reset.Result) error
}

// NewOutput returns the Output for format.
func NewOutput(format string) (Output, error) {
	switch format {
	case FormatText, "":
		return &textOutput{}, nil
	case FormatJSON:
		return &jsonOutput{}, nil
	default:
		return nil, fmt.Errorf("format %q not supported, expected %q or %q", format, FormatText, FormatJSON)
	}
}

type textOutput struct{}

func (o *textOutput) Write(w io.Writer, result *reset.Result) error {
	_, err := fmt.Fprintf(w, "Instance: %s\nUser name: %s\nPassword: %s\n", result.Instance.Name, result.UserName, result.Password)
	return err
}

type jsonResult struct {
	Project  string `json:"project"`
	Zone     string `json:"zone"`
	Instance string `json:"instance"`
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type jsonOutput struct{}

func (o *jsonOutput) Write(w io.Writer, result *reset.Result) error {
	return json.NewEncoder(w).Encode(jsonResult{
		Project:  result.Instance.Project,
		Zone:     result.Instance.Zone,
		Instance: result.Instance.Name,
		UserName: result.UserName,
		Password: result.Password,
	})
}
