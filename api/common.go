// Package api provides the types exchanged with the Windows guest agent through
// instance metadata and serial port output, and the errors shared across
// winpass.
package api

import (
	"encoding/json"
	"time"
)

// TimeFormat defines the format used for timestamps across all this API. It is
// RFC 3339 with second precision and a literal UTC designator, which is what
// the guest agent expects in expireOn.
const TimeFormat = "2006-01-02T15:04:05Z"

// Time is a wrapper around time.Time that overrides how it is marshaled into JSON
type Time struct {
	time.Time
}

// String returns a string representation of the timestamp, always in UTC.
func (t Time) String() string {
	return t.UTC().Format(TimeFormat)
}

// MarshalJSON marshals the timestamp with TimeFormat
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts any RFC 3339 timestamp.
func (t *Time) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
