package config

import (
	"encoding/json"
	"errors"
	"time"
)

// Duration is just an alias for time.Duration that allows serialization from
// YAML as well as JSON. Durations are written as strings understood by
// time.ParseDuration, e.g. "30s" or "5m".
type Duration struct {
	time.Duration
}

// ErrDurationMustBeString is returned when a non-string value is
// presented to be deserialized as a Duration.
var ErrDurationMustBeString = errors.New("cannot JSON unmarshal something other than a string into a config.Duration")

// UnmarshalJSON parses a string into a Duration using time.ParseDuration. If
// the input does not unmarshal as a string, then UnmarshalJSON returns
// ErrDurationMustBeString.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := ""
	err := json.Unmarshal(b, &s)
	if err != nil {
		var jsonUnmarshalTypeErr *json.UnmarshalTypeError
		if errors.As(err, &jsonUnmarshalTypeErr) {
			return ErrDurationMustBeString
		}
		return err
	}
	dd, err := time.ParseDuration(s)
	d.Duration = dd
	return err
}

// MarshalJSON returns the string form of the duration, as a quoted JSON
// string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

// UnmarshalYAML uses the same format as JSON, but is called by the YAML
// parser (vs. the JSON parser).
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	err := unmarshal(&s)
	if err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	d.Duration = dur
	return nil
}
