package importer

import "fmt"

// MapError reports a field map that cannot be applied to a source.
type MapError struct {
	Field string
	Err   error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("field map %s: %v", e.Field, e.Err)
}

func (e *MapError) Unwrap() error { return e.Err }

// DecodeError reports source data that cannot be turned into archive records.
type DecodeError struct {
	Period string
	Line   int // 1-based record number within the period, 0 if not applicable
	Field  string
	Value  string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode"
	if e.Period != "" {
		msg += " " + e.Period
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" record %d", e.Line)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %s=%q", e.Field, e.Value)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IOError reports a failure to read a source period.
type IOError struct {
	Source string
	Period string
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Period, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConfigError reports unusable import options.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("import config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
