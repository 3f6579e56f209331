package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("assistant configuration error")

// ErrorKind distinguishes why a configuration was rejected.
type ErrorKind string

const (
	// KindMissing means one or more required values were absent.
	KindMissing ErrorKind = "missing value"
	// KindUnsupportedParameter means a value was present but outside what the provider accepts.
	KindUnsupportedParameter ErrorKind = "unsupported parameter"
	// KindModelInit means the provider SDK refused to build a chat model.
	KindModelInit ErrorKind = "model initialization"
)

// ConfigurationError reports a configuration that cannot back a conversation.
type ConfigurationError struct {
	Kind   ErrorKind
	Fields []string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error: ")
	b.WriteString(string(e.Kind))
	if len(e.Fields) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) true for any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// IsUnsupportedParameter reports whether err is a ConfigurationError of kind KindUnsupportedParameter.
func IsUnsupportedParameter(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr) && cfgErr.Kind == KindUnsupportedParameter
}
