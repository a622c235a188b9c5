package governance

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes carried by ConfigError.
var (
	ErrInvalidPattern    = errors.New("invalid regular expression")
	ErrDuplicateRule     = errors.New("duplicate rule name")
	ErrUnknownOption     = errors.New("unknown match option")
	ErrUnknownAction     = errors.New("unknown action")
	ErrEmptyField        = errors.New("required value is empty")
	ErrMalformedDocument = errors.New("malformed governance document")
	ErrSourceUnavailable = errors.New("governance document unavailable")
)

// ErrNilConfig is returned when an operation is given no configuration.
var ErrNilConfig = errors.New("governance: nil config")

// ConfigError reports a governance configuration that cannot be used.
// Rule and Index identify the offending rule when there is one; Index is -1
// for document-level problems.
type ConfigError struct {
	Rule  string
	Index int
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("governance config")
	switch {
	case e.Rule != "":
		fmt.Fprintf(&b, ": rule %q", e.Rule)
	case e.Index >= 0:
		fmt.Fprintf(&b, ": rule #%d", e.Index)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// documentError builds a ConfigError that is not tied to a single rule.
func documentError(field string, err error) *ConfigError {
	return &ConfigError{Index: -1, Field: field, Err: err}
}

// InvalidPayloadError is returned for payloads or values the engine cannot
// represent. Path locates nested values ("" for the top level).
type InvalidPayloadError struct {
	Type string
	Path string
}

func (e *InvalidPayloadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("governance: unsupported payload type %s", e.Type)
	}
	return fmt.Sprintf("governance: unsupported value type %s at %s", e.Type, e.Path)
}
