// internal/config/errors.go
//
// Fatal configuration errors.
//
// Context
// -------
// A ConfigurationError means the deployment itself is wrong: a required
// credential is missing, a vault reference cannot be resolved, or the
// content store holds no active tenant.  Request handlers never see one
// for a single bad host; `cmd/web` logs it and exits.
package config

import (
	"errors"
	"fmt"
)

// ErrMissing is wrapped when a required key is empty.
var ErrMissing = errors.New("required value missing")

// ConfigurationError names the offending key and the cause.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
