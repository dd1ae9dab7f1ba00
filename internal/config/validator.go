// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` right after it unmarshals the merged Koanf
// tree.  Tag failures are reported as a *ConfigurationError naming the
// koanf key ("store.rate_per_sec"), not the Go field path.
//
// Tags cannot express "required when backend is X", so `requireBackend`
// checks the store credentials by hand afterwards.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	if err == nil {
		return requireBackend(&c.Store)
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:] // drop the root type name
		}
		return &ConfigurationError{Key: key, Err: fmt.Errorf("failed %q check", fe.Tag())}
	}
	return err
}

// requireBackend checks the credentials the selected backend needs.
func requireBackend(s *Store) error {
	missing := func(key string) error { return &ConfigurationError{Key: key, Err: ErrMissing} }
	switch s.Backend {
	case "http":
		if s.BaseID == "" {
			return missing("store.base_id")
		}
		if s.APIKey == "" {
			return missing("store.api_key")
		}
	case "mysql":
		if s.MySQLDSN == "" {
			return missing("store.mysql_dsn")
		}
	case "fixture":
		if s.FixturePath == "" {
			return missing("store.fixture_path")
		}
	}
	return nil
}
