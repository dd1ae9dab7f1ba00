package record

import (
	"errors"
	"fmt"
)

// ErrPermission is matched by every *PermissionError via errors.Is.
var ErrPermission = errors.New("record: permission denied")

// QueryError is a failed query against one table.  Network failures,
// timeouts, and non-2xx responses all surface as QueryError.
type QueryError struct {
	Table  Table
	View   string
	Status int // HTTP status when known, else 0
	Err    error
}

func (e *QueryError) Error() string {
	scope := string(e.Table)
	if e.View != "" {
		scope += "/" + e.View
	}
	if e.Status != 0 {
		return fmt.Sprintf("query %s: status %d: %v", scope, e.Status, e.Err)
	}
	return fmt.Sprintf("query %s: %v", scope, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// PermissionError means the credentials cannot read the table.  Callers
// treat it as a soft failure because some tables are optional.
type PermissionError struct {
	Table Table
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("query %s: permission denied", e.Table)
}

func (e *PermissionError) Is(target error) bool { return target == ErrPermission }

// IsPermission reports whether err is, or wraps, a *PermissionError.
func IsPermission(err error) bool { return errors.Is(err, ErrPermission) }
