package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRiskTree indicates the document lacks risks.children[0].
	ErrNoRiskTree = errors.New("schema: document has no risk tree root")
	// ErrInvalidJSON indicates the document could not be parsed.
	ErrInvalidJSON = errors.New("schema: document is not valid JSON")
)

// SchemaError reports a failure to fetch or parse the risks document. It is
// terminal for the session that triggered the load.
type SchemaError struct {
	Op     string
	Source string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("schema: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("schema: %s %s: %v", e.Op, e.Source, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
