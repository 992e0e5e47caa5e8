package planning

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUndeclaredParameter = errors.New("literal references an undeclared parameter")
	ErrNotGround           = errors.New("literal is not ground")
	ErrUnboundParameter    = errors.New("parameter is unbound after grounding")
	ErrUnsupportedOracle   = errors.New("evaluable literal has more than one unbound parameter")
	ErrNotOracable         = errors.New("evaluable literal has unbound parameters but cannot be oracled")
	ErrUnknownTask         = errors.New("task is neither an operator nor decomposed by a method")
	ErrUnknownEvaluable    = errors.New("evaluable predicate is not registered")
	ErrInvalidSchema       = errors.New("invalid schema")
)

// ModelingError reports a malformed operator, method or problem. Modeling
// errors are fatal: they are never retried and never turned into an empty
// search result.
type ModelingError struct {
	// Schema names the offending operator or method; empty for problem
	// level errors.
	Schema    string
	Parameter string
	Reason    string
	Err       error
}

func (e *ModelingError) Error() string {
	var parts []string
	if e.Schema != "" {
		parts = append(parts, fmt.Sprintf("in %s", e.Schema))
	}
	if e.Parameter != "" {
		parts = append(parts, fmt.Sprintf("parameter %s", e.Parameter))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	msg := "modeling error"
	if len(parts) > 0 {
		msg += " " + strings.Join(parts, ": ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelingError) Unwrap() error {
	return e.Err
}

// IsModelingError reports whether err is, or wraps, a ModelingError.
func IsModelingError(err error) bool {
	var merr *ModelingError
	return errors.As(err, &merr)
}
