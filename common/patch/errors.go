package patch

import (
	"errors"
	"fmt"
	"strings"
)

// FailureCode classifies why an op batch was rejected.
type FailureCode string

const (
	CodeSchemaError            FailureCode = "SCHEMA_ERROR"
	CodeAcknowledgmentRequired FailureCode = "ACKNOWLEDGMENT_REQUIRED"
	CodeTargetMismatch         FailureCode = "TARGET_MISMATCH"
	CodeCoverageViolation      FailureCode = "COVERAGE_VIOLATION"
)

// Failure is one validation failure tied to the op that caused it.
// OpIndex is -1 when the failure concerns the batch as a whole.
type Failure struct {
	Code    FailureCode `json:"code"`
	OpIndex int         `json:"op_index"`
	Message string      `json:"message"`
}

func (f Failure) String() string {
	if f.OpIndex < 0 {
		return fmt.Sprintf("%s: %s", f.Code, f.Message)
	}
	return fmt.Sprintf("op %d: %s: %s", f.OpIndex, f.Code, f.Message)
}

// ValidationError rejects a batch of ops as a whole. Application is
// all-or-nothing, so a single failure means nothing was applied.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	if len(e.Failures) == 0 {
		return "patch validation failed"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("patch validation failed: %s", strings.Join(parts, "; "))
}

// HasCode reports whether any recorded failure carries the given code.
func (e *ValidationError) HasCode(code FailureCode) bool {
	for _, f := range e.Failures {
		if f.Code == code {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(code FailureCode, opIndex int, format string, args ...interface{}) {
	e.Failures = append(e.Failures, Failure{
		Code:    code,
		OpIndex: opIndex,
		Message: fmt.Sprintf(format, args...),
	})
}

// AsValidationError unwraps err into a *ValidationError if one is in
// the chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
