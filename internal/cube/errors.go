package cube

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeInvalidSchema indicates a cube definition that cannot be built.
	ErrCodeInvalidSchema ErrorCode = "INVALID_SCHEMA"

	// ErrCodeUnknownMember indicates a measure or dimension name the cube does not define.
	ErrCodeUnknownMember ErrorCode = "UNKNOWN_MEMBER"

	// ErrCodeUnknownSegment indicates a segment name the cube does not define.
	ErrCodeUnknownSegment ErrorCode = "UNKNOWN_SEGMENT"

	// ErrCodeIllegalOperator indicates an operator not allowed for the member's filter class.
	ErrCodeIllegalOperator ErrorCode = "ILLEGAL_OPERATOR"

	// ErrCodeScopeViolation indicates a member used inside a group scoped to the other category.
	ErrCodeScopeViolation ErrorCode = "SCOPE_VIOLATION"

	// ErrCodeValueType indicates a filter or range value the member cannot serialize.
	ErrCodeValueType ErrorCode = "VALUE_TYPE"

	ErrCodeInvalidGranularity   ErrorCode = "INVALID_GRANULARITY"
	ErrCodeInvalidDateRange     ErrorCode = "INVALID_DATE_RANGE"
	ErrCodeInvalidTimeDimension ErrorCode = "INVALID_TIME_DIMENSION"
	ErrCodeInvalidOrder         ErrorCode = "INVALID_ORDER"
	ErrCodeInvalidPagination    ErrorCode = "INVALID_PAGINATION"
	ErrCodeInvalidTimezone      ErrorCode = "INVALID_TIMEZONE"
)

// ConfigError reports a query or schema that does not fit its cube.
// These are programming mistakes, detected while building and surfaced by
// Finalize or Compile.
type ConfigError struct {
	Code    ErrorCode
	Cube    string
	Member  string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Member != "" {
		msg = fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Cube, e.Member, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Errorf builds a ConfigError for the given member of c.
func (c *Cube) Errorf(code ErrorCode, memberName, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    code,
		Cube:    c.name,
		Member:  memberName,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsConfigError checks if err is a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// HasCode checks if any ConfigError in err's tree carries the given code.
func HasCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *ConfigError:
		return e.Code == code || HasCode(e.Err, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(e.Unwrap(), code)
	}
	return false
}
