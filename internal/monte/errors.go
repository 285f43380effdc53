package monte

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes fatal run errors.
type ErrorCode string

const (
	// ErrCodeNoOutputFormat indicates neither JSON nor CSV results are enabled.
	ErrCodeNoOutputFormat ErrorCode = "NO_OUTPUT_FORMAT"

	// ErrCodeConflictingBounds indicates minimums cannot be met before a
	// maximum stops the run.
	ErrCodeConflictingBounds ErrorCode = "CONFLICTING_BOUNDS"

	// ErrCodeConditionsChanged indicates persisted conditions disagree with
	// the requested conditions list.
	ErrCodeConditionsChanged ErrorCode = "CONDITIONS_CHANGED"

	// ErrCodeMalformedSnapshot indicates a persisted state file could not be
	// used to resume.
	ErrCodeMalformedSnapshot ErrorCode = "MALFORMED_SNAPSHOT"

	// ErrCodeMalformedResults indicates a persisted results summary could not
	// be parsed.
	ErrCodeMalformedResults ErrorCode = "MALFORMED_RESULTS"

	// ErrCodeNotConverged indicates a maximum was reached before the
	// convergence criteria were satisfied.
	ErrCodeNotConverged ErrorCode = "NOT_CONVERGED"

	// ErrCodeInvalidSettings indicates an inconsistent setting.
	ErrCodeInvalidSettings ErrorCode = "INVALID_SETTINGS"

	// ErrCodeCompositionUnreachable indicates composition enforcement ran out
	// of attempts.
	ErrCodeCompositionUnreachable ErrorCode = "COMPOSITION_UNREACHABLE"

	// ErrCodeNoValidSwaps indicates the configuration admits no
	// composition-preserving swap.
	ErrCodeNoValidSwaps ErrorCode = "NO_VALID_SWAPS"
)

// Error is a fatal, user-visible run error. CondIndex is -1 when the error
// is not tied to one condition.
type Error struct {
	Code      ErrorCode
	Message   string
	CondIndex int
	Path      string
	Setting   string
	Err       error
}

// Errorf creates an Error not yet tied to a condition, file or setting.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), CondIndex: -1}
}

// AtCondition records the condition index.
func (e *Error) AtCondition(i int) *Error {
	e.CondIndex = i
	return e
}

// InFile records the file that triggered the error.
func (e *Error) InFile(path string) *Error {
	e.Path = path
	return e
}

// ForSetting records the setting that triggered the error.
func (e *Error) ForSetting(name string) *Error {
	e.Setting = name
	return e
}

// Wrap records an underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var ctx []string
	if e.CondIndex >= 0 {
		ctx = append(ctx, fmt.Sprintf("condition=%d", e.CondIndex))
	}
	if e.Path != "" {
		ctx = append(ctx, "file="+e.Path)
	}
	if e.Setting != "" {
		ctx = append(ctx, "setting="+e.Setting)
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(ctx) > 0 {
		msg += " (" + strings.Join(ctx, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// IsCode reports whether err is, or wraps, an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}
