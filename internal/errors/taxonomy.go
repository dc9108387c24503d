package errors

import "fmt"

// Meta keys set by the domain constructors
const (
	MetaKind       = "error_kind"
	MetaConstraint = "constraint"
)

// Error kinds recorded under MetaKind
const (
	KindFormula       = "formula"
	KindInvalidState  = "invalid_state"
	KindAuthorization = "authorization"
	KindStorage       = "storage"
)

// Formula reports malformed or out-of-range dice notation. constraint names
// the violated rule (for example "sides" or "keep_count").
func Formula(constraint, message string) *Error {
	return InvalidArgument(message).
		WithMeta(MetaKind, KindFormula).
		WithMeta(MetaConstraint, constraint)
}

// Formulaf is Formula with a formatted message
func Formulaf(constraint, format string, args ...any) *Error {
	return Formula(constraint, fmt.Sprintf(format, args...))
}

// InvalidState reports an operation attempted in the wrong combat state
func InvalidState(message string) *Error {
	return FailedPrecondition(message).WithMeta(MetaKind, KindInvalidState)
}

// InvalidStatef is InvalidState with a formatted message
func InvalidStatef(format string, args ...any) *Error {
	return InvalidState(fmt.Sprintf(format, args...))
}

// Authorization reports a GM-only operation attempted by someone else
func Authorization(message string) *Error {
	return PermissionDenied(message).WithMeta(MetaKind, KindAuthorization)
}

// Storage wraps a persistence failure. Callers may retry a bounded number of
// times; the change must not be treated as committed.
func Storage(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return WrapWithCode(err, CodeUnavailable, message).WithMeta(MetaKind, KindStorage)
}

// IsFormula reports whether err is a dice formula error
func IsFormula(err error) bool {
	return IsInvalidArgument(err) && kindOf(err) == KindFormula
}

// IsInvalidState reports whether err is a combat state error
func IsInvalidState(err error) bool {
	return IsFailedPrecondition(err) && kindOf(err) == KindInvalidState
}

// IsAuthorization reports whether err is an authorization error
func IsAuthorization(err error) bool {
	return IsPermissionDenied(err)
}

// IsStorage reports whether err is a storage availability error
func IsStorage(err error) bool {
	return IsUnavailable(err) && kindOf(err) == KindStorage
}

// GetConstraint returns the violated constraint of a formula error
func GetConstraint(err error) string {
	c, _ := GetMeta(err)[MetaConstraint].(string)
	return c
}

func kindOf(err error) string {
	k, _ := GetMeta(err)[MetaKind].(string)
	return k
}
