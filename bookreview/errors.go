package bookreview

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an operation did not commit.
type FailureKind int

const (
	// FailValidation is a local pre-flight rejection; the network was never
	// touched.
	FailValidation FailureKind = iota
	// FailPermission is an ownership rejection, either caught locally before
	// dispatch or confirmed by a 403 from the service.
	FailPermission
	// FailUnreachable means no response arrived at all.
	FailUnreachable
	// FailTimeout means the bounded request deadline elapsed.
	FailTimeout
	// FailServer is any 4xx/5xx answer other than 403.
	FailServer
)

func (k FailureKind) String() string {
	switch k {
	case FailValidation:
		return "validation"
	case FailPermission:
		return "permission denied"
	case FailUnreachable:
		return "unreachable"
	case FailTimeout:
		return "timeout"
	case FailServer:
		return "server error"
	}
	return "unknown"
}

// Failure is the typed error every coordinator operation returns on the
// unhappy path. Status is zero unless the server actually answered.
type Failure struct {
	Kind    FailureKind
	Status  int
	Message string
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", f.Kind, f.Status, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func newValidationFailure(format string, args ...any) *Failure {
	return &Failure{Kind: FailValidation, Message: fmt.Sprintf(format, args...)}
}

func newPermissionFailure(format string, args ...any) *Failure {
	return &Failure{Kind: FailPermission, Message: fmt.Sprintf(format, args...)}
}

// FailureIs reports whether err is a Failure of the given kind.
func FailureIs(err error, kind FailureKind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}

// ErrStaleResponse marks a fetch whose response arrived after the caller
// moved on to a different book; the result was discarded, not applied.
var ErrStaleResponse = errors.New("stale response discarded")

// ErrNotLoggedIn is returned by operations that need a session token.
var ErrNotLoggedIn = errors.New("not logged in")
