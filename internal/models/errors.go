package models

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound = status.Error(codes.NotFound, "not found")

	// ErrUnauthorized means the request carried no caller identity.
	ErrUnauthorized = status.Error(codes.Unauthenticated, "caller identity required")

	// ErrAccessDenied means the caller is not an active participant of the
	// target chat.
	ErrAccessDenied = status.Error(codes.PermissionDenied, "not an active participant of this chat")

	// ErrNotFoundOrForbidden conflates "missing" and "not yours" so that
	// mutation attempts cannot probe for message existence.
	ErrNotFoundOrForbidden = status.Error(codes.NotFound, "message not found")

	// ErrAlreadyDeleted rejects any mutation of a tombstoned message.
	ErrAlreadyDeleted = status.Error(codes.FailedPrecondition, "message already deleted")

	// ErrDependency covers store or broker failures surfaced to callers.
	ErrDependency = status.Error(codes.Unavailable, "service dependency unavailable")
)

// ValidationError builds an invalid-argument error with a caller-facing message.
func ValidationError(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

// CodeOf extracts the status code from err, walking the wrap chain.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := status.FromError(e); ok {
			return st.Code()
		}
	}
	return codes.Unknown
}
