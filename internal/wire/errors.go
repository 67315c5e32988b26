package wire

import (
	"errors"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Error kinds shared by the server, the transports and the client engine.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTransient       = errors.New("transient failure")
)

// ToStatus maps an error to a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	return grpcstatus.Error(Code(err), err.Error())
}

// Code returns the gRPC code for an error kind.
func Code(err error) codes.Code {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return codes.Unauthenticated
	case errors.Is(err, ErrForbidden):
		return codes.PermissionDenied
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, ErrTransient):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// FromStatus maps a gRPC error back to an error wrapping one of the kinds.
// Codes without a matching kind are reported as transient.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := grpcstatus.FromError(err)
	if !ok {
		return &KindError{Kind: ErrTransient, Msg: err.Error()}
	}
	var kind error
	switch st.Code() {
	case codes.Unauthenticated:
		kind = ErrUnauthorized
	case codes.PermissionDenied:
		kind = ErrForbidden
	case codes.NotFound:
		kind = ErrNotFound
	case codes.InvalidArgument, codes.FailedPrecondition:
		kind = ErrInvalidArgument
	default:
		kind = ErrTransient
	}
	return &KindError{Kind: kind, Msg: st.Message()}
}

// KindError carries a remote error message together with its kind.
type KindError struct {
	Kind error
	Msg  string
}

func (e *KindError) Error() string { return e.Msg }

func (e *KindError) Unwrap() error { return e.Kind }
