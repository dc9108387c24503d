package errors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToGRPCError converts an error to a gRPC status error. Only the user-facing
// message crosses the wire; causes and metadata stay server side. Errors that
// already carry a status pass through untouched.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var e *Error
	if !As(err, &e) {
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(e.Code.GRPCCode(), e.Message)
}

// FromGRPCError turns a status error received by a client back into an *Error.
// Codes without a counterpart become INTERNAL.
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	code, known := fromGRPC[st.Code()]
	if !known {
		code = CodeInternal
	}
	return &Error{Code: code, Message: st.Message()}
}
