package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code classifies an error independently of the transport it leaves through
type Code string

// Error codes
const (
	CodeOK                 Code = "OK"
	CodeCanceled           Code = "CANCELED"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeDeadlineExceeded   Code = "DEADLINE_EXCEEDED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeUnimplemented      Code = "UNIMPLEMENTED"
	CodeInternal           Code = "INTERNAL"
	CodeUnavailable        Code = "UNAVAILABLE"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
)

type transportCodes struct {
	grpc codes.Code
	http int
}

// Version conflicts and invalid combat transitions are both failed
// preconditions, which is why that code maps to 409.
var codeTable = map[Code]transportCodes{
	CodeOK:                 {codes.OK, http.StatusOK},
	CodeCanceled:           {codes.Canceled, http.StatusRequestTimeout},
	CodeInvalidArgument:    {codes.InvalidArgument, http.StatusBadRequest},
	CodeDeadlineExceeded:   {codes.DeadlineExceeded, http.StatusGatewayTimeout},
	CodeNotFound:           {codes.NotFound, http.StatusNotFound},
	CodeAlreadyExists:      {codes.AlreadyExists, http.StatusConflict},
	CodePermissionDenied:   {codes.PermissionDenied, http.StatusForbidden},
	CodeFailedPrecondition: {codes.FailedPrecondition, http.StatusConflict},
	CodeUnimplemented:      {codes.Unimplemented, http.StatusNotImplemented},
	CodeInternal:           {codes.Internal, http.StatusInternalServerError},
	CodeUnavailable:        {codes.Unavailable, http.StatusServiceUnavailable},
	CodeUnauthenticated:    {codes.Unauthenticated, http.StatusUnauthorized},
}

var fromGRPC = func() map[codes.Code]Code {
	m := make(map[codes.Code]Code, len(codeTable))
	for code, t := range codeTable {
		m[t.grpc] = code
	}
	return m
}()

func (c Code) String() string {
	return string(c)
}

// HTTPStatus is the status the code maps to on HTTP surfaces
func (c Code) HTTPStatus() int {
	if t, ok := codeTable[c]; ok {
		return t.http
	}
	return http.StatusInternalServerError
}

// GRPCCode is the status code the code maps to on the wire
func (c Code) GRPCCode() codes.Code {
	if t, ok := codeTable[c]; ok {
		return t.grpc
	}
	return codes.Unknown
}
