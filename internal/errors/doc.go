// Package errors provides structured errors for the tabletop session service.
//
// Every error carries a Code, a user-facing Message, an optional Cause and
// optional metadata. Codes map onto gRPC status codes at the transport
// boundary and onto HTTP status codes for the websocket endpoint.
//
// # Domain taxonomy
//
// The session core reports four kinds of failure:
//
//	errors.Formula("sides", "die must have at least 2 sides")   // INVALID_ARGUMENT, never retried
//	errors.InvalidState("combat is not active")                 // FAILED_PRECONDITION, caller logic error
//	errors.Authorization("only the game master may start combat") // PERMISSION_DENIED
//	errors.Storage(err, "failed to commit world state")         // UNAVAILABLE, retry a bounded number of times
//
// Use the matching predicates (IsFormula, IsInvalidState, IsAuthorization,
// IsStorage) rather than comparing codes directly.
//
// # Wrapping
//
//	if err := repo.Commit(ctx, input); err != nil {
//	    return errors.Wrap(err, "failed to commit turn advance")
//	}
//
// Wrap preserves the code of an existing *Error; plain errors become INTERNAL.
// WrapWithCode changes the code while keeping metadata.
//
// # Validation
//
//	vb := errors.NewValidationBuilder()
//	errors.ValidateRequired("session_id", input.SessionID, vb)
//	if err := vb.Build(); err != nil {
//	    return err
//	}
//
// # Layer guidelines
//
// Repositories return NotFound / Storage errors with ids in metadata.
// Orchestrators validate input, return InvalidState for wrong combat state and
// wrap repository errors with business context. Handlers convert with
// ToGRPCError.
package errors
