/*
Package domain contains the core domain models of the formflow engine.

It defines the runtime entities of a multi-step form ("wizard"): the immutable
FieldStore, the validation Failure set, the wizard State and the submission
Payload. This package is kept pure and free of external dependencies like I/O
or persistence, following Hexagonal Architecture principles.

# Key Entities

  - FieldStore: flat, copy-on-write map of every declared field value.
  - Failure: a user-facing validation problem (data, not an error).
  - State: the runtime snapshot of a session (current step, fields, status).
  - Payload: the backend-shaped value produced at submission time.
  - Optional / Resolve: explicit precedence lookups for display values.
*/
package domain
