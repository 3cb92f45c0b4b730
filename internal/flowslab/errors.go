package flowslab

import (
	"errors"
	"fmt"
)

// ErrAuthRejected marks a login failure caused by the service refusing the
// credentials, as opposed to a transport or timeout problem. The account
// pool treats either the same way, but operators triage them differently.
var ErrAuthRejected = errors.New("authentication rejected")

// GenerationError is an opaque failure from the generation frontend. The
// orchestrator records it in the ledger and moves on; the job is retried on
// a later pass.
type GenerationError struct {
	Op  string // "image" or "video"
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
