package orchestrator

import "fmt"

// ValidationError reports bad or missing input. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// TransportError reports a network or channel failure after internal retries
// were exhausted. Callers do not retry it themselves.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidStateError reports an operation invoked from a state that does not
// allow it. The snapshot is left untouched.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is not valid in state %q", e.Op, e.State)
}

// NotFoundError reports a job unknown to the server, typically expired.
// Terminal for that identifier: discard any persisted reference to it.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %s not found", e.JobID)
}

// FinalizeError reports that the final result stayed unavailable through the
// bounded retry. The job remains completed; calling Finalize again may
// succeed.
type FinalizeError struct {
	Attempts int
	Err      error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("result unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }

// TerminalJobError carries a server-reported job failure message verbatim.
type TerminalJobError struct {
	Message string
}

func (e *TerminalJobError) Error() string {
	return e.Message
}
