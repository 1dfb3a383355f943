package duct

import "fmt"

// ConstructionError is returned synchronously from whichever call built
// an illegal Option Bag: mutually exclusive keys (env+full_env,
// input+stdin), or options attached where the API forbids them (e.g.
// With on a Pipe/Then node).
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return "duct: construction error: " + e.Reason
}

// TypeError is returned when an Option carries a value of an
// unsupported shape for where it was attached (a Redirect kind that
// isn't legal for the stream it targets, or an unopenable capture/path
// target). Raised at the latest just before fork.
type TypeError struct {
	Reason string
	Err    error
}

func (e *TypeError) Error() string {
	if e.Err != nil {
		return "duct: type error: " + e.Reason + ": " + e.Err.Error()
	}
	return "duct: type error: " + e.Reason
}

func (e *TypeError) Unwrap() error { return e.Err }

// CheckedError is raised by Run/Read when the aggregate exit status is
// non-zero and the effective check policy is in effect.
type CheckedError struct {
	// Status is the aggregate exit status that triggered the check.
	Status int
	// Command describes the expression that was run, for error messages.
	Command string
	// Stderr holds whatever stderr was captured for the run, if any.
	Stderr []byte
}

func (e *CheckedError) Error() string {
	if len(e.Stderr) > 0 {
		return fmt.Sprintf("duct: command %q exited with status %d: %s", e.Command, e.Status, trimTrailingNewline(string(e.Stderr)))
	}
	return fmt.Sprintf("duct: command %q exited with status %d", e.Command, e.Status)
}

// StateError reports an attempt to read a captured stream before the
// owning I/O context has been torn down: the capture worker may still
// be mid-copy and the buffer is incomplete until every worker has been
// joined. The public API never exposes a Result before teardown
// (Run/Read only return one once the whole tree is quiescent), so
// callers only hit this through ioContext's own accessors.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return "duct: state error: " + e.Reason
}
