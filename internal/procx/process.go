package procx

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Process stores the information about a process created by Start.
type Process struct {
	Pid int
}

// ProcessState holds the wait status Wait collected for an exited
// process. It exposes just enough to tell a normal exit from a signal
// death and recover the code or signal; duct's engine folds that into
// a shell-style aggregate status.
type ProcessState struct {
	status unix.WaitStatus
}

// Exited reports whether the process exited normally, as opposed to
// being terminated by a signal.
func (p *ProcessState) Exited() bool {
	return p.status.Exited()
}

// ExitCode returns the exit code of a normally exited process, or -1
// if the process was terminated by a signal. Either way it is non-zero
// whenever the process did not succeed, which is all the status
// aggregation above this package needs.
func (p *ProcessState) ExitCode() int {
	if !p.status.Exited() {
		return -1
	}
	return p.status.ExitStatus()
}

// Signaled reports whether the process was terminated by a signal.
func (p *ProcessState) Signaled() bool {
	return p.status.Signaled()
}

// Signal returns the signal that terminated the process. Only
// meaningful when Signaled reports true.
func (p *ProcessState) Signal() syscall.Signal {
	return p.status.Signal()
}
