// Package procx is the low-level process-launching primitive that duct's
// engine builds on. It carries none of os/exec's io.Reader/io.Writer
// convenience plumbing (StdinPipe, Output, CombinedOutput, ...) because
// duct's own I/O context already resolves every stream to a concrete
// *os.File before a leaf is ever launched, so Cmd only has to know how
// to wire fds and wait.
package procx

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Cmd represents an external command being prepared or run.
//
// A Cmd cannot be reused after calling Start.
type Cmd struct {
	// Path is the path of the command to run. If Path is relative, it is
	// evaluated relative to Dir.
	Path string

	// Args holds command line arguments, including the command as Args[0].
	Args []string

	// Env specifies the environment of the process. Each entry is of the
	// form "key=value". If Env is nil, the new process uses the current
	// process's environment.
	Env []string

	// Dir specifies the working directory of the command. If Dir is the
	// empty string, Run runs the command in the calling process's current
	// directory.
	Dir string

	// Stdin, Stdout and Stderr are the exact descriptors the child
	// inherits. Unlike os/exec, procx never substitutes a pipe-plus-copy
	// goroutine for a nil field: a nil stream means /dev/null, full stop
	// (duct's I/O context is responsible for ever wanting that).
	Stdin, Stdout, Stderr *os.File

	// Process is the underlying process, once started.
	Process *Process

	// ProcessState contains information about an exited process, once
	// Wait has returned.
	ProcessState *ProcessState

	lookPathErr error // LookPath error, if any
	finished    bool
	osCmd       *exec.Cmd
}

// Command returns the Cmd struct to execute the named program with the
// given arguments.
//
// If name contains no path separators, Command uses exec.LookPath to
// resolve name to a complete path if possible; a lookup failure is
// stashed and surfaced by Start.
func Command(name string, arg ...string) *Cmd {
	cmd := &Cmd{
		Path: name,
		Args: append([]string{name}, arg...),
	}
	if filepath.Base(name) == name {
		lp, err := exec.LookPath(name)
		if err != nil {
			cmd.lookPathErr = err
		} else {
			cmd.Path = lp
		}
	}
	return cmd
}

// String returns a human-readable description of c, suitable for error
// messages. It is not suitable as input to a shell.
func (c *Cmd) String() string {
	if c.lookPathErr != nil {
		return strings.Join(c.Args, " ")
	}
	var b strings.Builder
	b.WriteString(c.Path)
	for _, a := range c.Args[1:] {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	return b.String()
}

// Start starts the specified command but does not wait for it to complete.
func (c *Cmd) Start() error {
	if c.lookPathErr != nil {
		return c.lookPathErr
	}
	if c.Process != nil {
		return errors.New("procx: already started")
	}
	if c.finished {
		return errors.New("procx: already finished")
	}

	osCmd := exec.Command(c.Path, c.Args[1:]...)
	osCmd.Dir = c.Dir
	osCmd.Env = c.Env
	// A nil *os.File stored in os/exec's io.Reader/io.Writer fields would be
	// a non-nil interface that os/exec turns into a closed child fd; leaving
	// the field unset makes os/exec open /dev/null instead.
	if c.Stdin != nil {
		osCmd.Stdin = c.Stdin
	}
	if c.Stdout != nil {
		osCmd.Stdout = c.Stdout
	}
	if c.Stderr != nil {
		osCmd.Stderr = c.Stderr
	}

	if err := osCmd.Start(); err != nil {
		return err
	}

	c.Process = &Process{Pid: osCmd.Process.Pid}
	c.osCmd = osCmd
	return nil
}

// Wait waits for the command to exit and populates c.ProcessState.
//
// A non-zero exit is reported as *ExitError, not nil; it is the caller's
// job (duct's engine) to decide whether that is checked or swallowed.
func (c *Cmd) Wait() error {
	if c.Process == nil {
		return errors.New("procx: not started")
	}
	if c.finished {
		return errors.New("procx: Wait was already called")
	}
	c.finished = true

	err := c.osCmd.Wait()

	if ps := c.osCmd.ProcessState; ps != nil {
		c.ProcessState = &ProcessState{
			status: unix.WaitStatus(ps.Sys().(syscall.WaitStatus)),
		}
	}

	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return &ExitError{ProcessState: c.ProcessState}
		}
		return err
	}
	return nil
}

// Run starts the specified command and waits for it to complete.
func (c *Cmd) Run() error {
	if err := c.Start(); err != nil {
		return err
	}
	return c.Wait()
}
