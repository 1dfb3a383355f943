package duct

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"syscall"
)

// captureKind distinguishes the two ways a captured stream gets decoded
// when the Result is materialised.
type captureKind int

const (
	captureNone captureKind = iota
	captureText
	captureBytes
)

// captureBuf is the in-memory sink a capture reader worker drains a
// pipe into. It is only ever read from after the owning ioContext's
// workers have been joined, so no locking is needed: the worker
// goroutine's writes happen-before the join, and the join happens-before
// any read of buf (via the worker's closed "done" channel).
type captureBuf struct {
	kind captureKind
	buf  *bytes.Buffer
}

// ioContext is the run-time binding of the three standard descriptors
// plus owned fds and background workers for one expression subtree. It
// is derived from a parent context plus one node's Option Bag by
// deriveIOContext, and torn down by close, which must run on every exit
// path, including failure.
type ioContext struct {
	stdin, stdout, stderr *os.File

	// cwd and env are the resolved (not merely overridden) working
	// directory and environment a Leaf launched through this context
	// inherits. logger is the effective ambient logger set via
	// WithLogger.
	cwd    string
	env    []string
	logger *slog.Logger

	// owned holds every fd this context opened itself (regular files,
	// /dev/null, a dup of a user-supplied *os.File, or a capture pipe's
	// write end). These are closed first at teardown.
	owned []io.Closer

	// workers holds every background reader/writer this context
	// started, joined after owned is closed so that reader workers
	// actually observe EOF.
	workers []*worker

	stdoutCap *captureBuf
	stderrCap *captureBuf

	closed bool
}

// rootIOContext returns the process's own stdio as the base every run
// derives from.
func rootIOContext() *ioContext {
	return &ioContext{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		env:    os.Environ(),
	}
}

// close tears this context down: owned fds are closed, then every
// background worker is joined, re-raising the first worker failure
// encountered. Idempotent.
func (c *ioContext) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, cl := range c.owned {
		cl.Close()
	}
	return joinAll(c.workers)
}

// deriveIOContext resolves stdin/stdout/stderr overrides from bag
// against parent's descriptors, including the pre-redirection-descriptor
// swap rule for simultaneous stdout=ToStderr()+stderr=ToStdout().
func deriveIOContext(parent *ioContext, bag optionBag) (*ioContext, error) {
	cwd, err := effectiveCwd(parent.cwd, bag)
	if err != nil {
		return nil, err
	}
	logger := parent.logger
	if bag.logger != nil {
		logger = bag.logger
	}

	child := &ioContext{
		stdin:  parent.stdin,
		stdout: parent.stdout,
		stderr: parent.stderr,
		cwd:    cwd,
		env:    effectiveEnv(parent.env, bag),
		logger: logger,
	}

	// On any error return below, tear down whatever was already opened
	// or started for the partially derived context.
	derived := false
	defer func() {
		if !derived {
			child.close()
		}
	}()

	if bag.hasInput {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, &TypeError{Reason: "creating input pipe", Err: err}
		}
		child.stdin = r
		child.owned = append(child.owned, r)
		data := bag.input
		child.workers = append(child.workers, startWorker(func() error {
			defer w.Close()
			_, err := w.Write(data)
			return err
		}))
	} else if bag.stdin.isSet() {
		f, closer, err := resolveInputRedirect(bag.stdin)
		if err != nil {
			return nil, err
		}
		child.stdin = f
		if closer != nil {
			child.owned = append(child.owned, closer)
		}
	}

	stdoutIsCross := bag.stdout.kind == redirectToStderr
	stderrIsCross := bag.stderr.kind == redirectToStdout

	resolvedStdout := parent.stdout
	resolvedStderr := parent.stderr

	if bag.stdout.isSet() && !stdoutIsCross {
		f, closer, cap, wk, err := resolveOutputRedirect(bag.stdout)
		if err != nil {
			return nil, err
		}
		resolvedStdout = f
		if closer != nil {
			child.owned = append(child.owned, closer)
		}
		if cap != nil {
			child.stdoutCap = cap
		}
		if wk != nil {
			child.workers = append(child.workers, wk)
		}
	}
	if bag.stderr.isSet() && !stderrIsCross {
		f, closer, cap, wk, err := resolveOutputRedirect(bag.stderr)
		if err != nil {
			return nil, err
		}
		resolvedStderr = f
		if closer != nil {
			child.owned = append(child.owned, closer)
		}
		if cap != nil {
			child.stderrCap = cap
		}
		if wk != nil {
			child.workers = append(child.workers, wk)
		}
	}

	// Swap semantics: resolve any cross-reference sentinel against the
	// *other* stream's already-resolved value, which for the
	// simultaneous-swap case is still the pre-redirection parent
	// descriptor because neither side took the "not cross" branch above.
	preStdout, preStderr := resolvedStdout, resolvedStderr
	if stdoutIsCross {
		resolvedStdout = preStderr
	}
	if stderrIsCross {
		resolvedStderr = preStdout
	}

	child.stdout = resolvedStdout
	child.stderr = resolvedStderr

	derived = true
	return child, nil
}

// capturedStdout returns the bytes the stdout capture worker drained,
// or nil if no capture was requested. Reading before close is a
// *StateError: the worker may still be mid-copy and the buffer is not
// complete until every worker has been joined.
func (c *ioContext) capturedStdout() ([]byte, error) {
	if c.stdoutCap == nil {
		return nil, nil
	}
	if !c.closed {
		return nil, &StateError{Reason: "captured stdout read before teardown"}
	}
	return c.stdoutCap.buf.Bytes(), nil
}

// capturedStderr is capturedStdout's sibling for stderr.
func (c *ioContext) capturedStderr() ([]byte, error) {
	if c.stderrCap == nil {
		return nil, nil
	}
	if !c.closed {
		return nil, &StateError{Reason: "captured stderr read before teardown"}
	}
	return c.stderrCap.buf.Bytes(), nil
}

// withStdout returns a shallow copy of c with stdout replaced. Used
// only by the Pipe walker to wire the left side's output into an
// intermediate connecting pipe; Pipe nodes carry no Option Bag, so
// there is nothing to run through deriveIOContext.
func (c *ioContext) withStdout(f *os.File) *ioContext {
	cp := *c
	cp.stdout = f
	cp.owned = nil
	cp.workers = nil
	cp.stdoutCap = nil
	cp.stderrCap = nil
	return &cp
}

// withStdin is withStdout's sibling for the Pipe walker's right side.
func (c *ioContext) withStdin(f *os.File) *ioContext {
	cp := *c
	cp.stdin = f
	cp.owned = nil
	cp.workers = nil
	cp.stdoutCap = nil
	cp.stderrCap = nil
	return &cp
}

func resolveInputRedirect(r Redirect) (*os.File, io.Closer, error) {
	switch r.kind {
	case redirectPath:
		f, err := os.Open(r.path)
		if err != nil {
			return nil, nil, &TypeError{Reason: "opening stdin path " + r.path, Err: err}
		}
		return f, f, nil
	case redirectFile:
		f, err := dupFile(r.file)
		if err != nil {
			return nil, nil, &TypeError{Reason: "duplicating stdin file", Err: err}
		}
		return f, f, nil
	case redirectDevnull:
		f, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
		if err != nil {
			return nil, nil, &TypeError{Reason: "opening /dev/null for stdin", Err: err}
		}
		return f, f, nil
	default:
		return nil, nil, &TypeError{Reason: "unsupported stdin redirect"}
	}
}

func resolveOutputRedirect(r Redirect) (f *os.File, closer io.Closer, cap *captureBuf, wk *worker, err error) {
	switch r.kind {
	case redirectPath:
		file, oerr := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if oerr != nil {
			return nil, nil, nil, nil, &TypeError{Reason: "opening output path " + r.path, Err: oerr}
		}
		return file, file, nil, nil, nil
	case redirectFile:
		dup, derr := dupFile(r.file)
		if derr != nil {
			return nil, nil, nil, nil, &TypeError{Reason: "duplicating output file", Err: derr}
		}
		return dup, dup, nil, nil, nil
	case redirectDevnull:
		file, oerr := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if oerr != nil {
			return nil, nil, nil, nil, &TypeError{Reason: "opening /dev/null for output", Err: oerr}
		}
		return file, file, nil, nil, nil
	case redirectCaptureText, redirectCaptureBytes:
		pr, pw, perr := os.Pipe()
		if perr != nil {
			return nil, nil, nil, nil, &TypeError{Reason: "creating capture pipe", Err: perr}
		}
		kind := captureText
		if r.kind == redirectCaptureBytes {
			kind = captureBytes
		}
		cb := &captureBuf{kind: kind, buf: &bytes.Buffer{}}
		worker := startWorker(func() error {
			defer pr.Close()
			_, err := io.Copy(cb.buf, pr)
			return err
		})
		return pw, pw, cb, worker, nil
	default:
		return nil, nil, nil, nil, &TypeError{Reason: "unsupported output redirect"}
	}
}

// dupFile duplicates f's descriptor so the child gets its own copy; the
// caller's *os.File is never touched.
func dupFile(f *os.File) (*os.File, error) {
	newFd, err := syscall.Dup(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(newFd), f.Name()), nil
}
