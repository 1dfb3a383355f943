package duct

import (
	"errors"
	"os"
	"strings"

	"github.com/nightmachinary/duct-go/internal/procx"
)

// Run builds an Option Bag from opts, applies it as the top-level I/O
// Context, and executes the expression tree.
func (e *Expr) Run(opts ...Option) (*Result, error) {
	bag, err := parseOptions(opts...)
	if err != nil {
		return nil, err
	}
	return e.runBag(bag)
}

// Read runs e with stdout captured as text and returns it, trimming
// exactly one trailing newline unless WithTrim(false) was passed. It is
// sugar over Run.
func (e *Expr) Read(opts ...Option) (string, error) {
	bag, err := parseOptions(opts...)
	if err != nil {
		return "", err
	}
	if !bag.stdout.isSet() {
		bag.stdout = CaptureText()
	}
	res, err := e.runBag(bag)
	if err != nil {
		return "", err
	}
	text := res.Stdout()
	if bag.trim == nil || *bag.trim {
		text = trimTrailingNewline(text)
	}
	return text, nil
}

func (e *Expr) runBag(bag optionBag) (*Result, error) {
	ctx, err := deriveIOContext(rootIOContext(), bag)
	if err != nil {
		return nil, err
	}

	status, _, sawFalse, desc, runErr := walk(e, ctx)

	closeErr := ctx.close()
	if runErr == nil {
		runErr = closeErr
	}

	result := &Result{Status: status}
	if ctx.stdoutCap != nil {
		data, capErr := ctx.capturedStdout()
		if capErr != nil && runErr == nil {
			runErr = capErr
		}
		result.stdout = captureResult{present: true, kind: ctx.stdoutCap.kind, data: data}
	}
	if ctx.stderrCap != nil {
		data, capErr := ctx.capturedStderr()
		if capErr != nil && runErr == nil {
			runErr = capErr
		}
		result.stderr = captureResult{present: true, kind: ctx.stderrCap.kind, data: data}
	}

	if runErr == nil && status != 0 {
		checked := true
		if bag.check != nil {
			checked = *bag.check
		} else {
			checked = !sawFalse
		}
		if checked {
			runErr = &CheckedError{Status: status, Command: desc, Stderr: result.stderr.data}
		}
	}

	if ctx.logger != nil {
		ctx.logger.Debug("duct run finished", "status", status, "error", runErr)
	}

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

// walk evaluates e against ctx and returns its aggregate status, a
// description suitable for error messages, and whether any explicit
// check value was observed along the path actually executed (sawFalse
// is only meaningful when sawExplicit is true). A Subshell node fully
// encapsulates its own inner explicit-check flags: from its caller's
// perspective it behaves exactly like a Leaf, contributing only its own
// bag's check setting, if any.
func walk(e *Expr, ctx *ioContext) (status int, sawExplicit bool, sawFalse bool, desc string, err error) {
	switch e.kind {
	case exprCmd, exprSh:
		return walkLeaf(e, ctx)
	case exprPipe:
		return walkPipe(e, ctx)
	case exprThen:
		return walkThen(e, ctx)
	case exprSubshell:
		return walkSubshell(e, ctx)
	default:
		return 0, false, false, "", &ConstructionError{Reason: "unknown expression kind"}
	}
}

func walkLeaf(e *Expr, ctx *ioContext) (int, bool, bool, string, error) {
	childCtx, err := deriveIOContext(ctx, e.bag)
	if err != nil {
		return 0, false, false, describeLeaf(e), err
	}

	status, launchErr := launchLeaf(e, childCtx)

	closeErr := childCtx.close()
	if launchErr == nil {
		launchErr = closeErr
	}

	sawExplicit := e.bag.check != nil
	sawFalse := sawExplicit && !*e.bag.check
	return status, sawExplicit, sawFalse, describeLeaf(e), launchErr
}

// walkPipe connects left's stdout to right's stdin through an
// anonymous pipe and runs both sides concurrently. The parent's own
// copies of the pipe's two ends are closed as soon as the corresponding
// side's entire subtree has finished launching and waiting (walk
// returning), which is also the earliest point no further fork on that
// side can still need the fd.
func walkPipe(e *Expr, ctx *ioContext) (int, bool, bool, string, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return 0, false, false, "", &TypeError{Reason: "creating pipe connector", Err: err}
	}

	leftCtx := ctx.withStdout(pw)
	rightCtx := ctx.withStdin(pr)

	var lStatus, rStatus int
	var lSaw, lFalse, rSaw, rFalse bool
	var lDesc, rDesc string
	var lErr, rErr error

	leftDone := startWorker(func() error {
		defer pw.Close()
		lStatus, lSaw, lFalse, lDesc, lErr = walk(e.left, leftCtx)
		return lErr
	})
	rightDone := startWorker(func() error {
		defer pr.Close()
		rStatus, rSaw, rFalse, rDesc, rErr = walk(e.right, rightCtx)
		return rErr
	})

	leftDone.join()
	rightDone.join()

	err = lErr
	if err == nil {
		err = rErr
	}

	// Right-most non-zero: the consumer's failure wins, but a producer
	// failure still surfaces when the consumer succeeded.
	status, desc := rStatus, rDesc
	if status == 0 && lStatus != 0 {
		status, desc = lStatus, lDesc
	}
	return status, lSaw || rSaw, lFalse || rFalse, desc, err
}

// walkThen runs right only if left's aggregate status was zero, with
// the same I/O Context (not re-derived between the two).
func walkThen(e *Expr, ctx *ioContext) (int, bool, bool, string, error) {
	lStatus, lSaw, lFalse, lDesc, lErr := walk(e.left, ctx)
	if lErr != nil || lStatus != 0 {
		return lStatus, lSaw, lFalse, lDesc, lErr
	}
	rStatus, rSaw, rFalse, rDesc, rErr := walk(e.right, ctx)
	return rStatus, lSaw || rSaw, lFalse || rFalse, rDesc, rErr
}

// walkSubshell derives a fresh I/O Context boundary around e.inner,
// whose own check policy is fully resolved and enforced right here, so
// nothing about what happened inside leaks to the caller beyond a
// status and, on violation, an error.
func walkSubshell(e *Expr, ctx *ioContext) (int, bool, bool, string, error) {
	childCtx, err := deriveIOContext(ctx, e.bag)
	if err != nil {
		return 0, false, false, "", err
	}

	status, _, innerFalse, desc, innerErr := walk(e.inner, childCtx)

	closeErr := childCtx.close()
	if innerErr == nil {
		innerErr = closeErr
	}

	if innerErr == nil && status != 0 {
		checked := true
		if e.bag.check != nil {
			checked = *e.bag.check
		} else {
			checked = !innerFalse
		}
		if checked {
			stderrBytes, _ := childCtx.capturedStderr()
			innerErr = &CheckedError{Status: status, Command: desc, Stderr: stderrBytes}
		}
	}

	sawExplicit := e.bag.check != nil
	sawFalse := sawExplicit && !*e.bag.check
	return status, sawExplicit, sawFalse, desc, innerErr
}

func describeLeaf(e *Expr) string {
	if e.kind == exprSh {
		return "/bin/sh -c " + e.script
	}
	return strings.Join(append([]string{e.program}, e.args...), " ")
}

func launchLeaf(e *Expr, ctx *ioContext) (int, error) {
	var cmd *procx.Cmd
	switch e.kind {
	case exprCmd:
		cmd = procx.Command(e.program, e.args...)
	case exprSh:
		cmd = procx.Command("/bin/sh", "-c", e.script)
	default:
		return 0, &ConstructionError{Reason: "launchLeaf called on a non-leaf expression"}
	}

	cmd.Dir = ctx.cwd
	cmd.Env = ctx.env
	cmd.Stdin = ctx.stdin
	cmd.Stdout = ctx.stdout
	cmd.Stderr = ctx.stderr

	if ctx.logger != nil {
		ctx.logger.Debug("duct launching", "argv", cmd.Args, "dir", cmd.Dir)
	}

	runErr := cmd.Run()
	if runErr == nil {
		return 0, nil
	}

	var exitErr *procx.ExitError
	if errors.As(runErr, &exitErr) {
		return processStatus(exitErr.ProcessState), nil
	}
	return 0, &TypeError{Reason: "launching " + describeLeaf(e), Err: runErr}
}

// processStatus converts a procx.ProcessState into a shell-style status:
// the exit code when the process exited normally, or 128+signal when it
// was killed by a signal, matching the host shell's own convention for
// $? so duct's aggregate statuses compose the same way a shell
// pipeline's would.
func processStatus(ps *procx.ProcessState) int {
	if ps == nil {
		return 1
	}
	if ps.Exited() {
		return ps.ExitCode()
	}
	if ps.Signaled() {
		return 128 + int(ps.Signal())
	}
	return 1
}
