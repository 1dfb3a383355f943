package duct

// exprKind is the closed set of expression shapes. Modeled as a tagged
// union rather than an interface-per-variant hierarchy: every Expr is
// the same struct, discriminated by kind. A closed enum with five cases
// and no further extensibility is better served by this than by open
// interface dispatch.
type exprKind int

const (
	exprCmd exprKind = iota
	exprSh
	exprPipe
	exprThen
	exprSubshell
)

// Expr is an immutable description of a single external program or a
// composition of two Exprs. Building an Expr never launches anything;
// only Run or Read does. The zero value is not a valid Expr; always
// obtain one from Cmd, Sh, or a composition method.
type Expr struct {
	kind exprKind

	program string
	args    []string

	script string

	bag    optionBag
	hasBag bool

	left, right *Expr
	inner       *Expr
}

// Cmd builds an expression that runs program with the given argv,
// resolved against PATH at launch time (not at construction time). It
// never fails to construct: Cmd takes no Option Bag, so there is
// nothing for it to validate yet. Use With to attach options.
func Cmd(program string, args ...string) *Expr {
	return &Expr{kind: exprCmd, program: program, args: append([]string(nil), args...)}
}

// Sh builds an expression that runs script through the host shell
// (/bin/sh -c). Shell syntax itself — quoting, globbing, control flow —
// is entirely the host shell's concern; duct never parses it.
func Sh(script string) *Expr {
	return &Expr{kind: exprSh, script: script}
}

// With attaches an Option Bag to a Cmd, Sh, or Subshell expression,
// returning a new Expr (Exprs are immutable; With never mutates e). It
// is the only place construction can fail: Pipe and Then take no
// options at all, so there is no method signature through which options
// could ever be attached to a composite node.
func (e *Expr) With(opts ...Option) (*Expr, error) {
	if e.kind != exprCmd && e.kind != exprSh && e.kind != exprSubshell {
		return nil, &ConstructionError{Reason: "With is only valid on Cmd, Sh, or Subshell expressions"}
	}
	bag, err := parseOptions(opts...)
	if err != nil {
		return nil, err
	}
	cp := *e
	cp.bag = bag
	cp.hasBag = true
	return &cp, nil
}

// Pipe connects e's stdout to other's stdin through an anonymous pipe
// and runs both concurrently.
func (e *Expr) Pipe(other *Expr) *Expr {
	return &Expr{kind: exprPipe, left: e, right: other}
}

// Then runs e to completion, and then — only if e's aggregate status
// was zero — runs other with the same I/O Context (descriptors are not
// re-derived between the two).
func (e *Expr) Then(other *Expr) *Expr {
	return &Expr{kind: exprThen, left: e, right: other}
}

// Subshell wraps e in an isolation boundary: redirections and
// environment/cwd overrides attached via With on the returned Expr
// apply to e's entire subtree without being visible to anything
// outside it, and a check policy set here binds the whole subtree as a
// single unit.
func (e *Expr) Subshell() *Expr {
	return &Expr{kind: exprSubshell, inner: e}
}
