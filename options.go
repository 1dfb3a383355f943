package duct

import (
	"log/slog"
	"os"
)

// Option is one entry of an option bag: a value returned by a WithXxx
// constructor that mutates an optionBag when applied.
type Option func(*optionBag) error

// optionBag is the parsed, validated form of a set of Options.
type optionBag struct {
	cwd     string
	hasCwd  bool
	env     map[string]string
	hasEnv  bool
	fullEnv map[string]string
	hasFull bool

	input    []byte
	hasInput bool

	stdin  Redirect
	stdout Redirect
	stderr Redirect

	check *bool
	trim  *bool

	logger *slog.Logger
}

// parseOptions applies opts in order and validates the resulting bag,
// rejecting illegal combinations eagerly. Redirect kind legality per
// stream is checked by WithStdin/WithStdout/WithStderr as they are
// applied here, so an illegal kind also fails parseOptions.
func parseOptions(opts ...Option) (optionBag, error) {
	var bag optionBag
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&bag); err != nil {
			return optionBag{}, err
		}
	}
	if bag.hasEnv && bag.hasFull {
		return optionBag{}, &ConstructionError{Reason: "env and full_env are mutually exclusive"}
	}
	if bag.hasInput && bag.stdin.isSet() {
		return optionBag{}, &ConstructionError{Reason: "input and stdin are mutually exclusive"}
	}
	return bag, nil
}

// WithCwd sets the working directory the process runs in.
func WithCwd(dir string) Option {
	return func(b *optionBag) error {
		b.cwd = dir
		b.hasCwd = true
		return nil
	}
}

// WithEnv merges kv over the inherited environment. Mutually exclusive
// with WithFullEnv.
func WithEnv(kv map[string]string) Option {
	return func(b *optionBag) error {
		b.env = kv
		b.hasEnv = true
		return nil
	}
}

// WithFullEnv replaces the inherited environment entirely with kv.
// Mutually exclusive with WithEnv.
func WithFullEnv(kv map[string]string) Option {
	return func(b *optionBag) error {
		b.fullEnv = kv
		b.hasFull = true
		return nil
	}
}

// WithInput feeds data to the process's stdin. Mutually exclusive with
// WithStdin.
func WithInput(data []byte) Option {
	return func(b *optionBag) error {
		b.input = data
		b.hasInput = true
		return nil
	}
}

// WithInputString is WithInput for a string, for callers who don't want
// to convert to []byte themselves.
func WithInputString(s string) Option {
	return WithInput([]byte(s))
}

// WithStdin sets the process's stdin source. Legal Redirect kinds are
// Path, File, and Devnull; anything else is a *TypeError returned when
// the option is applied (by With, Run or Read). Mutually exclusive with
// WithInput.
func WithStdin(src Redirect) Option {
	return func(b *optionBag) error {
		switch src.kind {
		case redirectPath, redirectFile, redirectDevnull, redirectNone:
			b.stdin = src
			return nil
		default:
			return &TypeError{Reason: "stdin does not accept ToStdout/ToStderr/capture redirects"}
		}
	}
}

// WithStdout sets the process's stdout target. Legal Redirect kinds are
// Path, File, Devnull, ToStderr, CaptureText, and CaptureBytes.
func WithStdout(dst Redirect) Option {
	return func(b *optionBag) error {
		if dst.kind == redirectToStdout {
			return &TypeError{Reason: "stdout cannot redirect to itself"}
		}
		b.stdout = dst
		return nil
	}
}

// WithStderr sets the process's stderr target. Legal Redirect kinds are
// Path, File, Devnull, ToStdout, CaptureText, and CaptureBytes.
func WithStderr(dst Redirect) Option {
	return func(b *optionBag) error {
		if dst.kind == redirectToStderr {
			return &TypeError{Reason: "stderr cannot redirect to itself"}
		}
		b.stderr = dst
		return nil
	}
}

// WithCheck sets whether a non-zero aggregate status raises a
// *CheckedError. Defaults to true. check is resolved once per run/
// subshell boundary: a value set on Run/Read or on the Subshell itself
// decides; otherwise the status is checked unless a node executed
// inside that boundary set WithCheck(false).
func WithCheck(check bool) Option {
	return func(b *optionBag) error {
		b.check = &check
		return nil
	}
}

// WithTrim sets whether Read trims exactly one trailing newline from
// captured stdout text. Defaults to true.
func WithTrim(trim bool) Option {
	return func(b *optionBag) error {
		b.trim = &trim
		return nil
	}
}

// WithLogger attaches a structured logger the engine uses to trace leaf
// launches and aggregate statuses at slog.LevelDebug; it only affects
// the run it's passed to. A nil logger (the default) disables tracing
// entirely.
func WithLogger(l *slog.Logger) Option {
	return func(b *optionBag) error {
		b.logger = l
		return nil
	}
}

// effectiveCwd resolves cwd against the parent's: relative cwd is
// resolved against the caller's cwd at run time, which for a nested
// node means its parent's resolved cwd.
func effectiveCwd(parentCwd string, bag optionBag) (string, error) {
	if !bag.hasCwd {
		return parentCwd, nil
	}
	if bag.cwd == "" {
		return parentCwd, nil
	}
	if bag.cwd[0] == '/' {
		return bag.cwd, nil
	}
	base := parentCwd
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		base = wd
	}
	return base + "/" + bag.cwd, nil
}

// effectiveEnv resolves env/full_env against the parent's already
// resolved environment.
func effectiveEnv(parentEnv []string, bag optionBag) []string {
	if bag.hasFull {
		return mapToEnviron(bag.fullEnv)
	}
	if bag.hasEnv {
		merged := environToMap(parentEnv)
		for k, v := range bag.env {
			merged[k] = v
		}
		return mapToEnviron(merged)
	}
	return parentEnv
}

func environToMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				m[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return m
}

func mapToEnviron(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}
