package duct

import "os"

// redirectKind is the closed set of things a Redirect value can mean.
// Which kinds are legal depends on which stream (stdin, stdout, stderr)
// the Redirect is attached to; that is enforced by parseOptions, which
// returns a *TypeError for an unsupported combination.
type redirectKind int

const (
	redirectNone redirectKind = iota
	redirectPath
	redirectFile
	redirectDevnull
	redirectToStdout // only legal for stderr
	redirectToStderr // only legal for stdout
	redirectCaptureText
	redirectCaptureBytes
)

// Redirect describes where a standard stream should read from or write
// to. Build one with Path, File, Devnull, ToStdout, ToStderr,
// CaptureText or CaptureBytes; the zero value means "not set".
type Redirect struct {
	kind redirectKind
	path string
	file *os.File
}

func (r Redirect) isSet() bool { return r.kind != redirectNone }

// Path redirects the stream to a file at the given path. For stdin the
// file is opened read-only; for stdout/stderr it is opened for
// writing, truncating any existing content.
func Path(path string) Redirect {
	return Redirect{kind: redirectPath, path: path}
}

// File redirects the stream directly to an already-open file, whose
// descriptor is duplicated into the child.
func File(f *os.File) Redirect {
	return Redirect{kind: redirectFile, file: f}
}

// Devnull redirects the stream to /dev/null.
func Devnull() Redirect {
	return Redirect{kind: redirectDevnull}
}

// ToStdout redirects stderr to wherever stdout is also going. Only
// legal as a WithStderr value.
func ToStdout() Redirect {
	return Redirect{kind: redirectToStdout}
}

// ToStderr redirects stdout to wherever stderr is also going. Only
// legal as a WithStdout value.
func ToStderr() Redirect {
	return Redirect{kind: redirectToStderr}
}

// CaptureText requests that the stream be captured into memory and
// decoded as UTF-8 text when the Result is produced. Only legal as a
// WithStdout/WithStderr value.
func CaptureText() Redirect {
	return Redirect{kind: redirectCaptureText}
}

// CaptureBytes requests that the stream be captured into memory and
// returned as raw bytes when the Result is produced. Only legal as a
// WithStdout/WithStderr value.
func CaptureBytes() Redirect {
	return Redirect{kind: redirectCaptureBytes}
}
