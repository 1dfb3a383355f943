package duct

import "testing"

func TestDeriveIOContextInheritsUnmentionedStreams(t *testing.T) {
	parent := rootIOContext()
	child, err := deriveIOContext(parent, optionBag{})
	if err != nil {
		t.Fatalf("deriveIOContext() error = %v", err)
	}
	if child.stdin != parent.stdin || child.stdout != parent.stdout || child.stderr != parent.stderr {
		t.Error("an empty bag should leave all three streams inherited verbatim")
	}
	if err := child.close(); err != nil {
		t.Errorf("close() error = %v", err)
	}
}

func TestDeriveIOContextSwapsStdoutAndStderr(t *testing.T) {
	parent := rootIOContext()
	child, err := deriveIOContext(parent, optionBag{stdout: ToStderr(), stderr: ToStdout()})
	if err != nil {
		t.Fatalf("deriveIOContext() error = %v", err)
	}
	if child.stdout != parent.stderr {
		t.Error("stdout=ToStderr() should resolve to the parent's pre-redirection stderr")
	}
	if child.stderr != parent.stdout {
		t.Error("stderr=ToStdout() should resolve to the parent's pre-redirection stdout")
	}
	child.close()
}

func TestDeriveIOContextCaptureRedirectsToOwnedPipe(t *testing.T) {
	parent := rootIOContext()
	child, err := deriveIOContext(parent, optionBag{stdout: CaptureText()})
	if err != nil {
		t.Fatalf("deriveIOContext() error = %v", err)
	}
	if child.stdoutCap == nil {
		t.Fatal("expected stdoutCap to be populated for a CaptureText() redirect")
	}
	if child.stdout == parent.stdout {
		t.Error("captured stdout should not be the parent's raw descriptor")
	}

	if _, err := child.stdout.Write([]byte("hello\n")); err != nil {
		t.Fatalf("writing to captured stdout: %v", err)
	}
	if err := child.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}
	if got := child.stdoutCap.buf.String(); got != "hello\n" {
		t.Errorf("captured stdout = %q, want %q", got, "hello\n")
	}
}

func TestDeriveIOContextInputFeedsStdin(t *testing.T) {
	parent := rootIOContext()
	child, err := deriveIOContext(parent, optionBag{hasInput: true, input: []byte("feed me")})
	if err != nil {
		t.Fatalf("deriveIOContext() error = %v", err)
	}
	buf := make([]byte, 64)
	n, _ := child.stdin.Read(buf)
	if string(buf[:n]) != "feed me" {
		t.Errorf("child.stdin produced %q, want %q", buf[:n], "feed me")
	}
	if err := child.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}
}

func TestDeriveIOContextDevnullOpensRealDevice(t *testing.T) {
	parent := rootIOContext()
	child, err := deriveIOContext(parent, optionBag{stdin: Devnull()})
	if err != nil {
		t.Fatalf("deriveIOContext() error = %v", err)
	}
	buf := make([]byte, 1)
	n, _ := child.stdin.Read(buf)
	if n != 0 {
		t.Errorf("reading from Devnull() stdin returned %d bytes, want 0 (EOF)", n)
	}
	child.close()
}

func TestCapturedStreamBeforeTeardownIsStateError(t *testing.T) {
	parent := rootIOContext()
	child, err := deriveIOContext(parent, optionBag{stdout: CaptureText()})
	if err != nil {
		t.Fatalf("deriveIOContext() error = %v", err)
	}

	if _, err := child.capturedStdout(); err == nil {
		t.Error("capturedStdout() before close: error = nil, want a *StateError")
	} else if _, ok := err.(*StateError); !ok {
		t.Errorf("capturedStdout() error type = %T, want *StateError", err)
	}

	child.stdout.Write([]byte("late"))
	if err := child.close(); err != nil {
		t.Fatalf("close() error = %v", err)
	}
	data, err := child.capturedStdout()
	if err != nil {
		t.Fatalf("capturedStdout() after close: error = %v", err)
	}
	if string(data) != "late" {
		t.Errorf("capturedStdout() = %q, want %q", data, "late")
	}
}

func TestIOContextCloseIsIdempotent(t *testing.T) {
	parent := rootIOContext()
	child, err := deriveIOContext(parent, optionBag{stdout: CaptureBytes()})
	if err != nil {
		t.Fatalf("deriveIOContext() error = %v", err)
	}
	if err := child.close(); err != nil {
		t.Fatalf("first close() error = %v", err)
	}
	if err := child.close(); err != nil {
		t.Fatalf("second close() error = %v, want nil (idempotent)", err)
	}
}
