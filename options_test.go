package duct

import "testing"

func TestParseOptionsRejectsEnvAndFullEnv(t *testing.T) {
	_, err := parseOptions(WithEnv(map[string]string{"A": "1"}), WithFullEnv(map[string]string{"B": "2"}))
	if err == nil {
		t.Fatal("parseOptions() error = nil, want a ConstructionError")
	}
	if _, ok := err.(*ConstructionError); !ok {
		t.Errorf("parseOptions() error type = %T, want *ConstructionError", err)
	}
}

func TestParseOptionsRejectsInputAndStdin(t *testing.T) {
	_, err := parseOptions(WithInputString("hi"), WithStdin(Devnull()))
	if err == nil {
		t.Fatal("parseOptions() error = nil, want a ConstructionError")
	}
	if _, ok := err.(*ConstructionError); !ok {
		t.Errorf("parseOptions() error type = %T, want *ConstructionError", err)
	}
}

func TestParseOptionsAllowsEnvAlone(t *testing.T) {
	bag, err := parseOptions(WithEnv(map[string]string{"A": "1"}))
	if err != nil {
		t.Fatalf("parseOptions() error = %v, want nil", err)
	}
	if !bag.hasEnv || bag.env["A"] != "1" {
		t.Errorf("bag.env = %v, want A=1", bag.env)
	}
}

func TestWithStdinRejectsCaptureTags(t *testing.T) {
	_, err := parseOptions(WithStdin(CaptureText()))
	if err == nil {
		t.Fatal("parseOptions() error = nil, want a TypeError")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Errorf("parseOptions() error type = %T, want *TypeError", err)
	}
}

func TestWithStdoutRejectsToStdoutSelfReference(t *testing.T) {
	_, err := parseOptions(WithStdout(ToStdout()))
	if err == nil {
		t.Fatal("parseOptions() error = nil, want a TypeError")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Errorf("parseOptions() error type = %T, want *TypeError", err)
	}
}

func TestWithStderrRejectsToStderrSelfReference(t *testing.T) {
	_, err := parseOptions(WithStderr(ToStderr()))
	if err == nil {
		t.Fatal("parseOptions() error = nil, want a TypeError")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Errorf("parseOptions() error type = %T, want *TypeError", err)
	}
}

func TestEffectiveCwdRelativeResolvesAgainstParent(t *testing.T) {
	bag := optionBag{cwd: "sub", hasCwd: true}
	got, err := effectiveCwd("/tmp/parent", bag)
	if err != nil {
		t.Fatalf("effectiveCwd() error = %v", err)
	}
	if got != "/tmp/parent/sub" {
		t.Errorf("effectiveCwd() = %q, want %q", got, "/tmp/parent/sub")
	}
}

func TestEffectiveCwdAbsoluteOverridesParent(t *testing.T) {
	bag := optionBag{cwd: "/abs", hasCwd: true}
	got, err := effectiveCwd("/tmp/parent", bag)
	if err != nil {
		t.Fatalf("effectiveCwd() error = %v", err)
	}
	if got != "/abs" {
		t.Errorf("effectiveCwd() = %q, want %q", got, "/abs")
	}
}

func TestEffectiveEnvMergeVsReplace(t *testing.T) {
	parent := []string{"PATH=/bin", "HOME=/root"}

	merged := effectiveEnv(parent, optionBag{hasEnv: true, env: map[string]string{"HOME": "/override"}})
	m := environToMap(merged)
	if m["PATH"] != "/bin" || m["HOME"] != "/override" {
		t.Errorf("merged env = %v, want PATH inherited and HOME overridden", m)
	}

	replaced := effectiveEnv(parent, optionBag{hasFull: true, fullEnv: map[string]string{"ONLY": "1"}})
	r := environToMap(replaced)
	if len(r) != 1 || r["ONLY"] != "1" {
		t.Errorf("replaced env = %v, want only ONLY=1", r)
	}
}
