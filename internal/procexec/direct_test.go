package procexec

import (
	"context"
	"testing"
)

func TestExecute_CapturesOutput(t *testing.T) {
	e := NewDirectExecutor()
	result, err := e.Execute(context.Background(), Command{
		Binary:    "echo",
		Arguments: []string{"hello"},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.Success || result.ExitCode != 0 {
		t.Fatalf("Execute() result = %+v, want success exit 0", result)
	}
	if result.Stdout == "" {
		t.Fatalf("Execute() captured no stdout")
	}
}

func TestExecute_NonZeroExitIsStillSuccess(t *testing.T) {
	e := NewDirectExecutor()
	result, err := e.Execute(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.Success {
		t.Fatalf("Execute() Success = false, want true (infrastructure worked)")
	}
	if result.ExitCode != 3 {
		t.Fatalf("Execute() ExitCode = %d, want 3", result.ExitCode)
	}
}

func TestExecute_ValidateRejectsEmptyBinary(t *testing.T) {
	e := NewDirectExecutor()
	if err := e.Validate(Command{}); err == nil {
		t.Fatalf("Validate() = nil, want error for empty binary")
	}
}

func TestExecute_ZeroTimeoutNeverKills(t *testing.T) {
	e := NewDirectExecutor()
	result, err := e.Execute(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "sleep 0.2"},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.Killed {
		t.Fatalf("Execute() Killed = true with TimeoutMs unset, want no deadline applied")
	}
}

func TestExecute_ExplicitTimeoutKills(t *testing.T) {
	e := NewDirectExecutor()
	result, err := e.Execute(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "sleep 5"},
		TimeoutMs: 50,
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.Killed {
		t.Fatalf("Execute() Killed = false, want true for a 50ms timeout against a 5s sleep")
	}
}
