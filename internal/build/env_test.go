package build

import (
	"testing"
)

func TestCargoEnv_SetsTargetDir(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	env := CargoEnv("/tmp/thag_rs_shared_target")

	if !hasEnvKey(env, "CARGO_TARGET_DIR") {
		t.Fatalf("CargoEnv() missing CARGO_TARGET_DIR: %v", env)
	}
	found := false
	for _, e := range env {
		if e == "CARGO_TARGET_DIR=/tmp/thag_rs_shared_target" {
			found = true
		}
	}
	if !found {
		t.Fatalf("CargoEnv() = %v, want CARGO_TARGET_DIR=/tmp/thag_rs_shared_target", env)
	}
}

func TestEnvKeyHelpers(t *testing.T) {
	env := []string{"FOO=1", "BAR=2"}

	if !hasEnvKey(env, "FOO") {
		t.Fatalf("hasEnvKey(env, FOO) = false, want true")
	}
	if hasEnvKey(env, "BA") {
		t.Fatalf("hasEnvKey(env, BA) = true, want false")
	}

	updated := setEnvKey(append([]string{}, env...), "FOO", "3")
	if updated[0] != "FOO=3" {
		t.Fatalf("setEnvKey updated[0] = %q, want %q", updated[0], "FOO=3")
	}

	added := setEnvKey(append([]string{}, env...), "BAZ", "9")
	if !hasEnvKey(added, "BAZ") {
		t.Fatalf("setEnvKey did not add BAZ key")
	}

	merged := MergeEnv(env, "BAR=7", "BAZ=9")
	if !hasEnvKey(merged, "BAR") || !hasEnvKey(merged, "BAZ") {
		t.Fatalf("MergeEnv missing expected keys: %v", merged)
	}
	for _, entry := range merged {
		if entry == "BAR=2" {
			t.Fatalf("MergeEnv did not override BAR: %v", merged)
		}
	}
}
