package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunWritesProfileOnFailure(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("PROFILE", "1")

	if code := run([]string{filepath.Join(dir, "missing.yaml")}); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	fi, err := os.Stat(filepath.Join(dir, "cpu.out"))
	if err != nil {
		t.Fatalf("cpu.out: %v", err)
	}
	if fi.Size() == 0 {
		t.Fatalf("cpu.out is empty, profile was not stopped")
	}
}
