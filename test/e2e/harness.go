// Package e2e provides a Go test harness for end-to-end CLI testing.
// It builds the real moneyai binary once per harness and drives it through
// subcommands against an isolated MONEYAI_HOME, asserting on combined output
// the way a user would read it.
package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Harness manages a built moneyai binary and an isolated home directory.
type Harness struct {
	WorkDir string
	Bin     string
	Home    string

	t *testing.T
}

// Setup builds the moneyai binary into a temp dir, runs init against a fresh
// home, and returns a ready harness. Teardown happens via t.Cleanup.
func Setup(t *testing.T) *Harness {
	t.Helper()

	workDir, err := os.MkdirTemp("", "moneyai-e2e-")
	if err != nil {
		t.Fatalf("mktemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(workDir) })

	h := &Harness{
		WorkDir: workDir,
		Bin:     filepath.Join(workDir, "moneyai"),
		Home:    filepath.Join(workDir, "home"),
		t:       t,
	}
	if err := os.MkdirAll(h.Home, 0755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}

	repoDir := findRepoRoot()
	t.Log("building moneyai binary")
	if out, err := runCmd(repoDir, "go", "build", "-o", h.Bin, "."); err != nil {
		t.Fatalf("build moneyai: %v\n%s", err, out)
	}

	out, err := h.Money("init")
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "INITIALIZED") {
		t.Fatalf("init output missing INITIALIZED: %s", out)
	}
	return h
}

// Money runs the moneyai binary against the harness home and returns
// combined output.
func (h *Harness) Money(args ...string) (string, error) {
	cmd := exec.Command(h.Bin, args...)
	cmd.Dir = h.WorkDir
	cmd.Env = append(os.Environ(),
		"MONEYAI_HOME="+h.Home,
		"HOME="+h.Home,
		"NO_COLOR=1",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// MustMoney runs a command and fails the test on a non-zero exit.
func (h *Harness) MustMoney(args ...string) string {
	h.t.Helper()
	out, err := h.Money(args...)
	if err != nil {
		h.t.Fatalf("moneyai %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// ExtractID pulls the first token with the given prefix out of command
// output, e.g. ExtractID(out, "tx-") after a tx add.
func ExtractID(out, prefix string) string {
	for _, f := range strings.Fields(out) {
		if strings.HasPrefix(f, prefix) {
			return strings.TrimRight(f, ".,:()")
		}
	}
	return ""
}

// findRepoRoot walks up from the working directory to the go.mod root.
func findRepoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}

func runCmd(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}
