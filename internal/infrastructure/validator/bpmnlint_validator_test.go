//go:build unix

package validator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bpmnvalidator/internal/domain/entity"
	"bpmnvalidator/internal/infrastructure/store/filesystem"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// shellLinter runs script with the document path as $0.
func shellLinter(t *testing.T, script string) *BpmnLinter {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return NewBpmnLinter("sh", []string{"-c", script}, "", discardLogger())
}

func TestLintExitCodes(t *testing.T) {
	testCases := []struct {
		name     string
		script   string
		exitCode int
		stdout   string
		stderr   string
	}{
		{"clean", "exit 0", 0, "", ""},
		{"findings on stdout", "echo 'label-required: element is missing label'; exit 1", 1, "label-required: element is missing label\n", ""},
		{"findings on stderr", "echo 'cannot parse' >&2; exit 2", 2, "", "cannot parse\n"},
		{"both streams", "echo out; echo err >&2; exit 7", 7, "out\n", "err\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run, err := shellLinter(t, tc.script).Lint(context.Background(), "/nonexistent/doc.bpmn")
			if err != nil {
				t.Fatalf("Lint: %v", err)
			}
			if run.ExitCode != tc.exitCode {
				t.Errorf("exit code = %d, want %d", run.ExitCode, tc.exitCode)
			}
			if run.Stdout != tc.stdout {
				t.Errorf("stdout = %q, want %q", run.Stdout, tc.stdout)
			}
			if run.Stderr != tc.stderr {
				t.Errorf("stderr = %q, want %q", run.Stderr, tc.stderr)
			}
		})
	}
}

func TestLintPassesPathAsLastArgument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.bpmn")
	run, err := shellLinter(t, `printf %s "$0"`).Lint(context.Background(), path)
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	if run.Stdout != path {
		t.Fatalf("linter saw %q, want %q", run.Stdout, path)
	}
}

func TestLintRunsInWorkDir(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	l := NewBpmnLinter("sh", []string{"-c", "pwd"}, dir, discardLogger())

	run, err := l.Lint(context.Background(), "doc.bpmn")
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(run.Stdout))
	if got != want {
		t.Fatalf("work dir = %q, want %q", got, want)
	}
}

func TestLintTimeoutKillsProcessGroup(t *testing.T) {
	// The background sleep holds stdout open; only a group kill lets Wait
	// return before WaitDelay.
	l := shellLinter(t, "sleep 30 & sleep 30; echo done")

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	run, err := l.Lint(ctx, "doc.bpmn")
	elapsed := time.Since(start)

	if !errors.Is(err, entity.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if run.Stdout != "" || run.Stderr != "" || run.ExitCode != 0 {
		t.Fatalf("partial output leaked: %+v", run)
	}
	if elapsed >= DefaultWaitDelay {
		t.Fatalf("Lint returned after %s, process group was not killed", elapsed)
	}
}

func TestLintCanceledContext(t *testing.T) {
	l := shellLinter(t, "exit 0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Lint(ctx, "doc.bpmn")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if errors.Is(err, entity.ErrTimeout) {
		t.Fatalf("cancellation reported as timeout: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLintMissingTool(t *testing.T) {
	l := NewBpmnLinter("bpmnlint-definitely-not-installed", nil, "", discardLogger())

	if l.Available() {
		t.Fatal("Available() = true for a missing command")
	}
	_, err := l.Lint(context.Background(), "doc.bpmn")
	if !errors.Is(err, entity.ErrToolUnavailable) {
		t.Fatalf("err = %v, want ErrToolUnavailable", err)
	}
}

func TestAvailable(t *testing.T) {
	if !shellLinter(t, "exit 0").Available() {
		t.Fatal("Available() = false for sh")
	}
}

func TestProbe(t *testing.T) {
	testCases := []struct {
		name    string
		script  string
		wantErr bool
	}{
		{"version printed", `test "$0" = --version && echo 8.0.0`, false},
		{"tool missing behind launcher", "echo 'command not found: bpmnlint' >&2; exit 127", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := shellLinter(t, tc.script).Probe(context.Background())
			if tc.wantErr {
				if !errors.Is(err, entity.ErrToolUnavailable) {
					t.Fatalf("err = %v, want ErrToolUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
		})
	}
}

func TestProbeCustomArgs(t *testing.T) {
	l := shellLinter(t, `test "$0" = --help`).WithProbeArgs([]string{"--help"})
	if err := l.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
}

func TestProbeMissingTool(t *testing.T) {
	l := NewBpmnLinter("bpmnlint-definitely-not-installed", nil, "", discardLogger())
	if err := l.Probe(context.Background()); !errors.Is(err, entity.ErrToolUnavailable) {
		t.Fatalf("err = %v, want ErrToolUnavailable", err)
	}
}

func TestProbeTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := shellLinter(t, "sleep 30").Probe(ctx)
	if !errors.Is(err, entity.ErrToolUnavailable) {
		t.Fatalf("err = %v, want ErrToolUnavailable", err)
	}
}

// The linter runs in the ruleset directory, so scratch paths must not depend
// on the service's working directory.
func TestLintFindsScratchFromRelativeDir(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	root := t.TempDir()
	chdir(t, root)

	scratch, err := filesystem.NewScratchRepository("scratch")
	if err != nil {
		t.Fatalf("NewScratchRepository: %v", err)
	}
	workDir := filepath.Join(root, "etc")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}

	const doc = "<definitions/>"
	path, err := scratch.Create(context.Background(), ".bpmn", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer scratch.Remove(path)

	l := NewBpmnLinter("sh", []string{"-c", `cat "$0"`}, workDir, discardLogger())
	run, err := l.Lint(context.Background(), path)
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	if run.ExitCode != 0 || run.Stdout != doc {
		t.Fatalf("linter could not read the scratch file: %+v", run)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
