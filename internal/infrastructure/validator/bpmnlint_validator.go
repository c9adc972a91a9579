package validator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"bpmnvalidator/internal/domain/entity"
	"bpmnvalidator/internal/domain/repository"
)

const DefaultWaitDelay = 2 * time.Second

var DefaultProbeArgs = []string{"--version"}

var _ repository.Linter = (*BpmnLinter)(nil)

// BpmnLinter runs bpmnlint (or any command with the same contract) as a
// child process: the document path is the last argument, the verdict is the
// exit code, diagnostics come on stdout or stderr.
type BpmnLinter struct {
	command string
	args    []string
	workDir string
	logger  *slog.Logger

	probeArgs []string
	waitDelay time.Duration
}

func NewBpmnLinter(command string, args []string, workDir string, logger *slog.Logger) *BpmnLinter {
	return &BpmnLinter{
		command:   command,
		args:      append([]string(nil), args...),
		workDir:   workDir,
		logger:    logger,
		probeArgs: DefaultProbeArgs,
		waitDelay: DefaultWaitDelay,
	}
}

// WithProbeArgs replaces the arguments Probe appends after the base args.
func (l *BpmnLinter) WithProbeArgs(args []string) *BpmnLinter {
	if len(args) > 0 {
		l.probeArgs = append([]string(nil), args...)
	}
	return l
}

func (l *BpmnLinter) Name() string {
	return "bpmnlint"
}

// Available looks the command up on PATH. It does not run anything.
func (l *BpmnLinter) Available() bool {
	_, err := exec.LookPath(l.command)
	return err == nil
}

func (l *BpmnLinter) Lint(ctx context.Context, path string) (repository.LintRun, error) {
	args := make([]string, 0, len(l.args)+1)
	args = append(args, l.args...)
	args = append(args, path)
	return l.run(ctx, args)
}

// Probe runs the linter with the probe arguments (--version by default) and
// requires a zero exit. Unlike Available it proves that the wrapped tool is
// installed, not just the launcher (npx).
func (l *BpmnLinter) Probe(ctx context.Context) error {
	args := make([]string, 0, len(l.args)+len(l.probeArgs))
	args = append(args, l.args...)
	args = append(args, l.probeArgs...)

	run, err := l.run(ctx, args)
	if err != nil {
		if errors.Is(err, entity.ErrToolUnavailable) {
			return err
		}
		return fmt.Errorf("%w: probe %s: %v", entity.ErrToolUnavailable, l.command, err)
	}
	if run.ExitCode != 0 {
		return fmt.Errorf("%w: probe %s exited with %d: %s",
			entity.ErrToolUnavailable, l.command, run.ExitCode, strings.TrimSpace(run.Stderr+run.Stdout))
	}
	return nil
}

func (l *BpmnLinter) run(ctx context.Context, args []string) (repository.LintRun, error) {
	if err := ctx.Err(); err != nil {
		return repository.LintRun{}, contextError(err)
	}

	cmd := exec.Command(l.command, args...)
	cmd.Dir = l.workDir
	cmd.WaitDelay = l.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return repository.LintRun{}, fmt.Errorf("start %s: %w: %v", l.command, entity.ErrToolUnavailable, err)
		}
		return repository.LintRun{}, fmt.Errorf("start %s: %w", l.command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		if err := killProcessGroup(cmd); err != nil {
			l.logger.Warn("kill linter process failed", "pid", cmd.Process.Pid, "err", err)
		}
		<-done
		return repository.LintRun{}, contextError(ctx.Err())
	case err := <-done:
		run := repository.LintRun{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
		l.logger.Debug("linter finished",
			"args", args,
			"stdout", run.Stdout,
			"stderr", run.Stderr,
			"duration", time.Since(start),
		)
		if err == nil {
			return run, nil
		}

		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return repository.LintRun{}, fmt.Errorf("wait %s: %w", l.command, err)
		}
		if exitErr.ExitCode() < 0 {
			return repository.LintRun{}, fmt.Errorf("%s terminated abnormally: %w", l.command, err)
		}
		run.ExitCode = exitErr.ExitCode()
		return run, nil
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", entity.ErrTimeout, err)
	}
	return fmt.Errorf("lint canceled: %w", err)
}
