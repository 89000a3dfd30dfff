package extract

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs commands on the host and logs each invocation.
type execRunner struct {
	logger *slog.Logger
}

func newExecRunner(logger *slog.Logger) execRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return execRunner{logger: logger}
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	cmdLine := strings.Join(append([]string{name}, args...), " ")
	r.logger.Debug("extract.exec.started", "cmd_line", cmdLine)

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()

	attrs := []any{"cmd", name, "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		r.logger.Error("extract.exec.failed", append(attrs,
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)...)
		return out.Bytes(), errb.Bytes(), err
	}
	r.logger.Debug("extract.exec.done", append(attrs,
		"stdout_bytes", out.Len(),
		"stderr_bytes", errb.Len(),
	)...)
	return out.Bytes(), errb.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
