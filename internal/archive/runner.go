package archive

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds one external tool invocation.
const DefaultTimeout = 2 * time.Minute

// Runner invokes an external archive tool inside a working directory. The
// bridge is written against this so it can be tested without real
// binaries.
type Runner interface {
	Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs real processes, folding stderr into the returned error.
type ExecRunner struct {
	Timeout time.Duration // zero means DefaultTimeout
}

func (r ExecRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("archive: %s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("archive: %s: %w", name, err)
	}
	return stdout.Bytes(), nil
}
