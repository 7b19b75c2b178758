package pdf

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/feichai0017/docfiler/pkg/logger"
)

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct {
	Logger logger.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if r.Logger != nil {
		if err != nil {
			r.Logger.Error("Exec failed",
				logger.String("cmd", name),
				logger.Int64("durationMs", dur.Milliseconds()),
				logger.Error(err),
				logger.String("stderr", truncate(errb.String(), 8<<10)),
			)
		} else {
			r.Logger.Debug("Exec ok",
				logger.String("cmd", name),
				logger.String("args", strings.Join(args, " ")),
				logger.Int64("durationMs", dur.Milliseconds()),
			)
		}
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
