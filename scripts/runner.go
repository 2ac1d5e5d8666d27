package scripts

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the configuration for the Runner
type Config struct {
	Timeout     time.Duration // Per-command execution timeout
	Environment []string      // Additional environment variables
}

// Runner executes the external tools the transcript service depends on
// (yt-dlp, pdftotext).
type Runner struct {
	config Config
	logger *logrus.Logger
}

func NewRunner(cfg Config, logger *logrus.Logger) *Runner {
	return &Runner{config: cfg, logger: logger}
}

// Available reports whether the named binary can be found.
func (r *Runner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Run executes name with args in dir and returns stdout. A non-zero exit
// becomes a ScriptError carrying stderr.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	const op = "Runner.Run"

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	logger := r.logger.WithFields(logrus.Fields{
		"command": name,
		"args":    strings.Join(args, " "),
	})
	logger.Debug("Executing command")

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = buildEnvironment(r.config.Environment)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		stderrOutput := strings.TrimSpace(stderr.String())
		logger.WithError(err).
			WithField("stderr", stderrOutput).
			Error("Command execution failed")

		scriptErr := newScriptError(op, name, err, "command execution failed")
		scriptErr.Stderr = stderrOutput
		if ctx.Err() != nil {
			scriptErr.Err = ctx.Err()
			scriptErr.Message = "command timed out"
		}
		return nil, scriptErr
	}

	logger.WithField("duration", time.Since(start)).Debug("Command finished")
	return stdout.Bytes(), nil
}

func buildEnvironment(additionalEnv []string) []string {
	env := os.Environ()
	if len(additionalEnv) > 0 {
		env = append(env, additionalEnv...)
	}
	return env
}
