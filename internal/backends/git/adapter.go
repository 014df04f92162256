// Package git reads line authorship from git so TODO ages can be measured.
package git

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"donecheck/internal/config"
	"donecheck/internal/errors"
)

const (
	// BackendID is the unique identifier for the Git backend
	BackendID = "git-blame"

	// DefaultQueryTimeout is the default timeout for git operations (5000ms)
	DefaultQueryTimeout = 5000 * time.Millisecond
)

// Adapter answers line-age queries with git blame, falling back to the
// file's last commit. It is safe for concurrent use; each file is blamed once.
type Adapter struct {
	repoRoot     string
	queryTimeout time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	blames map[string]blameResult
	group  singleflight.Group
}

type blameResult struct {
	lines map[int]time.Time
	err   error
}

// NewAdapter creates a git adapter for repoRoot.
// It fails with BACKEND_UNAVAILABLE when git is missing or repoRoot is not a work tree.
func NewAdapter(repoRoot string, cfg config.GitConfig, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := DefaultQueryTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	adapter := &Adapter{
		repoRoot:     repoRoot,
		queryTimeout: timeout,
		logger:       logger,
		blames:       make(map[string]blameResult),
	}

	if !adapter.IsAvailable(context.Background()) {
		return nil, errors.NewCheckError(
			errors.BackendUnavailable,
			"Git is not available in this repository",
			nil,
			[]errors.FixAction{
				{
					Type:        errors.RunCommand,
					Command:     "git status",
					Safe:        true,
					Description: "Verify you're in a git repository",
				},
				{
					Type:        errors.EditConfig,
					Field:       "collectors.git.enabled",
					Description: "Disable git-based TODO ages",
				},
			},
		)
	}

	logger.Debug("Git adapter initialized",
		"backend", BackendID,
		"repoRoot", repoRoot,
		"timeout", timeout.String(),
	)
	return adapter, nil
}

// Name identifies the age source in evidence reasons.
func (g *Adapter) Name() string {
	return BackendID
}

// IsAvailable checks if git is installed and repoRoot is inside a work tree.
func (g *Adapter) IsAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("git"); err != nil {
		return false
	}
	out, err := g.executeGitCommand(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// executeGitCommand runs a git command with timeout and returns the trimmed output.
func (g *Adapter) executeGitCommand(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoRoot

	g.logger.Debug("Executing git command",
		"args", args,
		"timeout", g.queryTimeout.String(),
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.NewCheckError(
				errors.BackendUnavailable,
				"Git command timed out",
				err,
				nil,
			).WithDetails(map[string]interface{}{"args": args})
		}

		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errors.NewCheckError(
				errors.BackendUnavailable,
				"Git command failed",
				err,
				nil,
			).WithDetails(map[string]interface{}{
				"args":   args,
				"stderr": strings.TrimSpace(string(exitErr.Stderr)),
			})
		}

		return "", errors.NewCheckError(
			errors.InternalError,
			"Failed to execute git command",
			err,
			nil,
		)
	}

	return strings.TrimSpace(string(output)), nil
}

// HeadCommit returns the full hash of HEAD.
func (g *Adapter) HeadCommit(ctx context.Context) (string, error) {
	return g.executeGitCommand(ctx, "rev-parse", "HEAD")
}
