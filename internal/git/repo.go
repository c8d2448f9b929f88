package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/testresultlog/gitarchive/internal/errors"
)

// Repo wraps an on-disk git repository, bare or not, and exposes the narrow
// command-execution and query surface the archival core needs. All repository
// mutations go through git subprocesses; Repo itself holds no mutable state
// beyond the resolved paths.
type Repo struct {
	path     string
	gitDir   string
	topDir   string
	bare     bool
	executor CommandExecutor
	logger   *zap.Logger
}

// Open opens an existing repository at path.
//
// The path must be the repository itself: a work-tree top directory for a
// normal repository, or the git directory for a bare one. A path that merely
// sits inside some enclosing repository is rejected with ErrNotGitRepository
// so that archive runs never silently adopt an unrelated checkout.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Repo, error) {
	return OpenWithExecutor(ctx, path, NewExecExecutor(), logger)
}

// OpenWithExecutor is Open with a custom command executor, for testing.
func OpenWithExecutor(ctx context.Context, path string, executor CommandExecutor, logger *zap.Logger) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNotGitRepository, "resolving %s", path)
	}

	r := &Repo{path: abs, executor: executor, logger: logger}

	out, err := r.runIn(ctx, abs, nil, "rev-parse", "--is-bare-repository", "--absolute-git-dir")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNotGitRepository, "%s", abs)
	}
	lines := strings.SplitN(out, "\n", 2)
	if len(lines) < 2 {
		return nil, errors.Wrapf(errors.ErrNotGitRepository, "unexpected rev-parse output for %s", abs)
	}
	r.bare = strings.TrimSpace(lines[0]) == "true"
	r.gitDir = strings.TrimSpace(lines[1])

	if r.bare {
		r.topDir = r.gitDir
		if !samePath(r.gitDir, abs) {
			return nil, errors.Wrapf(errors.ErrNotGitRepository, "%s is inside a repository but is not one itself", abs)
		}
		return r, nil
	}

	top, err := r.runIn(ctx, abs, nil, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNotGitRepository, "%s", abs)
	}
	r.topDir = top
	if !samePath(top, abs) {
		return nil, errors.Wrapf(errors.ErrNotGitRepository, "%s is inside a repository but is not one itself", abs)
	}
	return r, nil
}

// Init creates a new repository at path, creating the directory if needed.
func Init(ctx context.Context, path string, bare bool, logger *zap.Logger) (*Repo, error) {
	return InitWithExecutor(ctx, path, bare, NewExecExecutor(), logger)
}

// InitWithExecutor is Init with a custom command executor, for testing.
func InitWithExecutor(ctx context.Context, path string, bare bool, executor CommandExecutor, logger *zap.Logger) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewConfigError("git-dir", path, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.NewConfigError("git-dir", path,
			errors.Wrap(err, "failed to create repository directory"))
	}

	args := []string{"init"}
	if bare {
		args = append(args, "--bare")
	}
	args = append(args, abs)
	cmd := exec.CommandContext(ctx, "git", args...)
	if _, err := executor.ExecuteWithOutput(ctx, cmd); err != nil {
		return nil, err
	}
	logger.Info("initialized empty repository", zap.String("path", abs), zap.Bool("bare", bare))

	return OpenWithExecutor(ctx, abs, executor, logger)
}

// InitOrOpen opens the repository at path, initializing a new one when the
// path is absent or an empty directory. A non-directory path, a non-empty
// directory that is not a repository, and a missing repository under the
// no-create policy are all configuration errors, never silently adopted.
func InitOrOpen(ctx context.Context, path string, noCreate, bare bool, logger *zap.Logger) (*Repo, error) {
	return InitOrOpenWithExecutor(ctx, path, noCreate, bare, NewExecExecutor(), logger)
}

// InitOrOpenWithExecutor is InitOrOpen with a custom command executor, for testing.
func InitOrOpenWithExecutor(ctx context.Context, path string, noCreate, bare bool, executor CommandExecutor, logger *zap.Logger) (*Repo, error) {
	fi, err := os.Stat(path)
	switch {
	case err == nil && !fi.IsDir():
		return nil, errors.NewConfigError("git-dir", path,
			errors.Wrap(errors.ErrInvalidConfiguration, "path exists but is not a directory"))
	case os.IsNotExist(err), err == nil && isEmptyDir(path):
		if noCreate {
			return nil, errors.NewConfigError("git-dir", path,
				errors.Wrap(errors.ErrInvalidConfiguration, "repository does not exist and creation is disabled"))
		}
		return InitWithExecutor(ctx, path, bare, executor, logger)
	case err != nil:
		return nil, errors.NewConfigError("git-dir", path, err)
	}

	repo, err := OpenWithExecutor(ctx, path, executor, logger)
	if err != nil {
		if errors.Is(err, errors.ErrNotGitRepository) {
			return nil, errors.NewConfigError("git-dir", path,
				errors.Wrap(errors.ErrInvalidConfiguration, "directory is not empty and is not a git repository"))
		}
		return nil, err
	}
	return repo, nil
}

// Path returns the path the repository was opened from.
func (r *Repo) Path() string {
	return r.path
}

// GitDir returns the repository metadata directory.
func (r *Repo) GitDir() string {
	return r.gitDir
}

// TopDir returns the work-tree top directory, or the git directory for a
// bare repository.
func (r *Repo) TopDir() string {
	return r.topDir
}

// Bare reports whether the repository has no working tree.
func (r *Repo) Bare() bool {
	return r.bare
}

// RunCmd executes a git subcommand in the repository with optional
// environment overrides and returns its trimmed output.
func (r *Repo) RunCmd(ctx context.Context, env map[string]string, args ...string) (string, error) {
	return r.runIn(ctx, r.topDir, env, args...)
}

// RevParse resolves a revision to a commit hash. A revision that does not
// exist yields ("", nil); only genuine command failures return an error.
func (r *Repo) RevParse(ctx context.Context, rev string) (string, error) {
	out, err := r.RunCmd(ctx, nil, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		// Exit code 1 is rev-parse's answer for an unknown revision, which
		// is an expected state for the first commit on a fresh branch.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// CurrentBranch returns the name of the checked-out branch, or an empty
// string on a detached or unborn HEAD.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	return r.RunCmd(ctx, nil, "branch", "--show-current")
}

// Tags returns the names of all tags in the repository.
func (r *Repo) Tags(ctx context.Context) ([]string, error) {
	out, err := r.RunCmd(ctx, nil, "tag")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

func (r *Repo) runIn(ctx context.Context, dir string, env map[string]string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	if r.logger != nil {
		r.logger.Debug("running git", zap.Strings("args", args))
	}
	out, err := r.executor.ExecuteWithOutput(ctx, cmd)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// samePath compares two paths after resolving symlinks.
func samePath(a, b string) bool {
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		ra = filepath.Clean(a)
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		rb = filepath.Clean(b)
	}
	return ra == rb
}

func isEmptyDir(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) == 0
}
