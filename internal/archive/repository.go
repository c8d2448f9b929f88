package archive

import "context"

// Repository is the capability set the archival core needs from a version
// control repository. internal/git.Repo is the production implementation;
// tests substitute a fake so the core logic runs without a git binary.
type Repository interface {
	// RunCmd runs a git subcommand with optional environment overrides and
	// returns its trimmed output.
	RunCmd(ctx context.Context, env map[string]string, args ...string) (string, error)

	// RevParse resolves a revision to a commit hash, yielding ("", nil) for
	// a revision that does not exist.
	RevParse(ctx context.Context, rev string) (string, error)

	// CurrentBranch returns the checked-out branch name.
	CurrentBranch(ctx context.Context) (string, error)

	// Tags returns all tag names in the repository.
	Tags(ctx context.Context) ([]string, error)

	// GitDir returns the repository metadata directory.
	GitDir() string

	// Bare reports whether the repository has no working tree.
	Bare() bool
}
