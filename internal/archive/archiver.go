package archive

import (
	"context"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/testresultlog/gitarchive/internal/errors"
	"github.com/testresultlog/gitarchive/internal/git"
)

// Config contains everything one archive run needs. All name and message
// fields are patterns; they are expanded against Keywords before the first
// repository mutation so that a template error leaves no trace behind.
type Config struct {
	// DataDir is the directory whose full contents become the commit tree.
	DataDir string

	// GitDir is the path of the archive repository.
	GitDir string

	// NoCreate forbids initializing a new repository at GitDir.
	NoCreate bool

	// Bare selects a bare repository when one is initialized.
	Bare bool

	// Push enables pushing after a successful commit. With an empty
	// PushRemote only tags are pushed, using the repository's default
	// remote configuration; with an explicit remote the branch, the tags
	// and every notes ref used in this run are pushed there.
	Push       bool
	PushRemote string

	// BranchName is the pattern for the branch receiving the commit.
	BranchName string

	// NoTag suppresses tagging even when TagName is set.
	NoTag bool

	// TagName is the pattern for the tag name; it may embed {tag_number}.
	TagName string

	CommitMsgSubject string
	CommitMsgBody    string
	TagMsgSubject    string
	TagMsgBody       string

	// Exclude lists glob patterns unstaged from the commit tree.
	Exclude []string

	// Notes lists (ref pattern, file) pairs attached to the new commit.
	Notes []Note

	// Keywords is the immutable keyword set for all template expansions.
	Keywords Keywords
}

// Validate sanity-checks the config before a run starts.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.NewConfigError("data_dir", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "data directory must not be empty"))
	}
	if c.GitDir == "" {
		return errors.NewConfigError("git-dir", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "repository path must not be empty"))
	}
	if c.BranchName == "" {
		return errors.NewConfigError("branch-name", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "branch name pattern must not be empty"))
	}
	if c.PushRemote != "" && !c.Push {
		return errors.NewConfigError("push", c.PushRemote,
			errors.Wrap(errors.ErrInvalidConfiguration, "push remote given but pushing is disabled"))
	}
	return nil
}

// Archiver runs the archive sequence: validate the data directory, open or
// initialize the repository, expand all templates, commit, tag, push.
type Archiver struct {
	config Config
	logger *zap.Logger
	fs     afero.Fs
	repo   Repository
}

// New creates an Archiver with default dependencies.
func New(config Config, logger *zap.Logger) (*Archiver, error) {
	return NewWithDeps(config, logger, afero.NewOsFs(), nil)
}

// NewWithDeps creates an Archiver with custom dependencies. A nil repo is
// opened (or initialized) from config.GitDir on the first run.
func NewWithDeps(config Config, logger *zap.Logger, fs afero.Fs, repo Repository) (*Archiver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Archiver{
		config: config,
		logger: logger,
		fs:     fs,
		repo:   repo,
	}, nil
}

// Run performs one archive run and returns the hash of the new commit.
func (a *Archiver) Run(ctx context.Context) (string, error) {
	ok, err := afero.DirExists(a.fs, a.config.DataDir)
	if err != nil {
		return "", errors.NewConfigError("data_dir", a.config.DataDir, err)
	}
	if !ok {
		return "", errors.NewConfigError("data_dir", a.config.DataDir,
			errors.Wrap(errors.ErrInvalidConfiguration, "not a directory"))
	}

	if a.repo == nil {
		repo, err := git.InitOrOpen(ctx, a.config.GitDir, a.config.NoCreate, a.config.Bare, a.logger)
		if err != nil {
			return "", err
		}
		a.repo = repo
	}

	// Expand all strings early to avoid getting into an inconsistent state,
	// e.g. an orphan commit with no tag because the tag pattern was broken.
	kw := a.config.Keywords.Clone()

	branch, err := ExpandTemplate(a.config.BranchName, kw)
	if err != nil {
		return "", err
	}
	subject, err := ExpandTemplate(strings.TrimSpace(a.config.CommitMsgSubject), kw)
	if err != nil {
		return "", err
	}
	body, err := ExpandTemplate(a.config.CommitMsgBody, kw)
	if err != nil {
		return "", err
	}
	message := subject + "\n\n" + body

	var tagName, tagMsg string
	if !a.config.NoTag && a.config.TagName != "" {
		tagName, tagMsg, err = ExpandTagStrings(ctx, a.repo,
			a.config.TagName, a.config.TagMsgSubject, a.config.TagMsgBody, kw)
		if err != nil {
			return "", err
		}
	}

	commit, err := CommitDir(ctx, a.repo, a.config.DataDir, branch, message,
		a.config.Exclude, a.config.Notes, a.logger)
	if err != nil {
		return "", err
	}

	if tagName != "" {
		a.logger.Info("creating tag", zap.String("tag", tagName))
		if _, err := a.repo.RunCmd(ctx, nil, "tag", "-a", "-m", tagMsg, tagName, commit); err != nil {
			return "", err
		}
	}

	if a.config.Push {
		a.logger.Info("pushing data to remote", zap.String("remote", a.config.PushRemote))
		args := []string{"push", "--tags"}
		if a.config.PushRemote != "" {
			args = append(args, a.config.PushRemote, branch)
			for _, note := range a.config.Notes {
				ref, err := note.ExpandRef(branch)
				if err != nil {
					return "", err
				}
				args = append(args, FullRef(ref))
			}
		}
		if _, err := a.repo.RunCmd(ctx, nil, args...); err != nil {
			return "", err
		}
	}

	a.logger.Info("archived data", zap.String("commit", commit), zap.String("branch", branch))
	return commit, nil
}
