package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/testresultlog/gitarchive/internal/archive"
	"github.com/testresultlog/gitarchive/internal/config"
	gitarchiveErrors "github.com/testresultlog/gitarchive/internal/errors"
	"github.com/testresultlog/gitarchive/internal/logging"
	"github.com/testresultlog/gitarchive/internal/metadata"
)

// Archiver performs one archive run and returns the new commit hash.
type Archiver interface {
	Run(ctx context.Context) (string, error)
}

// AppOptions contains app configuration and dependencies. Optional fields
// default to their OS-backed implementations, which tests substitute.
type AppOptions struct {
	// Config holds the application settings (required).
	Config *config.Config

	// Stdout and Stderr are the output streams.
	Stdout io.Writer
	Stderr io.Writer

	// ExecLookPath locates executables in PATH.
	ExecLookPath func(file string) (string, error)

	// NewArchiver builds the archiver for a finalized run config.
	NewArchiver func(cfg archive.Config, logger *zap.Logger) (Archiver, error)

	// Fs is the filesystem used for metadata loading.
	Fs afero.Fs
}

// App wires the command line to one archive run.
type App struct {
	Config *config.Config
	Stdout io.Writer
	Stderr io.Writer

	execLookPath func(file string) (string, error)
	newArchiver  func(cfg archive.Config, logger *zap.Logger) (Archiver, error)
	fs           afero.Fs

	// pushSpec carries the raw --push value: empty means no push, "true"
	// means push without an explicit remote, anything else is the remote.
	pushSpec string
}

// NewDefaultApp creates an App with standard dependencies and the
// environment layer already applied.
func NewDefaultApp(versionInfo config.VersionInfo) *App {
	cfg := config.New()
	cfg.VersionInfo = versionInfo
	cfg.LoadFromEnvironment()

	return NewApp(AppOptions{Config: cfg})
}

// NewApp creates an App from opts, filling in OS defaults for every
// dependency left nil. It panics when opts.Config is nil.
func NewApp(opts AppOptions) *App {
	if opts.Config == nil {
		panic("Config is required in AppOptions")
	}

	app := &App{
		Config:       opts.Config,
		Stdout:       opts.Stdout,
		Stderr:       opts.Stderr,
		execLookPath: opts.ExecLookPath,
		newArchiver:  opts.NewArchiver,
		fs:           opts.Fs,
	}

	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.execLookPath == nil {
		app.execLookPath = exec.LookPath
	}
	if app.newArchiver == nil {
		app.newArchiver = func(cfg archive.Config, logger *zap.Logger) (Archiver, error) {
			return archive.New(cfg, logger)
		}
	}
	if app.fs == nil {
		app.fs = afero.NewOsFs()
	}

	return app
}

// RootCommand builds the gitarchive command with all flags bound to the
// app config.
func (a *App) RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitarchive [flags] DATA_DIR",
		Short: "Archive a directory of test results into a Git repository",
		Long: `gitarchive commits the contents of a data directory into a Git
repository as a single atomic commit, without touching the repository's
working tree or index. Branch and tag names are derived from metadata of
the tested revision, and tags carry an auto-incrementing run number so
repeated runs of the same revision never collide.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Config.DataDir = args[0]
			return a.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&a.Config.GitDir, "git-dir", "g", a.Config.GitDir,
		"directory of the archive repository")
	flags.BoolVar(&a.Config.NoCreate, "no-create", a.Config.NoCreate,
		"fail instead of initializing a missing repository")
	flags.BoolVar(&a.Config.Bare, "bare", a.Config.Bare,
		"initialize a bare repository when creating one")
	flags.StringVar(&a.pushSpec, "push", a.pushSpec,
		"push after committing, optionally to the named remote")
	flags.Lookup("push").NoOptDefVal = "true"
	flags.StringVar(&a.Config.BranchName, "branch-name", a.Config.BranchName,
		"pattern for the branch receiving the commit")
	flags.BoolVar(&a.Config.NoTag, "no-tag", a.Config.NoTag,
		"do not tag the new commit")
	flags.StringVar(&a.Config.TagName, "tag-name", a.Config.TagName,
		"pattern for the tag name")
	flags.StringVar(&a.Config.CommitMsgSubject, "commit-msg-subject", a.Config.CommitMsgSubject,
		"pattern for the commit message subject")
	flags.StringVar(&a.Config.CommitMsgBody, "commit-msg-body", a.Config.CommitMsgBody,
		"pattern for the commit message body")
	flags.StringVar(&a.Config.TagMsgSubject, "tag-msg-subject", a.Config.TagMsgSubject,
		"pattern for the tag message subject")
	flags.StringVar(&a.Config.TagMsgBody, "tag-msg-body", a.Config.TagMsgBody,
		"pattern for the tag message body")
	flags.StringArrayVar(&a.Config.Exclude, "exclude", a.Config.Exclude,
		"pathspec to leave out of the commit (repeatable)")
	flags.StringArrayVar(&a.Config.Notes, "notes", a.Config.Notes,
		"attach the FILE as a Git note under REF, given as REF:FILE (repeatable)")
	flags.StringVarP(&a.Config.MetadataFile, "metadata", "m", a.Config.MetadataFile,
		"metadata file describing the tested revision")
	flags.StringVar(&a.Config.LogLevel, "log-level", a.Config.LogLevel,
		"log verbosity: none, info or debug")

	cmd.AddCommand(a.versionCommand())

	return cmd
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.Stdout, "gitarchive %s (%s) built on %s\n",
				a.Config.VersionInfo.Version,
				a.Config.VersionInfo.Commit,
				a.Config.VersionInfo.Date)
		},
	}
}

// Run finalizes the configuration and performs one archive run.
func (a *App) Run(ctx context.Context) error {
	a.applyPushSpec()

	if err := a.Config.Finalize(); err != nil {
		return err
	}

	logger, err := logging.GetLogger(a.Config.LogLevel)
	if err != nil {
		return gitarchiveErrors.Wrap(err, "failed to set up logging")
	}
	defer func() { _ = logger.Sync() }()

	if _, err := a.execLookPath("git"); err != nil {
		return gitarchiveErrors.Wrap(err, "git is required but was not found in PATH")
	}

	meta, err := metadata.Load(a.fs, a.Config.MetadataFile)
	if err != nil {
		return err
	}

	archiver, err := a.newArchiver(a.Config.ToArchiveConfig(meta.Keywords()), logger)
	if err != nil {
		return err
	}

	commit, err := archiver.Run(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(a.Stdout, commit)
	return nil
}

// applyPushSpec maps the raw --push value onto the config. The flag takes
// an optional remote, so "true" is the bare form and anything else names
// the remote.
func (a *App) applyPushSpec() {
	switch a.pushSpec {
	case "":
	case "true":
		a.Config.Push = true
	default:
		a.Config.Push = true
		a.Config.PushRemote = a.pushSpec
	}
}
