// Package config assembles gitarchive settings from defaults, environment
// variables and command-line flags, in that order of precedence.
package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/testresultlog/gitarchive/internal/archive"
	"github.com/testresultlog/gitarchive/internal/errors"
	"github.com/testresultlog/gitarchive/internal/logging"
)

// envPrefix namespaces all environment overrides, e.g. GITARCHIVE_GIT_DIR.
const envPrefix = "GITARCHIVE"

// Default name and message patterns. Placeholders in curly braces are
// expanded against the run metadata; see archive.Keywords.
const (
	DefaultBranchName = "{hostname}/{branch}/{machine}"

	DefaultTagName = "{hostname}/{branch}/{machine}/{commit_count}-g{commit}/{tag_number}"

	DefaultCommitMsgSubject = "Results of {branch}:{commit} on {hostname}"

	DefaultCommitMsgBody = "branch: {branch}\ncommit: {commit}\nhostname: {hostname}\n"

	DefaultTagMsgSubject = "Test run #{tag_number} of {branch}:{commit} on {hostname}"

	DefaultTagMsgBody = ""
)

// Config holds all gitarchive settings. Field values arrive from three
// layers applied in order: New (defaults), LoadFromEnvironment, and the
// command-line flags bound by the cmd package. Finalize validates the
// result and derives the parsed forms.
type Config struct {
	// DataDir is the directory to archive. Set from the positional
	// argument, never from the environment.
	DataDir string

	// GitDir is the path of the archive repository.
	GitDir string

	// NoCreate refuses to initialize a repository when GitDir does not
	// contain one.
	NoCreate bool

	// Bare initializes a bare repository when one is created.
	Bare bool

	// Push enables pushing after a successful run. PushRemote optionally
	// names the remote; a non-empty remote implies Push.
	Push       bool
	PushRemote string

	// BranchName is the branch name pattern.
	BranchName string

	// NoTag disables tagging entirely.
	NoTag bool

	// TagName is the tag name pattern.
	TagName string

	// Commit and tag message patterns.
	CommitMsgSubject string
	CommitMsgBody    string
	TagMsgSubject    string
	TagMsgBody       string

	// Exclude lists pathspecs removed from the commit tree.
	Exclude []string

	// Notes lists raw REF:FILE specs as given on the command line.
	// Finalize parses them into NoteSpecs.
	Notes []string

	// NoteSpecs is the parsed form of Notes.
	NoteSpecs []archive.Note

	// MetadataFile is an optional metadata document describing the
	// tested revision.
	MetadataFile string

	// LogLevel selects the logging verbosity: none, info or debug.
	LogLevel string

	// VersionInfo carries build-time version metadata.
	VersionInfo VersionInfo

	// Fs is the filesystem used for validation. Tests substitute a
	// memory-backed one.
	Fs afero.Fs
}

// VersionInfo contains build-time version metadata, injected via ldflags.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		BranchName:       DefaultBranchName,
		TagName:          DefaultTagName,
		CommitMsgSubject: DefaultCommitMsgSubject,
		CommitMsgBody:    DefaultCommitMsgBody,
		TagMsgSubject:    DefaultTagMsgSubject,
		TagMsgBody:       DefaultTagMsgBody,
		LogLevel:         logging.LevelInfo,
		VersionInfo: VersionInfo{
			Version: "dev",
			Commit:  "unknown",
			Date:    "unknown",
		},
		Fs: afero.NewOsFs(),
	}
}

// LoadFromEnvironment overlays GITARCHIVE_* environment variables onto the
// config. Only variables that are actually set take effect, so flag and
// default values survive an empty environment.
func (c *Config) LoadFromEnvironment() {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	setString := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	setBool := func(key string, dst *bool) {
		if v.GetString(key) != "" {
			*dst = v.GetBool(key)
		}
	}

	setString("git_dir", &c.GitDir)
	setBool("no_create", &c.NoCreate)
	setBool("bare", &c.Bare)
	setBool("push", &c.Push)
	setString("push_remote", &c.PushRemote)
	setString("branch_name", &c.BranchName)
	setBool("no_tag", &c.NoTag)
	setString("tag_name", &c.TagName)
	setString("commit_msg_subject", &c.CommitMsgSubject)
	setString("commit_msg_body", &c.CommitMsgBody)
	setString("tag_msg_subject", &c.TagMsgSubject)
	setString("tag_msg_body", &c.TagMsgBody)
	setString("metadata_file", &c.MetadataFile)
	setString("log_level", &c.LogLevel)
}

// Finalize validates the assembled configuration and derives the parsed
// fields. It must run after all layers have been applied and before the
// config is handed to the archiver.
func (c *Config) Finalize() error {
	if c.DataDir == "" {
		return errors.NewConfigError("data_dir", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "a data directory argument is required"))
	}
	absDataDir, err := filepath.Abs(c.DataDir)
	if err != nil {
		return errors.NewConfigError("data_dir", c.DataDir,
			errors.Wrap(err, "failed to resolve absolute path"))
	}
	c.DataDir = absDataDir

	if c.GitDir == "" {
		return errors.NewConfigError("git-dir", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "a repository path is required"))
	}
	absGitDir, err := filepath.Abs(c.GitDir)
	if err != nil {
		return errors.NewConfigError("git-dir", c.GitDir,
			errors.Wrap(err, "failed to resolve absolute path"))
	}
	c.GitDir = absGitDir

	if c.PushRemote != "" {
		c.Push = true
	}

	c.NoteSpecs = c.NoteSpecs[:0]
	for _, spec := range c.Notes {
		note, err := parseNoteSpec(spec)
		if err != nil {
			return err
		}
		ok, err := afero.Exists(c.Fs, note.File)
		if err != nil {
			return errors.NewConfigError("notes", spec, err)
		}
		if !ok {
			return errors.NewConfigError("notes", spec,
				errors.Wrap(errors.ErrInvalidConfiguration, "note file not found"))
		}
		c.NoteSpecs = append(c.NoteSpecs, note)
	}

	switch c.LogLevel {
	case logging.LevelNone, logging.LevelInfo, logging.LevelDebug:
	default:
		return errors.NewConfigError("log-level", c.LogLevel,
			errors.Wrap(errors.ErrInvalidConfiguration, "must be one of none, info, debug"))
	}

	return nil
}

// parseNoteSpec splits a REF:FILE pair. The split happens at the first
// colon so that the file part may contain further colons; the ref part
// cannot, which matches git's own ref syntax.
func parseNoteSpec(spec string) (archive.Note, error) {
	ref, file, found := strings.Cut(spec, ":")
	if !found || ref == "" || file == "" {
		return archive.Note{}, errors.NewConfigError("notes", spec,
			errors.Wrap(errors.ErrInvalidConfiguration, "expected REF:FILE"))
	}
	return archive.Note{Ref: ref, File: file}, nil
}

// ToArchiveConfig maps the finalized settings onto an archive run config.
func (c *Config) ToArchiveConfig(keywords archive.Keywords) archive.Config {
	return archive.Config{
		DataDir:          c.DataDir,
		GitDir:           c.GitDir,
		NoCreate:         c.NoCreate,
		Bare:             c.Bare,
		Push:             c.Push,
		PushRemote:       c.PushRemote,
		BranchName:       c.BranchName,
		NoTag:            c.NoTag,
		TagName:          c.TagName,
		CommitMsgSubject: c.CommitMsgSubject,
		CommitMsgBody:    c.CommitMsgBody,
		TagMsgSubject:    c.TagMsgSubject,
		TagMsgBody:       c.TagMsgBody,
		Exclude:          c.Exclude,
		Notes:            c.NoteSpecs,
		Keywords:         keywords,
	}
}
