// Package gitarchive archives test result directories into a Git repository.
//
// gitarchive takes a directory of build or test artifacts and commits its
// full contents into a Git repository as one atomic commit. The commit is
// constructed with plumbing commands against a private index, so the
// archive repository's own index and working tree are never touched, and
// files already present in the repository never leak into the new tree.
// Branch and tag names are derived from metadata of the tested revision,
// and tags carry an auto-incrementing run number so repeated runs of the
// same revision archive cleanly side by side.
//
// # Quick Start
//
//	# Archive a results directory into a (possibly new) repository
//	gitarchive --git-dir /srv/results.git --metadata results/metadata.yml results/
//
//	# Same, but push tags afterwards
//	gitarchive --git-dir /srv/results.git --push results/
//
// # Key Features
//
//   - Atomic Commits: One commit per run, via a private index
//   - Metadata-Driven Naming: Branch and tag patterns with {keyword} placeholders
//   - Run Numbering: {tag_number} auto-increments by scanning existing tags
//   - Notes and Exclusions: Attach Git notes and exclude pathspecs per run
//   - Optional Push: Tags by default, branch and note refs with an explicit remote
//
// # Module Structure
//
// The module is organized into these packages:
//
//   - cmd/gitarchive: Command-line interface
//   - internal/archive: Commit construction, tag numbering, template expansion
//   - internal/git: Repository discovery and command execution
//   - internal/metadata: Build metadata loading
//   - internal/config: Configuration from defaults, environment and flags
//   - internal/logging: Logging facilities
//   - internal/errors: Error handling utilities
//
// # Common Configuration Options
//
//	# Name the branch after CI coordinates instead of the default pattern
//	gitarchive --branch-name "ci/{branch}/{machine}" ...
//
//	# Refuse to create a repository that does not exist yet
//	gitarchive --no-create ...
//
//	# Attach a log file as a Git note on the new commit
//	gitarchive --notes "refs/notes/ptest/{branch}:ptest.log" ...
//
//	# Exclude temporary files from the archived tree
//	gitarchive --exclude "*.tmp" ...
//
// # Implementation Notes
//
// gitarchive uses the command-line Git executable rather than a Go Git
// library to ensure compatibility with all Git features and repository
// configurations. Commands are executed through an abstracted interface
// that can be replaced for testing.
//
// Tag numbering is derived from the tags visible when a run starts, so
// two concurrent runs against the same repository can race for the same
// number. Serialize runs externally when that matters.
package gitarchive
