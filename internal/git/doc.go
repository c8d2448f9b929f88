// Package git wraps an on-disk git repository behind a narrow
// command-execution and query surface.
//
// The package deliberately shells out to the git binary instead of
// reimplementing repository internals: the archival core builds commits
// with low-level plumbing commands (staging into a private index,
// write-tree, commit-tree, update-ref) and relies on git's own
// compare-and-swap ref update as the only concurrency guard between
// racing archive runs.
//
// # Core Components
//
//   - Repo: handle for an opened repository (bare or not), exposing RunCmd,
//     RevParse, CurrentBranch and Tags
//   - InitOrOpen: guarded open-or-initialize honoring the no-create policy,
//     refusing to adopt non-empty directories that are not repositories
//   - CommandExecutor: interface for executing git commands, with
//     ExecExecutor as the os/exec backed default and MockCommandExecutor
//     for tests
package git
