// Package archive implements the core of gitarchive: turning a directory of
// generated test-result artifacts into an atomic commit in a long-lived
// archive repository, numbering tags from the existing tag history, and
// pushing the results.
//
// # Core Components
//
//   - Keywords / ExpandTemplate: the per-run keyword set and the {name}
//     placeholder expander that fails loudly on unknown fields
//   - ExpandTagStrings: the tag sequencer, deriving the next sequence number
//     by matching existing tag names against the tag-name pattern
//   - CommitDir: the archive committer, building tree and commit objects
//     through a private index file and advancing the branch ref with a
//     compare-and-swap guard
//   - Archiver: the thin orchestrator sequencing validation, template
//     expansion, commit, tag and push
//
// The package talks to the repository exclusively through the Repository
// interface, so all of the above is testable against a fake without a git
// binary.
package archive
