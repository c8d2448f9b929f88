// Package main implements gitarchive, a tool that commits a directory of
// test results into a Git repository.
//
// Each run produces exactly one commit on a branch derived from metadata
// of the tested revision (hostname, branch, commit, machine). The commit
// is built with plumbing commands against a private index, so the archive
// repository's own index and working tree are never disturbed and
// unrelated files already present in the repository are never carried
// into the new tree. Tags carry an auto-incrementing run number scanned
// from the existing tags, letting repeated runs of the same revision live
// side by side.
//
// # Basic Usage
//
//	gitarchive --git-dir /srv/results.git --metadata results/metadata.yml results/
//
// Branch and tag names, commit and tag messages are all patterns with
// {keyword} placeholders; see the --branch-name and --tag-name flags.
// With --push the new tags (and, given an explicit remote, the branch and
// note refs) are pushed after a successful commit.
package main
