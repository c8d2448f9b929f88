package archive

import (
	"context"

	gaerrors "github.com/testresultlog/gitarchive/internal/errors"
)

// fakeRepo implements Repository by recording commands instead of running
// git, letting the core tests inspect exact command sequences.
type fakeRepo struct {
	gitDir string
	bare   bool
	branch string
	tags   []string

	// revs answers RevParse; missing entries resolve to ("", nil).
	revs map[string]string

	// outputs maps a git subcommand to its canned stdout.
	outputs map[string]string

	// failOn makes the named subcommand fail.
	failOn string

	// onCall, when set, observes every command before it is answered.
	onCall func(env map[string]string, args []string)

	calls    [][]string
	envs     []map[string]string
	tagCalls int
}

func (f *fakeRepo) RunCmd(_ context.Context, env map[string]string, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	f.envs = append(f.envs, env)
	if f.onCall != nil {
		f.onCall(env, args)
	}
	op := args[0]
	if op == f.failOn {
		return "", gaerrors.NewGitError(op, args, gaerrors.New("injected failure"), "")
	}
	if out, ok := f.outputs[op]; ok {
		return out, nil
	}
	return "", nil
}

func (f *fakeRepo) RevParse(_ context.Context, rev string) (string, error) {
	return f.revs[rev], nil
}

func (f *fakeRepo) CurrentBranch(_ context.Context) (string, error) {
	return f.branch, nil
}

func (f *fakeRepo) Tags(_ context.Context) ([]string, error) {
	f.tagCalls++
	return f.tags, nil
}

func (f *fakeRepo) GitDir() string {
	return f.gitDir
}

func (f *fakeRepo) Bare() bool {
	return f.bare
}

// opSequence returns the subcommand of every recorded call, in order.
func (f *fakeRepo) opSequence() []string {
	ops := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		ops = append(ops, call[0])
	}
	return ops
}

// callFor returns the first recorded call for the given subcommand.
func (f *fakeRepo) callFor(op string) []string {
	for _, call := range f.calls {
		if call[0] == op {
			return call
		}
	}
	return nil
}
