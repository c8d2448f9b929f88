package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	return &fakeRepo{
		gitDir: t.TempDir(),
		branch: "other-branch",
		outputs: map[string]string{
			"write-tree":  "tree0123",
			"commit-tree": "commit4567",
		},
		revs: map[string]string{},
	}
}

// simulateIndex makes the fake behave like git: the add command brings the
// private index file into existence.
func simulateIndex(f *fakeRepo) {
	f.onCall = func(env map[string]string, args []string) {
		if args[0] == "add" {
			_ = os.WriteFile(env["GIT_INDEX_FILE"], []byte("index"), 0o644)
		}
	}
}

func indexFiles(t *testing.T, gitDir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(gitDir, "index.gitarchive.*"))
	require.NoError(t, err)
	return matches
}

func TestCommitDirFirstCommit(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(t)
	dataDir := t.TempDir()

	commit, err := CommitDir(context.Background(), repo, dataDir, "main", "subject\n\nbody", nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "commit4567", commit)

	assert.Equal(t, []string{"add", "write-tree", "commit-tree", "update-ref"}, repo.opSequence())

	// No parent on an unborn branch: no -p, and a two-argument ref update.
	assert.Equal(t, []string{"commit-tree", "tree0123", "-m", "subject\n\nbody"}, repo.callFor("commit-tree"))
	assert.Equal(t, []string{"update-ref", "refs/heads/main", "commit4567"}, repo.callFor("update-ref"))
}

func TestCommitDirLinearHistory(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(t)
	repo.revs["refs/heads/main"] = "oldtip89"
	dataDir := t.TempDir()

	_, err := CommitDir(context.Background(), repo, dataDir, "main", "msg", nil, nil, zap.NewNop())
	require.NoError(t, err)

	// Parent is the prior tip, and the same tip guards the CAS ref update.
	assert.Equal(t, []string{"commit-tree", "tree0123", "-m", "msg", "-p", "oldtip89"}, repo.callFor("commit-tree"))
	assert.Equal(t, []string{"update-ref", "refs/heads/main", "commit4567", "oldtip89"}, repo.callFor("update-ref"))
}

func TestCommitDirStagingEnvironment(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(t)
	dataDir := t.TempDir()

	_, err := CommitDir(context.Background(), repo, dataDir, "main", "msg", nil, nil, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, "add", repo.calls[0][0])
	env := repo.envs[0]
	assert.Equal(t, dataDir, env["GIT_WORK_TREE"])
	assert.Equal(t, filepath.Join(repo.gitDir, fmt.Sprintf("index.gitarchive.%d", os.Getpid())), env["GIT_INDEX_FILE"])

	// write-tree must read the same private index.
	writeTreeIdx := -1
	for i, call := range repo.calls {
		if call[0] == "write-tree" {
			writeTreeIdx = i
		}
	}
	require.GreaterOrEqual(t, writeTreeIdx, 0)
	assert.Equal(t, env["GIT_INDEX_FILE"], repo.envs[writeTreeIdx]["GIT_INDEX_FILE"])
}

func TestCommitDirExclusions(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(t)
	dataDir := t.TempDir()

	_, err := CommitDir(context.Background(), repo, dataDir, "main", "msg",
		[]string{"*.log", "tmp/*"}, nil, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"rm", "--cached", "-r", "--ignore-unmatch", "--", "*.log", "tmp/*"},
		repo.callFor("rm"))

	// Exclusions are unstaged before the tree is written.
	assert.Equal(t, []string{"add", "rm", "write-tree", "commit-tree", "update-ref"}, repo.opSequence())
}

func TestCommitDirNotes(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(t)
	dataDir := t.TempDir()
	noteFile := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(noteFile, []byte("note body"), 0o644))

	_, err := CommitDir(context.Background(), repo, dataDir, "main", "msg", nil,
		[]Note{{Ref: "results/{branch_name}", File: noteFile}}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"notes", "--ref", "results/main", "add", "-F", noteFile, "commit4567"},
		repo.callFor("notes"))
}

func TestCommitDirWorkingTreeSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		bare      bool
		current   string
		wantReset bool
	}{
		{name: "bare repository never resets", bare: true, current: "main", wantReset: false},
		{name: "checked-out target branch resets", bare: false, current: "main", wantReset: true},
		{name: "different checked-out branch untouched", bare: false, current: "develop", wantReset: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo(t)
			repo.bare = tt.bare
			repo.branch = tt.current

			_, err := CommitDir(context.Background(), repo, t.TempDir(), "main", "msg", nil, nil, zap.NewNop())
			require.NoError(t, err)

			reset := repo.callFor("reset")
			if tt.wantReset {
				assert.Equal(t, []string{"reset", "--hard"}, reset)
			} else {
				assert.Nil(t, reset)
			}
		})
	}
}

func TestCommitDirCleansTemporaryIndex(t *testing.T) {
	t.Parallel()

	t.Run("on success", func(t *testing.T) {
		repo := newFakeRepo(t)
		simulateIndex(repo)

		_, err := CommitDir(context.Background(), repo, t.TempDir(), "main", "msg", nil, nil, zap.NewNop())
		require.NoError(t, err)
		assert.Empty(t, indexFiles(t, repo.gitDir))
	})

	t.Run("on failure partway", func(t *testing.T) {
		repo := newFakeRepo(t)
		repo.failOn = "write-tree"
		simulateIndex(repo)

		_, err := CommitDir(context.Background(), repo, t.TempDir(), "main", "msg", nil, nil, zap.NewNop())
		require.Error(t, err)
		assert.Empty(t, indexFiles(t, repo.gitDir))
	})

	t.Run("stale index from a previous run is discarded", func(t *testing.T) {
		repo := newFakeRepo(t)
		stale := filepath.Join(repo.gitDir, fmt.Sprintf("index.gitarchive.%d", os.Getpid()))
		require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

		var indexExisted bool
		repo.onCall = func(env map[string]string, args []string) {
			if args[0] == "add" {
				_, err := os.Stat(env["GIT_INDEX_FILE"])
				indexExisted = err == nil
			}
		}

		_, err := CommitDir(context.Background(), repo, t.TempDir(), "main", "msg", nil, nil, zap.NewNop())
		require.NoError(t, err)
		assert.False(t, indexExisted, "stale index must be removed before staging")
	})
}

func TestCommitDirAbortsOnFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(t)
	repo.failOn = "commit-tree"

	_, err := CommitDir(context.Background(), repo, t.TempDir(), "main", "msg", nil, nil, zap.NewNop())
	require.Error(t, err)

	// Nothing after the failing step may run.
	assert.Nil(t, repo.callFor("update-ref"))
	assert.Nil(t, repo.callFor("reset"))
}

func TestFullRef(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "refs/notes/results/main", FullRef("results/main"))
	assert.Equal(t, "refs/notes/custom", FullRef("refs/notes/custom"))
}
