package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	gaerrors "github.com/testresultlog/gitarchive/internal/errors"
)

func testKeywords() Keywords {
	return Keywords{
		"hostname":     "h1",
		"branch":       "main",
		"commit":       "abc123",
		"commit_count": "512",
		"machine":      "qemux86",
	}
}

func testArchiverConfig(t *testing.T) (Config, afero.Fs) {
	t.Helper()
	fs := afero.NewOsFs()
	dataDir := t.TempDir()
	return Config{
		DataDir:          dataDir,
		GitDir:           filepath.Join(t.TempDir(), "archive.git"),
		BranchName:       "{hostname}/{branch}",
		CommitMsgSubject: "Results of {branch}:{commit}",
		CommitMsgBody:    "hostname: {hostname}",
		TagMsgSubject:    "Run #{tag_number}",
		TagMsgBody:       "",
		Keywords:         testKeywords(),
	}, fs
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base, _ := testArchiverConfig(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = "" }},
		{name: "empty git dir", mutate: func(c *Config) { c.GitDir = "" }},
		{name: "empty branch pattern", mutate: func(c *Config) { c.BranchName = "" }},
		{name: "remote without push", mutate: func(c *Config) { c.PushRemote = "origin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := NewWithDeps(cfg, zap.NewNop(), afero.NewMemMapFs(), &fakeRepo{})
			require.Error(t, err)
			assert.True(t, gaerrors.Is(err, gaerrors.ErrInvalidConfiguration))
		})
	}
}

func TestRunRejectsMissingDataDir(t *testing.T) {
	t.Parallel()

	cfg, _ := testArchiverConfig(t)
	cfg.DataDir = filepath.Join(cfg.DataDir, "does-not-exist")
	repo := &fakeRepo{gitDir: t.TempDir()}

	a, err := NewWithDeps(cfg, zap.NewNop(), afero.NewOsFs(), repo)
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	require.Error(t, err)
	assert.True(t, gaerrors.Is(err, gaerrors.ErrInvalidConfiguration))
	assert.Empty(t, repo.calls, "no repository access before input validation")
}

func TestRunFailsFastOnTemplateErrors(t *testing.T) {
	t.Parallel()

	t.Run("broken branch pattern", func(t *testing.T) {
		cfg, fs := testArchiverConfig(t)
		cfg.BranchName = "{nonsense}"
		repo := &fakeRepo{gitDir: t.TempDir()}

		a, err := NewWithDeps(cfg, zap.NewNop(), fs, repo)
		require.NoError(t, err)

		_, err = a.Run(context.Background())
		require.Error(t, err)
		assert.True(t, gaerrors.Is(err, gaerrors.ErrMissingKeyword))
		assert.Empty(t, repo.calls, "a template error must precede any repository mutation")
	})

	t.Run("broken tag pattern leaves no orphan commit", func(t *testing.T) {
		cfg, fs := testArchiverConfig(t)
		cfg.TagName = "{hostname}/{bogus}/{tag_number}"
		repo := &fakeRepo{gitDir: t.TempDir()}

		a, err := NewWithDeps(cfg, zap.NewNop(), fs, repo)
		require.NoError(t, err)

		_, err = a.Run(context.Background())
		require.Error(t, err)
		assert.True(t, gaerrors.Is(err, gaerrors.ErrMissingKeyword))
		assert.Nil(t, repo.callFor("commit-tree"))
		assert.Nil(t, repo.callFor("update-ref"))
	})
}

func newRunRepo(t *testing.T) *fakeRepo {
	t.Helper()
	return &fakeRepo{
		gitDir: t.TempDir(),
		branch: "unrelated",
		outputs: map[string]string{
			"write-tree":  "tree0123",
			"commit-tree": "commit4567",
		},
		revs: map[string]string{},
	}
}

func TestRunCommitsAndTags(t *testing.T) {
	t.Parallel()

	cfg, fs := testArchiverConfig(t)
	cfg.TagName = "{hostname}/{branch}/{tag_number}"
	repo := newRunRepo(t)
	repo.tags = []string{"h1/main/0", "h1/main/3"}

	a, err := NewWithDeps(cfg, zap.NewNop(), fs, repo)
	require.NoError(t, err)

	commit, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "commit4567", commit)

	assert.Equal(t,
		[]string{"tag", "-a", "-m", "Run #4\n\n", "h1/main/4", "commit4567"},
		repo.callFor("tag"))
}

func TestRunNoTagSuppressesTagging(t *testing.T) {
	t.Parallel()

	cfg, fs := testArchiverConfig(t)
	cfg.TagName = "{hostname}/{tag_number}"
	cfg.NoTag = true
	repo := newRunRepo(t)

	a, err := NewWithDeps(cfg, zap.NewNop(), fs, repo)
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, repo.callFor("tag"))
}

func TestRunPush(t *testing.T) {
	t.Parallel()

	t.Run("default remote pushes tags only", func(t *testing.T) {
		cfg, fs := testArchiverConfig(t)
		cfg.Push = true
		repo := newRunRepo(t)

		a, err := NewWithDeps(cfg, zap.NewNop(), fs, repo)
		require.NoError(t, err)

		_, err = a.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"push", "--tags"}, repo.callFor("push"))
	})

	t.Run("explicit remote pushes branch, tags and notes refs", func(t *testing.T) {
		cfg, fs := testArchiverConfig(t)
		cfg.Push = true
		cfg.PushRemote = "origin"
		noteFile := filepath.Join(t.TempDir(), "note.txt")
		require.NoError(t, afero.WriteFile(fs, noteFile, []byte("n"), 0o644))
		cfg.Notes = []Note{{Ref: "results/{branch_name}", File: noteFile}}
		repo := newRunRepo(t)

		a, err := NewWithDeps(cfg, zap.NewNop(), fs, repo)
		require.NoError(t, err)

		_, err = a.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t,
			[]string{"push", "--tags", "origin", "h1/main", "refs/notes/results/h1/main"},
			repo.callFor("push"))
	})

	t.Run("push failure surfaces as the run error", func(t *testing.T) {
		cfg, fs := testArchiverConfig(t)
		cfg.Push = true
		repo := newRunRepo(t)
		repo.failOn = "push"

		a, err := NewWithDeps(cfg, zap.NewNop(), fs, repo)
		require.NoError(t, err)

		_, err = a.Run(context.Background())
		require.Error(t, err)
		assert.True(t, gaerrors.Is(err, gaerrors.ErrGitOperationFailed))
	})
}

func TestRunCommitMessageShape(t *testing.T) {
	t.Parallel()

	cfg, fs := testArchiverConfig(t)
	cfg.CommitMsgSubject = "  Results of {branch}:{commit}  "
	repo := newRunRepo(t)

	a, err := NewWithDeps(cfg, zap.NewNop(), fs, repo)
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	call := repo.callFor("commit-tree")
	require.NotNil(t, call)
	assert.Equal(t, "Results of main:abc123\n\nhostname: h1", call[3])
}
