package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/testresultlog/gitarchive/internal/errors"
)

// Note attaches the contents of File to the new commit under the notes ref
// Ref. The ref pattern may contain a {branch_name} placeholder which is
// expanded to the target branch.
type Note struct {
	Ref  string
	File string
}

// ExpandRef returns the notes ref with {branch_name} filled in.
func (n Note) ExpandRef(branch string) (string, error) {
	return ExpandTemplate(n.Ref, Keywords{keywordBranchName: branch})
}

// FullRef returns the fully qualified form of ref under refs/notes/,
// suitable for pushing.
func FullRef(ref string) string {
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return "refs/notes/" + ref
}

// CommitDir stages the entire contents of dataDir into a new tree object and
// commits it on branch, without touching the repository's own index or
// working tree.
//
// The staging happens in a private index file so that a checked-out working
// tree (if any) is left alone; the index file is removed on every exit path.
// Exclusion globs are unstaged from the private index, not removed from
// disk. The branch ref is advanced with the previous tip as compare-and-swap
// guard, so a concurrent run racing on the same branch fails instead of
// silently overwriting. If the repository is non-bare and the target branch
// is checked out, the working tree is reset to the new tip afterwards.
//
// Returns the hash of the new commit.
func CommitDir(ctx context.Context, repo Repository, dataDir, branch, message string, exclude []string, notes []Note, logger *zap.Logger) (string, error) {
	absData, err := filepath.Abs(dataDir)
	if err != nil {
		return "", errors.NewConfigError("data_dir", dataDir, err)
	}

	tmpIndex := filepath.Join(repo.GitDir(), fmt.Sprintf("index.gitarchive.%d", os.Getpid()))
	// A leftover from a crashed run must not leak stale entries into the
	// new tree.
	_ = os.Remove(tmpIndex)
	defer func() {
		if err := os.Remove(tmpIndex); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove temporary index", zap.String("path", tmpIndex), zap.Error(err))
		}
	}()

	env := map[string]string{
		"GIT_INDEX_FILE": tmpIndex,
		"GIT_WORK_TREE":  absData,
	}

	logger.Info("committing data to git repository",
		zap.String("data_dir", absData), zap.String("branch", branch))

	if _, err := repo.RunCmd(ctx, env, "add", "-A", "."); err != nil {
		return "", err
	}

	if len(exclude) > 0 {
		args := append([]string{"rm", "--cached", "-r", "--ignore-unmatch", "--"}, exclude...)
		if _, err := repo.RunCmd(ctx, env, args...); err != nil {
			return "", err
		}
	}

	tree, err := repo.RunCmd(ctx, env, "write-tree")
	if err != nil {
		return "", err
	}

	parent, err := repo.RevParse(ctx, "refs/heads/"+branch)
	if err != nil {
		return "", err
	}

	commitArgs := []string{"commit-tree", tree, "-m", message}
	if parent != "" {
		commitArgs = append(commitArgs, "-p", parent)
	}
	commit, err := repo.RunCmd(ctx, nil, commitArgs...)
	if err != nil {
		return "", err
	}

	for _, note := range notes {
		ref, err := note.ExpandRef(branch)
		if err != nil {
			return "", err
		}
		absFile, err := filepath.Abs(note.File)
		if err != nil {
			return "", errors.NewConfigError("notes", note.File, err)
		}
		if _, err := repo.RunCmd(ctx, nil, "notes", "--ref", ref, "add", "-F", absFile, commit); err != nil {
			return "", err
		}
	}

	// The old tip guards the update: a branch moved by a concurrent run
	// makes update-ref fail rather than losing its commit.
	updateArgs := []string{"update-ref", "refs/heads/" + branch, commit}
	if parent != "" {
		updateArgs = append(updateArgs, parent)
	}
	if _, err := repo.RunCmd(ctx, nil, updateArgs...); err != nil {
		return "", err
	}

	if !repo.Bare() {
		current, err := repo.CurrentBranch(ctx)
		if err != nil {
			return "", err
		}
		if current == branch {
			logger.Info("updating working tree", zap.String("branch", branch))
			if _, err := repo.RunCmd(ctx, nil, "reset", "--hard"); err != nil {
				return "", err
			}
		}
	}

	return commit, nil
}
