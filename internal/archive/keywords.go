package archive

import (
	"regexp"
	"sort"
	"strings"

	"github.com/testresultlog/gitarchive/internal/errors"
)

// Keyword names supplied by the build metadata provider for every run.
const (
	KeywordHostname    = "hostname"
	KeywordBranch      = "branch"
	KeywordCommit      = "commit"
	KeywordCommitCount = "commit_count"
	KeywordMachine     = "machine"

	// KeywordTagNumber is filled in by the tag sequencer, or supplied by the
	// caller to take over numbering.
	KeywordTagNumber = "tag_number"

	// keywordBranchName is available inside notes ref patterns only.
	keywordBranchName = "branch_name"
)

// Keywords maps template placeholder names to their values for one archive
// run. The set is built once per run and treated as immutable input; code
// that needs to add a key works on a Clone.
type Keywords map[string]string

// Clone returns a shallow copy of the keyword set.
func (k Keywords) Clone() Keywords {
	out := make(Keywords, len(k))
	for key, val := range k {
		out[key] = val
	}
	return out
}

// Names returns the sorted placeholder names, for error messages.
func (k Keywords) Names() []string {
	names := make([]string, 0, len(k))
	for key := range k {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// ExpandTemplate fills {name}-style placeholders in pattern from the keyword
// set. A placeholder with no matching keyword is a hard error naming the
// missing field and listing every valid field name; a blank is never
// substituted silently.
func ExpandTemplate(pattern string, kw Keywords) (string, error) {
	var missing string
	expanded := placeholderRe.ReplaceAllStringFunc(pattern, func(m string) string {
		name := m[1 : len(m)-1]
		if val, ok := kw[name]; ok {
			return val
		}
		if missing == "" {
			missing = name
		}
		return m
	})
	if missing != "" {
		return "", errors.Wrapf(errors.ErrMissingKeyword,
			"%q in pattern %q, valid fields are: %s",
			missing, pattern, strings.Join(kw.Names(), ", "))
	}
	return expanded, nil
}
