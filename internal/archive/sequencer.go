package archive

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// tagNumberGroup is the capture group substituted for the tag_number
// placeholder when matching existing tags. Sequence numbers are capped at
// five decimal digits so that pathological tag names cannot produce
// unbounded numbers.
const tagNumberGroup = `([0-9]{1,5})`

// tagMatcher builds the regular expression that recognizes existing tags
// produced from pattern with the given keywords. All keywords except
// tag_number are expanded to their literal values, literal parentheses are
// escaped so they cannot corrupt the capture group, and the match is
// anchored to cover the whole tag name.
//
// Pure function of (pattern, keywords); no repository access.
func tagMatcher(pattern string, kw Keywords) (*regexp.Regexp, error) {
	marked := kw.Clone()
	// Keep the placeholder itself intact through expansion so the capture
	// group can be substituted afterwards, once the parentheses of the
	// surrounding text have been escaped.
	marked[KeywordTagNumber] = "{" + KeywordTagNumber + "}"

	expanded, err := ExpandTemplate(pattern, marked)
	if err != nil {
		return nil, err
	}

	expanded = strings.ReplaceAll(expanded, "(", `\(`)
	expanded = strings.ReplaceAll(expanded, ")", `\)`)
	expanded = strings.ReplaceAll(expanded, "{"+KeywordTagNumber+"}", tagNumberGroup)

	return regexp.Compile("^" + expanded + "$")
}

// nextTagNumber scans existing tag names for matches of the pattern and
// returns one greater than the highest sequence number observed, or 0 when
// nothing matches. Gaps in the existing numbering are irrelevant.
//
// Numbers are not reserved: two concurrent runs against the same repository
// can observe the same maximum and pick the same number. The subsequent tag
// creation, not this scan, is where such a race surfaces.
func nextTagNumber(tags []string, matcher *regexp.Regexp) int {
	next := 0
	for _, tag := range tags {
		m := matcher.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return next
}

// ExpandTagStrings resolves the tag name and tag message for this run.
//
// When the keyword set already carries a tag_number it is used verbatim,
// leaving numbering under the caller's control. Otherwise the next number is
// derived from the repository's existing tags. The returned message is the
// expanded subject and body separated by a blank line.
func ExpandTagStrings(ctx context.Context, repo Repository, namePattern, subjectPattern, bodyPattern string, kw Keywords) (string, string, error) {
	kw = kw.Clone()

	if _, ok := kw[KeywordTagNumber]; !ok {
		matcher, err := tagMatcher(namePattern, kw)
		if err != nil {
			return "", "", err
		}
		tags, err := repo.Tags(ctx)
		if err != nil {
			return "", "", err
		}
		kw[KeywordTagNumber] = strconv.Itoa(nextTagNumber(tags, matcher))
	}

	name, err := ExpandTemplate(namePattern, kw)
	if err != nil {
		return "", "", err
	}
	subject, err := ExpandTemplate(strings.TrimSpace(subjectPattern), kw)
	if err != nil {
		return "", "", err
	}
	body, err := ExpandTemplate(bodyPattern, kw)
	if err != nil {
		return "", "", err
	}
	return name, subject + "\n\n" + body, nil
}
