package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// GroupSplitter splits group-bearing header values on a set of delimiter
// patterns. All patterns are treated as alternatives in a single split pass,
// not applied sequentially: sequential splitting on multiple delimiters can
// produce different results when delimiter substrings overlap.
type GroupSplitter struct {
	re *regexp.Regexp
}

// CompileGroupDelimiters compiles delimiter patterns into a single
// alternation. Patterns are regular expressions; a compile failure is a
// configuration error and should abort provisioning.
func CompileGroupDelimiters(patterns []string) (*GroupSplitter, error) {
	if len(patterns) == 0 {
		patterns = []string{";"}
	}
	re, err := regexp.Compile(strings.Join(patterns, "|"))
	if err != nil {
		return nil, fmt.Errorf("compile group delimiters: %w", err)
	}
	return &GroupSplitter{re: re}, nil
}

// Split splits a header value into group names, discarding empty tokens.
func (s *GroupSplitter) Split(value string) []string {
	var groups []string
	for _, tok := range s.re.Split(value, -1) {
		if tok != "" {
			groups = append(groups, tok)
		}
	}
	return groups
}

// ParseGroups accumulates group names across all configured group headers.
// Missing headers contribute nothing. Order follows header configuration
// order but carries no meaning to callers.
func ParseGroups(headers HeaderGetter, groupHeaders []string, splitter *GroupSplitter, unquote bool) []string {
	var groups []string
	for _, header := range groupHeaders {
		value := headers.Get(header)
		if unquote {
			value = Unquote(value)
		}
		groups = append(groups, splitter.Split(value)...)
	}
	return groups
}

// DiffGroups computes the membership changes turning current into desired.
// toAdd contains desired names the user is not yet a member of (deduplicated,
// in first-seen order); toRemove contains current memberships absent from
// desired. Applying the diff twice is a no-op the second time.
func DiffGroups(current, desired []string) (toAdd, toRemove []string) {
	desiredSet := make(map[string]bool, len(desired))
	for _, name := range desired {
		desiredSet[name] = true
	}
	currentSet := make(map[string]bool, len(current))
	for _, name := range current {
		currentSet[name] = true
		if !desiredSet[name] {
			toRemove = append(toRemove, name)
		}
	}
	seen := make(map[string]bool, len(desired))
	for _, name := range desired {
		if seen[name] || currentSet[name] {
			continue
		}
		seen[name] = true
		toAdd = append(toAdd, name)
	}
	return toAdd, toRemove
}
