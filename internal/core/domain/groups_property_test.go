//go:build unit

package domain

import (
	"strings"
	"testing"
	"testing/quick"
)

// Property: Split never emits empty tokens, for any input value.
func TestGroupSplitter_Property_NoEmptyTokens(t *testing.T) {
	s, err := CompileGroupDelimiters([]string{";", ","})
	if err != nil {
		t.Fatalf("CompileGroupDelimiters: %v", err)
	}

	f := func(value string) bool {
		for _, tok := range s.Split(value) {
			if tok == "" {
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

// Property: every token Split emits is a substring of the input and contains
// no delimiter.
func TestGroupSplitter_Property_TokensAreDelimiterFree(t *testing.T) {
	s, err := CompileGroupDelimiters([]string{";"})
	if err != nil {
		t.Fatalf("CompileGroupDelimiters: %v", err)
	}

	f := func(value string) bool {
		for _, tok := range s.Split(value) {
			if !strings.Contains(value, tok) {
				return false
			}
			if strings.Contains(tok, ";") {
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
