package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"evalgo.org/rdfendpoint/internal/domain"
)

// PatternMatch is the expansion of one command line file argument.
type PatternMatch struct {
	Pattern string
	Files   []string
}

// ExpandPatterns glob-expands each argument in order. An argument naming an
// existing file is kept literally, so names containing glob metacharacters still load.
// A malformed pattern is a ValidationError; a pattern with no match yields an empty Files.
func ExpandPatterns(patterns []string) ([]PatternMatch, error) {
	out := make([]PatternMatch, 0, len(patterns))
	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && !info.IsDir() {
			out = append(out, PatternMatch{Pattern: pattern, Files: []string{pattern}})
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, domain.NewValidationError("files", fmt.Sprintf("bad pattern %q: %v", pattern, err))
		}
		files := make([]string, 0, len(matches))
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				files = append(files, m)
			}
		}
		out = append(out, PatternMatch{Pattern: pattern, Files: files})
	}
	return out, nil
}

// SplitCottas separates .cottas arguments from the other file arguments.
func SplitCottas(files []string) (cottas, others []string) {
	for _, f := range files {
		if strings.HasSuffix(f, ExtCottas) {
			cottas = append(cottas, f)
		} else {
			others = append(others, f)
		}
	}
	return cottas, others
}

// ValidateIndex checks a COTTAS index order: a permutation of "spo", optionally with "g".
func ValidateIndex(index string) error {
	index = strings.ToLower(index)
	if len(index) != 3 && len(index) != 4 {
		return domain.NewValidationError("index", fmt.Sprintf("%q must be a permutation of spo or spog", index))
	}
	seen := map[rune]bool{}
	for _, r := range index {
		if !strings.ContainsRune("spog", r) || seen[r] {
			return domain.NewValidationError("index", fmt.Sprintf("%q must be a permutation of spo or spog", index))
		}
		seen[r] = true
	}
	if !seen['s'] || !seen['p'] || !seen['o'] {
		return domain.NewValidationError("index", fmt.Sprintf("%q must contain s, p and o", index))
	}
	return nil
}
