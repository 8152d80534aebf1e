package scanner

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnorePattern represents a single gitignore-style pattern.
type IgnorePattern struct {
	raw      string
	glob     string // slash separated, without negation or trailing slash
	negation bool
	dirOnly  bool
	anchored bool // contains a slash before the last segment, or starts with one
}

// ParseIgnorePattern parses a gitignore-style pattern string.
func ParseIgnorePattern(pattern string) IgnorePattern {
	p := IgnorePattern{raw: pattern}

	if strings.HasPrefix(pattern, "!") {
		p.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		p.anchored = true
		pattern = pattern[1:]
	} else if strings.Contains(pattern, "/") {
		p.anchored = true
	}

	p.glob = pattern
	return p
}

// String returns the pattern as written.
func (p IgnorePattern) String() string {
	return p.raw
}

// IsNegation returns true if this pattern is a negation pattern.
func (p IgnorePattern) IsNegation() bool {
	return p.negation
}

// Match reports whether relPath (slash separated, relative to the directory
// holding the ignore file) matches. Unanchored patterns match any trailing
// run of segments, so "tmp" matches "a/tmp".
func (p IgnorePattern) Match(relPath string, isDir bool) bool {
	if p.glob == "" || (p.dirOnly && !isDir) {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	if p.anchored {
		ok, _ := doublestar.Match(p.glob, relPath)
		return ok
	}

	segments := strings.Split(relPath, "/")
	for i := range segments {
		if ok, _ := doublestar.Match(p.glob, strings.Join(segments[i:], "/")); ok {
			return true
		}
	}
	return false
}

// ignoreSet is the ordered list of patterns in effect for a directory.
type ignoreSet struct {
	base     string // slash separated directory of the ignore file, relative to root
	patterns []IgnorePattern
}

// ignored applies gitignore semantics: the last matching pattern wins.
func ignored(sets []ignoreSet, relPath string, isDir bool) bool {
	result := false
	for _, set := range sets {
		local := relPath
		if set.base != "" {
			if !strings.HasPrefix(relPath, set.base+"/") {
				continue
			}
			local = strings.TrimPrefix(relPath, set.base+"/")
		}
		for _, p := range set.patterns {
			if p.Match(local, isDir) {
				result = !p.IsNegation()
			}
		}
	}
	return result
}

// loadIgnoreFile reads patterns from path. A missing file yields nothing.
func loadIgnoreFile(path string) ([]IgnorePattern, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(line))
	}
	return patterns, sc.Err()
}
