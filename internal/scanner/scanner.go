// Package scanner finds unit files under a directory tree. It respects
// .gfgignore files with gitignore-style patterns.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l3aro/go-flow-graph/pkg/gir"
)

// FileInfo represents a discovered unit file.
type FileInfo struct {
	Path     string     // Relative path from root, slash separated
	FullPath string     // Absolute path
	Format   gir.Format // Encoding detected from the suffix
	Size     int64
}

// Options configures the scanner behavior.
type Options struct {
	// GIRDir restricts results to files below a directory with this name.
	// Empty accepts unit files anywhere.
	GIRDir string
	// SkipDirs are directory names never descended into.
	SkipDirs []string
	// IgnoreFileName is the name of per-directory ignore files.
	IgnoreFileName string
	// FollowSymlinks includes symlinked files whose target stays inside root.
	FollowSymlinks bool
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		GIRDir:         ".gir",
		IgnoreFileName: ".gfgignore",
		SkipDirs: []string{
			".git",
			".hg",
			".svn",
			".semantic",
			"node_modules",
			"vendor",
		},
	}
}

// Scanner walks directory trees looking for unit files.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan returns the unit files below root sorted by path.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	var (
		files []FileInfo
		sets  []ignoreSet
	)

	if err := s.pushIgnore(&sets, absRoot, ""); err != nil {
		return nil, err
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped
			if d != nil && d.IsDir() && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.skipDir(d.Name()) || ignored(sets, rel, true) {
				return filepath.SkipDir
			}
			return s.pushIgnore(&sets, path, rel)
		}

		if !gir.IsUnitFile(path) || ignored(sets, rel, false) || !s.inGIRDir(rel) {
			return nil
		}

		info, ok := s.fileInfo(absRoot, path, d)
		if !ok {
			return nil
		}
		format, _ := gir.DetectFormat(path)
		files = append(files, FileInfo{
			Path:     rel,
			FullPath: path,
			Format:   format,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *Scanner) pushIgnore(sets *[]ignoreSet, dir, rel string) error {
	if s.opts.IgnoreFileName == "" {
		return nil
	}
	patterns, err := loadIgnoreFile(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		return fmt.Errorf("loading ignore patterns in %s: %w", dir, err)
	}
	if len(patterns) > 0 {
		*sets = append(*sets, ignoreSet{base: rel, patterns: patterns})
	}
	return nil
}

func (s *Scanner) skipDir(name string) bool {
	for _, skip := range s.opts.SkipDirs {
		if strings.EqualFold(name, skip) {
			return true
		}
	}
	return false
}

func (s *Scanner) inGIRDir(rel string) bool {
	if s.opts.GIRDir == "" {
		return true
	}
	parts := strings.Split(rel, "/")
	for _, p := range parts[:len(parts)-1] {
		if p == s.opts.GIRDir {
			return true
		}
	}
	return false
}

// fileInfo resolves regular files and, when allowed, symlinks to files
// inside root.
func (s *Scanner) fileInfo(absRoot, path string, d fs.DirEntry) (fs.FileInfo, bool) {
	if d.Type()&fs.ModeSymlink == 0 {
		info, err := d.Info()
		return info, err == nil
	}
	if !s.opts.FollowSymlinks {
		return nil, false
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, false
	}
	if root, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = root
	}
	if !strings.HasPrefix(target, absRoot+string(filepath.Separator)) {
		return nil, false
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return info, true
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}

// Paths returns the absolute paths of files.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.FullPath
	}
	return out
}
