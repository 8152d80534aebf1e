package scanner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/l3aro/go-flow-graph/pkg/gir"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
}

func scanPaths(t *testing.T, s *Scanner, root string) []string {
	t.Helper()
	results, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	var paths []string
	for _, f := range results {
		paths = append(paths, f.Path)
	}
	return paths
}

func TestScannerScan(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".gir/main.gir.yaml":          "unit_id: 1",
		".gir/pkg/util.gir.json":      "{}",
		".gir/pkg/data.gir.msgpack":   "",
		".gir/notes.yaml":             "not a unit",
		"src/app.ts":                  "export {}",
		"loose.gir.yaml":              "outside the gir dir",
		".semantic/main.gir.yaml":     "output tree",
		"node_modules/.gir/x.gir.yml": "vendored",
	})

	got := scanPaths(t, New(DefaultOptions()), tmpDir)
	want := []string{
		".gir/main.gir.yaml",
		".gir/pkg/data.gir.msgpack",
		".gir/pkg/util.gir.json",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}

	results, _ := New(DefaultOptions()).Scan(tmpDir)
	if results[1].Format != gir.FormatMsgpack {
		t.Errorf("Format = %s, want msgpack", results[1].Format)
	}
	if !filepath.IsAbs(results[0].FullPath) {
		t.Errorf("FullPath %q is not absolute", results[0].FullPath)
	}
}

func TestScannerScan_AnyDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"a.gir.yaml":      "",
		"deep/b.gir.json": "",
		".gir/c.gir.yaml": "",
	})

	opts := DefaultOptions()
	opts.GIRDir = ""
	got := scanPaths(t, New(opts), tmpDir)
	want := []string{".gir/c.gir.yaml", "a.gir.yaml", "deep/b.gir.json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}
}

func TestScannerScan_IgnoreFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".gfgignore":                     "# generated\n*.gir.json\n!keep.gir.json\ntmp/\n",
		".gir/a.gir.yaml":                "",
		".gir/b.gir.json":                "",
		".gir/keep.gir.json":             "",
		".gir/tmp/c.gir.yaml":            "",
		".gir/sub/.gfgignore":            "/local.gir.yaml\n",
		".gir/sub/local.gir.yaml":        "",
		".gir/sub/deeper/local.gir.yaml": "",
	})

	got := scanPaths(t, New(DefaultOptions()), tmpDir)
	want := []string{
		".gir/a.gir.yaml",
		".gir/keep.gir.json",
		".gir/sub/deeper/local.gir.yaml",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}
}

func TestParseIgnorePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		match   bool
	}{
		{"*.gir.json", "a.gir.json", false, true},
		{"*.gir.json", "x/y/a.gir.json", false, true},
		{"*.gir.json", "a.gir.yaml", false, false},
		{"tmp/", "tmp", true, true},
		{"tmp/", "tmp", false, false},
		{"tmp", "a/tmp", true, true},
		{"/root.gir.yaml", "root.gir.yaml", false, true},
		{"/root.gir.yaml", "x/root.gir.yaml", false, false},
		{"gen/*.gir.yaml", "gen/a.gir.yaml", false, true},
		{"gen/*.gir.yaml", "x/gen/a.gir.yaml", false, false},
		{"**/gen/*.gir.yaml", "x/gen/a.gir.yaml", false, true},
		{"!keep.gir.json", "keep.gir.json", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.path, func(t *testing.T) {
			p := ParseIgnorePattern(tt.pattern)
			if got := p.Match(tt.path, tt.isDir); got != tt.match {
				t.Errorf("%q.Match(%q, %v) = %v, want %v", tt.pattern, tt.path, tt.isDir, got, tt.match)
			}
		})
	}

	if !ParseIgnorePattern("!x").IsNegation() {
		t.Error("IsNegation() = false for !x")
	}
}

func TestPaths(t *testing.T) {
	files := []FileInfo{{FullPath: "/a"}, {FullPath: "/b"}}
	if got := Paths(files); !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Errorf("Paths() = %v", got)
	}
}
