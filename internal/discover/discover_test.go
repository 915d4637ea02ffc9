package discover

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverPythonFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "__init__.py", "")
	writeFile(t, dir, "core.py", "def load(): pass")
	writeFile(t, dir, "io/readers.py", "def read(): pass")
	// Non-Python file should be ignored
	writeFile(t, dir, "readme.txt", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, ".hidden.py", "secret")

	entries, err := Files(dir, Options{Package: "lib"})
	require.NoError(t, err)

	type entry struct{ Path, Module string }
	var got []entry
	for _, e := range entries {
		assert.Equal(t, "python", e.Language)
		got = append(got, entry{filepath.ToSlash(e.Path), e.Module})
	}
	assert.Equal(t, []entry{
		{"__init__.py", "lib"},
		{"core.py", "lib.core"},
		{"io/readers.py", "lib.io.readers"},
	}, got)
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "pass")
	writeFile(t, dir, "node_modules/pkg.py", "pass")
	writeFile(t, dir, "__pycache__/cached.py", "pass")
	writeFile(t, dir, ".hidden/secret.py", "pass")
	writeFile(t, dir, "lib.egg-info/meta.py", "pass")

	entries, err := Files(dir, Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "main.py", entries[0].Path)
	assert.Equal(t, "main", entries[0].Module)
}

func TestDiscoverTests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "core.py", "pass")
	writeFile(t, dir, "test_core.py", "pass")
	writeFile(t, dir, "tests/conftest.py", "pass")

	entries, err := Files(dir, Options{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = Files(dir, Options{IncludeTests: true})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestDiscoverMaxFileSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "small.py", "pass")
	writeFile(t, dir, "big.py", "x = '0123456789'")

	entries, err := Files(dir, Options{MaxFileSize: 8})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "small.py", entries[0].Path)
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\n*_pb2.py\n")
	writeFile(t, dir, "core.py", "pass")
	writeFile(t, dir, "api_pb2.py", "pass")
	writeFile(t, dir, "generated/models.py", "pass")

	entries, err := Files(dir, Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "core.py", entries[0].Path)
}

func TestDiscoverGitLsFiles(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "scratch.py\n")
	writeFile(t, dir, "core.py", "pass")
	writeFile(t, dir, "scratch.py", "pass")

	cmd := exec.Command("git", "init", "-q")
	cmd.Dir = dir
	if err := cmd.Run(); err != nil {
		t.Skipf("git init: %v", err)
	}

	entries, err := Files(dir, Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "core.py", entries[0].Path)
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.py", "pass")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "real.py"), filepath.Join(dir, "link.py"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(dir, Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1, "symlink should be skipped")
	assert.Equal(t, "real.py", entries[0].Path)
}

func TestModuleName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		rel, pkg, want string
	}{
		{"core.py", "lib", "lib.core"},
		{"__init__.py", "lib", "lib"},
		{"io/__init__.py", "lib", "lib.io"},
		{"io/readers.py", "lib", "lib.io.readers"},
		{"io/readers.py", "", "io.readers"},
	}
	for _, tc := range cases {
		t.Run(tc.rel, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ModuleName(tc.rel, tc.pkg))
		})
	}
}

func TestIsTestFile(t *testing.T) {
	t.Parallel()
	cases := []struct {
		path string
		want bool
	}{
		{"tests/test_scenes.py", true},
		{"tests/conftest.py", true},
		{"tests/__init__.py", true},
		{"pkg/test/helpers.py", true},
		{"test_helpers.py", true},
		{"io/readers_test.py", true},
		{"loom/models.py", false},
		{"loom/routers/scenes.py", false},
		{"conftest.py", false},
		{"testing_utils.py", false},
		{"contest.py", false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			if got := IsTestFile(tc.path); got != tc.want {
				t.Errorf("IsTestFile(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
