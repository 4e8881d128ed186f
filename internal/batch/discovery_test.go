package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/recode/internal/testutil"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, testutil.EnsureDir(filepath.Dir(path)))
	require.NoError(t, os.WriteFile(path, []byte("0.5 0.5\n"), 0o600))
}

func TestDiscoverMatrixFiles_EmptyArgs(t *testing.T) {
	files, err := discoverMatrixFiles(nil, false, DefaultIncludePatterns, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverMatrixFiles_Directory(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	touch(t, filepath.Join(dir, "b.json"))
	touch(t, filepath.Join(dir, "a.txt"))
	touch(t, filepath.Join(dir, "notes.md"))
	touch(t, filepath.Join(dir, "sub", "c.json"))

	files, err := discoverMatrixFiles([]string{dir}, false, DefaultIncludePatterns, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.json")}, files)

	files, err = discoverMatrixFiles([]string{dir}, true, DefaultIncludePatterns, nil)
	require.NoError(t, err)
	assert.Len(t, files, 3)
	assert.Contains(t, files, filepath.Join(dir, "sub", "c.json"))
}

func TestDiscoverMatrixFiles_ExcludeWins(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	touch(t, filepath.Join(dir, "line1.json"))
	touch(t, filepath.Join(dir, "line1.debug.json"))

	files, err := discoverMatrixFiles([]string{dir}, false, []string{"*.json"}, []string{"*.debug.*"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "line1.json")}, files)
}

func TestDiscoverMatrixFiles_ExplicitFilesAreDeduplicated(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := filepath.Join(dir, "x.json")
	touch(t, path)

	files, err := discoverMatrixFiles([]string{path, dir, path}, false, DefaultIncludePatterns, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestDiscoverMatrixFiles_Missing(t *testing.T) {
	_, err := discoverMatrixFiles([]string{"/nonexistent/line.json"}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"no patterns", "/a/x.bin", nil, nil, true},
		{"included", "/a/x.json", []string{"*.json"}, nil, true},
		{"not included", "/a/x.bin", []string{"*.json"}, nil, false},
		{"excluded", "/a/x.json", nil, []string{"x.*"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIncludeFile(tt.path, tt.include, tt.exclude))
		})
	}
}
