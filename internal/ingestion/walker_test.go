package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func relPaths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = filepath.ToSlash(e.RelPath)
	}
	return out
}

func TestWalkEdgeLists(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"core.txt":             "A B 1",
		"lab/mesh.edges":       "A B 1\nB C 1",
		"lab/old/ring.edges":   "A B 1",
		"README.md":            "# networks",
		".gitignore":           "scratch/\n",
		".netscopeignore":      "lab/old/\n",
		"scratch/tmp.txt":      "X Y 1",
		".git/HEAD.txt":        "ref",
		"node_modules/dep.txt": "A B 1",
	})

	t.Run("AllSupportedFiles", func(t *testing.T) {
		t.Parallel()
		entries, err := WalkEdgeLists(tmpDir, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"core.txt", "lab/mesh.edges", "lab/old/ring.edges", "scratch/tmp.txt"}, relPaths(entries))
	})

	t.Run("RespectsIgnoreFiles", func(t *testing.T) {
		t.Parallel()
		patterns, err := LoadIgnorePatterns(tmpDir)
		require.NoError(t, err)
		require.Len(t, patterns, 2)

		entries, err := WalkEdgeLists(tmpDir, patterns)
		require.NoError(t, err)

		assert.Equal(t, []string{"core.txt", "lab/mesh.edges"}, relPaths(entries))
	})

	t.Run("HashesContent", func(t *testing.T) {
		t.Parallel()
		entries, err := WalkEdgeLists(tmpDir, nil)
		require.NoError(t, err)

		hash := sha256.Sum256([]byte("A B 1"))
		assert.Equal(t, hex.EncodeToString(hash[:]), entries[0].SHA256)
		assert.Equal(t, int64(5), entries[0].Size)
		assert.True(t, filepath.IsAbs(entries[0].Path))
	})
}

func TestLoadIgnorePatterns_Missing(t *testing.T) {
	t.Parallel()

	patterns, err := LoadIgnorePatterns(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestLoader_LoadDir(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"a.txt":      "A B 1\nB C 1",
		"b/c.edges":  "X Y 2\nbad line",
		".gitignore": "ignored.txt\n",
		"ignored.txt": "Q R 1",
	})

	var mu sync.Mutex
	var phases []string
	batch, err := NewLoader(nil).LoadDir(context.Background(), tmpDir, func(phase string, p float64) {
		mu.Lock()
		defer mu.Unlock()
		if p == 1.0 {
			phases = append(phases, phase)
		}
	})
	require.NoError(t, err)

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "a.txt", batch.Results[0].Source)
	assert.Equal(t, 2, batch.Results[0].Graph.EdgeCount())
	assert.Equal(t, filepath.Join("b", "c.edges"), batch.Results[1].Source)
	assert.Len(t, batch.Results[1].Malformed, 1)
	assert.Contains(t, phases, "Walking files")
	assert.Contains(t, phases, "Loading edge lists")
}
