package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileEntry is an edge-list file found by WalkEdgeLists.
type FileEntry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the walk root.
	RelPath string

	// Size is the file size in bytes.
	Size int64

	// SHA256 is the hash of the file content.
	SHA256 string
}

// Extensions recognized as edge lists.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".edges":    true,
	".edgelist": true,
	".el":       true,
}

// Default patterns to ignore (in addition to .gitignore and .netscopeignore).
var defaultIgnorePatterns = []string{
	".git/",
	".netscope/",
	"node_modules/",
	"vendor/",
	".DS_Store",
}

// ignoreFiles are read from the walk root when present.
var ignoreFiles = []string{".gitignore", ".netscopeignore"}

// WalkEdgeLists walks root and returns every edge-list file that is not
// ignored, in lexical path order.
func WalkEdgeLists(root string, patterns []gitignore.Pattern) ([]FileEntry, error) {
	var entries []FileEntry

	allPatterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(p, nil))
	}
	allPatterns = append(allPatterns, patterns...)
	matcher := gitignore.NewMatcher(allPatterns)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(path, root, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isSupportedFile(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hash := sha256.Sum256(content)

		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		entries = append(entries, FileEntry{
			Path:    abs,
			RelPath: relPath,
			Size:    int64(len(content)),
			SHA256:  hex.EncodeToString(hash[:]),
		})
		return nil
	})

	return entries, err
}

// LoadIgnorePatterns reads .gitignore and .netscopeignore from root.
// Missing files are not an error.
func LoadIgnorePatterns(root string) ([]gitignore.Pattern, error) {
	var patterns []gitignore.Pattern
	for _, name := range ignoreFiles {
		content, err := os.ReadFile(filepath.Join(root, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
	}
	return patterns, nil
}

func isSupportedFile(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

func shouldSkipDir(path, root string, matcher gitignore.Matcher) bool {
	if filepath.Base(path) == ".git" {
		return true
	}
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return matcher.Match(splitPath(relPath), true)
}

func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
