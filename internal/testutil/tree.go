package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// Tree maps slash-separated paths relative to a root to file contents.
type Tree map[string][]byte

// ReadTree reads every regular file under root. A missing root is an empty
// tree.
func ReadTree(root string) (Tree, error) {
	out := Tree{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = data
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return Tree{}, nil
	}
	return out, err
}

// SnapshotTree is ReadTree for tests.
func SnapshotTree(t testing.TB, root string) Tree {
	t.Helper()
	out, err := ReadTree(root)
	require.NoError(t, err)
	return out
}

// Paths returns the sorted file paths.
func (tr Tree) Paths() []string {
	out := make([]string, 0, len(tr))
	for p := range tr {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
