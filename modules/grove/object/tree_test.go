package object

import (
	"context"
	"strings"
	"testing"

	"github.com/grove-scm/grove/modules/plumbing"
	"github.com/grove-scm/grove/modules/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walkFixture builds the following tree and returns its root:
//
//	a.txt
//	dir/b.txt
//	dir/sub/c.txt
//	z.txt
func walkFixture(t *testing.T, m *MockBackend) *Tree {
	t.Helper()
	blobA := m.AddBlob("a\n")
	blobB := m.AddBlob("b\n")
	blobC := m.AddBlob("c\n")
	blobZ := m.AddBlob("z\n")

	sub := &Tree{Entries: []*TreeEntry{
		{Name: "c.txt", Size: 2, Mode: filemode.Regular, Hash: blobC},
	}}
	subOid := m.AddTree(sub)

	dir := &Tree{Entries: []*TreeEntry{
		{Name: "b.txt", Size: 2, Mode: filemode.Regular, Hash: blobB},
		{Name: "sub", Mode: filemode.Dir, Hash: subOid},
	}}
	dirOid := m.AddTree(dir)

	root := &Tree{Entries: []*TreeEntry{
		{Name: "a.txt", Size: 2, Mode: filemode.Regular, Hash: blobA},
		{Name: "dir", Mode: filemode.Dir, Hash: dirOid},
		{Name: "z.txt", Size: 2, Mode: filemode.Regular, Hash: blobZ},
	}}
	m.AddTree(root)
	return root
}

func drainWalker(t *testing.T, w *TreeWalker) []string {
	t.Helper()
	var names []string
	err := w.ForEach(context.Background(), func(name string, entry *TreeEntry) error {
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	return names
}

func TestTreeWalkerPreorder(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	names := drainWalker(t, NewTreeWalker(root, false, nil))
	assert.Equal(t, []string{
		"a.txt", "dir", "dir/b.txt", "dir/sub", "dir/sub/c.txt", "z.txt",
	}, names)
}

func TestTreeWalkerPostorder(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	names := drainWalker(t, NewTreeWalker(root, true, nil))
	assert.Equal(t, []string{
		"a.txt", "dir/b.txt", "dir/sub/c.txt", "dir/sub", "dir", "z.txt",
	}, names)
}

func TestTreeWalkerOrderInvariantEntrySet(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	collect := func(postOrder bool) map[string]plumbing.Hash {
		set := make(map[string]plumbing.Hash)
		w := NewTreeWalker(root, postOrder, nil)
		err := w.ForEach(context.Background(), func(name string, entry *TreeEntry) error {
			set[name] = entry.Hash
			return nil
		})
		require.NoError(t, err)
		return set
	}

	assert.Equal(t, collect(false), collect(true))
}

func TestTreeWalkerAndFilter(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	w := NewTreeWalker(root, false, nil)
	w.AndFilter(func(name string, entry *TreeEntry) bool {
		return entry.IsRegular()
	})
	names := drainWalker(t, w)
	assert.Equal(t, []string{"a.txt", "dir/b.txt", "dir/sub/c.txt", "z.txt"}, names)
}

func TestTreeWalkerAndFilterIntersects(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	w := NewTreeWalker(root, false, nil)
	w.AndFilter(func(name string, entry *TreeEntry) bool {
		return entry.IsRegular()
	})
	// The second filter narrows the first, it never replaces it.
	w.AndFilter(func(name string, entry *TreeEntry) bool {
		return strings.HasPrefix(name, "dir/")
	})
	names := drainWalker(t, w)
	assert.Equal(t, []string{"dir/b.txt", "dir/sub/c.txt"}, names)
}

func TestTreeWalkerForEachStop(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	var count int
	w := NewTreeWalker(root, false, nil)
	err := w.ForEach(context.Background(), func(name string, entry *TreeEntry) error {
		count++
		return plumbing.ErrStop
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTreeWalkerExists(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	w := NewTreeWalker(root, false, nil)
	w.AndFilter(func(name string, entry *TreeEntry) bool {
		return name == "dir/sub/c.txt"
	})
	ok, err := w.Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	w = NewTreeWalker(root, false, nil)
	w.AndFilter(func(name string, entry *TreeEntry) bool {
		return name == "no/such/entry"
	})
	ok, err = w.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTreeWalkerSeenSkipsSubtree(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	dirEntry, err := root.Entry("dir")
	require.NoError(t, err)

	seen := map[plumbing.Hash]bool{dirEntry.Hash: true}
	names := drainWalker(t, NewTreeWalker(root, false, seen))
	assert.Equal(t, []string{"a.txt", "z.txt"}, names)
}

func TestTreeWalkerSinglePass(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	w := NewTreeWalker(root, false, nil)
	first := drainWalker(t, w)
	assert.NotEmpty(t, first)
	// ForEach closed the walker, the cursor cannot be rewound.
	second := drainWalker(t, w)
	assert.Empty(t, second)
}

func TestTreeFindEntry(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	e, err := root.FindEntry(context.Background(), "dir/sub/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "c.txt", e.Name)
	assert.True(t, e.IsRegular())

	_, err = root.FindEntry(context.Background(), "dir/missing")
	assert.True(t, IsErrEntryNotFound(err))

	_, err = root.FindEntry(context.Background(), "nope/missing")
	assert.True(t, IsErrDirectoryNotFound(err))
}

func TestFileIter(t *testing.T) {
	m := NewMockBackend()
	root := walkFixture(t, m)

	var paths []string
	err := root.Files().ForEach(context.Background(), func(f *File) error {
		paths = append(paths, f.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "dir/b.txt", "dir/sub/c.txt", "z.txt"}, paths)
}

func TestNewTreeSubtreeOrder(t *testing.T) {
	// a subtree compares as "foo/", so the plain file "foo.bar" sorts
	// ahead of the directory "foo" ('.' < '/')
	tree := NewTree([]*TreeEntry{
		{Name: "foo", Mode: filemode.Dir},
		{Name: "foo.bar", Size: 2, Mode: filemode.Regular},
		{Name: "bar", Size: 2, Mode: filemode.Regular},
	})

	var names []string
	for _, e := range tree.Entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"bar", "foo.bar", "foo"}, names)
}

func TestTreeEntryType(t *testing.T) {
	assert.Equal(t, BlobObject, (&TreeEntry{Mode: filemode.Regular}).Type())
	assert.Equal(t, BlobObject, (&TreeEntry{Mode: filemode.Executable}).Type())
	assert.Equal(t, BlobObject, (&TreeEntry{Mode: filemode.Symlink}).Type())
	assert.Equal(t, TreeObject, (&TreeEntry{Mode: filemode.Dir}).Type())
	assert.Equal(t, CommitObject, (&TreeEntry{Mode: filemode.Submodule}).Type())
}
