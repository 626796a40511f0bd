package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/grove-scm/grove/modules/grove/object"
	"github.com/grove-scm/grove/modules/plumbing"
	"github.com/grove-scm/grove/modules/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, opts ...Option) *Database {
	t.Helper()
	db, err := NewDatabase(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func rawHash(content string) plumbing.Hash {
	h := plumbing.NewHasher()
	_, _ = h.Write([]byte(content))
	return h.Sum()
}

func TestBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	content := "the quick brown fox\njumps over the lazy dog\n"
	oid, err := db.HashTo(ctx, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, rawHash(content), oid)

	br, err := db.Blob(ctx, oid)
	require.NoError(t, err)
	defer br.Close() // nolint
	assert.Equal(t, int64(len(content)), br.Size)

	got, err := io.ReadAll(br.Contents)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestBlobBinaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	content := "PK\x03\x04\x00\x01binary payload"
	oid, err := db.HashTo(ctx, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	br, err := db.Blob(ctx, oid)
	require.NoError(t, err)
	defer br.Close() // nolint

	got, err := io.ReadAll(br.Contents)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestBlankBlob(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	br, err := db.Blob(ctx, plumbing.BLANK_BLOB_HASH)
	require.NoError(t, err)
	defer br.Close() // nolint
	got, err := io.ReadAll(br.Contents)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteEncodedTypedReads(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	content := "hello\n"
	blobOid, err := db.HashTo(ctx, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	tree := object.NewTree([]*object.TreeEntry{
		{Name: "hello.txt", Size: int64(len(content)), Mode: filemode.Regular, Hash: blobOid},
	})
	treeOid, err := db.WriteEncoded(tree)
	require.NoError(t, err)

	got, err := db.Tree(ctx, treeOid)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "hello.txt", got.Entries[0].Name)
	assert.Equal(t, blobOid, got.Entries[0].Hash)

	// reading a tree as a commit must fail loudly
	_, err = db.Commit(ctx, treeOid)
	assert.True(t, IsErrMismatchedObjectType(err))
}

func TestObjectDispatch(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	content := "dispatch\n"
	blobOid, err := db.HashTo(ctx, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	a, err := db.Object(ctx, blobOid)
	require.NoError(t, err)
	br, ok := a.(*object.Blob)
	require.True(t, ok)
	defer br.Close() // nolint
	assert.Equal(t, blobOid, br.Hash)

	tree := object.NewTree([]*object.TreeEntry{
		{Name: "d.txt", Size: int64(len(content)), Mode: filemode.Regular, Hash: blobOid},
	})
	treeOid, err := db.WriteEncoded(tree)
	require.NoError(t, err)

	a, err = db.Object(ctx, treeOid)
	require.NoError(t, err)
	_, ok = a.(*object.Tree)
	assert.True(t, ok)
}

func TestCommitRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	when := time.Unix(1700000000, 0).UTC()
	cc := &object.Commit{
		Author:    object.Signature{Name: "a", Email: "a@example.com", When: when},
		Committer: object.Signature{Name: "c", Email: "c@example.com", When: when},
		Tree:      plumbing.NewHash("2222222222222222222222222222222222222222222222222222222222222222"),
		Message:   "first\n",
	}
	oid, err := db.WriteEncoded(cc)
	require.NoError(t, err)

	got, err := db.Commit(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, cc.Tree, got.Tree)
	assert.Equal(t, "first", got.Subject())
	assert.Equal(t, oid, got.Hash)
}

func TestParseRevExPeelsTags(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	when := time.Unix(1700000000, 0).UTC()
	cc := &object.Commit{
		Author:    object.Signature{Name: "a", Email: "a@example.com", When: when},
		Committer: object.Signature{Name: "a", Email: "a@example.com", When: when},
		Tree:      plumbing.NewHash("2222222222222222222222222222222222222222222222222222222222222222"),
		Message:   "tip\n",
	}
	commitOid, err := db.WriteEncoded(cc)
	require.NoError(t, err)

	tag := &object.Tag{
		Object:     commitOid,
		ObjectType: object.CommitObject,
		Name:       "v1.0.0",
		Tagger:     object.Signature{Name: "a", Email: "a@example.com", When: when},
		Content:    "release\n",
	}
	tagOid, err := db.WriteEncoded(tag)
	require.NoError(t, err)

	got, peeled, err := db.ParseRevEx(ctx, tagOid)
	require.NoError(t, err)
	assert.Equal(t, commitOid, got.Hash)
	assert.Equal(t, []plumbing.Hash{tagOid}, peeled)
}

func TestResolveUnique(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	content := "resolve me\n"
	oid, err := db.HashTo(ctx, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	got, err := db.ResolveUnique(oid.String()[:8])
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	// full names resolve too
	got, err = db.ResolveUnique(oid.String())
	require.NoError(t, err)
	assert.Equal(t, oid, got)
}

func TestResolveUniqueNotFound(t *testing.T) {
	db := newTestDatabase(t)

	_, err := db.ResolveUnique("deadbeef")
	assert.True(t, plumbing.IsNoSuchObject(err))

	// too short to even be searched
	_, err = db.ResolveUnique("ab")
	assert.True(t, plumbing.IsNoSuchObject(err))

	// not hex at all
	_, err = db.ResolveUnique("wxyz")
	assert.True(t, plumbing.IsNoSuchObject(err))
}

// collidingContents mines two contents whose object names share a 4 hex
// digit prefix, without touching the store.
func collidingContents() (string, string) {
	byPrefix := make(map[string]string)
	for i := 0; ; i++ {
		content := fmt.Sprintf("candidate %d\n", i)
		prefix := rawHash(content).String()[:4]
		if prev, ok := byPrefix[prefix]; ok {
			return prev, content
		}
		byPrefix[prefix] = content
	}
}

func TestResolveUniqueAmbiguous(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	c1, c2 := collidingContents()
	oid1, err := db.HashTo(ctx, strings.NewReader(c1), int64(len(c1)))
	require.NoError(t, err)
	oid2, err := db.HashTo(ctx, strings.NewReader(c2), int64(len(c2)))
	require.NoError(t, err)

	prefix := oid1.String()[:4]
	require.Equal(t, prefix, oid2.String()[:4])

	_, err = db.ResolveUnique(prefix)
	require.True(t, plumbing.IsErrAmbiguousObjectName(err))

	var ambiguous *plumbing.ErrAmbiguousObjectName
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, prefix, ambiguous.Prefix)
	require.Len(t, ambiguous.Candidates, 2)
	assert.Contains(t, err.Error(), oid1.Short())
	assert.Contains(t, err.Error(), oid2.Short())
}

func TestSearchPrefixReturnsAllSorted(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	c1, c2 := collidingContents()
	oid1, err := db.HashTo(ctx, strings.NewReader(c1), int64(len(c1)))
	require.NoError(t, err)
	oid2, err := db.HashTo(ctx, strings.NewReader(c2), int64(len(c2)))
	require.NoError(t, err)

	candidates, err := db.SearchPrefix(oid1.String()[:4])
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.True(t, bytes.Compare(candidates[0][:], candidates[1][:]) < 0)
	assert.Contains(t, candidates, oid1)
	assert.Contains(t, candidates, oid2)
}

func TestSearchPrefixRejectsBadPrefix(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	content := "indexed\n"
	_, err := db.HashTo(ctx, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	// shorter than the minimum abbreviation, not hex, or overlong: no
	// matches, never a crash
	for _, prefix := range []string{"", "a", "ab", "wxyz", strings.Repeat("a", 65)} {
		candidates, err := db.SearchPrefix(prefix)
		require.NoError(t, err, prefix)
		assert.Empty(t, candidates, prefix)
	}
}

func TestLRUSnapshotRebind(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, WithEnableLRU(true))

	content := "cached\n"
	blobOid, err := db.HashTo(ctx, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	tree := object.NewTree([]*object.TreeEntry{
		{Name: "c.txt", Size: int64(len(content)), Mode: filemode.Regular, Hash: blobOid},
	})
	treeOid, err := db.WriteEncoded(tree)
	require.NoError(t, err)

	first, err := db.Tree(ctx, treeOid)
	require.NoError(t, err)
	db.metaLRU.Wait()

	second, err := db.Tree(ctx, treeOid)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	// the cached copy must come back usable, bound to this database
	e, err := second.FindEntry(ctx, "c.txt")
	require.NoError(t, err)
	assert.Equal(t, blobOid, e.Hash)
}

func TestDatabaseCloseTwice(t *testing.T) {
	db, err := NewDatabase(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.Error(t, db.Close())
}
