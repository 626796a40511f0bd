package grove

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/grove-scm/grove/modules/grove/backend"
	"github.com/grove-scm/grove/modules/grove/object"
	"github.com/grove-scm/grove/modules/plumbing"
	"github.com/grove-scm/grove/modules/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	r      *Repository
	blobs  map[string]plumbing.Hash // content -> oid
	c1, c2 plumbing.Hash
	tag    plumbing.Hash
}

func writeBlob(t *testing.T, db *backend.Database, content string) plumbing.Hash {
	t.Helper()
	oid, err := db.HashTo(context.Background(), strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	return oid
}

func writeTree(t *testing.T, db *backend.Database, entries ...*object.TreeEntry) plumbing.Hash {
	t.Helper()
	oid, err := db.WriteEncoded(object.NewTree(entries))
	require.NoError(t, err)
	return oid
}

func writeCommit(t *testing.T, db *backend.Database, tree plumbing.Hash, parents []plumbing.Hash, message string, when time.Time) plumbing.Hash {
	t.Helper()
	sig := object.Signature{Name: "a", Email: "a@example.com", When: when}
	oid, err := db.WriteEncoded(&object.Commit{
		Tree:      tree,
		Parents:   parents,
		Author:    sig,
		Committer: sig,
		Message:   message,
	})
	require.NoError(t, err)
	return oid
}

// newFixture builds two commits plus an annotated tag:
//
//	c1: a.txt=b1, dir/b.txt=b2
//	c2 (parent c1): a.txt=b1, dir/b.txt=b3
//	tag v1 -> c2
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := backend.NewDatabase(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	blobs := make(map[string]plumbing.Hash)
	for _, content := range []string{"one\n", "two\n", "three\n"} {
		blobs[content] = writeBlob(t, db, content)
	}
	dir1 := writeTree(t, db, &object.TreeEntry{Name: "b.txt", Size: 4, Mode: filemode.Regular, Hash: blobs["two\n"]})
	tree1 := writeTree(t, db,
		&object.TreeEntry{Name: "a.txt", Size: 4, Mode: filemode.Regular, Hash: blobs["one\n"]},
		&object.TreeEntry{Name: "dir", Mode: filemode.Dir, Hash: dir1},
	)
	dir2 := writeTree(t, db, &object.TreeEntry{Name: "b.txt", Size: 6, Mode: filemode.Regular, Hash: blobs["three\n"]})
	tree2 := writeTree(t, db,
		&object.TreeEntry{Name: "a.txt", Size: 4, Mode: filemode.Regular, Hash: blobs["one\n"]},
		&object.TreeEntry{Name: "dir", Mode: filemode.Dir, Hash: dir2},
	)
	when := time.Unix(1700000000, 0).UTC()
	c1 := writeCommit(t, db, tree1, nil, "initial\n", when)
	c2 := writeCommit(t, db, tree2, []plumbing.Hash{c1}, "update b\n", when.Add(time.Hour))
	tag, err := db.WriteEncoded(&object.Tag{
		Object:     c2,
		ObjectType: object.CommitObject,
		Name:       "v1",
		Tagger:     object.Signature{Name: "a", Email: "a@example.com", When: when},
		Content:    "release v1\n",
	})
	require.NoError(t, err)

	refs := RefMap{"main": c2, "v1": tag}
	return &fixture{r: New(db, refs), blobs: blobs, c1: c1, c2: c2, tag: tag}
}

func TestRevisionRefName(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	oid, err := fx.r.Revision(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, fx.c2, oid)

	oid, err = fx.r.Revision(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, fx.tag, oid)
}

func TestRevisionFullHex(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	oid, err := fx.r.Revision(ctx, fx.c1.String())
	require.NoError(t, err)
	assert.Equal(t, fx.c1, oid)

	// full hex names still have to exist
	missing := strings.Repeat("f", 64)
	_, err = fx.r.Revision(ctx, missing)
	assert.True(t, plumbing.IsErrRevNotFound(err))
}

func TestRevisionAbbreviated(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	oid, err := fx.r.Revision(ctx, fx.c2.String()[:10])
	require.NoError(t, err)
	assert.Equal(t, fx.c2, oid)
}

func TestRevisionAncestor(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	oid, err := fx.r.Revision(ctx, "main~1")
	require.NoError(t, err)
	assert.Equal(t, fx.c1, oid)

	oid, err = fx.r.Revision(ctx, "main^")
	require.NoError(t, err)
	assert.Equal(t, fx.c1, oid)

	// tags peel before walking parents
	oid, err = fx.r.Revision(ctx, "v1~1")
	require.NoError(t, err)
	assert.Equal(t, fx.c1, oid)

	// walking past the root commit is an unknown revision, never a
	// silent zero id
	_, err = fx.r.Revision(ctx, "main~5")
	assert.True(t, plumbing.IsErrRevNotFound(err))
}

func TestRevisionUnknown(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.r.Revision(ctx, "no-such-branch")
	assert.True(t, plumbing.IsErrRevNotFound(err))
}

func TestRevisionAmbiguousPropagates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	db := fx.r.ODB()

	byPrefix := make(map[string]string)
	var prefix string
	for i := 0; ; i++ {
		content := fmt.Sprintf("candidate %d\n", i)
		h := plumbing.NewHasher()
		_, _ = h.Write([]byte(content))
		p := h.Sum().String()[:4]
		if prev, ok := byPrefix[p]; ok {
			writeBlob(t, db, prev)
			writeBlob(t, db, content)
			prefix = p
			break
		}
		byPrefix[p] = content
	}

	_, err := fx.r.Revision(ctx, prefix)
	assert.True(t, plumbing.IsErrAmbiguousObjectName(err))
}

func TestRevisionTree(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	root, err := fx.r.RevisionTree(ctx, "v1")
	require.NoError(t, err)
	e, err := root.FindEntry(ctx, "dir/b.txt")
	require.NoError(t, err)
	assert.Equal(t, fx.blobs["three\n"], e.Hash)
}

func TestHistory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	iter, err := fx.r.History(ctx, "main")
	require.NoError(t, err)
	defer iter.Close()

	var messages []string
	err = iter.ForEach(ctx, func(c *object.Commit) error {
		messages = append(messages, c.Message)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"update b\n", "initial\n"}, messages)
}

func TestHistoryPeelsTags(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	iter, err := fx.r.History(ctx, "v1")
	require.NoError(t, err)
	defer iter.Close()

	first, err := iter.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, fx.c2, first.Hash)
}

func TestIsAncestor(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	ok, err := fx.r.IsAncestor(ctx, fx.c1.String(), "main")
	require.NoError(t, err)
	assert.True(t, ok)

	// reachability is directional
	ok, err = fx.r.IsAncestor(ctx, "main", fx.c1.String())
	require.NoError(t, err)
	assert.False(t, ok)

	// every commit reaches itself
	ok, err = fx.r.IsAncestor(ctx, "main", "v1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBlobsUnder(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	root, err := fx.r.RevisionTree(ctx, "main")
	require.NoError(t, err)
	blobs, err := fx.r.BlobsUnder(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, map[plumbing.Hash]bool{
		fx.blobs["one\n"]:   true,
		fx.blobs["three\n"]: true,
	}, blobs)
}

func TestBlobsReachableSingleton(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	oid := fx.blobs["two\n"]
	blobs, err := fx.r.BlobsReachable(ctx, oid.String())
	require.NoError(t, err)
	assert.Equal(t, map[plumbing.Hash]bool{oid: true}, blobs)
}

func TestBlobsReachableTagPeels(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fromTag, err := fx.r.BlobsReachable(ctx, "v1")
	require.NoError(t, err)
	fromCommit, err := fx.r.BlobsReachable(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, fromCommit, fromTag)
}

func TestBlobsReachableUnion(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	both, err := fx.r.BlobsReachable(ctx, fx.c1.String(), fx.c2.String())
	require.NoError(t, err)

	first, err := fx.r.BlobsReachable(ctx, fx.c1.String())
	require.NoError(t, err)
	second, err := fx.r.BlobsReachable(ctx, fx.c2.String())
	require.NoError(t, err)
	union := make(map[plumbing.Hash]bool)
	for oid := range first {
		union[oid] = true
	}
	for oid := range second {
		union[oid] = true
	}
	assert.Equal(t, union, both)
	assert.Equal(t, map[plumbing.Hash]bool{
		fx.blobs["one\n"]:   true,
		fx.blobs["two\n"]:   true,
		fx.blobs["three\n"]: true,
	}, both)
}

func TestBlobsReachableNoRevisions(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.r.BlobsReachable(context.Background())
	assert.ErrorIs(t, err, ErrNoRevisions)
}

func TestBlobsReachableFailsFast(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.r.BlobsReachable(context.Background(), "main", "no-such-branch")
	assert.True(t, plumbing.IsErrRevNotFound(err))
}
