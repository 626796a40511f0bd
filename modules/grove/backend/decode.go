// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/grove-scm/grove/modules/grove/object"
	"github.com/grove-scm/grove/modules/plumbing"
	"github.com/sirupsen/logrus"
)

var (
	ErrUncacheableObject = errors.New("uncacheable object")
)

func (d *Database) store(a any) error {
	if !d.enableLRU {
		return nil
	}
	switch v := a.(type) {
	case *object.Commit:
		// don't save backend
		_ = d.metaLRU.Set(v.Hash.String(), object.NewSnapshotCommit(v, nil), 1)
	case *object.Tree:
		// don't save backend
		_ = d.metaLRU.Set(v.Hash.String(), object.NewSnapshotTree(v, nil), 1)
	case *object.Tag:
		_ = d.metaLRU.Set(v.Hash.String(), v, 1)
	default:
		return ErrUncacheableObject
	}
	return nil
}

func (d *Database) fromCache(oid plumbing.Hash) (any, error) {
	a, ok := d.metaLRU.Get(oid.String())
	if !ok {
		return nil, os.ErrNotExist
	}
	switch v := a.(type) {
	case *object.Commit:
		return object.NewSnapshotCommit(v, d.backend), nil
	case *object.Tree:
		return object.NewSnapshotTree(v, d.backend), nil
	case *object.Tag:
		return v, nil
	default:
	}
	return nil, ErrUncacheableObject
}

func (d *Database) Exists(oid plumbing.Hash) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ro.Exists(oid)
}

type readCloser struct {
	io.Reader
	closeFn func() error
}

func (r *readCloser) Close() error {
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

// Object finds an object and decodes it against the database's backend.
// Blobs come back as *object.Blob with streaming contents, the caller owns
// the Close. Metadata objects are fully decoded (and cached) before return.
func (d *Database) Object(_ context.Context, oid plumbing.Hash) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.enableLRU {
		if a, err := d.fromCache(oid); err == nil {
			return a, nil
		}
	}
	rc, err := d.ro.Open(oid)
	if err != nil {
		return nil, err
	}
	var magic [4]byte
	if _, err := io.ReadFull(rc, magic[:]); err != nil {
		_ = rc.Close()
		return nil, err
	}
	reader := io.MultiReader(bytes.NewReader(magic[:]), rc)
	if bytes.Equal(magic[:], object.BLOB_MAGIC[:]) {
		blob, err := object.NewBlob(&readCloser{Reader: reader, closeFn: rc.Close})
		if err != nil {
			_ = rc.Close()
			return nil, err
		}
		blob.Hash = oid
		return blob, nil
	}
	defer rc.Close() // nolint
	a, err := object.Decode(reader, oid, d.backend)
	if err == nil {
		_ = d.store(a)
	}
	return a, err
}

func (d *Database) Commit(ctx context.Context, oid plumbing.Hash) (*object.Commit, error) {
	a, err := d.Object(ctx, oid)
	if err != nil {
		return nil, err
	}
	if c, ok := a.(*object.Commit); ok {
		return c, nil
	}
	return nil, NewErrMismatchedObjectType(oid, "commit")
}

func (d *Database) Tree(ctx context.Context, oid plumbing.Hash) (*object.Tree, error) {
	a, err := d.Object(ctx, oid)
	if err != nil {
		return nil, err
	}
	if t, ok := a.(*object.Tree); ok {
		return t, nil
	}
	return nil, NewErrMismatchedObjectType(oid, "tree")
}

func (d *Database) Tag(ctx context.Context, oid plumbing.Hash) (*object.Tag, error) {
	a, err := d.Object(ctx, oid)
	if err != nil {
		return nil, err
	}
	if t, ok := a.(*object.Tag); ok {
		return t, nil
	}
	return nil, NewErrMismatchedObjectType(oid, "tag")
}

func (d *Database) Blob(_ context.Context, oid plumbing.Hash) (blob *object.Blob, err error) {
	if oid == plumbing.BLANK_BLOB_HASH {
		return &object.Blob{Hash: oid, Contents: strings.NewReader("")}, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var rc io.ReadCloser
	if rc, err = d.ro.Open(oid); err != nil {
		return nil, err
	}
	if blob, err = object.NewBlob(rc); err != nil {
		_ = rc.Close()
		return nil, err
	}
	blob.Hash = oid
	return blob, nil
}

// ParseRevEx peels oid until it reaches a commit, following tag objects
// transitively up to a fixed chain bound. It returns the commit plus the
// tag object names it passed through.
func (d *Database) ParseRevEx(ctx context.Context, oid plumbing.Hash) (*object.Commit, []plumbing.Hash, error) {
	objects := make([]plumbing.Hash, 0, 2)
	for i := 0; i < 10; i++ {
		a, err := d.Object(ctx, oid)
		if err != nil {
			return nil, nil, err
		}
		if c, ok := a.(*object.Commit); ok {
			return c, objects, nil
		}
		t, ok := a.(*object.Tag)
		if !ok {
			return nil, nil, NewErrMismatchedObjectType(oid, "tag")
		}
		objects = append(objects, oid)
		if t.ObjectType != object.CommitObject && t.ObjectType != object.TagObject {
			return nil, nil, NewErrMismatchedObjectType(oid, "commit")
		}
		oid = t.Object
	}
	return nil, nil, NewErrMismatchedObjectType(oid, "commit")
}

// SearchPrefix returns every stored object name beginning with prefix.
func (d *Database) SearchPrefix(prefix string) ([]plumbing.Hash, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ro.SearchPrefix(prefix)
}

// ResolveUnique resolves an abbreviated hex object name to the single
// object it names. It fails with plumbing.ErrAmbiguousObjectName when the
// prefix matches more than one object, listing every candidate, and with a
// no-such-object error when nothing matches. A uniquely resolved name is
// rechecked against the store before being returned, a stale index entry
// must not leak out as a valid id.
func (d *Database) ResolveUnique(prefix string) (plumbing.Hash, error) {
	if !plumbing.ValidateHashPrefix(prefix) {
		return plumbing.ZeroHash, plumbing.NoSuchObjectName(prefix)
	}
	candidates, err := d.SearchPrefix(prefix)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	switch len(candidates) {
	case 0:
		return plumbing.ZeroHash, plumbing.NoSuchObjectName(prefix)
	case 1:
	default:
		logrus.Debugf("odb: prefix '%s' matches %d objects", prefix, len(candidates))
		return plumbing.ZeroHash, plumbing.NewErrAmbiguousObjectName(prefix, candidates)
	}
	oid := candidates[0]
	if err := d.Exists(oid); err != nil {
		return plumbing.ZeroHash, err
	}
	return oid, nil
}
