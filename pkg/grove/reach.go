// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package grove

import (
	"context"
	"errors"
	"io"

	"github.com/grove-scm/grove/modules/grove/object"
	"github.com/grove-scm/grove/modules/plumbing"
)

var (
	ErrNoRevisions = errors.New("no revisions given")
)

// BlobsUnder walks tree recursively and collects the object names of every
// leaf entry. Directory entries never appear in the result, gitlink entries
// do, they are opaque leaves of the tree they sit in.
func (r *Repository) BlobsUnder(ctx context.Context, tree *object.Tree) (map[plumbing.Hash]bool, error) {
	blobs := make(map[plumbing.Hash]bool)
	w := object.NewTreeWalker(tree, false, nil)
	defer w.Close()
	for {
		_, entry, err := w.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		blobs[entry.Hash] = true
	}
	return blobs, nil
}

// BlobsReachableFrom collects the blobs reachable from a single decoded
// object: a commit contributes its root tree, a tree itself, a blob just its
// own name, and a tag whatever its target contributes.
func (r *Repository) BlobsReachableFrom(ctx context.Context, a any) (map[plumbing.Hash]bool, error) {
	switch v := a.(type) {
	case *object.Commit:
		root, err := v.Root(ctx)
		if err != nil {
			return nil, err
		}
		return r.BlobsUnder(ctx, root)
	case *object.Tree:
		return r.BlobsUnder(ctx, v)
	case *object.Blob:
		defer v.Close() // nolint
		return map[plumbing.Hash]bool{v.Hash: true}, nil
	case *object.Tag:
		target, err := r.odb.Object(ctx, v.Object)
		if err != nil {
			return nil, err
		}
		return r.BlobsReachableFrom(ctx, target)
	}
	return nil, object.ErrUnsupportedObject
}

// BlobsReachable resolves every revision and unions the blobs reachable
// from each. At least one revision is required, and any revision that fails
// to resolve fails the whole call.
func (r *Repository) BlobsReachable(ctx context.Context, revs ...string) (map[plumbing.Hash]bool, error) {
	if len(revs) == 0 {
		return nil, ErrNoRevisions
	}
	blobs := make(map[plumbing.Hash]bool)
	for _, rev := range revs {
		a, err := r.RevisionObject(ctx, rev)
		if err != nil {
			return nil, err
		}
		part, err := r.BlobsReachableFrom(ctx, a)
		if err != nil {
			return nil, err
		}
		for oid := range part {
			blobs[oid] = true
		}
	}
	return blobs, nil
}
