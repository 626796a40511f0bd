// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package grove

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grove-scm/grove/modules/grove/backend"
	"github.com/grove-scm/grove/modules/grove/object"
	"github.com/grove-scm/grove/modules/plumbing"
)

// RefResolver maps symbolic names, branches and tags, to object names.
// Repository consults it before falling back to abbreviated object name
// resolution.
type RefResolver interface {
	Resolve(name string) (plumbing.Hash, error)
}

// RefMap is an in-memory RefResolver.
type RefMap map[string]plumbing.Hash

func (m RefMap) Resolve(name string) (plumbing.Hash, error) {
	if oid, ok := m[name]; ok {
		return oid, nil
	}
	return plumbing.ZeroHash, plumbing.NoSuchObjectName(name)
}

type Repository struct {
	odb  *backend.Database
	refs RefResolver
}

// New wires a repository over an object database and a reference resolver.
// refs may be nil, revisions then resolve through object names only.
func New(odb *backend.Database, refs RefResolver) *Repository {
	return &Repository{odb: odb, refs: refs}
}

// Open opens the object database rooted at root.
func Open(root string, refs RefResolver, opts ...backend.Option) (*Repository, error) {
	odb, err := backend.NewDatabase(root, opts...)
	if err != nil {
		return nil, err
	}
	return &Repository{odb: odb, refs: refs}, nil
}

func (r *Repository) ODB() *backend.Database {
	return r.odb
}

func (r *Repository) Close() error {
	return r.odb.Close()
}

// resolveAncestor splits the trailing ancestry selectors off a revision:
// rev~N walks N first parents, rev^^ walks one per caret.
func resolveAncestor(revision string) (string, int, error) {
	if pos := strings.IndexByte(revision, '~'); pos != -1 {
		ns := revision[pos+1:]
		if len(ns) == 0 {
			return revision[0:pos], 1, nil
		}
		num, err := strconv.Atoi(ns)
		if err != nil {
			return "", 0, fmt.Errorf("not a valid object name %s", revision)
		}
		return revision[0:pos], num, nil
	}
	if pos := strings.IndexByte(revision, '^'); pos != -1 {
		for _, c := range revision[pos:] {
			if c != '^' {
				return "", 0, fmt.Errorf("not a valid object name %s", revision)
			}
		}
		return revision[0:pos], len(revision) - pos, nil
	}
	return revision, 0, nil
}

// PickAncestor follows the first parent chain n commits back from oid,
// peeling tags along the way. Running off the root is an ErrRevNotFound.
func (r *Repository) PickAncestor(ctx context.Context, oid plumbing.Hash, n int) (plumbing.Hash, error) {
	cur := oid
	for i := 0; i < n; i++ {
		cc, _, err := r.odb.ParseRevEx(ctx, cur)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		parent, err := cc.MakeParents().Next(ctx)
		if err != nil {
			if err == io.EOF {
				return plumbing.ZeroHash, plumbing.NewErrRevNotFound("revision %s has no first parent %d generations back", oid.Short(), n)
			}
			return plumbing.ZeroHash, err
		}
		cur = parent.Hash
	}
	return cur, nil
}

func (r *Repository) resolveRevision(ctx context.Context, revision string) (plumbing.Hash, error) {
	select {
	case <-ctx.Done():
		return plumbing.ZeroHash, ctx.Err()
	default:
	}
	if oid, err := plumbing.NewHashEx(revision); err == nil {
		// a full hex name is still checked against the store
		if err := r.odb.Exists(oid); err != nil {
			return plumbing.ZeroHash, plumbing.NewErrRevNotFound("unknown revision '%s'", revision)
		}
		return oid, nil
	}
	if r.refs != nil {
		if oid, err := r.refs.Resolve(revision); err == nil {
			return oid, nil
		}
	}
	oid, err := r.odb.ResolveUnique(revision)
	if plumbing.IsNoSuchObject(err) {
		return plumbing.ZeroHash, plumbing.NewErrRevNotFound("unknown revision '%s'", revision)
	}
	return oid, err
}

// Revision resolves a revision expression to an object name.
//
//	https://git-scm.com/book/en/v2/Git-Tools-Revision-Selection
//	Combination mode and second parent selection are not supported.
//
// eg: BRANCH or TAG, Long-OID, Short-OID, rev~2, rev^^
func (r *Repository) Revision(ctx context.Context, branchOrTag string) (plumbing.Hash, error) {
	revision, ancestor, err := resolveAncestor(branchOrTag)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	oid, err := r.resolveRevision(ctx, revision)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if ancestor == 0 {
		return oid, nil
	}
	return r.PickAncestor(ctx, oid, ancestor)
}

// History returns an iterator over the commits reachable from the given
// revision, ordered by committer time, newest first. The caller owns the
// iterator and must Close it.
func (r *Repository) History(ctx context.Context, branchOrTag string) (object.CommitIter, error) {
	oid, err := r.Revision(ctx, branchOrTag)
	if err != nil {
		return nil, err
	}
	cc, _, err := r.odb.ParseRevEx(ctx, oid)
	if err != nil {
		return nil, err
	}
	return object.NewCommitIterCTime(cc, nil, nil), nil
}

// IsAncestor reports whether the commit named by ancestor is reachable
// from the commit named by descendant, through any parent, not only the
// first. A commit is an ancestor of itself.
func (r *Repository) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	ancestorOid, err := r.Revision(ctx, ancestor)
	if err != nil {
		return false, err
	}
	cc, _, err := r.odb.ParseRevEx(ctx, ancestorOid)
	if err != nil {
		return false, err
	}
	ancestorOid = cc.Hash
	descendantOid, err := r.Revision(ctx, descendant)
	if err != nil {
		return false, err
	}
	if cc, _, err = r.odb.ParseRevEx(ctx, descendantOid); err != nil {
		return false, err
	}
	var found bool
	err = object.NewCommitPreorderIter(cc, nil, nil).ForEach(ctx, func(c *object.Commit) error {
		if c.Hash == ancestorOid {
			found = true
			return plumbing.ErrStop
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// RevisionObject resolves a revision expression and opens the object it
// names.
func (r *Repository) RevisionObject(ctx context.Context, branchOrTag string) (any, error) {
	oid, err := r.Revision(ctx, branchOrTag)
	if err != nil {
		return nil, err
	}
	return r.odb.Object(ctx, oid)
}

// RevisionTree resolves a revision expression down to the root tree of the
// commit it names.
func (r *Repository) RevisionTree(ctx context.Context, branchOrTag string) (*object.Tree, error) {
	oid, err := r.Revision(ctx, branchOrTag)
	if err != nil {
		return nil, err
	}
	cc, _, err := r.odb.ParseRevEx(ctx, oid)
	if err != nil {
		return nil, err
	}
	return cc.Root(ctx)
}
