// Copyright 2018 Sourced Technologies, S.L.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/grove-scm/grove/modules/diferenco"
	"github.com/grove-scm/grove/modules/plumbing"
)

// MAX_DIFF_SIZE is the largest blob the edit-script machinery will read.
// Bigger blobs keep their Change record but never get an EditList.
const MAX_DIFF_SIZE = 100 << 20

// Action is the kind of change a node suffered.
type Action int8

const (
	Insert Action = iota + 1
	Delete
	Modify
)

func (a Action) String() string {
	switch a {
	case Insert:
		return "Insert"
	case Delete:
		return "Delete"
	case Modify:
		return "Modify"
	default:
		panic(fmt.Sprintf("unsupported action: %d", a))
	}
}

// DiffSide selects one side of a Change.
type DiffSide int

const (
	SideOld DiffSide = iota
	SideNew
)

// Change values represent a detected change between two trees. For
// modifications, From is the original status of the node and To is its
// final status. For insertions, From is the zero value and for
// deletions To is the zero value.
type Change struct {
	From ChangeEntry
	To   ChangeEntry
}

var (
	empty              ChangeEntry
	ErrMalformedChange = errors.New("malformed change: empty from and to")
)

func (c *Change) Name() string {
	return c.name()
}

// Side returns the entry for the requested side.
func (c *Change) Side(side DiffSide) *ChangeEntry {
	if side == SideOld {
		return &c.From
	}
	return &c.To
}

// Action returns the kind of action represented by the change, an
// insertion, a deletion or a modification.
func (c *Change) Action() (Action, error) {
	if c.From.Equal(&empty) && c.To.Equal(&empty) {
		return Action(0), ErrMalformedChange
	}

	if c.From.Equal(&empty) {
		return Insert, nil
	}

	if c.To.Equal(&empty) {
		return Delete, nil
	}

	return Modify, nil
}

// Files returns the files before and after a change.
// For insertions from will be nil. For deletions to will be nil.
func (c *Change) Files() (from, to *File, err error) {
	action, err := c.Action()
	if err != nil {
		return
	}

	if action == Insert || action == Modify {
		if c.To.TreeEntry.Mode.IsFile() {
			e := &c.To.TreeEntry
			to = newFile(e.Name, c.To.Name, e.Mode, e.Hash, e.Size, c.To.Tree.b)
		}
	}

	if action == Delete || action == Modify {
		if c.From.TreeEntry.Mode.IsFile() {
			e := &c.From.TreeEntry
			from = newFile(e.Name, c.From.Name, e.Mode, e.Hash, e.Size, c.From.Tree.b)
		}
	}
	return
}

func (c *Change) String() string {
	action, err := c.Action()
	if err != nil {
		return "malformed change"
	}

	return fmt.Sprintf("<Action: %s, Path: %s>", action, c.name())
}

func (c *Change) name() string {
	if !c.From.Equal(&empty) {
		return c.From.Name
	}

	return c.To.Name
}

// BothSidesDiffable reports whether a line-level edit script can even be
// attempted for this change: both sides must carry a real object id whose
// mode resolves to a blob.
func (c *Change) BothSidesDiffable() bool {
	return c.From.IsDiffableType() && c.To.IsDiffableType()
}

// EditList computes the line-range edit script between the two sides of the
// change. It returns (nil, nil) when no edit script is available: a side is
// not a diffable blob, a side is oversized or missing from the store, or
// either side's content looks binary. The comparison is whitespace
// sensitive, lines compare byte for byte.
func (c *Change) EditList(ctx context.Context) (diferenco.EditList, error) {
	if !c.BothSidesDiffable() {
		return nil, nil
	}
	if c.From.TreeEntry.Size > MAX_DIFF_SIZE || c.To.TreeEntry.Size > MAX_DIFF_SIZE {
		return nil, nil
	}
	fromContent, ok, err := c.From.readText(ctx)
	if err != nil || !ok {
		return nil, err
	}
	toContent, ok, err := c.To.readText(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return diferenco.Edits(ctx, &diferenco.Options{
		S1: fromContent,
		S2: toContent,
		A:  diferenco.Histogram,
	})
}

// Stat summarizes the change's edit script as added and deleted line counts.
func (c *Change) Stat(ctx context.Context) (diferenco.FileStat, error) {
	edits, err := c.EditList(ctx)
	if err != nil {
		return diferenco.FileStat{}, err
	}
	var stat diferenco.FileStat
	for _, e := range edits {
		stat.Addition += e.Ins
		stat.Deletion += e.Del
		stat.Hunks++
	}
	return stat, nil
}

// ChangeEntry values represent a node that has suffered a change.
type ChangeEntry struct {
	// Full path of the node using "/" as separator.
	Name string
	// Parent tree of the node that has changed.
	Tree *Tree
	// The entry of the node.
	TreeEntry TreeEntry
}

func (e *ChangeEntry) Equal(o *ChangeEntry) bool {
	return e.Name == o.Name && e.Tree.Equal(o.Tree) && e.TreeEntry.Equal(&o.TreeEntry)
}

// IsDiffableType reports whether this side of a change points at content a
// line diff can apply to: the id must be non-zero and the mode's object
// type must be blob. Trees and gitlinks are excluded by the type check; a
// gitlink id names a commit in a foreign repository, not readable content.
func (e *ChangeEntry) IsDiffableType() bool {
	if e.Equal(&empty) || e.TreeEntry.Hash.IsZero() {
		return false
	}
	return e.TreeEntry.Type() == BlobObject
}

// readText opens this side's blob and slurps it when it is text. ok is
// false when the content must be skipped: missing from the store, or binary.
func (e *ChangeEntry) readText(ctx context.Context) (content string, ok bool, err error) {
	f := newFile(e.TreeEntry.Name, e.Name, e.TreeEntry.Mode, e.TreeEntry.Hash, e.TreeEntry.Size, e.Tree.b)
	r, bin, err := f.Reader(ctx)
	if plumbing.IsNoSuchObject(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer r.Close() // nolint
	if bin {
		return "", false, nil
	}
	var b strings.Builder
	if _, err := io.Copy(&b, r); err != nil {
		return "", false, err
	}
	return b.String(), true, nil
}

// Changes represents a collection of changes between trees.
// Implements sort.Interface lexicographically over the path of the
// changed files.
type Changes []*Change

func (c Changes) Len() int {
	return len(c)
}

func (c Changes) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}

func (c Changes) Less(i, j int) bool {
	return strings.Compare(c[i].name(), c[j].name()) < 0
}

func (c Changes) String() string {
	var buffer bytes.Buffer
	buffer.WriteString("[")
	comma := ""
	for _, v := range c {
		buffer.WriteString(comma)
		buffer.WriteString(v.String())
		comma = ", "
	}
	buffer.WriteString("]")

	return buffer.String()
}
