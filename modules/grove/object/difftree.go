// Copyright 2018 Sourced Technologies, S.L.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrNoTrees is returned by DiffTrees when called without any tree:
	// the comparison has no identity element.
	ErrNoTrees = errors.New("diff requires at least one tree")
)

// DiffTrees compares one or more trees side by side and returns a Change
// for every path whose content is not identical across all of them. Paths
// present with the same mode and id in every tree are never reported.
// Each Change records the first tree's side as From and the last tree's
// side as To; intermediate trees only influence whether a path is
// reported. Changes come out in lexicographic path order.
//
// A single tree compared against itself, or alone, yields no changes.
func DiffTrees(ctx context.Context, trees ...*Tree) (Changes, error) {
	if len(trees) == 0 {
		return nil, ErrNoTrees
	}
	d := &treeDiffer{}
	if err := d.compare(ctx, "", trees); err != nil {
		return nil, err
	}
	return d.changes, nil
}

type treeDiffer struct {
	changes Changes
}

// compare walks one directory level across all sides in lockstep. A nil
// tree stands for a side where the directory does not exist.
func (d *treeDiffer) compare(ctx context.Context, base string, trees []*Tree) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for _, name := range mergedNames(trees) {
		sides := make([]*TreeEntry, len(trees))
		for i, t := range trees {
			if t == nil {
				continue
			}
			if e, err := t.Entry(name); err == nil {
				sides[i] = e
			}
		}
		if sidesIdentical(sides) {
			continue
		}

		path := simpleJoin(base, name)

		subtrees := make([]*Tree, len(trees))
		var hasDir bool
		for i, e := range sides {
			if e == nil || !e.IsDir() {
				continue
			}
			sub, err := resolveTree(ctx, trees[i].b, e.Hash)
			if err != nil {
				return err
			}
			subtrees[i] = sub
			hasDir = true
		}

		change := &Change{}
		if e := sides[0]; e != nil && !e.IsDir() {
			change.From = ChangeEntry{Name: path, Tree: trees[0], TreeEntry: *e}
		}
		if e := sides[len(sides)-1]; e != nil && !e.IsDir() {
			change.To = ChangeEntry{Name: path, Tree: trees[len(trees)-1], TreeEntry: *e}
		}
		if !change.From.Equal(&empty) || !change.To.Equal(&empty) {
			d.changes = append(d.changes, change)
		}

		if hasDir {
			if err := d.compare(ctx, path, subtrees); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergedNames returns the union of entry names across all sides, sorted.
func mergedNames(trees []*Tree) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, t := range trees {
		if t == nil {
			continue
		}
		for _, e := range t.Entries {
			if !seen[e.Name] {
				seen[e.Name] = true
				names = append(names, e.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// sidesIdentical reports whether every side carries the entry with the
// same mode and id. A missing side means the path differs.
func sidesIdentical(sides []*TreeEntry) bool {
	first := sides[0]
	if first == nil {
		return false
	}
	for _, e := range sides[1:] {
		if e == nil || !first.Equal(e) {
			return false
		}
	}
	return true
}
