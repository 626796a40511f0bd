// Package diferenco implements token sequence differencing. The default
// algorithm is histogram; an O(NP) comparison is used as fallback when the
// histogram search cannot find a usable common subsequence.
package diferenco

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Operation defines the operation of a diff item.
type Operation int8

const (
	// Delete item represents a delete hunk.
	Delete Operation = -1
	// Insert item represents an insert hunk.
	Insert Operation = 1
	// Equal item represents an equal hunk.
	Equal Operation = 0
)

type Algorithm int

const (
	Unspecified Algorithm = iota
	Histogram
	ONP
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupport algorithm")
)

var (
	algorithmValueMap = map[string]Algorithm{
		"histogram": Histogram,
		"onp":       ONP,
	}
	algorithmNameMap = map[Algorithm]string{
		Unspecified: "unspecified",
		Histogram:   "histogram",
		ONP:         "onp",
	}
)

func (a Algorithm) String() string {
	if n, ok := algorithmNameMap[a]; ok {
		return n
	}
	return "unspecified"
}

func AlgorithmFromName(s string) (Algorithm, error) {
	if a, ok := algorithmValueMap[strings.ToLower(s)]; ok {
		return a, nil
	}
	return Unspecified, fmt.Errorf("unsupport algorithm '%s' %w", s, ErrUnsupportedAlgorithm)
}

// commonPrefixLength returns the length of the common prefix of two slices.
func commonPrefixLength[E comparable](a, b []E) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// commonSuffixLength returns the length of the common suffix of two slices.
func commonSuffixLength[E comparable](a, b []E) int {
	i1, i2 := len(a), len(b)
	n := min(i1, i2)
	i := 0
	for i < n && a[i1-1-i] == b[i2-1-i] {
		i++
	}
	return i
}

// EditKind classifies a Change by which side carries tokens.
type EditKind int8

const (
	EditReplace EditKind = iota
	EditInsert
	EditDelete
)

func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditDelete:
		return "delete"
	}
	return "replace"
}

// Change is a single edit: Del tokens are removed from the before sequence at
// P1 and Ins tokens are inserted from the after sequence at P2.
type Change struct {
	P1  int // before: position in before
	P2  int // after: position in after
	Del int // number of elements that deleted from before
	Ins int // number of elements that inserted into after
}

func (c Change) Kind() EditKind {
	switch {
	case c.Del == 0:
		return EditInsert
	case c.Ins == 0:
		return EditDelete
	}
	return EditReplace
}

// EditList is an ordered edit script: applying every change in order
// transforms the before sequence into the after sequence.
type EditList []Change

type FileStat struct {
	Addition, Deletion, Hunks int
}

type Options struct {
	S1, S2 string
	R1, R2 io.Reader
	A      Algorithm // algorithm
}

func diffInternal[E comparable](ctx context.Context, L1, L2 []E, a Algorithm) ([]Change, error) {
	if a == Unspecified {
		a = Histogram
	}
	switch a {
	case Histogram:
		return HistogramDiff(ctx, L1, L2)
	case ONP:
		return OnpDiff(ctx, L1, L2)
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// Edits tokenizes both inputs into lines and returns the line level edit
// script. Line splitting is whitespace sensitive: lines keep their trailing
// newline byte, so texts differing only in line endings compare as different.
func Edits(ctx context.Context, opts *Options) (EditList, error) {
	sink := NewSink()
	a, err := sink.parseLines(opts.R1, opts.S1)
	if err != nil {
		return nil, err
	}
	b, err := sink.parseLines(opts.R2, opts.S2)
	if err != nil {
		return nil, err
	}
	return diffInternal(ctx, a, b, opts.A)
}

// Stat summarizes the edit script between the two inputs.
func Stat(ctx context.Context, opts *Options) (*FileStat, error) {
	changes, err := Edits(ctx, opts)
	if err != nil {
		return nil, err
	}
	stats := &FileStat{
		Hunks: len(changes),
	}
	for _, ch := range changes {
		stats.Addition += ch.Ins
		stats.Deletion += ch.Del
	}
	return stats, nil
}
