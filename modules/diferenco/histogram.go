// Refer to https://github.com/pascalkuthe/imara-diff reimplemented in Golang.
package diferenco

import "context"

// https://arxiv.org/abs/1902.02467

// MaxChainLen bounds how often a token may repeat before the histogram
// search refuses to anchor a common subsequence on it.
const MaxChainLen = 63

type histogram[E comparable] struct {
	occurrences map[E][]int
}

func (h *histogram[E]) populate(before []E) {
	for i, e := range before {
		if p, ok := h.occurrences[e]; ok {
			h.occurrences[e] = append(p, i)
			continue
		}
		h.occurrences[e] = []int{i}
	}
}

func (h *histogram[E]) numOccurrences(e E) int {
	if p, ok := h.occurrences[e]; ok {
		return len(p)
	}
	return 0
}

func (h *histogram[E]) clear() {
	// runtime: clear() is slow for maps with big capacity and small number of items
	// https://github.com/golang/go/issues/70617
	h.occurrences = make(map[E][]int)
}

type lcsRegion struct {
	beforeStart int
	afterStart  int
	length      int
}

type lcsSearch[E comparable] struct {
	lcs            lcsRegion
	minOccurrences int
	foundCS        bool
}

func (s *lcsSearch[E]) run(before, after []E, h *histogram[E]) {
	pos := 0
	for pos < len(after) {
		e := after[pos]
		if num := h.numOccurrences(e); num != 0 {
			s.foundCS = true
			if num <= s.minOccurrences {
				pos = s.update(before, after, pos, e, h)
				continue
			}
		}
		pos++
	}
	h.clear()
}

func (s *lcsSearch[E]) update(before, after []E, afterPos int, token E, h *histogram[E]) int {
	nextTokenIndex2 := afterPos + 1
	occurrences := h.occurrences[token]
	tokenIndex1 := occurrences[0]
	pos := 1
occurrencesIter:
	for {
		chainLen := h.numOccurrences(token)
		s1, s2 := tokenIndex1, afterPos
		for {
			if s1 == 0 || s2 == 0 {
				break
			}
			t1, t2 := before[s1-1], after[s2-1]
			if t1 != t2 {
				break
			}
			s1--
			s2--
			chainLen = min(h.numOccurrences(t1), chainLen)
		}
		e1, e2 := tokenIndex1+1, afterPos+1
		for {
			if e1 >= len(before) || e2 >= len(after) {
				break
			}
			t1, t2 := before[e1], after[e2]
			if t1 != t2 {
				break
			}
			chainLen = min(chainLen, h.numOccurrences(t1))
			e1++
			e2++
		}
		if nextTokenIndex2 < e2 {
			nextTokenIndex2 = e2
		}
		length := e2 - s2
		if s.lcs.length < length || s.minOccurrences > chainLen {
			s.minOccurrences = chainLen
			s.lcs = lcsRegion{
				beforeStart: s1,
				afterStart:  s2,
				length:      length,
			}
		}
		for {
			if pos >= len(occurrences) {
				break occurrencesIter
			}
			nextTokenIndex := occurrences[pos]
			pos++
			if nextTokenIndex > e2 {
				tokenIndex1 = nextTokenIndex
				break
			}
		}
	}
	return nextTokenIndex2
}

func (s *lcsSearch[E]) ok() bool {
	return !s.foundCS || s.minOccurrences <= MaxChainLen
}

func findLcs[E comparable](before, after []E, index *histogram[E]) *lcsRegion {
	s := lcsSearch[E]{
		minOccurrences: MaxChainLen + 1,
	}
	s.run(before, after, index)
	if s.ok() {
		return &s.lcs
	}
	return nil
}

type changesOut struct {
	changes []Change
}

func (h *histogram[E]) run(ctx context.Context, before []E, beforePos int, after []E, afterPos int, o *changesOut) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if len(before) == 0 {
			if len(after) != 0 {
				o.changes = append(o.changes, Change{P1: beforePos, P2: afterPos, Ins: len(after)})
			}
			return nil
		}
		if len(after) == 0 {
			o.changes = append(o.changes, Change{P1: beforePos, P2: afterPos, Del: len(before)})
			return nil
		}
		h.populate(before)
		lcs := findLcs(before, after, h)
		if lcs == nil {
			// Too many repeated tokens, let the O(NP) kernel finish this span.
			changes, err := onpCompute(ctx, before, beforePos, after, afterPos)
			if err != nil {
				return err
			}
			o.changes = append(o.changes, changes...)
			return nil
		}
		if lcs.length == 0 {
			o.changes = append(o.changes, Change{P1: beforePos, P2: afterPos, Del: len(before), Ins: len(after)})
			return nil
		}
		if err := h.run(ctx, before[:lcs.beforeStart], beforePos, after[:lcs.afterStart], afterPos, o); err != nil {
			return err
		}
		e1 := lcs.beforeStart + lcs.length
		before = before[e1:]
		beforePos += e1
		e2 := lcs.afterStart + lcs.length
		after = after[e2:]
		afterPos += e2
	}
}

// HistogramDiff calculates the difference using the histogram algorithm
func HistogramDiff[E comparable](ctx context.Context, L1, L2 []E) ([]Change, error) {
	prefix := commonPrefixLength(L1, L2)
	L1 = L1[prefix:]
	L2 = L2[prefix:]
	suffix := commonSuffixLength(L1, L2)
	L1 = L1[:len(L1)-suffix]
	L2 = L2[:len(L2)-suffix]
	h := &histogram[E]{
		occurrences: make(map[E][]int, len(L1)),
	}
	o := &changesOut{changes: make([]Change, 0, 16)}
	if err := h.run(ctx, L1, prefix, L2, prefix, o); err != nil {
		return nil, err
	}
	return o.changes, nil
}
