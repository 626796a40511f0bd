package diferenco

import (
	"io"
	"strings"
)

// Sink interns lines as dense integer tokens so the diff kernels compare
// ints instead of strings. One Sink must be shared by both sides of a
// comparison so that equal lines intern to equal tokens.
type Sink struct {
	Lines []string
	Index map[string]int
}

func NewSink() *Sink {
	return &Sink{
		Lines: make([]string, 0, 200),
		Index: make(map[string]int),
	}
}

func (s *Sink) addLine(line string) int {
	if lineIndex, ok := s.Index[line]; ok {
		return lineIndex
	}
	index := len(s.Lines)
	s.Index[line] = index
	s.Lines = append(s.Lines, line)
	return index
}

// SplitLines tokenizes text into lines. Lines keep their terminating '\n',
// a final line without one is kept as is.
func (s *Sink) SplitLines(text string) []int {
	lines := make([]int, 0, 200)
	for pos := 0; pos < len(text); {
		part := text[pos:]
		newPos := strings.IndexByte(part, '\n')
		if newPos == -1 {
			lines = append(lines, s.addLine(part))
			break
		}
		lines = append(lines, s.addLine(part[:newPos+1]))
		pos += newPos + 1
	}
	return lines
}

func (s *Sink) parseLines(r io.Reader, text string) ([]int, error) {
	if r != nil {
		var b strings.Builder
		if _, err := io.Copy(&b, r); err != nil {
			return nil, err
		}
		return s.SplitLines(b.String()), nil
	}
	return s.SplitLines(text), nil
}

// WriteLine writes the lines backing the given tokens to w.
func (s *Sink) WriteLine(w io.Writer, E ...int) {
	for _, e := range E {
		_, _ = io.WriteString(w, s.Lines[e])
	}
}
