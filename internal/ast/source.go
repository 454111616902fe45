package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Source is a decoded "start:length:fileindex" offset.
type Source struct {
	Start  int
	Length int
	File   int
}

// Position tracks location information for error reporting and tooling
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

// ParseSource decodes a solc src string.
func ParseSource(src string) (Source, error) {
	parts := strings.Split(src, ":")
	if len(parts) != 3 {
		return Source{}, fmt.Errorf("malformed src %q", src)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Source{}, fmt.Errorf("malformed src %q: %w", src, err)
		}
		vals[i] = v
	}
	return Source{Start: vals[0], Length: vals[1], File: vals[2]}, nil
}

func (s Source) String() string {
	return fmt.Sprintf("%d:%d:%d", s.Start, s.Length, s.File)
}

// IsZero reports whether the offset carries no information.
func (s Source) IsZero() bool {
	return s == Source{}
}

// SourceFile maps byte offsets of a source text to line/column positions.
type SourceFile struct {
	Path       string
	Text       string
	lineStarts []int
}

// NewSourceFile indexes text for offset lookups.
func NewSourceFile(path, text string) *SourceFile {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &SourceFile{Path: path, Text: text, lineStarts: starts}
}

// Position converts a byte offset into a 1-based line and column.
func (f *SourceFile) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.Text) {
		offset = len(f.Text)
	}
	line := sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > offset }) - 1
	return Position{
		Filename: f.Path,
		Offset:   offset,
		Line:     line + 1,
		Column:   offset - f.lineStarts[line] + 1,
	}
}

// Snippet returns the text covered by s, or "" when out of range.
func (f *SourceFile) Snippet(s Source) string {
	end := s.Start + s.Length
	if s.Start < 0 || end > len(f.Text) || s.Start > end {
		return ""
	}
	return f.Text[s.Start:end]
}
