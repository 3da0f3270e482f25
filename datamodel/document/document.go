// Package document defines the line-oriented document model.
package document

// Document is an ordered sequence of lines owned by a single user.
// It is mutated only by the merge engine; everyone else works on
// snapshots of Lines.
type Document struct {
	Lines []string
}

func New(lines []string) *Document {
	return &Document{Lines: lines}
}

// ExtendThrough pads the document with empty lines until line is a
// valid index.
func (d *Document) ExtendThrough(line int32) {
	for int32(len(d.Lines)) <= line {
		d.Lines = append(d.Lines, "")
	}
}

// ReplaceRange substitutes text for the half-open column range
// [startCol, endCol) of the given line. Both columns are clamped into
// [0, len(line)] first. The line must exist.
func (d *Document) ReplaceRange(line, startCol, endCol int32, text string) {
	base := d.Lines[line]
	sc := clamp(startCol, int32(len(base)))
	ec := clamp(endCol, int32(len(base)))
	d.Lines[line] = base[:sc] + text + base[ec:]
}

func clamp(v, max int32) int32 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
