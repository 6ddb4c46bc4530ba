package nntp

import "io"

// DotStuffer doubles leading dot of every line written through it.
// Writes may split lines anywhere.
type DotStuffer struct {
	w   io.Writer
	mid bool // not at beginning of line
}

func NewDotStuffer(w io.Writer) *DotStuffer {
	return &DotStuffer{w: w}
}

var dotb = []byte{'.'}

func (d *DotStuffer) Write(p []byte) (n int, err error) {
	s := 0
	for i, c := range p {
		if !d.mid && c == '.' {
			// flush segment before dot, then extra dot
			if i > s {
				if _, err = d.w.Write(p[s:i]); err != nil {
					return s, err
				}
			}
			if _, err = d.w.Write(dotb); err != nil {
				return i, err
			}
			s = i
		}
		d.mid = c != '\n'
	}
	if s < len(p) {
		if _, err = d.w.Write(p[s:]); err != nil {
			return s, err
		}
	}
	return len(p), nil
}

// AtLineStart reports whether last written byte ended line.
func (d *DotStuffer) AtLineStart() bool {
	return !d.mid
}
