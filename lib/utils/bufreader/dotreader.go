package bufreader

import (
	"errors"
	"io"
)

var ErrLineTooLong = errors.New("dotreader: line too long")

// DotReader decodes dot-terminated text as used by NNTP multi-line replies.
// Leading dot of every line is removed; lone dot line ends the text.
// Line endings are normalised to LF. Bare CRs inside lines are passed
// through untouched so that callers can decide what to do with them.
type DotReader struct {
	r *BufReader
	s int
}

func NewDotReader(r *BufReader) *DotReader {
	return &DotReader{r: r}
}

const (
	sBeginLine = iota // begin of line
	sDot              // dot after begin of line
	sNonBegin         // after initial char of line
	sDotCR            // dot CR
	sCR               // non-dot CR
	sEOF              // after CRLF.CRLF
)

func (d *DotReader) Reset() {
	d.s = sBeginLine
}

func (d *DotReader) Done() bool {
	return d.s == sEOF
}

func (d *DotReader) process(c byte) (byte, bool) {
	switch d.s {
	case sBeginLine:
		if c == '.' {
			d.s = sDot
			return 0, false
		}
		if c == '\r' {
			d.s = sCR
			return 0, false
		}
		if c != '\n' {
			d.s = sNonBegin
		}

	case sDot:
		if c == '\r' {
			d.s = sDotCR
			return 0, false
		}
		if c == '\n' {
			// LF after dot, be permissive
			d.s = sEOF
			return 0, false
		}
		d.s = sNonBegin

	case sNonBegin:
		if c == '\r' {
			d.s = sCR
			return 0, false
		}
		if c == '\n' {
			d.s = sBeginLine
		}

	case sDotCR:
		if c == '\n' {
			d.s = sEOF
			return 0, false
		}
		// CR without LF
		d.r.UnreadByte(c)
		c = '\r'
		d.s = sNonBegin

	case sCR:
		if c == '\n' {
			d.s = sBeginLine
			break
		}
		d.r.UnreadByte(c)
		c = '\r'
		d.s = sNonBegin
	}
	return c, true
}

func (d *DotReader) ReadByte() (c byte, e error) {
	var v bool
	for d.s != sEOF {
		c, e = d.r.ReadByte()
		if e != nil {
			if e == io.EOF {
				e = io.ErrUnexpectedEOF
			}
			return
		}
		if c, v = d.process(c); v {
			return c, nil
		}
	}
	return 0, io.EOF
}

func (d *DotReader) Read(b []byte) (n int, e error) {
	for n < len(b) {
		var c byte
		c, e = d.ReadByte()
		if e != nil {
			return
		}
		b[n] = c
		n++
	}
	return
}

// ReadLine appends next line without its terminator to buf.
// Returns io.EOF once terminating dot line was consumed.
// Lines longer than max are consumed and reported as ErrLineTooLong.
func (d *DotReader) ReadLine(buf []byte, max int) ([]byte, error) {
	start := len(buf)
	for {
		c, e := d.ReadByte()
		if e != nil {
			if e == io.EOF && len(buf) > start {
				// unterminated last line, deliver it
				return buf, nil
			}
			return buf, e
		}
		if c == '\n' {
			return buf, nil
		}
		if max > 0 && len(buf)-start >= max {
			d.skipLine()
			return buf, ErrLineTooLong
		}
		buf = append(buf, c)
	}
}

func (d *DotReader) skipLine() {
	for {
		c, e := d.ReadByte()
		if e != nil || c == '\n' {
			return
		}
	}
}

// Discard eats rest of text including terminator.
func (d *DotReader) Discard() (n int, e error) {
	for {
		_, e = d.ReadByte()
		if e != nil {
			if e == io.EOF {
				e = nil
			}
			return
		}
		n++
	}
}
