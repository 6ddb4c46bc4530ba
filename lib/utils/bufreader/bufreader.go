package bufreader

import (
	"bytes"
	"errors"
	"io"
)

var ErrDelimNotFound = errors.New("bufreader: delimiter not found")
var errInvalidUnread = errors.New("bufreader: invalid use of UnreadByte")

const defaultBufSize = 4096

type BufReader struct {
	u    io.Reader
	b    []byte
	w, r int
	err  error
}

func NewBufReader(u io.Reader) *BufReader {
	return &BufReader{u: u, b: make([]byte, defaultBufSize)}
}

func NewBufReaderSize(u io.Reader, s int) *BufReader {
	if s <= 0 {
		panic("size must be >0")
	}
	return &BufReader{u: u, b: make([]byte, s)}
}

func (r *BufReader) readErr() (err error) {
	err = r.err
	r.err = nil
	return
}

func (r *BufReader) fill() error {
	for r.r == r.w {
		if r.err != nil {
			return r.readErr()
		}
		n, err := r.u.Read(r.b)
		if n < 0 {
			panic("negative read")
		}
		r.r = 0
		r.w = n
		r.err = err
	}
	return nil
}

// implements io.Reader interface
func (r *BufReader) Read(p []byte) (n int, _ error) {
	if r.r == r.w && r.err == nil && len(p) >= len(r.b) {
		// direct read
		return r.u.Read(p)
	}
	if err := r.fill(); err != nil {
		return 0, err
	}
	n = copy(p, r.b[r.r:r.w])
	r.r += n
	return
}

func (r *BufReader) ReadByte() (byte, error) {
	if err := r.fill(); err != nil {
		return 0, err
	}
	c := r.b[r.r]
	r.r++
	return c, nil
}

func (r *BufReader) UnreadByte(c byte) error {
	if r.r != 0 {
		r.r--
		r.b[r.r] = c
		return nil
	}
	if r.w == 0 {
		r.w = 1
		r.b[0] = c
		return nil
	}
	return errInvalidUnread
}

// ReadUntil reads into buffer supplied in p parameter
// until byte supplied in q parameter is found.
// Filled buffer contains last byte specified as q.
// Returns number of bytes written into p, and error,
// either generic or in case q was not found and p was filled.
func (r *BufReader) ReadUntil(p []byte, q byte) (n int, _ error) {
	for {
		if err := r.fill(); err != nil {
			return n, err
		}
		x := r.w
		// clamp available source data to available destination space
		if r.w-r.r > len(p)-n {
			x = r.r + len(p) - n
		}
		if i := bytes.IndexByte(r.b[r.r:x], q); i >= 0 {
			c := copy(p[n:], r.b[r.r:r.r+i+1])
			n += c
			r.r += c
			return n, nil
		}
		c := copy(p[n:], r.b[r.r:x])
		n += c
		r.r += c
		if n >= len(p) {
			return n, ErrDelimNotFound
		}
	}
}

func (r *BufReader) Buffered() []byte {
	return r.b[r.r:r.w]
}

// Discard skips n bytes, or everything up to error if n is negative.
func (r *BufReader) Discard(n int) (s int, _ error) {
	for {
		if n >= 0 && r.w-r.r >= n {
			r.r += n
			s += n
			return s, nil
		}
		if n > 0 {
			n -= r.w - r.r
		}
		s += r.w - r.r
		r.r, r.w = 0, 0
		if err := r.fill(); err != nil {
			return s, err
		}
	}
}
