// Package yenc writes yEnc encoded binaries for posting to newsgroups.
package yenc

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const lineLength = 128

// Encoder escapes written bytes and breaks them into CRLF terminated lines.
// Leading dots are escaped too, so output is safe inside dot-stuffed text.
type Encoder struct {
	buf  [lineLength + 4]byte
	bufi int
	w    io.Writer
	crc  uint32
	size int64
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) flush() error {
	nn, err := e.w.Write(e.buf[:e.bufi])
	if err == nil && nn != e.bufi {
		err = io.ErrShortWrite
	}
	if err != nil {
		if nn > 0 {
			copy(e.buf[:], e.buf[nn:e.bufi])
			e.bufi -= nn
		}
		return err
	}
	e.bufi = 0
	return nil
}

func (e *Encoder) Write(b []byte) (n int, err error) {
	for i, c := range b {
		if e.bufi >= lineLength {
			e.buf[e.bufi], e.buf[e.bufi+1] = '\r', '\n'
			e.bufi += 2
			if err = e.flush(); err != nil {
				return i, err
			}
		}
		c += 42
		if c == 0 || c == '\r' || c == '\n' || c == '=' ||
			(e.bufi == 0 && (c == '.' || c == '\t' || c == ' ')) {

			c += 64
			e.buf[e.bufi] = '='
			e.bufi++
		}
		e.buf[e.bufi] = c
		e.bufi++
	}
	e.crc = crc32.Update(e.crc, crc32.IEEETable, b)
	e.size += int64(len(b))
	return len(b), nil
}

// Close terminates last line. It does not close underlying writer.
func (e *Encoder) Close() error {
	if e.bufi == 0 {
		return nil
	}
	e.buf[e.bufi], e.buf[e.bufi+1] = '\r', '\n'
	e.bufi += 2
	return e.flush()
}

// Size returns count of bytes encoded so far.
func (e *Encoder) Size() int64 { return e.size }

// CRC32 returns checksum of bytes encoded so far.
func (e *Encoder) CRC32() uint32 { return e.crc }

var errBadName = errors.New("yenc: file name contains line break")

// EncodeFile writes single part yEnc block for data read from r,
// framed by =ybegin and =yend lines.
func EncodeFile(w io.Writer, name string, size int64, r io.Reader) error {
	for i := 0; i < len(name); i++ {
		if name[i] == '\r' || name[i] == '\n' {
			return errBadName
		}
	}
	if _, err := fmt.Fprintf(w, "=ybegin line=%d size=%d name=%s\r\n",
		lineLength, size, name); err != nil {
		return err
	}
	e := NewEncoder(w)
	if _, err := io.Copy(e, r); err != nil {
		return err
	}
	if err := e.Close(); err != nil {
		return err
	}
	if e.Size() != size {
		return fmt.Errorf("yenc: %s: size changed from %d to %d", name, size, e.Size())
	}
	_, err := fmt.Fprintf(w, "=yend size=%d crc32=%08x\r\n", e.Size(), e.CRC32())
	return err
}
