package hashtools

import (
	"io"
	"strings"
	"testing"
)

type zeroreader struct {
	n int64
}

var zbuf [65536]byte

func (r *zeroreader) Read(b []byte) (n int, e error) {
	if int64(len(b)) > r.n {
		b = b[:r.n]
	}
	n = copy(b, zbuf[:])
	r.n -= int64(n)
	if r.n == 0 {
		e = io.EOF
	}
	return
}

func TestParseHashType(t *testing.T) {
	tests := []struct {
		in  string
		exp HashType
		err bool
	}{
		{"sha2", SHA2_224, false},
		{"BLAKE2b", BLAKE2b_224, false},
		{"blake3", BLAKE3_224, false},
		{"md5", 0, true},
	}
	for _, tc := range tests {
		ht, err := ParseHashType(tc.in)
		if (err != nil) != tc.err || ht != tc.exp {
			t.Errorf("ParseHashType(%q) = %v, %v", tc.in, ht, err)
		}
	}
	if ht, err := ParseHashType("auto"); err != nil || ht == 0 {
		t.Errorf("auto pick failed: %v %v", ht, err)
	}
}

func TestMakeFileHash(t *testing.T) {
	for ht := SHA2_224; ht <= hashTypeMax; ht++ {
		h := NewHasher(ht)
		a, err := h.MakeFileHash(&zeroreader{100000})
		if err != nil {
			t.Fatalf("%v: %v", ht, err)
		}
		// pooled context must give same result
		b, err := h.MakeFileHash(&zeroreader{100000})
		if err != nil {
			t.Fatalf("%v: %v", ht, err)
		}
		if a != b {
			t.Errorf("%v: unstable hash %q != %q", ht, a, b)
		}
		c, _ := h.MakeFileHash(strings.NewReader("x"))
		if c == a {
			t.Errorf("%v: different content gave same hash", ht)
		}
		if len(a) < 40 || strings.Trim(a, "0123456789abcdefghijklmnopqrstuvwxyz") != "" {
			t.Errorf("%v: unexpected hash text %q", ht, a)
		}
	}
}
