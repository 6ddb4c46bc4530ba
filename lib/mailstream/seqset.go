package mailstream

import (
	"fmt"
	"strconv"
	"strings"
)

// Star stands for "*" (highest number) in unresolved sequence sets.
const Star = ^uint64(0)

type SeqRange struct {
	Lo, Hi uint64
}

// SeqSet is list of inclusive ranges.
type SeqSet []SeqRange

func parseSeqNum(s string) (uint64, error) {
	if s == "*" {
		return Star, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("bad sequence number %q", s)
	}
	return n, nil
}

// ParseSeqSet parses "n", "n:m", "*" and comma separated lists thereof.
func ParseSeqSet(s string) (SeqSet, error) {
	if s == "" {
		return nil, fmt.Errorf("empty sequence")
	}
	var ss SeqSet
	for _, p := range strings.Split(s, ",") {
		a, b := p, p
		if i := strings.IndexByte(p, ':'); i >= 0 {
			a, b = p[:i], p[i+1:]
		}
		lo, err := parseSeqNum(a)
		if err != nil {
			return nil, err
		}
		hi, err := parseSeqNum(b)
		if err != nil {
			return nil, err
		}
		ss = append(ss, SeqRange{Lo: lo, Hi: hi})
	}
	return ss, nil
}

// Resolve replaces Star with max and orders range ends.
func (ss SeqSet) Resolve(max uint64) SeqSet {
	r := make(SeqSet, len(ss))
	for i, x := range ss {
		if x.Lo == Star {
			x.Lo = max
		}
		if x.Hi == Star {
			x.Hi = max
		}
		if x.Lo > x.Hi {
			x.Lo, x.Hi = x.Hi, x.Lo
		}
		r[i] = x
	}
	return r
}

// Contains expects resolved set.
func (ss SeqSet) Contains(n uint64) bool {
	for _, x := range ss {
		if n >= x.Lo && n <= x.Hi {
			return true
		}
	}
	return false
}

func (ss SeqSet) String() string {
	var b strings.Builder
	f := func(n uint64) {
		if n == Star {
			b.WriteByte('*')
		} else {
			b.WriteString(strconv.FormatUint(n, 10))
		}
	}
	for i, x := range ss {
		if i != 0 {
			b.WriteByte(',')
		}
		f(x.Lo)
		if x.Hi != x.Lo {
			b.WriteByte(':')
			f(x.Hi)
		}
	}
	return b.String()
}
