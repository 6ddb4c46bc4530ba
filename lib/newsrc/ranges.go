// Package newsrc keeps newsgroup subscription and read state.
package newsrc

import (
	"sort"
	"strconv"
	"strings"
)

type Range struct {
	Lo, Hi uint64
}

// Ranges is ascending list of disjoint, non-adjacent article ranges.
type Ranges []Range

// ParseRanges parses "1-10,15,20-22". Malformed elements are skipped.
func ParseRanges(s string) Ranges {
	var r Ranges
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		a, b, dash := strings.Cut(f, "-")
		lo, err := strconv.ParseUint(strings.TrimSpace(a), 10, 64)
		if err != nil {
			continue
		}
		hi := lo
		if dash {
			if hi, err = strconv.ParseUint(strings.TrimSpace(b), 10, 64); err != nil {
				continue
			}
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		r = r.AddRange(lo, hi)
	}
	return r
}

func (r Ranges) String() string {
	var b strings.Builder
	for i, x := range r {
		if i != 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(x.Lo, 10))
		if x.Hi != x.Lo {
			b.WriteByte('-')
			b.WriteString(strconv.FormatUint(x.Hi, 10))
		}
	}
	return b.String()
}

func (r Ranges) find(n uint64) int {
	return sort.Search(len(r), func(i int) bool { return r[i].Hi >= n })
}

func (r Ranges) Contains(n uint64) bool {
	i := r.find(n)
	return i < len(r) && r[i].Lo <= n
}

// Max returns highest listed number, 0 if none.
func (r Ranges) Max() uint64 {
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1].Hi
}

func (r Ranges) Add(n uint64) Ranges {
	return r.AddRange(n, n)
}

// AddRange merges lo-hi in, returning updated list.
func (r Ranges) AddRange(lo, hi uint64) Ranges {
	var out Ranges
	i := 0
	for ; i < len(r) && r[i].Hi+1 < lo; i++ {
		out = append(out, r[i])
	}
	for ; i < len(r) && r[i].Lo <= hi+1; i++ {
		if r[i].Lo < lo {
			lo = r[i].Lo
		}
		if r[i].Hi > hi {
			hi = r[i].Hi
		}
	}
	out = append(out, Range{lo, hi})
	return append(out, r[i:]...)
}

func (r Ranges) Remove(n uint64) Ranges {
	i := r.find(n)
	if i >= len(r) || r[i].Lo > n {
		return r
	}
	x := r[i]
	var mid Ranges
	if x.Lo < n {
		mid = append(mid, Range{x.Lo, n - 1})
	}
	if n < x.Hi {
		mid = append(mid, Range{n + 1, x.Hi})
	}
	out := append(Ranges(nil), r[:i]...)
	out = append(out, mid...)
	return append(out, r[i+1:]...)
}

// Entry is newsrc line of one group.
type Entry struct {
	Group      string
	Subscribed bool
	Read       Ranges
}

// Store persists entries per server host.
type Store interface {
	// Get returns entry of group; unknown group gives unsubscribed entry with nothing read.
	Get(host, group string) (Entry, error)
	Put(host string, e Entry) error
	List(host string) ([]Entry, error)
	Close() error
}

// Subscribe flips subscription of group, keeping its read state.
func Subscribe(st Store, host, group string, on bool) error {
	e, err := st.Get(host, group)
	if err != nil {
		return err
	}
	e.Subscribed = on
	return st.Put(host, e)
}
