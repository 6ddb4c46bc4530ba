package newsrc

import (
	"testing"
)

func TestParseRanges(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"", ""},
		{"1-5", "1-5"},
		{"1-5,7,6", "1-7"},
		{"10-12, 1-3 ,x,5", "1-3,5,10-12"},
		{"9-7", "7-9"},
		{"1-3,2-8,20", "1-8,20"},
	}
	for _, c := range cases {
		if got := ParseRanges(c.in).String(); got != c.out {
			t.Errorf("ParseRanges(%q) = %q, want %q", c.in, got, c.out)
		}
	}
}

func TestRangesEdit(t *testing.T) {
	r := ParseRanges("1-10")
	r = r.Remove(5)
	if r.String() != "1-4,6-10" {
		t.Errorf("remove middle: %s", r)
	}
	r = r.Remove(1).Remove(10).Remove(42)
	if r.String() != "2-4,6-9" {
		t.Errorf("remove ends: %s", r)
	}
	r = r.Add(5)
	if r.String() != "2-9" {
		t.Errorf("add joins: %s", r)
	}
	if !r.Contains(2) || !r.Contains(9) || r.Contains(1) || r.Contains(10) {
		t.Errorf("contains wrong for %s", r)
	}
	if r.Max() != 9 {
		t.Errorf("max %d", r.Max())
	}
	if Ranges(nil).Max() != 0 || Ranges(nil).Contains(0) {
		t.Error("empty ranges")
	}
}
