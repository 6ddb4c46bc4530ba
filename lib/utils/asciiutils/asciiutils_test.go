package asciiutils

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		a, b string
		eq   bool
		pfx  bool
	}{
		{"Newsgroups", "newsgroups", true, true},
		{"Newsgroups:", "newsgroups", false, true},
		{"news", "newsgroups", false, false},
		{"abc", "abd", false, false},
	}
	for i, tc := range tests {
		if r := EqualFoldString(tc.a, tc.b); r != tc.eq {
			t.Errorf("%d: EqualFoldString(%q, %q) = %v", i, tc.a, tc.b, r)
		}
		if r := StartsWithFoldString(tc.a, tc.b); r != tc.pfx {
			t.Errorf("%d: StartsWithFoldString(%q, %q) = %v", i, tc.a, tc.b, r)
		}
	}
}

func TestStripCRLF(t *testing.T) {
	tests := []struct{ in, out string }{
		{"", ""},
		{"abc", "abc"},
		{"a\rb\nc", "abc"},
		{"\r\n", ""},
	}
	for _, tc := range tests {
		if r := string(StripCRLF([]byte(tc.in))); r != tc.out {
			t.Errorf("StripCRLF(%q) = %q, want %q", tc.in, r, tc.out)
		}
	}
}

func TestIterateFields(t *testing.T) {
	var got []string
	n := IterateFields("  211 5\t100 105 misc.test ", func(s string) { got = append(got, s) })
	if n != 5 || got[4] != "misc.test" || got[1] != "5" {
		t.Errorf("unexpected fields %d %q", n, got)
	}
	if ParseUint("123abc") != 123 || ParseUint("x") != 0 {
		t.Error("ParseUint mismatch")
	}
}
