package asciiutils

import "strconv"

// EqualFoldString is basically strcasecmp.
func EqualFoldString(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return StartsWithFoldString(a, b)
}

// StartsWithFoldString checks if b starts with s in case-insensitive way.
func StartsWithFoldString(b, s string) bool {
	if len(b) < len(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		ac, bc := b[i], s[i]
		if ac == bc {
			continue
		}
		if ac > bc {
			// ensure ac < bc
			ac, bc = bc, ac
		}
		if ac >= 'A' && ac <= 'Z' && ac+'a'-'A' == bc {
			continue
		}
		return false
	}
	return true
}

func UntilString(s string, c byte) string {
	i := 0
	for ; i < len(s) && s[i] != c; i++ {
	}
	return s[:i]
}

// IterateFields calls f for every space or tab separated field of s.
func IterateFields(s string, f func(string)) (n int) {
	i := 0
	for {
		for ; i < len(s) && (s[i] == ' ' || s[i] == '\t'); i++ {
		}
		if i >= len(s) {
			return
		}
		is := i
		for ; i < len(s) && s[i] != ' ' && s[i] != '\t'; i++ {
		}
		f(s[is:i])
		n++
	}
}

func TrimWSString(b string) string {
	x, y := 0, len(b)
	for x != len(b) && (b[x] == ' ' || b[x] == '\t') {
		x++
	}
	for y != x && (b[y-1] == ' ' || b[y-1] == '\t') {
		y--
	}
	return b[x:y]
}

func TrimWSBytes(b []byte) []byte {
	x, y := 0, len(b)
	for x != len(b) && (b[x] == ' ' || b[x] == '\t') {
		x++
	}
	for y != x && (b[y-1] == ' ' || b[y-1] == '\t') {
		y--
	}
	return b[x:y]
}

// StripCRLF removes every CR and LF byte. Returns b unchanged if none present.
func StripCRLF(b []byte) []byte {
	i := 0
	for ; i < len(b) && b[i] != '\r' && b[i] != '\n'; i++ {
	}
	if i == len(b) {
		return b
	}
	o := b[:i]
	for ; i < len(b); i++ {
		if b[i] != '\r' && b[i] != '\n' {
			o = append(o, b[i])
		}
	}
	return o
}

// ParseUint parses leading decimal number of s; returns 0 when absent.
func ParseUint(s string) uint64 {
	i := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
	}
	n, _ := strconv.ParseUint(s[:i], 10, 64)
	return n
}
