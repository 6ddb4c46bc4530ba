package mailstream

import (
	"strings"

	"github.com/gobwas/glob"
)

// Pattern is LIST pattern: "*" matches anything, "%" anything but delimiter.
type Pattern struct {
	g       glob.Glob
	Text    string
	Percent bool // has hierarchy-limited wildcard
}

func CompilePattern(pat string, delim byte) (*Pattern, error) {
	var b strings.Builder
	lit := 0
	flush := func(i int) {
		b.WriteString(glob.QuoteMeta(pat[lit:i]))
	}
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '*':
			flush(i)
			b.WriteString("**")
			lit = i + 1
		case '%':
			flush(i)
			b.WriteString("*")
			lit = i + 1
		}
	}
	flush(len(pat))
	g, err := glob.Compile(b.String(), rune(delim))
	if err != nil {
		return nil, &UsageError{Op: "list", Name: pat, Reason: err.Error()}
	}
	return &Pattern{g: g, Text: pat, Percent: strings.IndexByte(pat, '%') >= 0}, nil
}

func (p *Pattern) Match(name string) bool {
	return p.g.Match(name)
}

// MatchPattern reports whether name matches pattern pat.
func MatchPattern(name, pat string, delim byte) bool {
	p, err := CompilePattern(pat, delim)
	if err != nil {
		return false
	}
	return p.Match(name)
}
