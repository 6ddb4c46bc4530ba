package mailstream

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"nkmail/lib/utils/asciiutils"
)

type SortKey int

const (
	SortArrival SortKey = iota
	SortDate
	SortFrom
	SortSubject
	SortSize
	SortTo
	SortCc
)

var sortKeyNames = [...]string{"ARRIVAL", "DATE", "FROM", "SUBJECT", "SIZE", "TO", "CC"}

func (k SortKey) String() string {
	if int(k) < len(sortKeyNames) && k >= 0 {
		return sortKeyNames[k]
	}
	return fmt.Sprintf("SortKey(%d)", int(k))
}

func ParseSortKey(s string) (SortKey, error) {
	for i, n := range sortKeyNames {
		if asciiutils.EqualFoldString(s, n) {
			return SortKey(i), nil
		}
	}
	return 0, &UsageError{Op: "sort", Name: s, Reason: "unknown sort key"}
}

type SortProgram struct {
	Key     SortKey
	Reverse bool
}

type SortOptions struct {
	UID bool // return UIDs
}

// SortCache holds sort keys of one message, plus overview text it came from.
type SortCache struct {
	Num        uint64 // message number or UID, set per sort
	Date       int64
	Arrival    int64
	Size       uint64
	Subject    string // folded base subject
	From       string // first from mailbox, folded
	To         string
	Cc         string
	MessageID  string
	References []string

	Loaded bool // keys were loaded from message data

	Raw    RawOverview
	HasRaw bool
}

// WithDefaults returns copy of keys for this sort with absent values neutralised.
func (sc *SortCache) WithDefaults(num, uid uint64) SortCache {
	r := *sc
	r.Num = num
	if r.Date == 0 {
		r.Date = int64(num)
	}
	if r.Arrival == 0 {
		r.Arrival = int64(uid)
	}
	if r.Size == 0 {
		r.Size = 1
	}
	return r
}

func cmpInt(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareKey(a, b *SortCache, k SortKey) int {
	switch k {
	case SortArrival:
		return cmpInt(a.Arrival, b.Arrival)
	case SortDate:
		return cmpInt(a.Date, b.Date)
	case SortFrom:
		return strings.Compare(a.From, b.From)
	case SortSubject:
		return strings.Compare(a.Subject, b.Subject)
	case SortSize:
		switch {
		case a.Size < b.Size:
			return -1
		case a.Size > b.Size:
			return 1
		}
		return 0
	case SortTo:
		return strings.Compare(a.To, b.To)
	case SortCc:
		return strings.Compare(a.Cc, b.Cc)
	}
	return 0
}

// SortCaches orders entries by pgm keys, consulting next key only on ties.
// Fully tied entries keep their relative order.
func SortCaches(sc []SortCache, pgm []SortProgram) []uint64 {
	sort.SliceStable(sc, func(i, j int) bool {
		for _, p := range pgm {
			c := compareKey(&sc[i], &sc[j], p.Key)
			if p.Reverse {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	r := make([]uint64, len(sc))
	for i := range sc {
		r[i] = sc[i].Num
	}
	return r
}

// SortIndex collects keys of searched messages with defaults applied.
func SortIndex(s *Stream, uid bool) []SortCache {
	var r []SortCache
	for _, e := range s.elts {
		if !e.Searched {
			continue
		}
		num := e.MsgNo
		if uid {
			num = e.UID
		}
		r = append(r, e.SortCache().WithDefaults(num, e.UID))
	}
	return r
}

// FillSortCache loads keys from parsed header.
func FillSortCache(sc *SortCache, env *Envelope) {
	if t, ok := ParseDate(env.Date); ok {
		sc.Date = t.Unix()
	}
	sc.Subject = StripSubject(env.Subject)
	sc.From = firstMailbox(env.From)
	sc.To = firstMailbox(env.To)
	sc.Cc = firstMailbox(env.Cc)
	sc.MessageID = strings.TrimSpace(env.MessageID)
	sc.References = ParseReferences(env.References)
	if len(sc.References) == 0 {
		if irt := ParseReferences(env.InReplyTo); len(irt) != 0 {
			sc.References = irt[:1]
		}
	}
	sc.Loaded = true
}

func firstMailbox(l []*Address) string {
	if len(l) == 0 {
		return ""
	}
	return Fold(l[0].Mailbox)
}

// FirstMailbox parses address list text and returns folded first mailbox.
func FirstMailbox(s string) string {
	return firstMailbox(ParseAddressList(s))
}

// ParseReferences extracts message ids in order.
func ParseReferences(s string) []string {
	var r []string
	for {
		i := strings.IndexByte(s, '<')
		if i < 0 {
			return r
		}
		j := strings.IndexByte(s[i:], '>')
		if j < 0 {
			return r
		}
		r = append(r, s[i:i+j+1])
		s = s[i+j+1:]
	}
}

// LoadSortCacheGeneric loads sort keys of searched messages one by one
// through driver Header calls.
func LoadSortCacheGeneric(s *Stream) {
	for _, e := range s.elts {
		if !e.Searched || e.HasSortCache() {
			continue
		}
		env, err := NewMessageData(s, e.MsgNo).Envelope()
		sc := e.SortCache()
		if err != nil {
			continue
		}
		FillSortCache(sc, env)
		if !e.Date.IsZero() {
			sc.Arrival = e.Date.Unix()
		}
		sc.Size = e.Size
	}
}

func collapseWS(s string) string {
	var b strings.Builder
	sp := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			sp = true
			continue
		}
		if sp && b.Len() != 0 {
			b.WriteByte(' ')
		}
		sp = false
		b.WriteRune(r)
	}
	return b.String()
}

// stripBlob removes leading "[...]" followed by optional space.
func stripBlob(s string) (string, bool) {
	if !strings.HasPrefix(s, "[") {
		return s, false
	}
	i := strings.IndexAny(s[1:], "[]")
	if i < 0 || s[1+i] != ']' {
		return s, false
	}
	return strings.TrimLeft(s[i+2:], " "), true
}

// stripRefwd removes leading "re", "fw" or "fwd" with optional blob and colon.
func stripRefwd(s string) (string, bool) {
	l := strings.ToLower(s)
	var n int
	switch {
	case strings.HasPrefix(l, "re"):
		n = 2
	case strings.HasPrefix(l, "fwd"):
		n = 3
	case strings.HasPrefix(l, "fw"):
		n = 2
	default:
		return s, false
	}
	t := strings.TrimLeft(s[n:], " ")
	if u, ok := stripBlob(t); ok {
		t = u
	}
	if !strings.HasPrefix(t, ":") {
		return s, false
	}
	return strings.TrimLeft(t[1:], " "), true
}

// StripSubject returns folded base subject: reply and forward markers,
// leading blobs and trailing "(fwd)" are removed.
func StripSubject(subj string) string {
	s := collapseWS(DecodeHeaderText(subj))
	for {
		// trailers
		for {
			t := strings.TrimRight(s, " ")
			if len(t) >= 5 && strings.EqualFold(t[len(t)-5:], "(fwd)") {
				t = t[:len(t)-5]
			}
			if t == s {
				break
			}
			s = t
		}
		// leaders
		for {
			t := s
			for {
				u, ok := stripBlob(t)
				if !ok || u == "" {
					break
				}
				t = u
			}
			if u, ok := stripRefwd(t); ok {
				s = u
				continue
			}
			if u, ok := stripBlob(s); ok && u != "" {
				s = u
				continue
			}
			break
		}
		l := strings.ToLower(s)
		if strings.HasPrefix(l, "[fwd:") && strings.HasSuffix(s, "]") {
			s = strings.TrimSpace(s[5 : len(s)-1])
			continue
		}
		break
	}
	return Fold(s)
}
