package mailstream

import (
	"strings"
	"time"
)

type SearchHeader struct {
	Field string
	Text  string // empty matches any message having the field
}

type SearchOr struct {
	A, B *SearchProgram
}

// SearchProgram is conjunction of all set criteria.
// Multiple strings in one criterion must all match.
type SearchProgram struct {
	MsgNo string // sequence set
	UID   string // UID set

	FlagsSet   Flags // all of these must be set
	FlagsClear Flags // all of these must be clear
	Keyword    []string
	Unkeyword  []string

	Larger  uint64
	Smaller uint64

	SentBefore, SentOn, SentSince time.Time
	Before, On, Since             time.Time

	From       []string
	Subject    []string
	MessageID  []string
	References []string

	To         []string
	Cc         []string
	Bcc        []string
	ReturnPath []string
	Sender     []string
	ReplyTo    []string
	InReplyTo  []string
	Newsgroups []string
	FollowupTo []string

	Header []SearchHeader
	Body   []string
	Text   []string

	Or  []SearchOr
	Not []*SearchProgram
}

type SearchOptions struct {
	UID      bool // return UIDs
	Overview bool // evaluate against overview data where possible
	Silent   bool // no Searched notifications
}

// Convert returns copy of program with every string literal decoded from
// charset into UTF-8.
func (p *SearchProgram) Convert(charset string) (*SearchProgram, error) {
	if p == nil || IsPlainCharset(charset) {
		return p, nil
	}
	if _, err := LookupCharset(charset); err != nil {
		return nil, err
	}
	var err error
	conv := func(l []string) []string {
		if l == nil {
			return nil
		}
		r := make([]string, len(l))
		for i, s := range l {
			var e error
			r[i], e = DecodeCharset(charset, []byte(s))
			if e != nil && err == nil {
				err = e
			}
		}
		return r
	}
	c := *p
	for _, f := range []*[]string{
		&c.Keyword, &c.Unkeyword, &c.From, &c.Subject, &c.MessageID,
		&c.References, &c.To, &c.Cc, &c.Bcc, &c.ReturnPath, &c.Sender,
		&c.ReplyTo, &c.InReplyTo, &c.Newsgroups, &c.FollowupTo, &c.Body,
		&c.Text,
	} {
		*f = conv(*f)
	}
	if p.Header != nil {
		c.Header = make([]SearchHeader, len(p.Header))
		for i, h := range p.Header {
			c.Header[i] = SearchHeader{Field: h.Field, Text: conv([]string{h.Text})[0]}
		}
	}
	if err != nil {
		return nil, err
	}
	if p.Or != nil {
		c.Or = make([]SearchOr, len(p.Or))
		for i, o := range p.Or {
			if c.Or[i].A, err = o.A.Convert(charset); err != nil {
				return nil, err
			}
			if c.Or[i].B, err = o.B.Convert(charset); err != nil {
				return nil, err
			}
		}
	}
	if p.Not != nil {
		c.Not = make([]*SearchProgram, len(p.Not))
		for i, n := range p.Not {
			if c.Not[i], err = n.Convert(charset); err != nil {
				return nil, err
			}
		}
	}
	return &c, nil
}

// HasFieldCriteria reports whether program (not its Or/Not children)
// needs message data beyond flags and numbers.
func (p *SearchProgram) HasFieldCriteria() bool {
	return p.Larger != 0 || p.Smaller != 0 ||
		!p.SentBefore.IsZero() || !p.SentOn.IsZero() || !p.SentSince.IsZero() ||
		!p.Before.IsZero() || !p.On.IsZero() || !p.Since.IsZero() ||
		len(p.From) != 0 || len(p.Subject) != 0 || len(p.MessageID) != 0 ||
		len(p.References) != 0 || p.NeedsFetch()
}

// NeedsFetch reports whether program (not its children) has criteria
// only answerable from full header or body.
func (p *SearchProgram) NeedsFetch() bool {
	return p.HasEnvelopeCriteria() || len(p.Header) != 0 ||
		len(p.Body) != 0 || len(p.Text) != 0
}

// NeedsFetchTree is NeedsFetch over whole program including Or and Not.
func (p *SearchProgram) NeedsFetchTree() bool {
	if p.NeedsFetch() {
		return true
	}
	for _, o := range p.Or {
		if o.A.NeedsFetchTree() || o.B.NeedsFetchTree() {
			return true
		}
	}
	for _, n := range p.Not {
		if n.NeedsFetchTree() {
			return true
		}
	}
	return false
}

func (p *SearchProgram) HasEnvelopeCriteria() bool {
	return len(p.To) != 0 || len(p.Cc) != 0 || len(p.Bcc) != 0 ||
		len(p.ReturnPath) != 0 || len(p.Sender) != 0 || len(p.ReplyTo) != 0 ||
		len(p.InReplyTo) != 0 || len(p.Newsgroups) != 0 || len(p.FollowupTo) != 0
}

func (p *SearchProgram) cheapOnly() bool {
	if p.HasFieldCriteria() {
		return false
	}
	for _, o := range p.Or {
		if !o.A.cheapOnly() || !o.B.cheapOnly() {
			return false
		}
	}
	for _, n := range p.Not {
		if !n.cheapOnly() {
			return false
		}
	}
	return true
}

func seqMatch(s *Stream, seq string, n uint64, uid bool) bool {
	ss, err := ParseSeqSet(seq)
	if err != nil {
		return false
	}
	var max uint64
	if uid {
		max = s.UID(s.Exists())
	} else {
		max = s.Exists()
	}
	return ss.Resolve(max).Contains(n)
}

// MatchCheap evaluates message set, flag and keyword criteria of p itself.
func (p *SearchProgram) MatchCheap(s *Stream, e *Elt) bool {
	if p.MsgNo != "" && !seqMatch(s, p.MsgNo, e.MsgNo, false) {
		return false
	}
	if p.UID != "" && !seqMatch(s, p.UID, e.UID, true) {
		return false
	}
	if e.Flags&p.FlagsSet != p.FlagsSet || e.Flags&p.FlagsClear != 0 {
		return false
	}
	// no user keywords in this toolkit
	if len(p.Keyword) != 0 {
		return false
	}
	return true
}

// Prefilter never rejects message which would match full program.
func (p *SearchProgram) Prefilter(s *Stream, e *Elt) bool {
	if !p.MatchCheap(s, e) {
		return false
	}
	for _, o := range p.Or {
		if !o.A.Prefilter(s, e) && !o.B.Prefilter(s, e) {
			return false
		}
	}
	for _, n := range p.Not {
		if n.cheapOnly() && n.matchCheapTree(s, e) {
			return false
		}
	}
	return true
}

func (p *SearchProgram) matchCheapTree(s *Stream, e *Elt) bool {
	if !p.MatchCheap(s, e) {
		return false
	}
	for _, o := range p.Or {
		if !o.A.matchCheapTree(s, e) && !o.B.matchCheapTree(s, e) {
			return false
		}
	}
	for _, n := range p.Not {
		if n.matchCheapTree(s, e) {
			return false
		}
	}
	return true
}

// MatchDates checks date criteria against message date.
// Internal date criteria use idate, sent ones use sent.
func (p *SearchProgram) MatchDates(sent, idate time.Time, sentOK, idateOK bool) bool {
	if !p.SentBefore.IsZero() || !p.SentOn.IsZero() || !p.SentSince.IsZero() {
		if !sentOK {
			return false
		}
		d := DayKey(sent)
		if (!p.SentBefore.IsZero() && d >= DayKey(p.SentBefore)) ||
			(!p.SentOn.IsZero() && d != DayKey(p.SentOn)) ||
			(!p.SentSince.IsZero() && d < DayKey(p.SentSince)) {
			return false
		}
	}
	if !p.Before.IsZero() || !p.On.IsZero() || !p.Since.IsZero() {
		if !idateOK {
			return false
		}
		d := DayKey(idate)
		if (!p.Before.IsZero() && d >= DayKey(p.Before)) ||
			(!p.On.IsZero() && d != DayKey(p.On)) ||
			(!p.Since.IsZero() && d < DayKey(p.Since)) {
			return false
		}
	}
	return true
}

func (p *SearchProgram) MatchSize(size uint64) bool {
	return !((p.Larger != 0 && size <= p.Larger) ||
		(p.Smaller != 0 && size >= p.Smaller))
}

// MatchAddr requires every pattern to be found in rendered address list.
func MatchAddr(l []*Address, pats []string) bool {
	if len(pats) == 0 {
		return true
	}
	if len(l) == 0 {
		return false
	}
	t := AddressListText(l)
	for _, x := range pats {
		if !ContainsFold(t, x) {
			return false
		}
	}
	return true
}

// MatchText requires every pattern to be found in text.
func MatchText(t string, pats []string) bool {
	for _, x := range pats {
		if !ContainsFold(t, x) {
			return false
		}
	}
	return true
}

// MatchEnvelope checks envelope criteria.
func (p *SearchProgram) MatchEnvelope(env *Envelope) bool {
	return MatchAddr(env.To, p.To) &&
		MatchAddr(env.Cc, p.Cc) &&
		MatchAddr(env.Bcc, p.Bcc) &&
		MatchAddr(env.ReturnPath, p.ReturnPath) &&
		MatchAddr(env.Sender, p.Sender) &&
		MatchAddr(env.ReplyTo, p.ReplyTo) &&
		MatchText(env.InReplyTo, p.InReplyTo) &&
		MatchText(env.Newsgroups, p.Newsgroups) &&
		MatchText(env.FollowupTo, p.FollowupTo)
}

// MatchHeaderLines checks header line criteria.
// Field name must match exactly; text of every line of the field is searched.
func (p *SearchProgram) MatchHeaderLines(h Header) bool {
	for _, sh := range p.Header {
		name := strings.TrimSuffix(sh.Field, ":")
		if !h.Has(name) {
			return false
		}
		if sh.Text == "" {
			continue
		}
		if !ContainsFold(DecodeHeaderText(strings.Join(h.Lines(name), "\n")), sh.Text) {
			return false
		}
	}
	return true
}

// MessageData lazily fetches message parts through driver.
type MessageData struct {
	s     *Stream
	msgno uint64

	hdr    []byte
	hdrErr error
	hdrOK  bool
	parsed Header
	env    *Envelope

	body    []byte
	bodyErr error
	bodyOK  bool
}

func NewMessageData(s *Stream, msgno uint64) *MessageData {
	return &MessageData{s: s, msgno: msgno}
}

func (m *MessageData) RawHeader() ([]byte, error) {
	if !m.hdrOK {
		m.hdr, m.hdrErr = m.s.Driver.Header(m.s, m.msgno)
		m.hdrOK = true
	}
	return m.hdr, m.hdrErr
}

func (m *MessageData) Header() (Header, error) {
	if m.parsed == nil {
		b, err := m.RawHeader()
		if err != nil {
			return nil, err
		}
		m.parsed = ParseHeader(b)
	}
	return m.parsed, nil
}

func (m *MessageData) Envelope() (*Envelope, error) {
	if m.env == nil {
		h, err := m.Header()
		if err != nil {
			return nil, err
		}
		m.env = h.Envelope()
	}
	return m.env, nil
}

func (m *MessageData) Body() ([]byte, error) {
	if !m.bodyOK {
		m.body, m.bodyErr = m.s.Driver.Text(m.s, m.msgno, true)
		m.bodyOK = true
	}
	return m.body, m.bodyErr
}

// MatchFetched evaluates criteria needing full header or body.
func (p *SearchProgram) MatchFetched(m *MessageData) bool {
	if p.HasEnvelopeCriteria() {
		env, err := m.Envelope()
		if err != nil || !p.MatchEnvelope(env) {
			return false
		}
	}
	if len(p.Header) != 0 {
		h, err := m.Header()
		if err != nil || !p.MatchHeaderLines(h) {
			return false
		}
	}
	if len(p.Body) != 0 || len(p.Text) != 0 {
		body, err := m.Body()
		if err != nil {
			return false
		}
		if !MatchText(string(body), p.Body) {
			return false
		}
		if len(p.Text) != 0 {
			hdr, err := m.RawHeader()
			if err != nil {
				return false
			}
			if !MatchText(DecodeHeaderText(string(hdr))+string(body), p.Text) {
				return false
			}
		}
	}
	return true
}

// SearchMsgFull evaluates whole program for one message using fetched data.
func SearchMsgFull(s *Stream, msgno uint64, p *SearchProgram) bool {
	return searchMsgFull(s, NewMessageData(s, msgno), s.Elt(msgno), p)
}

func searchMsgFull(s *Stream, m *MessageData, e *Elt, p *SearchProgram) bool {
	if e == nil || !p.MatchCheap(s, e) {
		return false
	}
	if p.HasFieldCriteria() {
		env, err := m.Envelope()
		if err != nil {
			return false
		}
		if p.Larger != 0 || p.Smaller != 0 {
			size := e.Size
			if size == 0 {
				h, _ := m.RawHeader()
				b, _ := m.Body()
				size = uint64(len(h) + len(b))
			}
			if !p.MatchSize(size) {
				return false
			}
		}
		sent, sentOK := ParseDate(env.Date)
		idate, idateOK := e.Date, !e.Date.IsZero()
		if !idateOK {
			idate, idateOK = sent, sentOK
		}
		if !p.MatchDates(sent, idate, sentOK, idateOK) {
			return false
		}
		if !MatchAddr(env.From, p.From) ||
			!MatchText(env.Subject, p.Subject) ||
			!MatchText(env.MessageID, p.MessageID) ||
			!MatchText(env.References, p.References) {
			return false
		}
		if !p.MatchFetched(m) {
			return false
		}
	}
	for _, o := range p.Or {
		if !searchMsgFull(s, m, e, o.A) && !searchMsgFull(s, m, e, o.B) {
			return false
		}
	}
	for _, n := range p.Not {
		if searchMsgFull(s, m, e, n) {
			return false
		}
	}
	return true
}
