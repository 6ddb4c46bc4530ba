package mailstream

import (
	"net/mail"
	"strings"
	"time"

	xmail "nkmail/lib/mail"
)

// BadHost is host part given to addresses lacking one.
const BadHost = ".MISSING-HOST-NAME."

type Address struct {
	Personal string
	Mailbox  string
	Host     string
}

func (a *Address) Addr() string {
	if a.Host == "" {
		return a.Mailbox
	}
	return a.Mailbox + "@" + a.Host
}

func (a *Address) String() string {
	if a.Personal == "" {
		return a.Addr()
	}
	return a.Personal + " <" + a.Addr() + ">"
}

// AddressListText renders list for text searches.
func AddressListText(l []*Address) string {
	var b strings.Builder
	for i, a := range l {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	return b.String()
}

var addrParser = &mail.AddressParser{WordDecoder: wordDecoder}

func fromMail(ma *mail.Address) *Address {
	a := &Address{Personal: ma.Name}
	if i := strings.LastIndexByte(ma.Address, '@'); i >= 0 {
		a.Mailbox, a.Host = ma.Address[:i], ma.Address[i+1:]
	} else {
		a.Mailbox, a.Host = ma.Address, BadHost
	}
	return a
}

// parseLoose handles what net/mail refuses: bare words, unbalanced
// brackets, "user@host (Name)" with odd comments.
func parseLoose(s string) *Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	a := &Address{}
	if i := strings.IndexByte(s, '<'); i >= 0 {
		a.Personal = strings.Trim(strings.TrimSpace(s[:i]), `"`)
		s = s[i+1:]
		if j := strings.IndexByte(s, '>'); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.IndexByte(s, '('); i >= 0 {
		p := s[i+1:]
		if j := strings.LastIndexByte(p, ')'); j >= 0 {
			p = p[:j]
		}
		a.Personal = strings.TrimSpace(p)
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		a.Mailbox, a.Host = s[:i], s[i+1:]
	} else {
		a.Mailbox, a.Host = s, BadHost
	}
	a.Personal = DecodeHeaderText(a.Personal)
	return a
}

// ParseAddressList never fails; unparsable parts are kept as bare mailboxes.
func ParseAddressList(s string) []*Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if l, err := addrParser.ParseList(s); err == nil {
		r := make([]*Address, 0, len(l))
		for _, ma := range l {
			r = append(r, fromMail(ma))
		}
		return r
	}
	var r []*Address
	for _, p := range strings.Split(s, ",") {
		if ma, err := addrParser.Parse(p); err == nil {
			r = append(r, fromMail(ma))
		} else if a := parseLoose(p); a != nil {
			r = append(r, a)
		}
	}
	return r
}

// ParseDate parses message date leniently.
func ParseDate(s string) (time.Time, bool) {
	return xmail.ParseDate(s)
}

// DayKey gives comparable day number in date's own zone.
func DayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
