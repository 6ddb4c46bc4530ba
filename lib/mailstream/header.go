package mailstream

import (
	"strings"

	"nkmail/lib/utils/asciiutils"
)

type HeaderField struct {
	Name  string
	Value string // continuation lines kept, separated by "\n"
}

// Header is parsed message header in original order.
type Header []HeaderField

// ParseHeader splits header text into fields. It accepts whatever news
// servers send: bare LF, missing final newline, lines without colon
// (ignored).
func ParseHeader(b []byte) Header {
	var h Header
	s := string(b)
	for len(s) != 0 {
		var line string
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			line, s = s[:i], s[i+1:]
		} else {
			line, s = s, ""
		}
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			// end of header
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if n := len(h); n != 0 {
				h[n-1].Value += "\n" + line
			}
			continue
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			continue
		}
		h = append(h, HeaderField{
			Name:  asciiutils.TrimWSString(line[:i]),
			Value: strings.TrimLeft(line[i+1:], " \t"),
		})
	}
	return h
}

func unfold(v string) string {
	if strings.IndexByte(v, '\n') < 0 {
		return v
	}
	return strings.ReplaceAll(v, "\n", "")
}

// Get returns first unfolded value of named field.
func (h Header) Get(name string) string {
	for i := range h {
		if asciiutils.EqualFoldString(h[i].Name, name) {
			return unfold(h[i].Value)
		}
	}
	return ""
}

func (h Header) Has(name string) bool {
	for i := range h {
		if asciiutils.EqualFoldString(h[i].Name, name) {
			return true
		}
	}
	return false
}

// Lines returns values of every line of named field, one per text line.
func (h Header) Lines(name string) []string {
	var r []string
	for i := range h {
		if asciiutils.EqualFoldString(h[i].Name, name) {
			for _, l := range strings.Split(h[i].Value, "\n") {
				r = append(r, strings.TrimLeft(l, " \t"))
			}
		}
	}
	return r
}

// Envelope is header summary used by search and sort.
type Envelope struct {
	Date       string
	Subject    string
	From       []*Address
	Sender     []*Address
	ReplyTo    []*Address
	To         []*Address
	Cc         []*Address
	Bcc        []*Address
	ReturnPath []*Address
	InReplyTo  string
	MessageID  string
	Newsgroups string
	FollowupTo string
	References string
}

func (h Header) Envelope() *Envelope {
	return &Envelope{
		Date:       h.Get("Date"),
		Subject:    DecodeHeaderText(h.Get("Subject")),
		From:       ParseAddressList(h.Get("From")),
		Sender:     ParseAddressList(h.Get("Sender")),
		ReplyTo:    ParseAddressList(h.Get("Reply-To")),
		To:         ParseAddressList(h.Get("To")),
		Cc:         ParseAddressList(h.Get("Cc")),
		Bcc:        ParseAddressList(h.Get("Bcc")),
		ReturnPath: ParseAddressList(h.Get("Return-Path")),
		InReplyTo:  h.Get("In-Reply-To"),
		MessageID:  h.Get("Message-ID"),
		Newsgroups: h.Get("Newsgroups"),
		FollowupTo: h.Get("Followup-To"),
		References: h.Get("References"),
	}
}
