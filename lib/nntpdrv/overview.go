package nntpdrv

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"nkmail/lib/mailstream"
	"nkmail/lib/nntp"
	au "nkmail/lib/utils/asciiutils"
	"nkmail/lib/utils/bufreader"
	. "nkmail/lib/utils/logx"
)

// ParseOverview parses overview text without leading article number.
// Subject, From, Date, Message-ID and References fields must be present.
func ParseOverview(raw string) (*mailstream.Overview, bool) {
	f := strings.Split(raw, "\t")
	if len(f) < 5 {
		return nil, false
	}
	ov := &mailstream.Overview{
		Subject:    f[0],
		FromText:   f[1],
		From:       mailstream.ParseAddressList(f[1]),
		Date:       f[2],
		MessageID:  f[3],
		References: f[4],
	}
	if len(f) > 5 {
		ov.Octets = au.ParseUint(au.TrimWSString(f[5]))
	}
	if len(f) > 6 {
		ov.Lines = au.ParseUint(au.TrimWSString(f[6]))
	}
	if len(f) > 7 {
		for _, x := range f[7:] {
			if au.StartsWithFoldString(x, "Xref:") {
				ov.Xref = au.TrimWSString(x[5:])
				break
			}
		}
	}
	return ov, true
}

// FormatOverview renders overview as ParseOverview accepts it.
func FormatOverview(ov *mailstream.Overview) string {
	from := ov.FromText
	if from == "" {
		from = mailstream.AddressListText(ov.From)
	}
	f := []string{
		ov.Subject,
		from,
		ov.Date,
		ov.MessageID,
		ov.References,
		strconv.FormatUint(ov.Octets, 10),
		strconv.FormatUint(ov.Lines, 10),
	}
	if ov.Xref != "" {
		f = append(f, "Xref: "+ov.Xref)
	}
	return strings.Join(f, "\t")
}

func stripBreaks(b []byte) []byte {
	if bytes.IndexAny(b, "\r\n") < 0 {
		return b
	}
	o := b[:0]
	for _, c := range b {
		if c != '\r' && c != '\n' {
			o = append(o, c)
		}
	}
	return o
}

// overviewLine splits "uid<TAB>rest" line.
func overviewLine(line []byte) (uid uint64, rest string, ok bool) {
	line = stripBreaks(line)
	i := bytes.IndexByte(line, '\t')
	if i <= 0 {
		return 0, "", false
	}
	uid, err := strconv.ParseUint(string(au.TrimWSBytes(line[:i])), 10, 64)
	if err != nil {
		return 0, "", false
	}
	return uid, string(line[i+1:]), true
}

// xover fetches overview of uid range, calling fn for every line.
// Returns false when server rejected command.
func xover(s *mailstream.Stream, l *local, lo, hi uint64, fn func(e *mailstream.Elt, raw string)) (bool, error) {
	if l.sess.Send("XOVER", fmt.Sprintf("%d-%d", lo, hi)) != nntp.ReplyOver {
		if !l.sess.Alive() {
			return false, l.sess.ReplyErr()
		}
		l.log.LogPrintf(WARN, "XOVER %d-%d rejected: %s", lo, hi, l.sess.Reply())
		return false, nil
	}
	for {
		line, err := l.sess.ReadLine()
		if err == io.EOF {
			return true, nil
		}
		if err == bufreader.ErrLineTooLong {
			l.log.LogPrintf(WARN, "overlong overview line skipped")
			continue
		}
		if err != nil {
			return true, err
		}
		uid, rest, ok := overviewLine(line)
		if !ok {
			l.log.LogPrintf(WARN, "malformed overview line %q", line)
			continue
		}
		e := s.Elt(s.MsgNo(uid))
		if e == nil {
			l.log.LogPrintf(WARN, "overview for unknown UID %d", uid)
			s.Log(mailstream.LogWarn, "Server returned data for unknown UID %d", uid)
			continue
		}
		fn(e, rest)
	}
}

// loadMarked fetches overview of selected messages lacking it, one XOVER
// per run of consecutive uncached messages.
func (d *Driver) loadMarked(s *mailstream.Stream, l *local) error {
	elts := s.Elts()
	store := func(e *mailstream.Elt, raw string) {
		e.SetRawOverview(mailstream.RawOverview(raw))
	}
	for i := 0; i < len(elts); {
		if !needsOverview(elts[i]) {
			i++
			continue
		}
		j := i
		for j+1 < len(elts) && needsOverview(elts[j+1]) {
			j++
		}
		ok, err := xover(s, l, elts[i].UID, elts[j].UID, store)
		if err != nil {
			return err
		}
		if !ok {
			// no overview from this server
			return nil
		}
		i = j + 1
	}
	return nil
}

func needsOverview(e *mailstream.Elt) bool {
	if !e.Sequence {
		return false
	}
	_, ok := e.RawOverview()
	return !ok
}

// LoadOverview caches overview of messages in seq, all when seq is empty.
func (d *Driver) LoadOverview(s *mailstream.Stream, seq string, uid bool) error {
	l := getLocal(s)
	if !l.alive() || l.group == "" {
		return &mailstream.UsageError{Op: "overview", Name: s.Name, Reason: "no group selected"}
	}
	if seq == "" {
		s.MarkAll()
	} else if err := s.Mark(seq, uid); err != nil {
		return err
	}
	return d.loadMarked(s, l)
}

// parsedOverview parses cached overview of e. Unparsable text is replaced
// by empty sentinel so it is not fetched again.
func parsedOverview(s *mailstream.Stream, l *local, e *mailstream.Elt) *mailstream.Overview {
	raw, ok := e.RawOverview()
	if !ok || raw == "" {
		return nil
	}
	ov, ok := ParseOverview(string(raw))
	if !ok {
		l.log.LogPrintf(WARN, "unparsable overview for UID %d: %q", e.UID, raw)
		s.Log(mailstream.LogParse, "Unable to parse overview for UID %d", e.UID)
		e.SetRawOverview("")
		return nil
	}
	return ov
}

func (d *Driver) Overview(s *mailstream.Stream, seq string, uid bool, fn mailstream.OverviewFunc) error {
	if err := d.LoadOverview(s, seq, uid); err != nil {
		return err
	}
	l := getLocal(s)
	for _, e := range s.Elts() {
		if e.Sequence {
			fn(s, e.UID, parsedOverview(s, l, e))
		}
	}
	return nil
}
