package nntpdrv

import (
	"fmt"
	"io"
	"strconv"

	"nkmail/lib/mailstream"
	"nkmail/lib/nntp"
	. "nkmail/lib/utils/logx"
)

func openGroup(s *mailstream.Stream, op string) (*local, error) {
	l := getLocal(s)
	if !l.alive() || l.group == "" {
		return nil, &mailstream.UsageError{Op: op, Name: s.Name, Reason: "no group selected"}
	}
	return l, nil
}

// FetchFast fills size and date of selected messages, from overview when
// server has it, else from article text.
func (d *Driver) FetchFast(s *mailstream.Stream, seq string, uid bool) error {
	l, err := openGroup(s, "fetch")
	if err != nil {
		return err
	}
	if err = s.Mark(seq, uid); err != nil {
		return err
	}
	if err = d.loadMarked(s, l); err != nil {
		return err
	}
	for _, e := range s.Selected() {
		if e.Size != 0 && !e.Date.IsZero() {
			continue
		}
		if ov := parsedOverview(s, l, e); ov != nil && ov.Octets != 0 {
			e.Size = ov.Octets
			if t, ok := mailstream.ParseDate(ov.Date); ok {
				e.Date = t
			}
			if !e.Date.IsZero() {
				continue
			}
		}
		hdr, err := d.Header(s, e.MsgNo)
		if err != nil {
			continue
		}
		if e.Date.IsZero() {
			if t, ok := mailstream.ParseDate(mailstream.ParseHeader(hdr).Get("Date")); ok {
				e.Date = t
			}
		}
		if e.Size == 0 {
			body, err := d.Text(s, e.MsgNo, true)
			if err != nil {
				continue
			}
			e.Size = uint64(len(hdr) + len(body))
		}
	}
	return nil
}

// FetchFlags has nothing to ask server: flags live in newsrc.
func (d *Driver) FetchFlags(s *mailstream.Stream, seq string, uid bool) error {
	if err := s.Mark(seq, uid); err != nil {
		return err
	}
	for _, e := range s.Selected() {
		e.Valid = true
	}
	return nil
}

// articleGone marks message whose article server no longer has.
func articleGone(s *mailstream.Stream, l *local, e *mailstream.Elt) {
	l.log.LogPrintf(INFO, "article %d gone: %s", e.UID, l.sess.Reply())
	if !e.Has(mailstream.FlagDeleted) {
		e.Flags |= mailstream.FlagDeleted
		l.dirty = true
		s.Notifier.Flags(s, e.MsgNo)
	}
}

// Header returns header text ending with empty line. Result is cached.
func (d *Driver) Header(s *mailstream.Stream, msgno uint64) ([]byte, error) {
	l, err := openGroup(s, "header")
	if err != nil {
		return nil, err
	}
	e := s.Elt(msgno)
	if e == nil {
		return nil, &mailstream.UsageError{Op: "header", Name: strconv.FormatUint(msgno, 10), Reason: "no such message"}
	}
	if e.Header != nil {
		return e.Header, nil
	}
	if l.sess.Send("HEAD", strconv.FormatUint(e.UID, 10)) != nntp.ReplyHead {
		err = l.sess.ReplyErr()
		if l.sess.Alive() {
			e.Header = []byte{}
			articleGone(s, l, e)
		}
		return nil, err
	}
	h, err := l.sess.Slurp()
	if err != nil {
		return nil, err
	}
	e.Header = append(h, '\r', '\n')
	return e.Header, nil
}

// Text returns body of message. Only last fetched body is cached.
// Without peek message becomes Seen.
func (d *Driver) Text(s *mailstream.Stream, msgno uint64, peek bool) ([]byte, error) {
	l, err := openGroup(s, "text")
	if err != nil {
		return nil, err
	}
	e := s.Elt(msgno)
	if e == nil {
		return nil, &mailstream.UsageError{Op: "text", Name: strconv.FormatUint(msgno, 10), Reason: "no such message"}
	}
	if l.txtMsg != msgno || l.txt == nil {
		l.txtMsg, l.txt = 0, nil
		if l.sess.Send("BODY", strconv.FormatUint(e.UID, 10)) != nntp.ReplyBody {
			err = l.sess.ReplyErr()
			if l.sess.Alive() {
				articleGone(s, l, e)
			}
			return nil, err
		}
		b, err := l.sess.Slurp()
		if err != nil {
			return nil, err
		}
		l.txtMsg, l.txt = msgno, b
	}
	if !peek && !e.Has(mailstream.FlagSeen) {
		e.Flags |= mailstream.FlagSeen
		s.Notifier.Flags(s, msgno)
	}
	return l.txt, nil
}

// FlagMsg tracks read state: Deleted flag means article was read.
func (d *Driver) FlagMsg(s *mailstream.Stream, e *mailstream.Elt, old mailstream.Flags) {
	l := getLocal(s)
	if l == nil {
		return
	}
	if (e.Flags^old)&mailstream.FlagDeleted != 0 {
		l.dirty = true
	}
}

// Copy hands selected articles to configured copier.
func (d *Driver) Copy(s *mailstream.Stream, seq string, uid bool, mbx string) error {
	if d.cfg.Copier == nil {
		s.Log(mailstream.LogError, "Copy not valid for NNTP")
		return &mailstream.UsageError{Op: "copy", Name: mbx, Reason: "not valid for NNTP"}
	}
	if _, err := openGroup(s, "copy"); err != nil {
		return err
	}
	if err := s.Mark(seq, uid); err != nil {
		return err
	}
	for _, e := range s.Selected() {
		hdr, err := d.Header(s, e.MsgNo)
		if err != nil {
			return fmt.Errorf("nntpdrv: copying article %d: %w", e.UID, err)
		}
		body, err := d.Text(s, e.MsgNo, true)
		if err != nil {
			return fmt.Errorf("nntpdrv: copying article %d: %w", e.UID, err)
		}
		art := make([]byte, 0, len(hdr)+len(body))
		art = append(append(art, hdr...), body...)
		if err = d.cfg.Copier.CopyArticle(mbx, art); err != nil {
			return fmt.Errorf("nntpdrv: copying article %d: %w", e.UID, err)
		}
	}
	return nil
}

// Post submits article through connection of stream.
func (d *Driver) Post(s *mailstream.Stream, msg io.Reader) error {
	l := getLocal(s)
	if !l.alive() {
		return &mailstream.UsageError{Op: "post", Name: s.Name, Reason: "stream not connected"}
	}
	path := ""
	if d.cfg.PathHost != "" {
		path = d.cfg.PathHost + "!not-for-mail"
	}
	if !l.sess.PostAllowed() {
		s.Log(mailstream.LogError, "Posting not allowed on this server")
		return nntp.ErrNoPosting
	}
	if err := l.sess.Post(msg, path); err != nil {
		s.Log(mailstream.LogError, "%s", l.sess.ReplyText())
		return err
	}
	return nil
}
