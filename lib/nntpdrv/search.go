package nntpdrv

import (
	"nkmail/lib/mailstream"
)

// Search evaluates program in two passes: flags and message sets first,
// then fields of remaining candidates.
func (d *Driver) Search(s *mailstream.Stream, charset string, pgm *mailstream.SearchProgram, opts mailstream.SearchOptions) ([]uint64, error) {
	l, err := openGroup(s, "search")
	if err != nil {
		return nil, err
	}
	if pgm == nil {
		pgm = &mailstream.SearchProgram{}
	}
	p, err := pgm.Convert(charset)
	if err != nil {
		s.Log(mailstream.LogError, "[BADCHARSET] Unknown character set %s", charset)
		return nil, &mailstream.UsageError{Op: "search", Name: charset, Reason: err.Error()}
	}

	elts := s.Elts()
	cand := make([]bool, len(elts))
	n := 0
	for i, e := range elts {
		e.Searched = false
		if p.Prefilter(s, e) {
			cand[i] = true
			n++
		}
	}

	useOverview := opts.Overview && !p.NeedsFetchTree()
	if useOverview && n != 0 {
		// borrow sequence marks to select candidates
		marks := make([]bool, len(elts))
		for i, e := range elts {
			marks[i], e.Sequence = e.Sequence, cand[i]
		}
		err = d.loadMarked(s, l)
		for i, e := range elts {
			e.Sequence = marks[i]
		}
		if err != nil {
			return nil, err
		}
	}

	var r []uint64
	for i, e := range elts {
		if !cand[i] {
			continue
		}
		var ok bool
		if useOverview {
			if ov := parsedOverview(s, l, e); ov != nil {
				ok = matchOverview(s, e, ov, p)
			} else {
				ok = mailstream.SearchMsgFull(s, e.MsgNo, p)
			}
		} else {
			ok = mailstream.SearchMsgFull(s, e.MsgNo, p)
		}
		if !l.alive() {
			return nil, l.sess.ReplyErr()
		}
		if !ok {
			continue
		}
		e.Searched = true
		if opts.UID {
			r = append(r, e.UID)
		} else {
			r = append(r, e.MsgNo)
		}
		if !opts.Silent && !s.Silent {
			s.Notifier.Searched(s, e.MsgNo)
		}
	}
	return r, nil
}

// matchOverview evaluates program against overview data.
// Program must not need header or body fetch.
func matchOverview(s *mailstream.Stream, e *mailstream.Elt, ov *mailstream.Overview, p *mailstream.SearchProgram) bool {
	if !p.MatchCheap(s, e) {
		return false
	}
	if p.HasFieldCriteria() {
		if (p.Larger != 0 || p.Smaller != 0) && !p.MatchSize(ov.Octets) {
			return false
		}
		sent, sentOK := mailstream.ParseDate(ov.Date)
		idate, idateOK := e.Date, !e.Date.IsZero()
		if !idateOK {
			idate, idateOK = sent, sentOK
		}
		if !p.MatchDates(sent, idate, sentOK, idateOK) {
			return false
		}
		if !mailstream.MatchAddr(ov.From, p.From) ||
			!mailstream.MatchText(mailstream.DecodeHeaderText(ov.Subject), p.Subject) ||
			!mailstream.MatchText(ov.MessageID, p.MessageID) ||
			!mailstream.MatchText(ov.References, p.References) {
			return false
		}
	}
	for _, o := range p.Or {
		if !matchOverview(s, e, ov, o.A) && !matchOverview(s, e, ov, o.B) {
			return false
		}
	}
	for _, n := range p.Not {
		if matchOverview(s, e, ov, n) {
			return false
		}
	}
	return true
}
