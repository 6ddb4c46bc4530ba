package nntpdrv

import (
	"strings"

	"nkmail/lib/mailstream"
	au "nkmail/lib/utils/asciiutils"
	. "nkmail/lib/utils/logx"
)

// sortProgram drops keys news servers cannot sort by, warning once per key.
func sortProgram(s *mailstream.Stream, pgm []mailstream.SortProgram) ([]mailstream.SortProgram, error) {
	var r []mailstream.SortProgram
	warned := map[mailstream.SortKey]bool{}
	for _, p := range pgm {
		switch p.Key {
		case mailstream.SortArrival, mailstream.SortDate, mailstream.SortFrom,
			mailstream.SortSubject, mailstream.SortSize:
			r = append(r, p)
		case mailstream.SortTo, mailstream.SortCc:
			if !warned[p.Key] {
				warned[p.Key] = true
				field := "To"
				if p.Key == mailstream.SortCc {
					field = "cc"
				}
				s.Notify(mailstream.LogWarn, "[NNTPSORT] Can't do %s-field sorting in NNTP", field)
			}
		default:
			return nil, &mailstream.UsageError{Op: "sort", Name: p.Key.String(), Reason: "unknown sort key"}
		}
	}
	return r, nil
}

// fillFromOverview loads sort keys of e from overview text.
// Short lines still give keys of fields they have.
func fillFromOverview(e *mailstream.Elt, raw string) {
	e.SetRawOverview(mailstream.RawOverview(raw))
	sc := e.SortCache()
	f := strings.SplitN(raw, "\t", 7)
	if len(f) > 0 {
		sc.Subject = mailstream.StripSubject(f[0])
	}
	if len(f) > 1 {
		if from := mailstream.ParseAddressList(f[1]); len(from) != 0 {
			sc.From = mailstream.Fold(from[0].Mailbox)
		}
	}
	if len(f) > 2 {
		if t, ok := mailstream.ParseDate(f[2]); ok {
			sc.Date = t.Unix()
		}
	}
	if len(f) > 3 {
		sc.MessageID = f[3]
	}
	if len(f) > 4 {
		sc.References = mailstream.ParseReferences(f[4])
	}
	if len(f) > 5 {
		sc.Size = au.ParseUint(au.TrimWSString(f[5]))
	}
	if !e.Date.IsZero() {
		sc.Arrival = e.Date.Unix()
	}
	sc.Loaded = true
}

// loadSortCache fills sort keys of searched messages with one XOVER over
// smallest UID range covering those missing them.
func (d *Driver) loadSortCache(s *mailstream.Stream, l *local) error {
	var lo, hi uint64
	for _, e := range s.Elts() {
		if !e.Searched || e.HasSortCache() {
			continue
		}
		if raw, ok := e.RawOverview(); ok {
			fillFromOverview(e, string(raw))
			continue
		}
		if lo == 0 {
			lo = e.UID
		}
		hi = e.UID
	}
	if lo == 0 {
		return nil
	}
	ok, err := xover(s, l, lo, hi, fillFromOverview)
	if err != nil {
		return err
	}
	if !ok {
		l.log.LogPrintf(INFO, "falling back to per-message sort keys")
		mailstream.LoadSortCacheGeneric(s)
		return nil
	}
	// server had nothing on these; keep defaults
	for _, e := range s.Elts() {
		if e.Searched && e.UID >= lo && e.UID <= hi && !e.HasSortCache() {
			e.SortCache().Loaded = true
		}
	}
	return nil
}

func (d *Driver) Sort(s *mailstream.Stream, charset string, spg *mailstream.SearchProgram, pgm []mailstream.SortProgram, opts mailstream.SortOptions) ([]uint64, error) {
	l, err := openGroup(s, "sort")
	if err != nil {
		return nil, err
	}
	keys, err := sortProgram(s, pgm)
	if err != nil {
		return nil, err
	}
	if spg != nil {
		if _, err = d.Search(s, charset, spg, mailstream.SearchOptions{Silent: true}); err != nil {
			return nil, err
		}
	} else {
		for _, e := range s.Elts() {
			e.Searched = true
		}
	}
	if err = d.loadSortCache(s, l); err != nil {
		return nil, err
	}
	return mailstream.SortCaches(mailstream.SortIndex(s, opts.UID), keys), nil
}

// Thread orders candidates with Sort and builds thread tree of them.
func (d *Driver) Thread(s *mailstream.Stream, algorithm, charset string, spg *mailstream.SearchProgram, opts mailstream.SortOptions) ([]*mailstream.ThreadNode, error) {
	if _, err := openGroup(s, "thread"); err != nil {
		return nil, err
	}
	return mailstream.ThreadMsgs(s, algorithm, charset, spg, opts, d.Sort)
}
