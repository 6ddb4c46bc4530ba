package nntpdrv

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"nkmail/lib/mailstream"
	"nkmail/lib/newsrc"
	"nkmail/lib/nntp"
	au "nkmail/lib/utils/asciiutils"
	"nkmail/lib/utils/bufreader"
	. "nkmail/lib/utils/logx"
)

var errNoNewsrc = errors.New("nntpdrv: no newsrc store configured")

// groupInfo is parsed GROUP reply.
type groupInfo struct {
	count, low, high uint64
}

func (g groupInfo) holes() bool {
	return g.count != 0 && g.high >= g.low && g.count != g.high-g.low+1
}

func (g groupInfo) contiguous() []uint64 {
	if g.count == 0 || g.high < g.low {
		return nil
	}
	r := make([]uint64, 0, g.high-g.low+1)
	for i := g.low; i <= g.high; i++ {
		r = append(r, i)
	}
	return r
}

func selectGroup(sess *nntp.Session, group string) (gi groupInfo, err error) {
	if sess.Send("GROUP", group) != nntp.ReplyGroupOK {
		return gi, sess.ReplyErr()
	}
	a := sess.ReplyArgs()
	if len(a) < 3 {
		return gi, fmt.Errorf("nntpdrv: malformed GROUP reply %q", sess.Reply())
	}
	gi.count, _ = strconv.ParseUint(a[0], 10, 64)
	gi.low, _ = strconv.ParseUint(a[1], 10, 64)
	gi.high, _ = strconv.ParseUint(a[2], 10, 64)
	return gi, nil
}

// readNumbers collects leading article numbers of text lines.
func readNumbers(sess *nntp.Session) ([]uint64, error) {
	var r []uint64
	for {
		l, err := sess.ReadLine()
		if err == io.EOF {
			break
		}
		if err == bufreader.ErrLineTooLong {
			continue
		}
		if err != nil {
			return nil, err
		}
		if n := au.ParseUint(au.TrimWSString(string(l))); n != 0 {
			r = append(r, n)
		}
	}
	sort.Slice(r, func(i, j int) bool { return r[i] < r[j] })
	// drop duplicates
	o := r[:0]
	for i, n := range r {
		if i == 0 || n != r[i-1] {
			o = append(o, n)
		}
	}
	return o, nil
}

// listArticles gets exact article numbers of selected group.
// ok is false when server could not tell.
func listArticles(sess *nntp.Session, group string, gi groupInfo, log Logger) (uids []uint64, ok bool) {
	if sess.Send("LISTGROUP", group) == nntp.ReplyGroupOK {
		uids, err := readNumbers(sess)
		if err == nil {
			return uids, true
		}
		log.LogPrintf(WARN, "LISTGROUP %s: %v", group, err)
		return nil, false
	}
	if !sess.Alive() {
		return nil, false
	}
	if sess.Send("XHDR", fmt.Sprintf("Date %d-%d", gi.low, gi.high)) == nntp.ReplyHead {
		uids, err := readNumbers(sess)
		if err == nil {
			return uids, true
		}
		log.LogPrintf(WARN, "XHDR %s: %v", group, err)
	}
	return nil, false
}

func (d *Driver) Open(s *mailstream.Stream) error {
	mb, group, err := parseName(s.Name)
	if err != nil {
		return err
	}
	if mb.Secure {
		s.Log(mailstream.LogError, "Can't do /secure on NNTP")
		return &mailstream.UsageError{Op: "open", Name: s.Name, Reason: "secure authentication not supported"}
	}

	old := getLocal(s)
	var l *local
	if old != nil {
		d.writeNewsrc(s, old)
		s.ReleaseCache()
		s.SetMessages(nil)
		if old.compatible(mb) {
			old.log.LogPrintf(INFO, "reusing connection to %s", old.sess.Host())
			l = old
			l.group, l.read, l.dirty = "", nil, false
			l.txtMsg, l.txt = 0, nil
		} else {
			old.sess.Close()
		}
		s.Local = nil
	}
	if l == nil {
		sess, err := d.connect(mb, s)
		if err != nil {
			return err
		}
		l = &local{sess: sess}
		l.log = NewLogToX(d.cfg.Logger, fmt.Sprintf("nntpdrv.%p", l))
	}
	l.mb = mb
	s.Local = l
	s.UIDValidity = UIDValidity
	// news groups are never writable
	s.ReadOnly = true

	if group == "" {
		s.HalfOpen = true
		s.Name = d.canonical(l)
		return nil
	}
	if s.HalfOpen {
		// only connection was asked for
		s.Name = d.canonical(l)
		return nil
	}

	gi, err := selectGroup(l.sess, group)
	if err != nil {
		s.Log(mailstream.LogError, "%s", l.sess.ReplyText())
		l.sess.Close()
		s.Local = nil
		return fmt.Errorf("nntpdrv: selecting %s: %w", group, err)
	}
	l.group = group

	uids := gi.contiguous()
	if gi.holes() {
		if exact, ok := listArticles(l.sess, group, gi, l.log); ok {
			uids = exact
		} else {
			l.log.LogPrintf(WARN, "no exact listing of %s, assuming %d-%d", group, gi.low, gi.high)
		}
	}
	if !l.sess.Alive() {
		s.Local = nil
		return fmt.Errorf("nntpdrv: opening %s: %w", group, nntp.ErrBroken)
	}

	s.UIDLast = gi.high
	s.SetMessages(uids)
	d.loadNewsrc(s, l)
	s.Name = d.canonical(l)
	l.log.LogPrintf(INFO, "opened %s: %d articles, %d recent", group, s.Exists(), s.Recent)
	return nil
}

// loadNewsrc applies read state: read articles are Deleted, unread ones past
// highest read number are Recent.
func (d *Driver) loadNewsrc(s *mailstream.Stream, l *local) {
	if d.cfg.Newsrc != nil {
		e, err := d.cfg.Newsrc.Get(l.mb.Host, l.group)
		if err != nil {
			l.log.LogPrintf(WARN, "loading newsrc: %v", err)
		} else {
			l.read = e.Read
		}
	}
	max := l.read.Max()
	s.Recent = 0
	for _, e := range s.Elts() {
		e.Valid = true
		if l.read.Contains(e.UID) {
			e.Flags |= mailstream.FlagDeleted
		} else if e.UID > max {
			e.Flags |= mailstream.FlagRecent
			s.Recent++
		}
	}
}

// writeNewsrc stores read state when it changed.
func (d *Driver) writeNewsrc(s *mailstream.Stream, l *local) error {
	if !l.dirty || l.group == "" {
		return nil
	}
	if d.cfg.Newsrc == nil {
		l.dirty = false
		return nil
	}
	e, err := d.cfg.Newsrc.Get(l.mb.Host, l.group)
	if err != nil {
		l.log.LogPrintf(ERROR, "loading newsrc: %v", err)
		return err
	}
	for _, x := range s.Elts() {
		if x.Has(mailstream.FlagDeleted) {
			e.Read = e.Read.Add(x.UID)
		} else {
			e.Read = e.Read.Remove(x.UID)
		}
	}
	if err = d.cfg.Newsrc.Put(l.mb.Host, e); err != nil {
		l.log.LogPrintf(ERROR, "writing newsrc: %v", err)
		return err
	}
	l.read = e.Read
	l.dirty = false
	return nil
}

func (d *Driver) Close(s *mailstream.Stream) {
	l := getLocal(s)
	if l == nil {
		return
	}
	d.writeNewsrc(s, l)
	s.ReleaseCache()
	l.txt = nil
	l.sess.Close()
	s.Local = nil
}

// Ping checks whether server still talks to us.
func (d *Driver) Ping(s *mailstream.Stream) bool {
	l := getLocal(s)
	if !l.alive() {
		return false
	}
	return l.sess.Send("STAT", "") != nntp.ReplyBroken
}

func (d *Driver) Check(s *mailstream.Stream) error {
	l := getLocal(s)
	if l == nil {
		return nil
	}
	if err := d.writeNewsrc(s, l); err != nil {
		return err
	}
	s.Notify(mailstream.LogInfo, "Check completed")
	return nil
}

func (d *Driver) Expunge(s *mailstream.Stream) error {
	s.Notify(mailstream.LogInfo, "Expunge ignored on readonly mailbox")
	return nil
}

// session finds connection usable for mb: stream's own or new temporary one.
// Temporary sessions must be closed by caller.
func (d *Driver) session(s *mailstream.Stream, mb mailstream.NetMbx) (sess *nntp.Session, temp bool, err error) {
	if l := getLocal(s); l != nil && l.compatible(mb) {
		return l.sess, false, nil
	}
	sess, err = d.connect(mb, s)
	return sess, true, err
}

func (d *Driver) Status(s *mailstream.Stream, mbx string, flags mailstream.StatusFlags) (*mailstream.Status, error) {
	mb, group, err := parseName(mbx)
	if err != nil {
		return nil, err
	}
	if group == "" {
		return nil, &mailstream.UsageError{Op: "status", Name: mbx, Reason: "no newsgroup given"}
	}
	sess, temp, err := d.session(s, mb)
	if err != nil {
		return nil, err
	}
	if temp {
		defer sess.Close()
	}

	st, err := d.status(sess, mb, group, flags)

	// reselect group of stream
	if l := getLocal(s); !temp && l.group != "" && l.group != group {
		if _, e := selectGroup(sess, l.group); e != nil {
			l.log.LogPrintf(WARN, "reselecting %s failed: %v", l.group, e)
			l.group = ""
			s.HalfOpen = true
			s.SetMessages(nil)
			s.Name = d.canonical(l)
		}
	}
	if err != nil {
		return nil, err
	}
	if s != nil {
		s.Notifier.Status(s, mbx, st)
	}
	return st, nil
}

func (d *Driver) status(sess *nntp.Session, mb mailstream.NetMbx, group string, flags mailstream.StatusFlags) (*mailstream.Status, error) {
	gi, err := selectGroup(sess, group)
	if err != nil {
		return nil, fmt.Errorf("nntpdrv: status of %s: %w", group, err)
	}
	st := &mailstream.Status{
		Flags:       flags,
		Messages:    gi.count,
		UIDNext:     gi.high + 1,
		UIDValidity: UIDValidity,
	}
	if flags&(mailstream.StatusRecent|mailstream.StatusUnseen) == 0 {
		return st, nil
	}
	var read newsrc.Ranges
	if d.cfg.Newsrc != nil {
		e, err := d.cfg.Newsrc.Get(mb.Host, group)
		if err != nil {
			return nil, err
		}
		read = e.Read
	}
	uids := gi.contiguous()
	if gi.holes() {
		if exact, ok := listArticles(sess, group, gi, d.log); ok {
			uids = exact
			st.Messages = uint64(len(exact))
		}
	}
	max := read.Max()
	for _, u := range uids {
		if read.Contains(u) {
			continue
		}
		st.Unseen++
		if u > max {
			st.Recent++
		}
	}
	return st, nil
}

// listPattern splits ref+pat into network part, namespace prefix and group pattern.
func listPattern(ref, pat string) (mb mailstream.NetMbx, ns, gpat string, err error) {
	name := pat
	if ref != "" {
		if strings.HasPrefix(pat, "{") {
			name = pat
		} else {
			name = ref + pat
		}
	}
	mb, err = mailstream.ParseNetMbx(name)
	if err != nil {
		return
	}
	if mb.Service != "" && mb.Service != "nntp" {
		err = &mailstream.UsageError{Op: "list", Name: name, Reason: "not a news mailbox"}
		return
	}
	gpat = mb.Mailbox
	if strings.HasPrefix(gpat, "#") {
		if !strings.HasPrefix(strings.ToLower(gpat), newsPrefix) {
			err = &mailstream.UsageError{Op: "list", Name: name, Reason: "invalid namespace"}
			return
		}
		ns, gpat = gpat[:len(newsPrefix)], gpat[len(newsPrefix):]
	}
	return
}

func (d *Driver) List(s *mailstream.Stream, ref, pat string) error {
	mb, ns, gpat, err := listPattern(ref, pat)
	if err != nil {
		return err
	}
	pfx := prefixOf(mb) + ns
	if gpat == "" {
		s.Notifier.List(s, delim, pfx, mailstream.ListNoSelect)
		return nil
	}
	p, err := mailstream.CompilePattern(gpat, delim)
	if err != nil {
		return &mailstream.UsageError{Op: "list", Name: pat, Reason: err.Error()}
	}
	sess, temp, err := d.session(s, mb)
	if err != nil {
		return err
	}
	if temp {
		defer sess.Close()
	}
	if sess.Send("LIST", "ACTIVE") != nntp.ReplyList {
		if !sess.Alive() || sess.Send("LIST", "") != nntp.ReplyList {
			s.Log(mailstream.LogError, "%s", sess.ReplyText())
			return sess.ReplyErr()
		}
	}
	var groups []string
	isGroup := map[string]bool{}
	for {
		line, err := sess.ReadLine()
		if err == io.EOF {
			break
		}
		if err == bufreader.ErrLineTooLong {
			continue
		}
		if err != nil {
			return err
		}
		if g := au.UntilString(string(line), ' '); g != "" {
			groups = append(groups, g)
			isGroup[g] = true
		}
	}
	parents := map[string]bool{}
	for _, g := range groups {
		if p.Match(g) {
			s.Notifier.List(s, delim, pfx+g, 0)
			continue
		}
		if !p.Percent {
			continue
		}
		// hierarchy levels above group matching % pattern
		for i := strings.IndexByte(g, delim); i > 0; {
			a := g[:i]
			if !isGroup[a] && !parents[a] && p.Match(a) {
				parents[a] = true
				s.Notifier.List(s, delim, pfx+a, mailstream.ListNoSelect)
			}
			j := strings.IndexByte(g[i+1:], delim)
			if j < 0 {
				break
			}
			i += 1 + j
		}
	}
	return nil
}

func (d *Driver) LSub(s *mailstream.Stream, ref, pat string) error {
	mb, ns, gpat, err := listPattern(ref, pat)
	if err != nil {
		return err
	}
	if d.cfg.Newsrc == nil {
		return nil
	}
	p, err := mailstream.CompilePattern(gpat, delim)
	if err != nil {
		return &mailstream.UsageError{Op: "lsub", Name: pat, Reason: err.Error()}
	}
	l, err := d.cfg.Newsrc.List(mb.Host)
	if err != nil {
		return err
	}
	pfx := prefixOf(mb) + ns
	for _, e := range l {
		if e.Subscribed && p.Match(e.Group) {
			s.Notifier.LSub(s, delim, pfx+e.Group, 0)
		}
	}
	return nil
}

func (d *Driver) subscribe(s *mailstream.Stream, mbx string, on bool) error {
	mb, group, err := parseName(mbx)
	if err != nil {
		return err
	}
	if group == "" {
		return &mailstream.UsageError{Op: "subscribe", Name: mbx, Reason: "no newsgroup given"}
	}
	if d.cfg.Newsrc == nil {
		return errNoNewsrc
	}
	return newsrc.Subscribe(d.cfg.Newsrc, mb.Host, group, on)
}

func (d *Driver) Subscribe(s *mailstream.Stream, mbx string) error {
	return d.subscribe(s, mbx, true)
}

func (d *Driver) Unsubscribe(s *mailstream.Stream, mbx string) error {
	return d.subscribe(s, mbx, false)
}

func notValid(s *mailstream.Stream, op, name string) error {
	if s != nil {
		s.Log(mailstream.LogError, "%s not valid for NNTP", op)
	}
	return &mailstream.UsageError{Op: strings.ToLower(op), Name: name, Reason: "not valid for NNTP"}
}

func (d *Driver) Scan(s *mailstream.Stream, ref, pat, contents string) error {
	return notValid(s, "Scan", ref+pat)
}

func (d *Driver) Create(s *mailstream.Stream, mbx string) error {
	return notValid(s, "Create", mbx)
}

func (d *Driver) Delete(s *mailstream.Stream, mbx string) error {
	return notValid(s, "Delete", mbx)
}

func (d *Driver) Rename(s *mailstream.Stream, old, new string) error {
	return notValid(s, "Rename", old)
}

func (d *Driver) Append(s *mailstream.Stream, mbx string, msg io.Reader) error {
	return notValid(s, "Append", mbx)
}
