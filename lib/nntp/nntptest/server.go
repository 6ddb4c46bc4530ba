// Package nntptest provides scripted in-memory NNTP server for tests.
package nntptest

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type Article struct {
	Head string // header lines separated by "\n", without trailing blank line
	Body string
	// Over overrides generated overview line (without leading number).
	Over string
}

type Group struct {
	Name     string
	Articles map[uint64]*Article
	// Estimate overrides article count in GROUP reply when non-zero.
	Estimate uint64
	// Low and High override bounds in GROUP reply when non-zero.
	Low, High uint64
	Desc      string
}

func (g *Group) nums() []uint64 {
	n := make([]uint64, 0, len(g.Articles))
	for k := range g.Articles {
		n = append(n, k)
	}
	sort.Slice(n, func(i, j int) bool { return n[i] < n[j] })
	return n
}

func (g *Group) bounds() (count, low, high uint64) {
	n := g.nums()
	count = uint64(len(n))
	if len(n) != 0 {
		low, high = n[0], n[len(n)-1]
	}
	if g.Estimate != 0 {
		count = g.Estimate
	}
	if g.Low != 0 {
		low = g.Low
	}
	if g.High != 0 {
		high = g.High
	}
	return
}

type Server struct {
	Greeting string // defaults to posting allowed greeting
	Groups   map[string]*Group
	Users    map[string]string // user -> password

	RequireAuth      bool // every command except AUTHINFO, MODE and QUIT wants auth
	AuthOnModeReader bool // MODE READER wants auth
	AuthForPost      bool // POST wants auth
	AlwaysWantAuth   bool // auth never satisfies gated commands
	NoXOver          bool
	NoListGroup      bool
	NoListActive     bool // only bare LIST works
	// DropOn closes connection without reply when command starts with it.
	DropOn string

	mu     sync.Mutex
	cmds   []string
	posted [][]byte
}

// Dial makes new client connection. Server can be used as dialer.
func (s *Server) Dial(network, addr string) (net.Conn, error) {
	c, sc := net.Pipe()
	go s.serve(sc)
	return c, nil
}

func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cmds...)
}

// Count returns number of commands received starting with prefix.
func (s *Server) Count(prefix string) (n int) {
	for _, c := range s.Commands() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return
}

func (s *Server) Posted() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.posted...)
}

func (s *Server) AddGroup(name string, arts map[uint64]*Article) *Group {
	if s.Groups == nil {
		s.Groups = make(map[string]*Group)
	}
	g := &Group{Name: name, Articles: arts}
	if g.Articles == nil {
		g.Articles = make(map[uint64]*Article)
	}
	s.Groups[name] = g
	return g
}

type conn struct {
	s      *Server
	c      net.Conn
	r      *bufio.Reader
	out    chan string
	done   chan struct{}
	user   string
	authed bool
	group  *Group
	cur    uint64
	post   bool
}

func (s *Server) serve(c net.Conn) {
	x := &conn{
		s:    s,
		c:    c,
		r:    bufio.NewReader(c),
		out:  make(chan string, 64),
		done: make(chan struct{}),
	}
	// writes are asynchronous so pipe never deadlocks on lazy client
	go func() {
		defer close(x.done)
		for m := range x.out {
			if _, err := c.Write([]byte(m)); err != nil {
				for range x.out {
				}
				return
			}
		}
	}()
	defer func() {
		close(x.out)
		<-x.done
		c.Close()
	}()

	greet := s.Greeting
	if greet == "" {
		greet = "200 nntptest ready, posting allowed"
	}
	x.post = strings.HasPrefix(greet, "200")
	x.line(greet)

	for {
		l, err := x.r.ReadString('\n')
		if err != nil {
			return
		}
		l = strings.TrimRight(l, "\r\n")
		s.mu.Lock()
		s.cmds = append(s.cmds, l)
		drop := s.DropOn != "" && strings.HasPrefix(l, s.DropOn)
		s.mu.Unlock()
		if drop {
			return
		}
		if !x.handle(l) {
			return
		}
	}
}

func (x *conn) line(f string, a ...interface{}) {
	x.out <- fmt.Sprintf(f, a...) + "\r\n"
}

// text sends dot-stuffed multi-line block terminated by dot line.
func (x *conn) text(head string, lines []string) {
	var b strings.Builder
	b.WriteString(head)
	b.WriteString("\r\n")
	for _, l := range lines {
		if strings.HasPrefix(l, ".") {
			b.WriteByte('.')
		}
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	b.WriteString(".\r\n")
	x.out <- b.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func (x *conn) gated(cmd string) bool {
	switch cmd {
	case "AUTHINFO", "QUIT":
		return false
	case "MODE":
		return x.s.AuthOnModeReader && (!x.authed || x.s.AlwaysWantAuth)
	case "POST":
		if x.s.AuthForPost && (!x.authed || x.s.AlwaysWantAuth) {
			return true
		}
	}
	return x.s.RequireAuth && (!x.authed || x.s.AlwaysWantAuth)
}

func (x *conn) handle(l string) bool {
	args := strings.Fields(l)
	if len(args) == 0 {
		x.line("500 empty command")
		return true
	}
	cmd := strings.ToUpper(args[0])
	args = args[1:]

	if x.gated(cmd) {
		x.line("480 authentication required")
		return true
	}

	switch cmd {
	case "QUIT":
		x.line("205 bye")
		return false
	case "MODE":
		if x.post {
			x.line("200 reader mode, posting allowed")
		} else {
			x.line("201 reader mode, posting prohibited")
		}
	case "AUTHINFO":
		x.authinfo(args)
	case "GROUP":
		if len(args) != 1 {
			x.line("501 syntax error")
			break
		}
		g := x.s.Groups[args[0]]
		if g == nil {
			x.line("411 no such group")
			break
		}
		x.group = g
		count, low, high := g.bounds()
		x.cur = low
		x.line("211 %d %d %d %s", count, low, high, g.Name)
	case "LISTGROUP":
		x.listgroup(args)
	case "XOVER", "OVER":
		x.over(args)
	case "HEAD", "BODY", "ARTICLE", "STAT":
		x.article(cmd, args)
	case "LIST":
		x.list(args)
	case "POST":
		x.postArticle()
	default:
		x.line("500 unknown command")
	}
	return true
}

func (x *conn) authinfo(args []string) {
	if len(args) != 2 {
		x.line("501 syntax error")
		return
	}
	switch strings.ToUpper(args[0]) {
	case "USER":
		x.user = args[1]
		x.line("381 password required")
	case "PASS":
		if p, ok := x.s.Users[x.user]; ok && x.user != "" && p == args[1] {
			x.authed = true
			x.line("281 authentication accepted")
		} else {
			x.line("481 authentication failed")
		}
	default:
		x.line("501 unknown authinfo")
	}
}

func (x *conn) listgroup(args []string) {
	if x.s.NoListGroup {
		x.line("500 unknown command")
		return
	}
	g := x.group
	if len(args) != 0 {
		g = x.s.Groups[args[0]]
		if g == nil {
			x.line("411 no such group")
			return
		}
		x.group = g
	}
	if g == nil {
		x.line("412 no newsgroup selected")
		return
	}
	count, low, high := g.bounds()
	var l []string
	for _, n := range g.nums() {
		l = append(l, strconv.FormatUint(n, 10))
	}
	x.text(fmt.Sprintf("211 %d %d %d %s list follows", count, low, high, g.Name), l)
}

func parseRange(s string, cur uint64) (lo, hi uint64, ok bool) {
	if s == "" {
		return cur, cur, cur != 0
	}
	a, b, dash := strings.Cut(s, "-")
	var err error
	if lo, err = strconv.ParseUint(a, 10, 64); err != nil {
		return 0, 0, false
	}
	if !dash {
		return lo, lo, true
	}
	if b == "" {
		return lo, ^uint64(0), true
	}
	if hi, err = strconv.ParseUint(b, 10, 64); err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func headerValue(head, name string) string {
	for _, l := range splitLines(head) {
		if len(l) > len(name) && l[len(name)] == ':' && strings.EqualFold(l[:len(name)], name) {
			return strings.TrimSpace(l[len(name)+1:])
		}
	}
	return ""
}

func (a *Article) overview() string {
	if a.Over != "" {
		return a.Over
	}
	size := len(a.Head) + 1 + len(a.Body)
	lines := len(splitLines(a.Body))
	f := []string{
		headerValue(a.Head, "Subject"),
		headerValue(a.Head, "From"),
		headerValue(a.Head, "Date"),
		headerValue(a.Head, "Message-ID"),
		headerValue(a.Head, "References"),
		strconv.Itoa(size),
		strconv.Itoa(lines),
	}
	if xr := headerValue(a.Head, "Xref"); xr != "" {
		f = append(f, "Xref: "+xr)
	}
	return strings.Join(f, "\t")
}

func (x *conn) over(args []string) {
	if x.s.NoXOver {
		x.line("500 unknown command")
		return
	}
	if x.group == nil {
		x.line("412 no newsgroup selected")
		return
	}
	var r string
	if len(args) != 0 {
		r = args[0]
	}
	lo, hi, ok := parseRange(r, x.cur)
	if !ok {
		x.line("501 bad range")
		return
	}
	var l []string
	for _, n := range x.group.nums() {
		if n >= lo && n <= hi {
			l = append(l, strconv.FormatUint(n, 10)+"\t"+x.group.Articles[n].overview())
		}
	}
	x.text("224 overview follows", l)
}

func (x *conn) article(cmd string, args []string) {
	if x.group == nil {
		x.line("412 no newsgroup selected")
		return
	}
	n := x.cur
	if len(args) != 0 {
		var err error
		if n, err = strconv.ParseUint(args[0], 10, 64); err != nil {
			x.line("501 bad article number")
			return
		}
	}
	a := x.group.Articles[n]
	if a == nil {
		x.line("423 no such article")
		return
	}
	x.cur = n
	id := headerValue(a.Head, "Message-ID")
	switch cmd {
	case "STAT":
		x.line("223 %d %s", n, id)
	case "HEAD":
		x.text(fmt.Sprintf("221 %d %s", n, id), splitLines(a.Head))
	case "BODY":
		x.text(fmt.Sprintf("222 %d %s", n, id), splitLines(a.Body))
	case "ARTICLE":
		l := append(splitLines(a.Head), "")
		x.text(fmt.Sprintf("220 %d %s", n, id), append(l, splitLines(a.Body)...))
	}
}

func (x *conn) list(args []string) {
	kw := "ACTIVE"
	if len(args) != 0 {
		kw = strings.ToUpper(args[0])
	}
	names := make([]string, 0, len(x.s.Groups))
	for n := range x.s.Groups {
		names = append(names, n)
	}
	sort.Strings(names)
	var l []string
	switch kw {
	case "ACTIVE":
		if x.s.NoListActive && len(args) != 0 {
			x.line("503 not supported")
			return
		}
		for _, n := range names {
			_, low, high := x.s.Groups[n].bounds()
			l = append(l, fmt.Sprintf("%s %d %d y", n, high, low))
		}
	case "NEWSGROUPS":
		for _, n := range names {
			l = append(l, n+"\t"+x.s.Groups[n].Desc)
		}
	default:
		x.line("501 unknown list keyword")
		return
	}
	x.text("215 list follows", l)
}

func (x *conn) postArticle() {
	if !x.post {
		x.line("440 posting not allowed")
		return
	}
	x.line("340 send article")
	var b strings.Builder
	for {
		l, err := x.r.ReadString('\n')
		if err != nil {
			return
		}
		l = strings.TrimRight(l, "\r\n")
		if l == "." {
			break
		}
		l = strings.TrimPrefix(l, ".")
		b.WriteString(l)
		b.WriteString("\n")
	}
	x.s.mu.Lock()
	x.s.posted = append(x.s.posted, []byte(b.String()))
	x.s.mu.Unlock()
	x.line("240 article posted")
}
