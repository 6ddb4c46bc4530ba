package nntpdrv

import (
	"fmt"
	"testing"

	"nkmail/lib/mailstream"
	"nkmail/lib/nntp/nntptest"
	. "nkmail/lib/utils/logx"
)

type listed struct {
	name  string
	attrs mailstream.ListAttrs
}

// recorder keeps what driver told application.
type recorder struct {
	mailstream.NopNotifier
	logs     []string
	notes    []string
	searched []uint64
	flags    []uint64
	lists    []listed
	lsubs    []string
	status   []*mailstream.Status
}

func (r *recorder) Log(text string, kind mailstream.LogKind) {
	r.logs = append(r.logs, text)
}

func (r *recorder) Notify(s *mailstream.Stream, text string, kind mailstream.LogKind) {
	r.notes = append(r.notes, text)
}

func (r *recorder) Searched(s *mailstream.Stream, msgno uint64) {
	r.searched = append(r.searched, msgno)
}

func (r *recorder) Flags(s *mailstream.Stream, msgno uint64) {
	r.flags = append(r.flags, msgno)
}

func (r *recorder) List(s *mailstream.Stream, delim byte, name string, attrs mailstream.ListAttrs) {
	r.lists = append(r.lists, listed{name, attrs})
}

func (r *recorder) LSub(s *mailstream.Stream, delim byte, name string, attrs mailstream.ListAttrs) {
	r.lsubs = append(r.lsubs, name)
}

func (r *recorder) Status(s *mailstream.Stream, mbx string, st *mailstream.Status) {
	r.status = append(r.status, st)
}

func article(from, subj, date, id, refs, extra, body string) *nntptest.Article {
	h := fmt.Sprintf("From: %s\nSubject: %s\nDate: %s\nMessage-ID: %s\nNewsgroups: misc.test", from, subj, date, id)
	if refs != "" {
		h += "\nReferences: " + refs
	}
	if extra != "" {
		h += "\n" + extra
	}
	return &nntptest.Article{Head: h, Body: body}
}

// newsServer serves misc.test with articles 100-105, 103 missing.
func newsServer() *nntptest.Server {
	srv := &nntptest.Server{Users: map[string]string{"bob": "secret"}}
	srv.AddGroup("misc.test", map[uint64]*nntptest.Article{
		100: article("Alice <alice@example.org>", "hello world",
			"Mon, 02 Jan 2006 10:00:00 +0000", "<100@x>", "", "", "first\n"),
		101: article("bob@example.net", "Re: hello world",
			"Tue, 03 Jan 2006 10:00:00 +0000", "<101@x>", "<100@x>", "",
			"reply with signature\n-- \nbob\n"),
		102: article("Carol <carol@example.com>", "another topic",
			"Sun, 01 Jan 2006 10:00:00 +0000", "<102@x>", "", "", "..signature test\n"),
		104: article("alice@example.org", "Re: another topic",
			"Wed, 04 Jan 2006 10:00:00 +0000", "<104@x>", "<102@x>",
			"To: list@example.org", "more\n"),
		105: article("dave@example.com", "hello world",
			"Wed, 04 Jan 2006 10:00:00 +0000", "<105@x>", "", "", "late\n"),
	})
	srv.AddGroup("misc.other", map[uint64]*nntptest.Article{
		1: article("x@y", "a", "Sun, 01 Jan 2006 10:00:00 +0000", "<1@y>", "", "", "a\n"),
		2: article("x@y", "b", "Sun, 01 Jan 2006 10:00:00 +0000", "<2@y>", "", "", "b\n"),
	}).Desc = "other things"
	srv.AddGroup("misc.test.sub", nil)
	srv.AddGroup("comp.lang.go", nil)
	return srv
}

const testMbx = "{news.example/nntp}#news.misc.test"

type env struct {
	srv *nntptest.Server
	drv *Driver
	reg *mailstream.Registry
	rec *recorder
	log *MemLogger
}

func newEnv(srv *nntptest.Server, cfg Config) *env {
	e := &env{srv: srv, rec: &recorder{}, log: &MemLogger{Min: DEBUG}}
	cfg.Dialer = srv
	cfg.Logger = e.log
	e.drv = New(cfg)
	e.reg = mailstream.NewRegistry(e.drv)
	return e
}

func (e *env) open(t *testing.T, name string) *mailstream.Stream {
	t.Helper()
	s, err := e.reg.Open(nil, name, mailstream.OpenOptions{Notifier: e.rec})
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	return s
}

func openTest(t *testing.T) (*env, *mailstream.Stream) {
	t.Helper()
	e := newEnv(newsServer(), Config{})
	return e, e.open(t, testMbx)
}
