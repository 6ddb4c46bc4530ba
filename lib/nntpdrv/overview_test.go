package nntpdrv

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"nkmail/lib/mailstream"
	. "nkmail/lib/utils/logx"
)

func TestParseOverview(t *testing.T) {
	raw := "Re: hi\tBob <bob@example.net>\tTue, 03 Jan 2006 10:00:00 +0000\t<2@x>\t<1@x>\t1234\t17\tXref: news.example misc.test:2"
	ov, ok := ParseOverview(raw)
	if !ok {
		t.Fatal("not parsed")
	}
	if ov.Subject != "Re: hi" || ov.MessageID != "<2@x>" || ov.References != "<1@x>" ||
		ov.Octets != 1234 || ov.Lines != 17 || ov.Xref != "news.example misc.test:2" {
		t.Errorf("parsed %s", spew.Sdump(ov))
	}
	if len(ov.From) != 1 || ov.From[0].Mailbox != "bob" || ov.From[0].Host != "example.net" || ov.From[0].Personal != "Bob" {
		t.Errorf("from %s", spew.Sdump(ov.From))
	}
	if got := FormatOverview(ov); got != raw {
		t.Errorf("round trip:\n%q\n%q", got, raw)
	}

	// empty references still present
	if _, ok = ParseOverview("s\tf\td\t<id>\t"); !ok {
		t.Error("empty references field rejected")
	}
	for _, bad := range []string{"", "s\tf\td\t<id>", "only subject"} {
		if _, ok = ParseOverview(bad); ok {
			t.Errorf("accepted %q", bad)
		}
	}
}

func TestLoadOverviewRuns(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	// message 3 already cached: two runs remain
	s.Elt(3).SetRawOverview("x\ty\tz\t<102@x>\t")
	if err := e.drv.LoadOverview(s, "", false); err != nil {
		t.Fatal(err)
	}
	if e.srv.Count("XOVER") != 2 || e.srv.Count("XOVER 100-101") != 1 || e.srv.Count("XOVER 104-105") != 1 {
		t.Errorf("commands %q", e.srv.Commands())
	}
	for i := uint64(1); i <= 5; i++ {
		if _, ok := s.Elt(i).RawOverview(); !ok {
			t.Errorf("message %d not cached", i)
		}
	}
	raw, _ := s.Elt(4).RawOverview()
	if ov, ok := ParseOverview(string(raw)); !ok || ov.MessageID != "<104@x>" {
		t.Errorf("overview of 4: %q", raw)
	}

	// all cached, nothing sent
	if err := e.drv.LoadOverview(s, "1:5", false); err != nil {
		t.Fatal(err)
	}
	if e.srv.Count("XOVER") != 2 {
		t.Errorf("refetched: %q", e.srv.Commands())
	}
}

func TestLoadOverviewUIDSeq(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()
	if err := e.drv.LoadOverview(s, "101:104", true); err != nil {
		t.Fatal(err)
	}
	if e.srv.Count("XOVER 101-104") != 1 || e.srv.Count("XOVER") != 1 {
		t.Errorf("commands %q", e.srv.Commands())
	}
	if _, ok := s.Elt(1).RawOverview(); ok {
		t.Error("unselected message cached")
	}
}

func TestOverviewCallback(t *testing.T) {
	srv := newsServer()
	e := newEnv(srv, Config{})
	s := e.open(t, testMbx)
	defer s.Close()

	g := srv.Groups["misc.test"]
	g.Articles[101].Over = "no references here\tbob\tdate"
	// appears after open: unknown to stream
	g.Articles[103] = article("z@z", "late", "Sun, 01 Jan 2006 10:00:00 +0000", "<103@x>", "", "", "z\n")

	got := map[uint64]*mailstream.Overview{}
	fn := func(s *mailstream.Stream, uid uint64, ov *mailstream.Overview) {
		got[uid] = ov
	}
	if err := s.Driver.Overview(s, "", false, fn); err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("callbacks %s", spew.Sdump(got))
	}
	if got[101] != nil {
		t.Error("unparsable overview delivered")
	}
	if got[100] == nil || got[100].Subject != "hello world" || got[105].FromText != "dave@example.com" {
		t.Errorf("overviews %s", spew.Sdump(got))
	}
	if raw, ok := s.Elt(2).RawOverview(); !ok || raw != "" {
		t.Errorf("bad overview not replaced by sentinel: %q %v", raw, ok)
	}
	if !e.log.Contains(WARN, "unknown UID 103") {
		t.Error("unknown UID not reported")
	}

	// sentinel is not fetched again
	n := srv.Count("XOVER")
	if err := s.Driver.Overview(s, "2", false, fn); err != nil {
		t.Fatal(err)
	}
	if srv.Count("XOVER") != n {
		t.Error("sentinel refetched")
	}
}

func TestOverviewWithoutXOver(t *testing.T) {
	srv := newsServer()
	srv.NoXOver = true
	e := newEnv(srv, Config{})
	s := e.open(t, testMbx)
	defer s.Close()
	calls := 0
	err := s.Driver.Overview(s, "", false, func(s *mailstream.Stream, uid uint64, ov *mailstream.Overview) {
		calls++
		if ov != nil {
			t.Errorf("overview for %d", uid)
		}
	})
	if err != nil || calls != 5 {
		t.Errorf("err %v calls %d", err, calls)
	}
	// rejection stops loading at first run
	if srv.Count("XOVER") != 1 {
		t.Errorf("commands %q", srv.Commands())
	}
}
