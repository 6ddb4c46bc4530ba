package nntpdrv

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"nkmail/lib/mailstream"
)

func jan(d int) time.Time {
	return time.Date(2006, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name string
		pgm  *mailstream.SearchProgram
		want []uint64
	}{
		{"all", &mailstream.SearchProgram{}, []uint64{1, 2, 3, 4, 5}},
		{"subject", &mailstream.SearchProgram{Subject: []string{"hello"}}, []uint64{1, 2, 5}},
		{"subject folded", &mailstream.SearchProgram{Subject: []string{"HELLO WORLD"}}, []uint64{1, 2, 5}},
		{"from", &mailstream.SearchProgram{From: []string{"alice"}}, []uint64{1, 4}},
		{"or", &mailstream.SearchProgram{Or: []mailstream.SearchOr{{
			A: &mailstream.SearchProgram{Subject: []string{"topic"}},
			B: &mailstream.SearchProgram{From: []string{"dave"}},
		}}}, []uint64{3, 4, 5}},
		{"not", &mailstream.SearchProgram{
			Subject: []string{"hello"},
			Not:     []*mailstream.SearchProgram{{From: []string{"alice"}}},
		}, []uint64{2, 5}},
		{"msgno", &mailstream.SearchProgram{MsgNo: "2:4", Subject: []string{"hello"}}, []uint64{2}},
		{"uid", &mailstream.SearchProgram{UID: "102:*"}, []uint64{3, 4, 5}},
		{"sentsince", &mailstream.SearchProgram{SentSince: jan(3)}, []uint64{2, 4, 5}},
		{"sentbefore", &mailstream.SearchProgram{SentBefore: jan(3)}, []uint64{1, 3}},
		{"message-id", &mailstream.SearchProgram{MessageID: []string{"<104@x>"}}, []uint64{4}},
		{"references", &mailstream.SearchProgram{References: []string{"<102@x>"}}, []uint64{4}},
		{"header present", &mailstream.SearchProgram{
			Header: []mailstream.SearchHeader{{Field: "References"}},
		}, []uint64{2, 4}},
		{"body", &mailstream.SearchProgram{Body: []string{"signature"}}, []uint64{2, 3}},
		{"to", &mailstream.SearchProgram{To: []string{"list"}}, []uint64{4}},
		{"nothing", &mailstream.SearchProgram{Subject: []string{"absent"}}, nil},
	}
	for _, overview := range []bool{false, true} {
		e, s := openTest(t)
		for _, tt := range tests {
			got, err := s.Search("", tt.pgm, mailstream.SearchOptions{Overview: overview, Silent: true})
			if err != nil {
				t.Errorf("%s (overview %v): %v", tt.name, overview, err)
				continue
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s (overview %v): got %v want %v", tt.name, overview, got, tt.want)
			}
		}
		if len(e.rec.searched) != 0 {
			t.Errorf("silent search notified %v", e.rec.searched)
		}
		s.Close()
	}
}

func TestSearchOverviewAvoidsArticles(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	pgm := &mailstream.SearchProgram{Subject: []string{"hello"}, From: []string{"example"}}
	got, err := s.Search("", pgm, mailstream.SearchOptions{Overview: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{1, 2, 5}) {
		t.Errorf("got %v", got)
	}
	if n := e.srv.Count("XOVER"); n != 1 {
		t.Errorf("XOVER sent %d times", n)
	}
	if n := e.srv.Count("HEAD"); n != 0 {
		t.Errorf("HEAD sent %d times", n)
	}
	if !reflect.DeepEqual(e.rec.searched, []uint64{1, 2, 5}) {
		t.Errorf("notified %v", e.rec.searched)
	}
	for _, m := range []uint64{1, 2, 5} {
		if !s.Elt(m).Searched {
			t.Errorf("message %d not marked searched", m)
		}
	}
	if s.Elt(3).Searched {
		t.Errorf("message 3 marked searched")
	}

	// overview stays cached
	if _, err = s.Search("", pgm, mailstream.SearchOptions{Overview: true}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if n := e.srv.Count("XOVER"); n != 1 {
		t.Errorf("XOVER sent %d times after second search", n)
	}
}

func TestSearchFullFetch(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	got, err := s.Search("", &mailstream.SearchProgram{
		MsgNo:   "1:3",
		Subject: []string{"hello"},
	}, mailstream.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{1, 2}) {
		t.Errorf("got %v", got)
	}
	// only candidates surviving message set are fetched
	if n := e.srv.Count("HEAD"); n != 3 {
		t.Errorf("HEAD sent %d times, commands %q", n, e.srv.Commands())
	}
	if n := e.srv.Count("XOVER"); n != 0 {
		t.Errorf("XOVER sent %d times", n)
	}
}

func TestSearchFetchTreeSkipsOverview(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	pgm := &mailstream.SearchProgram{
		Subject: []string{"topic"},
		Not:     []*mailstream.SearchProgram{{To: []string{"list"}}},
	}
	got, err := s.Search("", pgm, mailstream.SearchOptions{Overview: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{3}) {
		t.Errorf("got %v", got)
	}
	if n := e.srv.Count("XOVER"); n != 0 {
		t.Errorf("XOVER sent %d times", n)
	}
}

func TestSearchUIDResults(t *testing.T) {
	_, s := openTest(t)
	defer s.Close()

	got, err := s.Search("", &mailstream.SearchProgram{From: []string{"alice"}},
		mailstream.SearchOptions{UID: true, Overview: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{100, 104}) {
		t.Errorf("got %v", got)
	}
}

func TestSearchFlags(t *testing.T) {
	_, s := openTest(t)
	defer s.Close()

	if err := s.SetFlags("2,4", false, mailstream.FlagDeleted, true); err != nil {
		t.Fatalf("SetFlags: %v", err)
	}
	got, err := s.Search("", &mailstream.SearchProgram{FlagsClear: mailstream.FlagDeleted}, mailstream.SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{1, 3, 5}) {
		t.Errorf("undeleted: got %v", got)
	}
	got, err = s.Search("", &mailstream.SearchProgram{
		FlagsSet: mailstream.FlagDeleted,
		Subject:  []string{"hello"},
	}, mailstream.SearchOptions{Overview: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{2}) {
		t.Errorf("deleted hello: got %v", got)
	}
}

func TestSearchCharset(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	got, err := s.Search("ISO-8859-1", &mailstream.SearchProgram{Subject: []string{"hello"}},
		mailstream.SearchOptions{Overview: true})
	if err != nil {
		t.Fatalf("Search ISO-8859-1: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{1, 2, 5}) {
		t.Errorf("got %v", got)
	}

	got, err = s.Search("X-NO-SUCH-CHARSET", &mailstream.SearchProgram{Subject: []string{"hello"}},
		mailstream.SearchOptions{})
	if err == nil {
		t.Fatalf("unknown charset accepted, got %v", got)
	}
	var ue *mailstream.UsageError
	if !errors.As(err, &ue) {
		t.Errorf("error %T %v", err, err)
	}
	if len(e.rec.logs) == 0 || e.rec.logs[len(e.rec.logs)-1] != "[BADCHARSET] Unknown character set X-NO-SUCH-CHARSET" {
		t.Errorf("logs %q", e.rec.logs)
	}
}

func TestSearchHalfOpen(t *testing.T) {
	e := newEnv(newsServer(), Config{})
	s := e.open(t, "{news.example/nntp}")
	defer s.Close()

	if _, err := s.Search("", nil, mailstream.SearchOptions{}); err == nil {
		t.Errorf("search on half-open stream succeeded")
	}
}

func TestSearchKeepsSequence(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	if err := s.Mark("3", false); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	got, err := s.Search("", &mailstream.SearchProgram{Subject: []string{"hello"}},
		mailstream.SearchOptions{Overview: true, Silent: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{1, 2, 5}) {
		t.Errorf("got %v", got)
	}
	if e.srv.Count("XOVER") != 1 {
		t.Errorf("commands %q", e.srv.Commands())
	}
	for _, el := range s.Elts() {
		if el.Sequence != (el.MsgNo == 3) {
			t.Errorf("message %d sequence mark %v", el.MsgNo, el.Sequence)
		}
	}
}
