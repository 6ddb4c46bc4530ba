package nntpdrv

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"nkmail/lib/mailstream"
)

func sortBy(keys ...mailstream.SortKey) []mailstream.SortProgram {
	r := make([]mailstream.SortProgram, len(keys))
	for i, k := range keys {
		r[i] = mailstream.SortProgram{Key: k}
	}
	return r
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		spg  *mailstream.SearchProgram
		pgm  []mailstream.SortProgram
		uid  bool
		want []uint64
	}{
		{"date", nil, sortBy(mailstream.SortDate), false, []uint64{3, 1, 2, 4, 5}},
		{"reverse date", nil, []mailstream.SortProgram{{Key: mailstream.SortDate, Reverse: true}}, false,
			[]uint64{4, 5, 2, 1, 3}},
		{"subject then date", nil, sortBy(mailstream.SortSubject, mailstream.SortDate), false,
			[]uint64{3, 4, 1, 2, 5}},
		{"from", nil, sortBy(mailstream.SortFrom), false, []uint64{1, 4, 2, 3, 5}},
		{"arrival", nil, sortBy(mailstream.SortArrival), false, []uint64{1, 2, 3, 4, 5}},
		{"date uid", nil, sortBy(mailstream.SortDate), true, []uint64{102, 100, 101, 104, 105}},
		{"searched", &mailstream.SearchProgram{Subject: []string{"hello"}},
			[]mailstream.SortProgram{{Key: mailstream.SortDate, Reverse: true}}, false,
			[]uint64{5, 2, 1}},
	}
	e, s := openTest(t)
	defer s.Close()
	for _, tt := range tests {
		got, err := s.Sort("", tt.spg, tt.pgm, mailstream.SortOptions{UID: tt.uid})
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %v want %v", tt.name, got, tt.want)
		}
	}
	if n := e.srv.Count("XOVER"); n != 1 {
		t.Errorf("XOVER sent %d times, commands %q", n, e.srv.Commands())
	}
	if len(e.rec.searched) != 0 {
		t.Errorf("sort notified searched %v", e.rec.searched)
	}
}

func TestSortIgnoresAddressKeys(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	pgm := sortBy(mailstream.SortTo, mailstream.SortSubject, mailstream.SortCc,
		mailstream.SortTo, mailstream.SortDate)
	got, err := s.Sort("", nil, pgm, mailstream.SortOptions{})
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{3, 4, 1, 2, 5}) {
		t.Errorf("got %v", got)
	}
	want := []string{
		"[NNTPSORT] Can't do To-field sorting in NNTP",
		"[NNTPSORT] Can't do cc-field sorting in NNTP",
	}
	var warned []string
	for _, n := range e.rec.notes {
		if strings.HasPrefix(n, "[NNTPSORT]") {
			warned = append(warned, n)
		}
	}
	if !reflect.DeepEqual(warned, want) {
		t.Errorf("notes %s", spew.Sdump(e.rec.notes))
	}
}

func TestSortUnknownKey(t *testing.T) {
	_, s := openTest(t)
	defer s.Close()

	_, err := s.Sort("", nil, sortBy(mailstream.SortKey(42)), mailstream.SortOptions{})
	var ue *mailstream.UsageError
	if !errors.As(err, &ue) {
		t.Errorf("got %v", err)
	}
}

func TestSortWithoutXOver(t *testing.T) {
	srv := newsServer()
	srv.NoXOver = true
	e := newEnv(srv, Config{})
	s := e.open(t, testMbx)
	defer s.Close()

	got, err := s.Sort("", nil, sortBy(mailstream.SortDate), mailstream.SortOptions{})
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{3, 1, 2, 4, 5}) {
		t.Errorf("got %v", got)
	}
	if n := srv.Count("HEAD"); n != 5 {
		t.Errorf("HEAD sent %d times", n)
	}
	// keys are cached now
	if _, err = s.Sort("", nil, sortBy(mailstream.SortSubject), mailstream.SortOptions{}); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if n := srv.Count("HEAD"); n != 5 {
		t.Errorf("HEAD sent %d times after second sort", n)
	}
}

func TestSortPartialRange(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	got, err := s.Sort("", &mailstream.SearchProgram{UID: "101:102"}, sortBy(mailstream.SortDate), mailstream.SortOptions{})
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{3, 2}) {
		t.Errorf("got %v", got)
	}
	cmds := e.srv.Commands()
	found := false
	for _, c := range cmds {
		if c == "XOVER 101-102" {
			found = true
		}
	}
	if !found {
		t.Errorf("no ranged XOVER in %q", cmds)
	}
}

func leaf(n uint64) *mailstream.ThreadNode { return &mailstream.ThreadNode{Num: n} }

func TestThread(t *testing.T) {
	tests := []struct {
		alg  string
		uid  bool
		want []*mailstream.ThreadNode
	}{
		{mailstream.ThreadReferences, false, []*mailstream.ThreadNode{
			{Num: 3, Children: []*mailstream.ThreadNode{leaf(4)}},
			{Num: 1, Children: []*mailstream.ThreadNode{leaf(2)}},
			leaf(5),
		}},
		{mailstream.ThreadReferences, true, []*mailstream.ThreadNode{
			{Num: 102, Children: []*mailstream.ThreadNode{leaf(104)}},
			{Num: 100, Children: []*mailstream.ThreadNode{leaf(101)}},
			leaf(105),
		}},
		{"orderedsubject", false, []*mailstream.ThreadNode{
			{Num: 3, Children: []*mailstream.ThreadNode{leaf(4)}},
			{Num: 1, Children: []*mailstream.ThreadNode{leaf(2), leaf(5)}},
		}},
	}
	_, s := openTest(t)
	defer s.Close()
	for _, tt := range tests {
		got, err := s.Thread(tt.alg, "", nil, mailstream.SortOptions{UID: tt.uid})
		if err != nil {
			t.Errorf("%s: %v", tt.alg, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s uid=%v: got %s", tt.alg, tt.uid, spew.Sdump(got))
		}
	}
	if _, err := s.Thread("BOGUS", "", nil, mailstream.SortOptions{}); err == nil {
		t.Errorf("unknown algorithm accepted")
	}
}

func TestSortUsesCachedOverview(t *testing.T) {
	e, s := openTest(t)
	defer s.Close()

	if _, err := s.Search("", nil, mailstream.SearchOptions{Overview: true, Silent: true}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	got, err := s.Sort("", nil, sortBy(mailstream.SortDate), mailstream.SortOptions{})
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if !reflect.DeepEqual(got, []uint64{3, 1, 2, 4, 5}) {
		t.Errorf("got %v", got)
	}
	if n := e.srv.Count("XOVER"); n != 1 {
		t.Errorf("XOVER sent %d times, commands %q", n, e.srv.Commands())
	}
}

func TestSortShortOverview(t *testing.T) {
	srv := newsServer()
	over := map[uint64]string{
		100: "delta\ta@x\tMon, 02 Jan 2006 10:00:00 +0000",
		101: "alpha\tb@x\tTue, 03 Jan 2006 10:00:00 +0000",
		102: "charlie\tc@x\tSun, 01 Jan 2006 10:00:00 +0000",
		104: "Re: bravo\td@x\tWed, 04 Jan 2006 10:00:00 +0000",
		105: "echo\te@x\tThu, 05 Jan 2006 10:00:00 +0000",
	}
	for n, o := range over {
		srv.Groups["misc.test"].Articles[n].Over = o
	}
	e := newEnv(srv, Config{})
	s := e.open(t, testMbx)
	defer s.Close()

	tests := []struct {
		pgm  []mailstream.SortProgram
		want []uint64
	}{
		{sortBy(mailstream.SortSubject), []uint64{2, 4, 3, 1, 5}},
		{[]mailstream.SortProgram{{Key: mailstream.SortFrom, Reverse: true}}, []uint64{5, 4, 3, 2, 1}},
		{sortBy(mailstream.SortDate), []uint64{3, 1, 2, 4, 5}},
	}
	for _, tt := range tests {
		got, err := s.Sort("", nil, tt.pgm, mailstream.SortOptions{})
		if err != nil {
			t.Fatalf("Sort: %v", err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%v: got %v want %v", tt.pgm, got, tt.want)
		}
	}
	if srv.Count("XOVER") != 1 || srv.Count("HEAD") != 0 {
		t.Errorf("commands %q", srv.Commands())
	}
}
