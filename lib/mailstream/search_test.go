package mailstream

import (
	"io"
	"testing"
	"time"
)

type fakeMsg struct {
	uid    uint64
	flags  Flags
	header string
	body   string
}

// fakeDriver serves messages from memory and searches with SearchMsgFull.
type fakeDriver struct {
	msgs    []fakeMsg
	fetches int
}

func (d *fakeDriver) Name() string           { return "fake" }
func (d *fakeDriver) Valid(name string) bool { return name == "fake" }
func (d *fakeDriver) Open(s *Stream) error {
	s.SetExists(uint64(len(d.msgs)))
	for i, m := range d.msgs {
		e := s.Elt(uint64(i + 1))
		e.UID, e.Flags = m.uid, m.flags
	}
	return nil
}
func (d *fakeDriver) Close(s *Stream) {}
func (d *fakeDriver) Status(*Stream, string, StatusFlags) (*Status, error) {
	return &Status{}, nil
}
func (d *fakeDriver) List(*Stream, string, string) error         { return nil }
func (d *fakeDriver) LSub(*Stream, string, string) error         { return nil }
func (d *fakeDriver) Subscribe(*Stream, string) error            { return nil }
func (d *fakeDriver) Unsubscribe(*Stream, string) error          { return nil }
func (d *fakeDriver) Scan(*Stream, string, string, string) error { return nil }
func (d *fakeDriver) Create(s *Stream, mbx string) error         { return Unsupported("create", mbx) }
func (d *fakeDriver) Delete(s *Stream, mbx string) error         { return Unsupported("delete", mbx) }
func (d *fakeDriver) Rename(s *Stream, o, n string) error        { return Unsupported("rename", o) }
func (d *fakeDriver) Append(s *Stream, mbx string, r io.Reader) error {
	return Unsupported("append", mbx)
}
func (d *fakeDriver) FetchFast(*Stream, string, bool) error  { return nil }
func (d *fakeDriver) FetchFlags(*Stream, string, bool) error { return nil }
func (d *fakeDriver) Overview(*Stream, string, bool, OverviewFunc) error {
	return nil
}
func (d *fakeDriver) Header(s *Stream, msgno uint64) ([]byte, error) {
	d.fetches++
	return []byte(d.msgs[msgno-1].header), nil
}
func (d *fakeDriver) Text(s *Stream, msgno uint64, peek bool) ([]byte, error) {
	d.fetches++
	return []byte(d.msgs[msgno-1].body), nil
}
func (d *fakeDriver) FlagMsg(*Stream, *Elt, Flags) {}
func (d *fakeDriver) Search(s *Stream, charset string, pgm *SearchProgram, opts SearchOptions) ([]uint64, error) {
	pgm, err := pgm.Convert(charset)
	if err != nil {
		return nil, err
	}
	var r []uint64
	for _, e := range s.Elts() {
		if pgm.Prefilter(s, e) && SearchMsgFull(s, e.MsgNo, pgm) {
			e.Searched = true
			r = append(r, e.MsgNo)
		}
	}
	return r, nil
}
func (d *fakeDriver) Sort(s *Stream, charset string, spg *SearchProgram, pgm []SortProgram, opts SortOptions) ([]uint64, error) {
	if _, err := s.Search(charset, spg, SearchOptions{Silent: true}); err != nil {
		return nil, err
	}
	LoadSortCacheGeneric(s)
	return SortCaches(SortIndex(s, opts.UID), pgm), nil
}
func (d *fakeDriver) Thread(s *Stream, alg, charset string, spg *SearchProgram, opts SortOptions) ([]*ThreadNode, error) {
	return ThreadMsgs(s, alg, charset, spg, opts, d.Sort)
}
func (d *fakeDriver) Ping(*Stream) bool                        { return true }
func (d *fakeDriver) Check(*Stream) error                      { return nil }
func (d *fakeDriver) Expunge(*Stream) error                    { return nil }
func (d *fakeDriver) Copy(*Stream, string, bool, string) error { return nil }

func openFake(t *testing.T) (*Stream, *fakeDriver) {
	d := &fakeDriver{msgs: []fakeMsg{
		{uid: 10, header: "From: Alice <alice@example.org>\r\nTo: bob@example.org\r\nSubject: Hello world\r\nDate: Mon, 02 Jan 2023 10:00:00 +0000\r\nMessage-ID: <1@x>\r\nX-Tag: red\r\n\tgreen\r\n\r\n", body: "first body\r\n"},
		{uid: 11, flags: FlagSeen, header: "From: Bob <bob@example.org>\nSubject: Re: Hello world\nDate: Tue, 03 Jan 2023 10:00:00 +0000\nNewsgroups: misc.test\nReferences: <1@x>\n\n", body: "second body, with Secret\n"},
		{uid: 12, flags: FlagDeleted, header: "From: carol@example.org (Carol)\nSubject: =?ISO-8859-1?Q?Gr=FC=DFe?=\nDate: Wed, 04 Jan 2023 10:00:00 +0000\n\n", body: "third\n"},
	}}
	reg := NewRegistry(d)
	s, err := reg.Open(nil, "fake", OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return s, d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSearchFull(t *testing.T) {
	s, _ := openFake(t)
	always := &SearchProgram{}
	never := &SearchProgram{FlagsSet: FlagDraft}

	tests := []struct {
		name    string
		charset string
		pgm     *SearchProgram
		exp     []uint64
		err     bool
	}{
		{name: "all", pgm: &SearchProgram{}, exp: []uint64{1, 2, 3}},
		{name: "from", pgm: &SearchProgram{From: []string{"ALICE"}}, exp: []uint64{1}},
		{name: "from comment name", pgm: &SearchProgram{From: []string{"carol"}}, exp: []uint64{3}},
		{name: "to", pgm: &SearchProgram{To: []string{"bob@"}}, exp: []uint64{1}},
		{name: "subject", pgm: &SearchProgram{Subject: []string{"hello"}}, exp: []uint64{1, 2}},
		{name: "subject encoded", pgm: &SearchProgram{Subject: []string{"grüße"}}, exp: []uint64{3}},
		{name: "seen", pgm: &SearchProgram{FlagsSet: FlagSeen}, exp: []uint64{2}},
		{name: "undeleted", pgm: &SearchProgram{FlagsClear: FlagDeleted}, exp: []uint64{1, 2}},
		{name: "keyword", pgm: &SearchProgram{Keyword: []string{"x"}}, exp: nil},
		{name: "unkeyword", pgm: &SearchProgram{Unkeyword: []string{"x"}}, exp: []uint64{1, 2, 3}},
		{name: "msgno", pgm: &SearchProgram{MsgNo: "2:*"}, exp: []uint64{2, 3}},
		{name: "uid", pgm: &SearchProgram{UID: "10,12"}, exp: []uint64{1, 3}},
		{name: "body", pgm: &SearchProgram{Body: []string{"secret"}}, exp: []uint64{2}},
		{name: "text hits header", pgm: &SearchProgram{Text: []string{"misc.test"}}, exp: []uint64{2}},
		{name: "newsgroups", pgm: &SearchProgram{Newsgroups: []string{"misc"}}, exp: []uint64{2}},
		{name: "header continuation", pgm: &SearchProgram{Header: []SearchHeader{{Field: "X-Tag", Text: "green"}}}, exp: []uint64{1}},
		{name: "header empty matches present", pgm: &SearchProgram{Header: []SearchHeader{{Field: "references"}}}, exp: []uint64{2}},
		{name: "header prefix is not field", pgm: &SearchProgram{Header: []SearchHeader{{Field: "X-Ta"}}}, exp: nil},
		{name: "senton", pgm: &SearchProgram{SentOn: day(2023, 1, 3)}, exp: []uint64{2}},
		{name: "sentsince", pgm: &SearchProgram{SentSince: day(2023, 1, 3)}, exp: []uint64{2, 3}},
		{name: "before", pgm: &SearchProgram{Before: day(2023, 1, 3)}, exp: []uint64{1}},
		{name: "or true false", pgm: &SearchProgram{FlagsClear: FlagDeleted, Or: []SearchOr{{A: always, B: never}}}, exp: []uint64{1, 2}},
		{name: "or false false", pgm: &SearchProgram{Or: []SearchOr{{A: never, B: never}}}, exp: nil},
		{name: "not", pgm: &SearchProgram{Not: []*SearchProgram{{Subject: []string{"re:"}}}}, exp: []uint64{1, 3}},
		{name: "not cheap", pgm: &SearchProgram{Not: []*SearchProgram{{FlagsSet: FlagSeen}}}, exp: []uint64{1, 3}},
		{name: "charset", charset: "ISO-8859-1", pgm: &SearchProgram{Subject: []string{"gr\xfc"}}, exp: []uint64{3}},
		{name: "bad charset", charset: "X-NO-SUCH", pgm: &SearchProgram{}, err: true},
	}
	for _, tc := range tests {
		r, err := s.Search(tc.charset, tc.pgm, SearchOptions{})
		if (err != nil) != tc.err {
			t.Errorf("%s: unexpected error state %v", tc.name, err)
			continue
		}
		if len(r) != len(tc.exp) {
			t.Errorf("%s: got %v, want %v", tc.name, r, tc.exp)
			continue
		}
		for i := range r {
			if r[i] != tc.exp[i] {
				t.Errorf("%s: got %v, want %v", tc.name, r, tc.exp)
				break
			}
		}
		for _, e := range s.Elts() {
			found := false
			for _, n := range r {
				found = found || n == e.MsgNo
			}
			if e.Searched != found {
				t.Errorf("%s: msg %d searched=%v", tc.name, e.MsgNo, e.Searched)
			}
		}
	}
}

func TestPrefilterSkipsFetch(t *testing.T) {
	s, d := openFake(t)
	pgm := &SearchProgram{FlagsSet: FlagSeen, Subject: []string{"hello"}}
	d.fetches = 0
	r, err := s.Search("", pgm, SearchOptions{})
	if err != nil || len(r) != 1 || r[0] != 2 {
		t.Fatalf("got %v %v", r, err)
	}
	if d.fetches != 1 {
		t.Errorf("expected one header fetch, got %d", d.fetches)
	}
}

func TestGenericSort(t *testing.T) {
	s, _ := openFake(t)
	r, err := s.Sort("", nil, []SortProgram{{Key: SortFrom, Reverse: true}}, SortOptions{UID: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 3 || r[0] != 12 || r[1] != 11 || r[2] != 10 {
		t.Errorf("got %v", r)
	}
	th, err := s.Thread(ThreadReferences, "", nil, SortOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(th) != 2 || th[0].Num != 1 || len(th[0].Children) != 1 || th[0].Children[0].Num != 2 {
		t.Errorf("got %s", dumpThreads(th))
	}
}
