package mailstream

import "testing"

func TestParseNetMbx(t *testing.T) {
	tests := []struct {
		in  string
		exp NetMbx
		err bool
	}{
		{in: "{news.example.org/nntp}comp.lang.go", exp: NetMbx{
			Host: "news.example.org", OrigHost: "news.example.org",
			Service: "nntp", Mailbox: "comp.lang.go"}},
		{in: "{news.example.org:1119/service=NNTP/user=\"bob\"/debug}#news.misc.test", exp: NetMbx{
			Host: "news.example.org", OrigHost: "news.example.org", Port: 1119,
			Service: "nntp", User: "bob", Debug: true, Mailbox: "#news.misc.test"}},
		{in: "{[::1]:119/nntp/readonly/tryalt}x", exp: NetMbx{
			Host: "[::1]", OrigHost: "[::1]", Port: 119, Service: "nntp",
			ReadOnly: true, TryAlt: true, Mailbox: "x"}},
		{in: "{h/user=\"a/b\"}", exp: NetMbx{Host: "h", OrigHost: "h", User: "a/b"}},
		{in: "comp.lang.go", err: true},
		{in: "{news", err: true},
		{in: "{}x", err: true},
		{in: "{h:0}x", err: true},
		{in: "{h/bogus}x", err: true},
		{in: "{h/user}x", err: true},
	}
	for _, tc := range tests {
		mb, err := ParseNetMbx(tc.in)
		if (err != nil) != tc.err {
			t.Errorf("%q: unexpected error state %v", tc.in, err)
			continue
		}
		if !tc.err && mb != tc.exp {
			t.Errorf("%q: got %+v, want %+v", tc.in, mb, tc.exp)
		}
	}
}

func TestNetMbxFormat(t *testing.T) {
	mb, err := ParseNetMbx("{news.example.org/nntp/user=bob}misc.test")
	if err != nil {
		t.Fatal(err)
	}
	if p := mb.Prefix(119); p != `{news.example.org:119/nntp/user="bob"}` {
		t.Errorf("prefix %q", p)
	}
	if hp := mb.HostPort(119); hp != "news.example.org:119" {
		t.Errorf("hostport %q", hp)
	}
	v6 := NetMbx{Host: "[::1]"}
	if hp := v6.HostPort(119); hp != "[::1]:119" {
		t.Errorf("v6 hostport %q", hp)
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name, pat string
		match     bool
	}{
		{"comp.lang.go", "*", true},
		{"comp.lang.go", "comp.*", true},
		{"comp.lang.go", "comp.%", false},
		{"comp.lang", "comp.%", true},
		{"comp.lang.go", "%.lang.%", true},
		{"comp.lang.go", "comp.lang.go", true},
		{"comp.lang.go", "comp.lang", false},
		{"alt.[test]", "alt.[test]", true},
		{"alt.x", "alt.?", false},
	}
	for _, tc := range tests {
		if r := MatchPattern(tc.name, tc.pat, '.'); r != tc.match {
			t.Errorf("MatchPattern(%q, %q) = %v", tc.name, tc.pat, r)
		}
	}
}
