package xdialer

import (
	"net"
	"testing"
)

func TestXDial(t *testing.T) {
	tests := []struct {
		in    string
		proto string
		host  string
		err   bool
		proxy bool
	}{
		{"news.example.org:119", "tcp", "news.example.org:119", false, false},
		{"tcp://news.example.org:119", "tcp", "news.example.org:119", false, false},
		{"socks5://127.0.0.1:9050/news.example.org:119", "tcp", "news.example.org:119", false, true},
		{"socks5://127.0.0.1:9050/", "socks5", "", false, true},
		{"udp://news.example.org:119", "", "", true, false},
		{"", "", "", true, false},
	}
	for i, tc := range tests {
		d, proto, host, err := XDial(tc.in)
		if (err != nil) != tc.err {
			t.Errorf("%d: unexpected error state: %v", i, err)
			continue
		}
		if tc.err {
			continue
		}
		if proto != tc.proto || host != tc.host {
			t.Errorf("%d: got %q %q, want %q %q", i, proto, host, tc.proto, tc.host)
		}
		_, direct := d.(*net.Dialer)
		if direct == tc.proxy {
			t.Errorf("%d: proxy=%v but dialer is %T", i, tc.proxy, d)
		}
	}
}

func TestProxyDialer(t *testing.T) {
	d, err := ProxyDialer("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*net.Dialer); !ok {
		t.Errorf("expected direct dialer, got %T", d)
	}
}
