package xdialer

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

type Dialer = proxy.Dialer

// XDial parses dial string. Plain "host:port" or "tcp://host:port" gives
// direct dialer; "socks5://[user:pass@]proxy:port/<next>" chains SOCKS5
// proxies, where <next> is parsed the same way.
func XDial(addr string) (d Dialer, proto, host string, err error) {
	for {
		u, e := url.ParseRequestURI(addr)
		if e == nil && u.Scheme != "" && u.Host != "" {
			proto, host = u.Scheme, u.Host
		} else {
			proto, host = "tcp", addr
			u = nil
		}
		if u != nil && (proto == "socks" || proto == "socks5") {
			var a *proxy.Auth
			if u.User != nil {
				a = &proxy.Auth{User: u.User.Username()}
				a.Password, _ = u.User.Password()
			}
			fwd := d
			if fwd == nil {
				fwd = proxy.Direct
			}
			d, e = proxy.SOCKS5("tcp", host, a, fwd)
			if e != nil {
				err = fmt.Errorf("SOCKS5 error: %w", e)
				return
			}
			addr = strings.TrimPrefix(u.Path, "/")
			if addr == "" {
				// proxy only, target supplied by caller
				host = ""
				return
			}
		} else {
			break
		}
	}
	if proto != "tcp" && proto != "tcp4" && proto != "tcp6" {
		err = fmt.Errorf("unsupported dial protocol %q", proto)
		return
	}
	if host == "" {
		err = errors.New("no host specified")
		return
	}
	if d == nil {
		d = &net.Dialer{}
	}
	return
}

// ProxyDialer returns dialer to use for arbitrary destinations.
// Empty string means direct connection.
func ProxyDialer(spec string) (Dialer, error) {
	if spec == "" || spec == "tcp" {
		return &net.Dialer{}, nil
	}
	d, _, _, err := XDial(spec)
	return d, err
}
