package mailstream

import (
	"fmt"
	"strconv"
	"strings"
)

// NetMbx is parsed network mailbox name {host[:port][/flag...]}mailbox.
type NetMbx struct {
	Host     string
	OrigHost string
	Port     int
	User     string
	Service  string
	Mailbox  string

	Debug     bool
	Secure    bool
	Anonymous bool
	Alt       bool
	TryAlt    bool
	ReadOnly  bool
}

func mbxErr(name, reason string) error {
	return &UsageError{Op: "mailbox", Name: name, Reason: reason}
}

// ParseNetMbx parses network mailbox name.
func ParseNetMbx(name string) (mb NetMbx, err error) {
	if len(name) == 0 || name[0] != '{' {
		return mb, mbxErr(name, "not a network mailbox name")
	}
	end := strings.IndexByte(name, '}')
	if end < 0 {
		return mb, mbxErr(name, "missing '}'")
	}
	spec, rest := name[1:end], name[end+1:]
	mb.Mailbox = rest

	var hostpart string
	if i := strings.IndexByte(spec, '/'); i >= 0 {
		hostpart, spec = spec[:i], spec[i:]
	} else {
		hostpart, spec = spec, ""
	}

	// host, [ip literal], optional :port
	if strings.HasPrefix(hostpart, "[") {
		j := strings.IndexByte(hostpart, ']')
		if j < 0 {
			return mb, mbxErr(name, "bad host literal")
		}
		mb.Host, hostpart = hostpart[:j+1], hostpart[j+1:]
		if hostpart != "" && hostpart[0] != ':' {
			return mb, mbxErr(name, "junk after host literal")
		}
	} else if j := strings.IndexByte(hostpart, ':'); j >= 0 {
		mb.Host, hostpart = hostpart[:j], hostpart[j:]
	} else {
		mb.Host, hostpart = hostpart, ""
	}
	if mb.Host == "" {
		return mb, mbxErr(name, "empty host")
	}
	if hostpart != "" {
		p, e := strconv.Atoi(hostpart[1:])
		if e != nil || p <= 0 || p > 65535 {
			return mb, mbxErr(name, "bad port")
		}
		mb.Port = p
	}
	mb.OrigHost = mb.Host

	for spec != "" {
		// spec starts with '/'
		spec = spec[1:]
		var item string
		if i := nextFlag(spec); i >= 0 {
			item, spec = spec[:i], spec[i:]
		} else {
			item, spec = spec, ""
		}
		key, val, hasVal := strings.Cut(item, "=")
		key = strings.ToLower(key)
		if hasVal {
			val = unquote(val)
		}
		switch key {
		case "service":
			if !hasVal || val == "" {
				return mb, mbxErr(name, "service requires value")
			}
			mb.Service = strings.ToLower(val)
		case "user":
			if !hasVal || val == "" {
				return mb, mbxErr(name, "user requires value")
			}
			mb.User = val
		case "nntp", "imap", "pop3", "smtp":
			mb.Service = key
		case "debug":
			mb.Debug = true
		case "secure":
			mb.Secure = true
		case "anonymous":
			mb.Anonymous = true
		case "alt", "ssl":
			mb.Alt = true
		case "tryalt", "tryssl":
			mb.TryAlt = true
		case "readonly":
			mb.ReadOnly = true
		default:
			return mb, mbxErr(name, fmt.Sprintf("unknown switch /%s", key))
		}
	}
	return
}

// nextFlag finds next '/' outside of quotes.
func nextFlag(s string) int {
	q := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			q = !q
		case '\\':
			if q {
				i++
			}
		case '/':
			if !q {
				return i
			}
		}
	}
	return -1
}

func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// HostPort gives dialable address using def when no port was specified.
func (mb NetMbx) HostPort(def int) string {
	p := mb.Port
	if p == 0 {
		p = def
	}
	h := strings.TrimSuffix(strings.TrimPrefix(mb.Host, "["), "]")
	if strings.IndexByte(h, ':') >= 0 {
		return "[" + h + "]:" + strconv.Itoa(p)
	}
	return h + ":" + strconv.Itoa(p)
}

// Prefix returns canonical "{host:port/service[/user="u"]}" part.
func (mb NetMbx) Prefix(defPort int) string {
	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(mb.Host)
	p := mb.Port
	if p == 0 {
		p = defPort
	}
	if p != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p))
	}
	if mb.Service != "" {
		b.WriteByte('/')
		b.WriteString(mb.Service)
	}
	if mb.User != "" {
		b.WriteString("/user=")
		b.WriteString(quote(mb.User))
	}
	if mb.Alt {
		b.WriteString("/alt")
	}
	b.WriteByte('}')
	return b.String()
}

func (mb NetMbx) String() string {
	return mb.Prefix(0) + mb.Mailbox
}
