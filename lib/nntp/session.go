package nntp

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	tp "net/textproto"
	"strings"

	"nkmail/lib/mailstream"
	au "nkmail/lib/utils/asciiutils"
	"nkmail/lib/utils/bufreader"
	. "nkmail/lib/utils/logx"
	"nkmail/lib/utils/xdialer"
)

const (
	DefaultPort           = 119
	DefaultAltPort        = 563
	DefaultMaxLoginTrials = 3

	// overview and listing lines longer than this are skipped
	maxDataLine = 256 * 1024
)

type Options struct {
	ReadOnly bool
	Debug    bool
	User     string

	Port    int    // 0 means DefaultPort
	AltPort int    // 0 means DefaultAltPort
	AltName string // TLS server name for alternate connections, host if empty
	TryAlt  bool   // try TLS first, fall back to plain

	Dialer    xdialer.Dialer
	TLSConfig *tls.Config

	Login          mailstream.LoginFunc
	MaxLoginTrials int

	Notifier mailstream.Notifier
	Logger   LoggerX
}

// Session is one NNTP connection. It is not safe for concurrent use.
type Session struct {
	inbuf [512]byte
	lbuf  []byte

	conn net.Conn
	w    *tp.Writer
	r    *bufreader.BufReader
	dr   *bufreader.DotReader

	mb     mailstream.NetMbx
	reply  string
	code   int
	post   bool
	alt    bool
	debug  bool
	authed bool

	opts Options
	note mailstream.Notifier
	log  Logger
}

// Open connects to first host accepting connection and greeting us.
// Host entries are "host[:port]", optionally followed by mailbox switches.
func Open(hosts []string, opts Options) (*Session, error) {
	if len(hosts) == 0 {
		return nil, ErrNoHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.AltPort == 0 {
		opts.AltPort = DefaultAltPort
	}
	if opts.MaxLoginTrials <= 0 {
		opts.MaxLoginTrials = DefaultMaxLoginTrials
	}
	if opts.Notifier == nil {
		opts.Notifier = mailstream.NopNotifier{}
	}
	if opts.Dialer == nil {
		opts.Dialer = &net.Dialer{}
	}

	var lastErr error
	for _, h := range hosts {
		mb, err := mailstream.ParseNetMbx("{" + h + "/nntp}")
		if err != nil || mb.Anonymous || mb.Secure {
			opts.Notifier.Log("Invalid host specifier: "+h, mailstream.LogError)
			lastErr = fmt.Errorf("nntp: invalid host specifier %q", h)
			continue
		}
		if opts.TryAlt {
			mb.TryAlt = true
		}
		if mb.User == "" {
			mb.User = opts.User
		}

		s := &Session{
			opts:  opts,
			mb:    mb,
			note:  opts.Notifier,
			debug: opts.Debug || mb.Debug,
		}
		s.log = NewLogToX(opts.Logger, fmt.Sprintf("nntp.%p", s))

		if err = s.connect(); err != nil {
			s.log.LogPrintf(WARN, "connecting to %s failed: %v", h, err)
			opts.Notifier.Log(fmt.Sprintf("Can't connect to %s: %v", h, err), mailstream.LogError)
			lastErr = fmt.Errorf("nntp: connecting to %s: %w", h, err)
			continue
		}
		if err = s.greet(); err != nil {
			s.drop()
			lastErr = err
			continue
		}
		if err = s.setup(); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, lastErr
}

func (s *Session) dialTLS() (net.Conn, error) {
	raw, err := s.opts.Dialer.Dial("tcp", s.mb.HostPort(s.opts.AltPort))
	if err != nil {
		return nil, err
	}
	var cfg *tls.Config
	if s.opts.TLSConfig != nil {
		cfg = s.opts.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = s.opts.AltName
		if cfg.ServerName == "" {
			cfg.ServerName = strings.Trim(s.mb.Host, "[]")
		}
	}
	tc := tls.Client(raw, cfg)
	if err = tc.Handshake(); err != nil {
		raw.Close()
		return nil, err
	}
	return tc, nil
}

func (s *Session) connect() error {
	if s.mb.Alt || s.mb.TryAlt {
		conn, err := s.dialTLS()
		if err == nil {
			s.attach(conn, true)
			return nil
		}
		if s.mb.Alt {
			return err
		}
		s.log.LogPrintf(INFO, "alternate connection to %s failed: %v", s.mb.Host, err)
	}
	conn, err := s.opts.Dialer.Dial("tcp", s.mb.HostPort(s.opts.Port))
	if err != nil {
		return err
	}
	s.attach(conn, false)
	return nil
}

func (s *Session) attach(conn net.Conn, alt bool) {
	s.conn = conn
	s.alt = alt
	s.w = tp.NewWriter(bufio.NewWriter(conn))
	s.r = bufreader.NewBufReader(conn)
	s.dr = nil
}

func (s *Session) greet() error {
	switch s.readReply() {
	case ReplyGreet:
		s.post = true
	case ReplyGreetNoPost:
		if s.opts.ReadOnly {
			break
		}
		fallthrough
	default:
		s.note.Log(s.reply, mailstream.LogError)
		s.log.LogPrintf(ERROR, "bad greeting from %s: %q", s.mb.Host, s.reply)
		return &ReplyError{Code: s.code, Text: s.ReplyText()}
	}
	s.note.Notify(nil, s.ReplyText(), mailstream.LogInfo)
	s.log.LogPrintf(INFO, "connected to %s: %s", s.mb.Host, s.ReplyText())
	return nil
}

func (s *Session) setup() error {
	if s.mb.User != "" {
		if err := s.login(); err != nil {
			s.Close()
			return err
		}
	}
	// in case server demands MODE READER
	if wantAuth(s.SendWork("MODE", "READER")) && !s.authed {
		if err := s.login(); err != nil {
			s.Close()
			return err
		}
		s.SendWork("MODE", "READER")
	}
	return nil
}

// Mailbox gives network mailbox of connection, with user once authenticated.
func (s *Session) Mailbox() mailstream.NetMbx { return s.mb }

func (s *Session) Host() string { return s.mb.Host }

// Alt reports whether connection went over TLS alternate port.
func (s *Session) Alt() bool { return s.alt }

// PostAllowed reports whether greeting allowed posting.
func (s *Session) PostAllowed() bool { return s.post }

// Alive reports whether transport is still usable.
func (s *Session) Alive() bool { return s.conn != nil }

func (s *Session) Reply() string { return s.reply }

func (s *Session) ReplyCode() int { return s.code }

// ReplyText is reply without code.
func (s *Session) ReplyText() string {
	if len(s.reply) > 4 {
		return s.reply[4:]
	}
	return ""
}

// ReplyArgs splits reply text on whitespace.
func (s *Session) ReplyArgs() []string {
	var a []string
	au.IterateFields(s.ReplyText(), func(f string) { a = append(a, f) })
	return a
}

func (s *Session) ReplyErr() error {
	return &ReplyError{Code: s.code, Text: s.ReplyText()}
}

func (s *Session) SetDebug(d bool) { s.debug = d }

func (s *Session) fake(code int, text string) int {
	s.reply = fmt.Sprintf("%d %s", code, text)
	s.code = code
	return code
}

// drop releases transport without saying goodbye.
func (s *Session) drop() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Session) readLine() (incmd []byte, e error) {
	var i int
	i, e = s.r.ReadUntil(s.inbuf[:], '\n')
	if e != nil {
		if e == bufreader.ErrDelimNotFound {
			// response too large to process, error
			e = errTooLargeResponse
		}
		return
	}

	if i > 1 && s.inbuf[i-2] == '\r' {
		incmd = s.inbuf[:i-2]
	} else {
		incmd = s.inbuf[:i-1]
	}

	return
}

// readReply reads reply lines, skipping continuation lines.
func (s *Session) readReply() int {
	for {
		if s.conn == nil {
			return s.fake(ReplyBroken, "NNTP connection broken (response)")
		}
		line, err := s.readLine()
		if err != nil {
			s.log.LogPrintf(WARN, "reading reply: %v", err)
			s.drop()
			return s.fake(ReplyBroken, "NNTP connection broken (response)")
		}
		s.reply = string(line)
		if s.debug {
			s.log.LogPrintf(DEBUG, "<- %s", s.reply)
		}
		if len(line) > 3 && line[3] == '-' {
			continue
		}
		s.code = int(au.ParseUint(s.reply))
		if s.dr != nil {
			s.dr.Reset()
		}
		return s.code
	}
}

// SendWork sends one command and reads its reply, without auth handling.
func (s *Session) SendWork(cmd, args string) int {
	line := cmd
	if args != "" {
		line += " " + args
	}
	if s.debug {
		if strings.HasPrefix(line, "AUTHINFO PASS") {
			s.log.LogPrintf(DEBUG, "-> AUTHINFO PASS <hidden>")
		} else {
			s.log.LogPrintf(DEBUG, "-> %s", line)
		}
	}
	if s.conn == nil {
		return s.fake(ReplyBroken, "NNTP connection broken (command)")
	}
	if err := s.w.PrintfLine("%s", line); err != nil {
		s.log.LogPrintf(WARN, "sending command: %v", err)
		s.drop()
		return s.fake(ReplyBroken, "NNTP connection broken (command)")
	}
	return s.readReply()
}

// Send sends command. If server asks for authentication, logs in once and
// resends once; failed login tears the connection down.
func (s *Session) Send(cmd, args string) int {
	code := s.SendWork(cmd, args)
	if !wantAuth(code) {
		return code
	}
	if err := s.login(); err != nil {
		reply, code := s.reply, s.code
		s.SendWork("QUIT", "")
		s.drop()
		s.reply, s.code = reply, code
		return code
	}
	return s.SendWork(cmd, args)
}

// Authenticate runs login dialog now.
func (s *Session) Authenticate() error {
	return s.login()
}

func (s *Session) login() error {
	if s.opts.Login == nil {
		s.note.Log("Login aborted", mailstream.LogError)
		return ErrLoginAborted
	}
	for trial := 1; ; trial++ {
		user, pass := s.opts.Login(s.mb, s.mb.User, trial)
		if pass == "" {
			s.note.Log("Login aborted", mailstream.LogError)
			s.log.LogPrintf(WARN, "login aborted by user")
			return ErrLoginAborted
		}
		if user != "" {
			s.mb.User = user
		}
		code := s.SendWork("AUTHINFO USER", s.mb.User)
		if code == ReplyWantPass {
			code = s.SendWork("AUTHINFO PASS", pass)
		}
		if code == ReplyAuthed {
			s.authed = true
			s.log.LogPrintf(INFO, "authenticated as %q", s.mb.User)
			return nil
		}
		s.note.Log(s.reply, mailstream.LogWarn)
		s.log.LogPrintf(WARN, "authentication as %q failed: %s", s.mb.User, s.reply)
		if code == ReplyBroken || trial >= s.opts.MaxLoginTrials {
			break
		}
	}
	s.note.Log("Too many NNTP authentication failures", mailstream.LogError)
	return fmt.Errorf("%w: %s", ErrLoginFailed, s.reply)
}

func (s *Session) openDotReader() *bufreader.DotReader {
	if s.dr == nil {
		s.dr = bufreader.NewDotReader(s.r)
	}
	return s.dr
}

func (s *Session) brokenData(err error) error {
	s.log.LogPrintf(WARN, "reading text: %v", err)
	s.drop()
	s.fake(ReplyBroken, "NNTP connection broken (text)")
	return fmt.Errorf("%w: %v", ErrBroken, err)
}

// ReadLine returns next line of multi-line reply, dot-unstuffed and without
// line terminator. Returned slice is valid until next call.
// Returns io.EOF after terminating dot line. Overlong lines are skipped and
// reported with bufreader.ErrLineTooLong; reading may continue after that.
func (s *Session) ReadLine() ([]byte, error) {
	if s.conn == nil {
		return nil, ErrBroken
	}
	line, err := s.openDotReader().ReadLine(s.lbuf[:0], maxDataLine)
	s.lbuf = line[:0]
	switch err {
	case nil:
		return line, nil
	case io.EOF, bufreader.ErrLineTooLong:
		return nil, err
	}
	return nil, s.brokenData(err)
}

// Slurp reads whole multi-line reply, lines terminated with CRLF.
func (s *Session) Slurp() ([]byte, error) {
	if s.conn == nil {
		return nil, ErrBroken
	}
	dr := s.openDotReader()
	var out []byte
	for {
		var err error
		out, err = dr.ReadLine(out, 0)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, s.brokenData(err)
		}
		out = append(out, '\r', '\n')
	}
}

// Discard drains rest of multi-line reply.
func (s *Session) Discard() error {
	if s.conn == nil {
		return ErrBroken
	}
	if _, err := s.openDotReader().Discard(); err != nil {
		return s.brokenData(err)
	}
	return nil
}

// LocalHost names our end of connection, for Path headers.
func (s *Session) LocalHost() string {
	if s.conn != nil {
		if h, _, err := net.SplitHostPort(s.conn.LocalAddr().String()); err == nil && h != "" {
			return h
		}
	}
	return "localhost"
}

// Close says goodbye if transport is alive and releases it. Safe to call twice.
func (s *Session) Close() {
	if s == nil || s.conn == nil {
		return
	}
	s.SendWork("QUIT", "")
	s.drop()
}
