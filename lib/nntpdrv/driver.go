// Package nntpdrv serves network news groups as mail streams.
package nntpdrv

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"

	"nkmail/lib/mailstream"
	"nkmail/lib/newsrc"
	"nkmail/lib/nntp"
	. "nkmail/lib/utils/logx"
	"nkmail/lib/utils/xdialer"
)

// UIDValidity of every news mailbox. Article numbers never get reused.
const UIDValidity = 0xbeefface

const (
	newsPrefix = "#news."
	noMailbox  = "<no_mailbox>"
	delim      = '.'
)

// Copier receives articles copied out of news mailboxes.
type Copier interface {
	CopyArticle(mbx string, art []byte) error
}

type Config struct {
	Port           int
	AltPort        int
	AltName        string
	MaxLoginTrials int
	Debug          bool
	Dialer         xdialer.Dialer
	TLSConfig      *tls.Config

	// Login is used for streams which carry no credential callback.
	Login mailstream.LoginFunc
	// Newsrc keeps subscriptions and read state; nil keeps nothing.
	Newsrc newsrc.Store
	// Copier serves Copy; nil rejects copies.
	Copier Copier
	// PathHost names this client in Path header of posted articles.
	PathHost string

	Logger LoggerX
}

type Driver struct {
	cfg Config
	log Logger
}

var _ mailstream.Driver = (*Driver)(nil)

func New(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = NopLoggerX{}
	}
	d := &Driver{cfg: cfg}
	d.log = NewLogToX(cfg.Logger, fmt.Sprintf("nntpdrv.%p", d))
	return d
}

func (d *Driver) Name() string { return "nntp" }

// local is per-stream driver state.
type local struct {
	sess  *nntp.Session
	mb    mailstream.NetMbx
	group string // empty when half-open

	dirty bool          // read state changed since last newsrc write
	read  newsrc.Ranges // read state as loaded from newsrc

	txtMsg uint64 // message number of cached body
	txt    []byte

	log Logger
}

func getLocal(s *mailstream.Stream) *local {
	if s == nil {
		return nil
	}
	l, _ := s.Local.(*local)
	return l
}

func (l *local) alive() bool {
	return l != nil && l.sess != nil && l.sess.Alive()
}

// parseName splits news mailbox name into network part and group.
func parseName(name string) (mb mailstream.NetMbx, group string, err error) {
	mb, err = mailstream.ParseNetMbx(name)
	if err != nil {
		return
	}
	if mb.Service != "" && mb.Service != "nntp" {
		return mb, "", &mailstream.UsageError{Op: "mailbox", Name: name, Reason: "not a news mailbox"}
	}
	group = mb.Mailbox
	if strings.HasPrefix(group, "#") {
		if !strings.HasPrefix(strings.ToLower(group), newsPrefix) {
			return mb, "", &mailstream.UsageError{Op: "mailbox", Name: name, Reason: "invalid namespace"}
		}
		group = group[len(newsPrefix):]
	}
	if group == noMailbox {
		group = ""
	}
	return mb, group, nil
}

// Valid accepts {host/nntp}group and {host/nntp}#news.group.
func (d *Driver) Valid(name string) bool {
	_, _, err := parseName(name)
	return err == nil
}

func (d *Driver) port(alt bool) int {
	if alt {
		if d.cfg.AltPort != 0 {
			return d.cfg.AltPort
		}
		return nntp.DefaultAltPort
	}
	if d.cfg.Port != 0 {
		return d.cfg.Port
	}
	return nntp.DefaultPort
}

// hostEntry renders host spec understood by nntp.Open.
func hostEntry(mb mailstream.NetMbx) string {
	h := mb.Host
	if mb.Port != 0 {
		h += ":" + strconv.Itoa(mb.Port)
	}
	if mb.Alt {
		h += "/alt"
	}
	if mb.TryAlt {
		h += "/tryalt"
	}
	if mb.Debug {
		h += "/debug"
	}
	return h
}

func (d *Driver) connect(mb mailstream.NetMbx, s *mailstream.Stream) (*nntp.Session, error) {
	opts := nntp.Options{
		ReadOnly:       true,
		Debug:          d.cfg.Debug || mb.Debug,
		Port:           d.cfg.Port,
		AltPort:        d.cfg.AltPort,
		AltName:        d.cfg.AltName,
		Dialer:         d.cfg.Dialer,
		TLSConfig:      d.cfg.TLSConfig,
		Login:          d.cfg.Login,
		MaxLoginTrials: d.cfg.MaxLoginTrials,
		Logger:         d.cfg.Logger,
	}
	if !mb.Anonymous {
		opts.User = mb.User
	}
	if s != nil {
		opts.Debug = opts.Debug || s.Debug
		opts.Notifier = s.Notifier
		if s.Login != nil {
			opts.Login = s.Login
		}
	}
	return nntp.Open([]string{hostEntry(mb)}, opts)
}

// compatible reports whether session of l can serve mailbox mb.
func (l *local) compatible(mb mailstream.NetMbx) bool {
	if !l.alive() || !strings.EqualFold(l.mb.Host, mb.Host) || l.mb.Port != mb.Port {
		return false
	}
	if mb.Alt && !l.sess.Alt() {
		return false
	}
	return mb.User == "" || mb.User == l.sess.Mailbox().User
}

// canonical renders name of stream with session user filled in.
func (d *Driver) canonical(l *local) string {
	mb := l.mb
	mb.Service = "nntp"
	mb.User = l.sess.Mailbox().User
	mb.Alt = l.sess.Alt()
	p := d.port(mb.Alt)
	if mb.Port != 0 {
		p = mb.Port
	}
	mb.Port = 0
	if l.group == "" {
		return mb.Prefix(p) + noMailbox
	}
	return mb.Prefix(p) + newsPrefix + l.group
}

// prefixOf renders "{host...}" part of name for list replies.
func prefixOf(mb mailstream.NetMbx) string {
	mb.Mailbox = ""
	return mb.String()
}
