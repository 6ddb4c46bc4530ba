package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"nkmail/lib/mailstream"
	"nkmail/lib/newsrc"
	"nkmail/lib/nkcfg"
	"nkmail/lib/nntpdrv"
	"nkmail/lib/spool"
	fl "nkmail/lib/utils/filelogger"
	"nkmail/lib/utils/hashtools"
	"nkmail/lib/utils/logx"
	"nkmail/lib/utils/xdialer"
)

// app holds everything one command invocation needs.
type app struct {
	cfg    nkcfg.Config
	log    logx.Logger
	drv    *nntpdrv.Driver
	reg    *mailstream.Registry
	store  newsrc.Store
	spool  *spool.Spool
	server string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	mu     sync.Mutex // serializes output of parallel commands
}

func newApp(gf *globalFlags, stdin io.Reader, stdout, stderr io.Writer, dialer xdialer.Dialer) (*app, error) {
	cfg, err := nkcfg.Load(nkcfg.ExpandHome(gf.config))
	if err != nil {
		return nil, err
	}
	if gf.logLevel != "" {
		cfg.Log.Level = gf.logLevel
	}
	if gf.user != "" {
		cfg.NNTP.User = gf.user
	}
	if gf.debug {
		cfg.NNTP.Debug = true
	}

	lvl, err := logx.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	color, err := fl.ParseColor(cfg.Log.Color)
	if err != nil {
		return nil, err
	}
	var lgr logx.LoggerX
	if f, ok := stderr.(*os.File); ok {
		if lgr, err = fl.NewFileLogger(f, lvl, color); err != nil {
			return nil, err
		}
	} else {
		lgr = fl.NewWriterLogger(stderr, lvl)
	}

	a := &app{
		cfg:    cfg,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		server: gf.server,
	}
	a.log = logx.NewLogToX(lgr, "main")

	if dialer == nil {
		if dialer, err = xdialer.ProxyDialer(cfg.NNTP.Dial); err != nil {
			return nil, fmt.Errorf("dial %q: %w", cfg.NNTP.Dial, err)
		}
	}

	a.store, err = newsrc.Open(cfg.Newsrc.Kind, cfg.Newsrc.Path, newsrc.SQLConfig{
		Driver: cfg.Newsrc.Driver,
		DSN:    cfg.Newsrc.DSN,
		Trace:  cfg.Newsrc.TraceSQL,
		Logger: lgr,
	})
	if err != nil {
		return nil, err
	}

	var copier nntpdrv.Copier
	if cfg.Spool.Path != "" {
		ht, _ := hashtools.ParseHashType(cfg.Spool.Hash)
		if a.spool, err = spool.Open(spool.Config{Path: cfg.Spool.Path, Hash: ht, Logger: lgr}); err != nil {
			a.Close()
			return nil, err
		}
		copier = a.spool
	}

	a.drv = nntpdrv.New(nntpdrv.Config{
		Port:           cfg.NNTP.Port,
		AltPort:        cfg.NNTP.AltPort,
		AltName:        cfg.NNTP.AltName,
		MaxLoginTrials: cfg.NNTP.MaxLoginTrials,
		Debug:          cfg.NNTP.Debug,
		Dialer:         dialer,
		Login:          a.login,
		Newsrc:         a.store,
		Copier:         copier,
		Logger:         lgr,
	})
	a.reg = mailstream.NewRegistry(a.drv)
	return a, nil
}

// login hands out configured credentials once; there is nobody to retry with.
func (a *app) login(mb mailstream.NetMbx, user string, trial int) (string, string) {
	if trial > 1 {
		return "", ""
	}
	pass := a.cfg.NNTP.Pass
	if p := os.Getenv("NKMAIL_PASS"); p != "" {
		pass = p
	}
	if user == "" {
		user = a.cfg.NNTP.User
	}
	return user, pass
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.LogPrintf(logx.WARN, "closing newsrc: %v", err)
		}
		a.store = nil
	}
}

// mailbox completes bare group name with server given on command line.
func (a *app) mailbox(name string) string {
	if strings.HasPrefix(name, "{") || a.server == "" {
		return name
	}
	return a.root() + name
}

// root is news namespace of server given on command line.
func (a *app) root() string {
	if a.server == "" {
		return ""
	}
	return "{" + a.server + "/nntp}#news."
}

func (a *app) printf(format string, args ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.stdout, format, args...)
}

// open opens mailbox with notifier printing events.
func (a *app) open(name string) (*mailstream.Stream, error) {
	return a.reg.Open(nil, name, mailstream.OpenOptions{
		Notifier: &printer{a: a},
		Debug:    a.cfg.NNTP.Debug,
	})
}

// printer reports driver events on standard output and logs.
type printer struct {
	mailstream.NopNotifier
	a *app
}

func (p *printer) List(s *mailstream.Stream, delim byte, name string, attrs mailstream.ListAttrs) {
	p.a.printf("%s%s\n", name, attrText(attrs))
}

func (p *printer) LSub(s *mailstream.Stream, delim byte, name string, attrs mailstream.ListAttrs) {
	p.a.printf("%s%s\n", name, attrText(attrs))
}

func (p *printer) Notify(s *mailstream.Stream, text string, kind mailstream.LogKind) {
	p.a.log.LogPrintf(logKindLevel(kind), "%s", text)
}

func (p *printer) Log(text string, kind mailstream.LogKind) {
	p.a.log.LogPrintf(logKindLevel(kind), "%s", text)
}

func (p *printer) DLog(text string) {
	p.a.log.LogPrintf(logx.DEBUG, "%s", text)
}

func logKindLevel(k mailstream.LogKind) logx.Level {
	switch k {
	case mailstream.LogWarn, mailstream.LogParse:
		return logx.WARN
	case mailstream.LogError:
		return logx.ERROR
	}
	return logx.INFO
}

func attrText(a mailstream.ListAttrs) string {
	var l []string
	if a&mailstream.ListNoSelect != 0 {
		l = append(l, `\NoSelect`)
	}
	if a&mailstream.ListNoInferiors != 0 {
		l = append(l, `\NoInferiors`)
	}
	if len(l) == 0 {
		return ""
	}
	return " (" + strings.Join(l, " ") + ")"
}
