package filelogger

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"

	"nkmail/lib/utils/logx"
)

type UseColor int

const (
	ColorAuto UseColor = iota
	ColorOn
	ColorOff
)

// ParseColor understands "auto", "on"/"always", "off"/"never".
func ParseColor(s string) (UseColor, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "on", "always", "yes":
		return ColorOn, nil
	case "off", "never", "no":
		return ColorOff, nil
	}
	return ColorAuto, fmt.Errorf("unknown color mode %q", s)
}

type logLevels [logx.LevelCount]string

var levelstrings = [2]logLevels{
	// uncolored
	{
		logx.DEBUG:    "   DEBUG",
		logx.INFO:     "    INFO",
		logx.NOTICE:   "  NOTICE",
		logx.WARN:     " WARNING",
		logx.ERROR:    "   ERROR",
		logx.CRITICAL: "CRITICAL",
	},
	// colored
	{
		logx.DEBUG:    "\033[37m   DEBUG\033[0m",
		logx.INFO:     "\033[34m    INFO\033[0m",
		logx.NOTICE:   "\033[32m  NOTICE\033[0m",
		logx.WARN:     "\033[33m WARNING\033[0m",
		logx.ERROR:    "\033[31m   ERROR\033[0m",
		logx.CRITICAL: "\033[35mCRITICAL\033[0m",
	},
}

var formatstrings = [2]string{
	" %s [%s] ",
	" %s [\033[36m%s\033[0m] ",
}

type day struct {
	Y int
	M time.Month
	D int
}

var _ logx.LoggerX = (*FileLogger)(nil)

// FileLogger writes one prefixed line per log entry.
// Multi-line entries get the prefix repeated on every line.
type FileLogger struct {
	w   *bufio.Writer
	l   sync.Mutex
	d   day
	t   int // 1 if colored
	m   logx.Level
	pfx bytes.Buffer
	buf bytes.Buffer

	now func() time.Time
}

func NewFileLogger(
	f *os.File, logLevel logx.Level, c UseColor) (*FileLogger, error) {

	if f == nil {
		return nil, fmt.Errorf("nil log file")
	}
	l := &FileLogger{m: logLevel, now: time.Now}
	fd := f.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	if c == ColorOn || (c == ColorAuto && tty) {
		l.w = bufio.NewWriter(colorable.NewColorable(f))
		l.t = 1
	} else {
		l.w = bufio.NewWriter(colorable.NewNonColorable(f))
	}
	return l, nil
}

// NewWriterLogger logs to arbitrary writer without colors.
func NewWriterLogger(w io.Writer, logLevel logx.Level) *FileLogger {
	return &FileLogger{
		w:   bufio.NewWriter(w),
		m:   logLevel,
		now: time.Now,
	}
}

func (l *FileLogger) Level() logx.Level {
	return l.m
}

func (l *FileLogger) writeTime(t time.Time) {
	var d day
	d.Y, d.M, d.D = t.Date()
	h, m, s := t.Hour(), t.Minute(), t.Second()
	if l.t != 0 {
		if l.d != d {
			l.d = d
			fmt.Fprintf(l.w,
				"\033[1mdate is %d-%02d-%02d\033[0m\n", d.Y, d.M, d.D)
		}
		fmt.Fprintf(&l.pfx, "%02d:%02d:%02d", h, m, s)
	} else {
		fmt.Fprintf(&l.pfx,
			"%d-%02d-%02d %02d:%02d:%02d", d.Y, d.M, d.D, h, m, s)
	}
}

func (l *FileLogger) prepareWrite(section string, lvl logx.Level) {
	l.pfx.Reset()
	l.buf.Reset()
	l.writeTime(l.now().UTC())
	fmt.Fprintf(&l.pfx, formatstrings[l.t], levelstrings[l.t][lvl], section)
}

// finish emits buffered entry, prefixing each line.
func (l *FileLogger) finish() {
	b := bytes.TrimRight(l.buf.Bytes(), "\n")
	for {
		l.w.Write(l.pfx.Bytes())
		i := bytes.IndexByte(b, '\n')
		if i < 0 {
			l.w.Write(b)
			l.w.WriteByte('\n')
			break
		}
		l.w.Write(b[:i+1])
		b = b[i+1:]
	}
	l.w.Flush()
}

func (l *FileLogger) LogPrintX(section string, lvl logx.Level, v ...interface{}) {
	if l.m > lvl {
		return
	}

	l.l.Lock()
	defer l.l.Unlock()

	l.prepareWrite(section, lvl)
	fmt.Fprint(&l.buf, v...)
	l.finish()
}

func (l *FileLogger) LogPrintlnX(section string, lvl logx.Level, v ...interface{}) {
	if l.m > lvl {
		return
	}

	l.l.Lock()
	defer l.l.Unlock()

	l.prepareWrite(section, lvl)
	fmt.Fprintln(&l.buf, v...)
	l.finish()
}

func (l *FileLogger) LogPrintfX(
	section string, lvl logx.Level, fmts string, v ...interface{}) {

	if l.m > lvl {
		return
	}

	l.l.Lock()
	defer l.l.Unlock()

	l.prepareWrite(section, lvl)
	fmt.Fprintf(&l.buf, fmts, v...)
	l.finish()
}

func (l *FileLogger) LockWriteX(section string, lvl logx.Level) bool {
	if l.m > lvl {
		return false
	}
	l.l.Lock()
	l.prepareWrite(section, lvl)
	return true
}

// Close finishes entry started by LockWriteX.
func (l *FileLogger) Close() error {
	l.finish()
	l.l.Unlock()
	return nil
}

func (l *FileLogger) Write(b []byte) (int, error) {
	return l.buf.Write(b)
}
