package logx

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
)

type MemEntry struct {
	Section string
	Level   Level
	Text    string
}

var _ LoggerX = (*MemLogger)(nil)

// MemLogger keeps log entries in memory; mostly for tests.
type MemLogger struct {
	Min Level

	mu      sync.Mutex
	entries []MemEntry
	wsec    string
	wlvl    Level
	wbuf    bytes.Buffer
}

func (l *MemLogger) Level() Level {
	return l.Min
}

func (l *MemLogger) add(section string, lvl Level, s string) {
	if lvl < l.Min {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, MemEntry{
		Section: section,
		Level:   lvl,
		Text:    strings.TrimRight(s, "\n"),
	})
	l.mu.Unlock()
}

func (l *MemLogger) LogPrintX(section string, lvl Level, v ...interface{}) {
	l.add(section, lvl, fmt.Sprint(v...))
}

func (l *MemLogger) LogPrintlnX(section string, lvl Level, v ...interface{}) {
	l.add(section, lvl, fmt.Sprintln(v...))
}

func (l *MemLogger) LogPrintfX(
	section string, lvl Level, f string, v ...interface{}) {

	l.add(section, lvl, fmt.Sprintf(f, v...))
}

func (l *MemLogger) LockWriteX(section string, lvl Level) bool {
	if lvl < l.Min {
		return false
	}
	l.mu.Lock()
	l.wsec, l.wlvl = section, lvl
	l.wbuf.Reset()
	return true
}

func (l *MemLogger) Write(b []byte) (int, error) {
	return l.wbuf.Write(b)
}

func (l *MemLogger) Close() error {
	l.entries = append(l.entries, MemEntry{
		Section: l.wsec,
		Level:   l.wlvl,
		Text:    strings.TrimRight(l.wbuf.String(), "\n"),
	})
	l.mu.Unlock()
	return nil
}

// Entries returns copy of recorded entries at or above lvl.
func (l *MemLogger) Entries(lvl Level) []MemEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var r []MemEntry
	for _, e := range l.entries {
		if e.Level >= lvl {
			r = append(r, e)
		}
	}
	return r
}

// Contains reports whether some entry at or above lvl contains s.
func (l *MemLogger) Contains(lvl Level, s string) bool {
	for _, e := range l.Entries(lvl) {
		if strings.Contains(e.Text, s) {
			return true
		}
	}
	return false
}
