package nntp

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"nkmail/lib/mail"
	au "nkmail/lib/utils/asciiutils"
	. "nkmail/lib/utils/logx"
)

// prepareArticle normalizes line endings to CRLF, adds Path and Date
// headers if missing and strips trailing comment from Date header.
func prepareArticle(msg []byte, path string, now time.Time) []byte {
	var out bytes.Buffer
	out.Grow(len(msg) + len(path) + 16)

	inHeader := true
	first := true
	for len(msg) != 0 {
		var line []byte
		if i := bytes.IndexByte(msg, '\n'); i >= 0 {
			line, msg = msg[:i], msg[i+1:]
		} else {
			line, msg = msg, nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})

		if inHeader {
			if first {
				first = false
				if path != "" && !hasHeaderLine(line, msg, "Path") {
					fmt.Fprintf(&out, "Path: %s\r\n", path)
				}
				if !hasHeaderLine(line, msg, "Date") {
					fmt.Fprintf(&out, "Date: %s\r\n", mail.FormatDate(now))
				}
			}
			if len(line) == 0 {
				inHeader = false
			} else if isHeader(line, "Date") {
				// "Date: ... (EST)" comments upset some servers
				if i := bytes.Index(line, []byte(" (")); i >= 0 {
					line = line[:i]
				}
			}
		}
		out.Write(line)
		out.WriteString("\r\n")
	}
	if first {
		if path != "" {
			fmt.Fprintf(&out, "Path: %s\r\n", path)
		}
		fmt.Fprintf(&out, "Date: %s\r\n\r\n", mail.FormatDate(now))
	}
	return out.Bytes()
}

func isHeader(line []byte, name string) bool {
	return len(line) > len(name) && line[len(name)] == ':' &&
		au.EqualFoldString(string(line[:len(name)]), name)
}

// hasHeaderLine checks whether header block starting at line contains name.
func hasHeaderLine(line, rest []byte, name string) bool {
	for {
		l := bytes.TrimSuffix(line, []byte{'\r'})
		if len(l) == 0 {
			return false
		}
		if isHeader(l, name) {
			return true
		}
		if len(rest) == 0 {
			return false
		}
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
	}
}

func (s *Session) postWork(art []byte) int {
	code := s.SendWork("POST", "")
	if code != ReplyReady {
		return code
	}
	if s.debug {
		s.log.LogPrintf(DEBUG, "-> [article, %d bytes]", len(art))
	}
	ds := NewDotStuffer(s.w.W)
	_, err := ds.Write(art)
	if err == nil && !ds.AtLineStart() {
		_, err = s.w.W.WriteString("\r\n")
	}
	if err != nil {
		s.log.LogPrintf(WARN, "writing article: %v", err)
		s.drop()
		return s.fake(ReplyBroken, "NNTP connection broken (message text)")
	}
	return s.SendWork(".", "")
}

// Post submits article. If server wants authentication, logs in and
// retries once.
func (s *Session) Post(msg io.Reader, path string) error {
	if !s.post {
		s.log.LogPrintf(WARN, "%s refused posting in greeting", s.mb.Host)
		return ErrNoPosting
	}
	raw, err := io.ReadAll(msg)
	if err != nil {
		return err
	}
	if path == "" {
		path = s.LocalHost() + "!not-for-mail"
	}
	art := prepareArticle(raw, path, time.Now())

	code := s.postWork(art)
	if wantAuth(code) {
		if err = s.login(); err != nil {
			return err
		}
		code = s.postWork(art)
	}
	if code != ReplyPosted {
		s.log.LogPrintf(WARN, "posting failed: %s", s.reply)
		return s.ReplyErr()
	}
	return nil
}
