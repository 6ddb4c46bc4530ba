// Package spool stores copies of articles in content-addressed files.
package spool

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/highwayhash"

	"nkmail/lib/utils/fs/fileutil"
	"nkmail/lib/utils/hashtools"
	. "nkmail/lib/utils/logx"
)

type Config struct {
	Path   string
	Hash   hashtools.HashType
	Logger LoggerX
}

// Spool keeps one directory per destination mailbox.
// Article file name is hash of its content, so storing same article twice
// is no-op.
type Spool struct {
	root   string
	hasher *hashtools.Hasher
	log    Logger

	mu   sync.Mutex
	seen map[uint64]string // quick filter: highwayhash -> stored file
}

// fixed key: filter is local to process, not keyed against adversaries
var hhkey = [32]byte{
	'n', 'k', 'm', 'a', 'i', 'l', '-', 's', 'p', 'o', 'o', 'l',
}

func Open(cfg Config) (*Spool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("spool: empty path")
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLoggerX{}
	}
	if cfg.Hash == 0 {
		cfg.Hash = hashtools.AutoPick()
	}
	sp := &Spool{
		root:   filepath.Clean(cfg.Path),
		hasher: hashtools.NewHasher(cfg.Hash),
		seen:   make(map[uint64]string),
	}
	sp.log = NewLogToX(cfg.Logger, fmt.Sprintf("spool.%p", sp))

	if err := os.MkdirAll(sp.root, 0777); err != nil {
		return nil, fmt.Errorf("spool: %w", err)
	}
	// leftovers of interrupted writes
	os.RemoveAll(sp.tmpDir())
	return sp, nil
}

func (sp *Spool) Root() string { return sp.root }

func (sp *Spool) tmpDir() string { return filepath.Join(sp.root, "_tmp") }

// MailboxDir maps mailbox name to directory name inside spool.
func MailboxDir(mbx string) string {
	d := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r < ' ':
			return '_'
		}
		return r
	}, mbx)
	d = strings.TrimLeft(d, ".")
	if d == "" || d == "_tmp" {
		d = "INBOX" + d
	}
	return d
}

func (sp *Spool) tempFile() (*os.File, error) {
	if err := os.MkdirAll(sp.tmpDir(), 0700); err != nil {
		return nil, fmt.Errorf("spool: %w", err)
	}
	return os.CreateTemp(sp.tmpDir(), "art-*.tmp")
}

func quickKey(mbx string, art []byte) uint64 {
	h, _ := highwayhash.New64(hhkey[:])
	h.Write([]byte(mbx))
	h.Write([]byte{0})
	h.Write(art)
	return h.Sum64()
}

// Store saves article into mailbox directory. Returns file path and
// whether identical article was already stored there.
func (sp *Spool) Store(mbx string, art []byte) (path string, dup bool, err error) {
	qk := quickKey(mbx, art)

	sp.mu.Lock()
	prev := sp.seen[qk]
	sp.mu.Unlock()
	if prev != "" {
		if b, e := os.ReadFile(prev); e == nil && bytes.Equal(b, art) {
			return prev, true, nil
		}
	}

	name, err := sp.hasher.MakeFileHash(bytes.NewReader(art))
	if err != nil {
		return "", false, fmt.Errorf("spool: hashing: %w", err)
	}
	dir := filepath.Join(sp.root, MailboxDir(mbx))
	path = filepath.Join(dir, name+".eml")

	if _, e := os.Stat(path); e == nil {
		dup = true
	} else {
		if err = os.MkdirAll(dir, 0777); err != nil {
			return "", false, fmt.Errorf("spool: %w", err)
		}
		var f *os.File
		if f, err = sp.tempFile(); err != nil {
			return "", false, err
		}
		tmp := f.Name()
		_, err = f.Write(art)
		if err == nil {
			err = f.Sync()
		}
		if e := f.Close(); err == nil {
			err = e
		}
		if err == nil {
			err = os.Rename(tmp, path)
		}
		if err == nil {
			err = fileutil.SyncDir(dir)
		}
		if err != nil {
			os.Remove(tmp)
			return "", false, fmt.Errorf("spool: writing %s: %w", path, err)
		}
		sp.log.LogPrintf(DEBUG, "stored %d bytes as %s", len(art), path)
	}

	sp.mu.Lock()
	sp.seen[qk] = path
	sp.mu.Unlock()
	return path, dup, nil
}

// CopyArticle stores article, ignoring duplicates.
func (sp *Spool) CopyArticle(mbx string, art []byte) error {
	_, dup, err := sp.Store(mbx, art)
	if dup {
		sp.log.LogPrintf(INFO, "article already in %s", mbx)
	}
	return err
}
