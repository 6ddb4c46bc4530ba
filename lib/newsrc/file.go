package newsrc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"nkmail/lib/utils/fs/fileutil"
)

// FileStore is traditional .newsrc file. Lines are "group: ranges" for
// subscribed and "group! ranges" for unsubscribed groups. Host is ignored:
// one file serves one server.
type FileStore struct {
	path string
	lock *flock.Flock
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

func (f *FileStore) Path() string { return f.path }

func parseLine(l string) (e Entry, ok bool) {
	i := strings.IndexAny(l, ":!")
	if i <= 0 {
		return
	}
	e.Group = strings.TrimSpace(l[:i])
	e.Subscribed = l[i] == ':'
	e.Read = ParseRanges(l[i+1:])
	return e, e.Group != ""
}

func formatLine(e Entry) string {
	c := '!'
	if e.Subscribed {
		c = ':'
	}
	if len(e.Read) == 0 {
		return fmt.Sprintf("%s%c", e.Group, c)
	}
	return fmt.Sprintf("%s%c %s", e.Group, c, e.Read.String())
}

func (f *FileStore) read() ([]Entry, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("newsrc: reading %s: %w", f.path, err)
	}
	var r []Entry
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(nil, 1<<20)
	for sc.Scan() {
		if e, ok := parseLine(sc.Text()); ok {
			r = append(r, e)
		}
	}
	return r, sc.Err()
}

func (f *FileStore) write(l []Entry) error {
	var b bytes.Buffer
	for _, e := range l {
		b.WriteString(formatLine(e))
		b.WriteByte('\n')
	}
	if err := fileutil.WriteFileSync(f.path, f.path+".tmp", b.Bytes(), 0600); err != nil {
		return fmt.Errorf("newsrc: writing %s: %w", f.path, err)
	}
	return fileutil.SyncDir(filepath.Dir(f.path))
}

func (f *FileStore) Get(host, group string) (Entry, error) {
	l, err := f.List(host)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range l {
		if e.Group == group {
			return e, nil
		}
	}
	return Entry{Group: group}, nil
}

func (f *FileStore) List(host string) ([]Entry, error) {
	if err := f.lock.RLock(); err != nil {
		return nil, fmt.Errorf("newsrc: locking: %w", err)
	}
	defer f.lock.Unlock()
	return f.read()
}

// Put replaces line of group, appending new groups at end.
func (f *FileStore) Put(host string, e Entry) error {
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("newsrc: locking: %w", err)
	}
	defer f.lock.Unlock()

	l, err := f.read()
	if err != nil {
		return err
	}
	found := false
	for i := range l {
		if l[i].Group == e.Group {
			l[i] = e
			found = true
			break
		}
	}
	if !found {
		l = append(l, e)
	}
	return f.write(l)
}

func (f *FileStore) Close() error {
	return f.lock.Close()
}
