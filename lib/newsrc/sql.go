package newsrc

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/luna-duclos/instrumentedsql"
	"github.com/mattn/go-sqlite3"

	. "nkmail/lib/utils/logx"
)

type SQLConfig struct {
	Driver string // sqlite3, postgres or mysql
	DSN    string
	Trace  bool // log every statement at DEBUG
	Logger LoggerX
}

// SQLStore keeps newsrc entries in SQL table.
type SQLStore struct {
	db  *sqlx.DB
	log Logger
}

const schema = `CREATE TABLE IF NOT EXISTS nk_newsrc (
	host       VARCHAR(255) NOT NULL,
	grp        VARCHAR(255) NOT NULL,
	subscribed BOOLEAN      NOT NULL,
	readset    TEXT         NOT NULL,
	PRIMARY KEY (host, grp)
)`

type sqlEntry struct {
	Host       string `db:"host"`
	Group      string `db:"grp"`
	Subscribed bool   `db:"subscribed"`
	ReadSet    string `db:"readset"`
}

func (x sqlEntry) entry() Entry {
	return Entry{Group: x.Group, Subscribed: x.Subscribed, Read: ParseRanges(x.ReadSet)}
}

func sqlDriver(name string) (driver.Driver, error) {
	switch name {
	case "sqlite3":
		return &sqlite3.SQLiteDriver{}, nil
	case "postgres":
		return &pq.Driver{}, nil
	case "mysql":
		return mysql.MySQLDriver{}, nil
	}
	return nil, fmt.Errorf("newsrc: unsupported SQL driver %q", name)
}

var (
	traceMu  sync.Mutex
	traceReg = map[string]string{}
	traceLog = map[string]Logger{}
)

// tracedDriver registers instrumented wrapper of driver once per process.
// Statements go to logger of the latest store opened with tracing.
func tracedDriver(name string, drv driver.Driver, log Logger) string {
	traceMu.Lock()
	defer traceMu.Unlock()
	traceLog[name] = log
	if n, ok := traceReg[name]; ok {
		return n
	}
	n := "instrumented-" + name
	logger := instrumentedsql.LoggerFunc(
		func(ctx context.Context, msg string, keyvals ...interface{}) {
			traceMu.Lock()
			l := traceLog[name]
			traceMu.Unlock()
			l.LogPrintf(DEBUG, "SQL: %s %v", msg, keyvals)
		})
	sql.Register(n,
		instrumentedsql.WrapDriver(drv,
			instrumentedsql.WithLogger(logger),
			instrumentedsql.WithOpsExcluded(instrumentedsql.OpSQLRowsNext)))
	traceReg[name] = n
	return n
}

func OpenSQL(cfg SQLConfig) (*SQLStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = NopLoggerX{}
	}
	st := &SQLStore{}
	st.log = NewLogToX(cfg.Logger, fmt.Sprintf("newsrc.sql.%p", st))

	drv, err := sqlDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	name := cfg.Driver
	if cfg.Trace {
		name = tracedDriver(cfg.Driver, drv, st.log)
	}
	db, err := sql.Open(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("newsrc: opening %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite3" {
		// each connection to memory database is separate database
		db.SetMaxOpenConns(1)
	}
	// bind style follows real driver name
	st.db = sqlx.NewDb(db, cfg.Driver)
	if _, err = st.db.Exec(schema); err != nil {
		st.db.Close()
		return nil, fmt.Errorf("newsrc: creating schema: %w", err)
	}
	st.log.LogPrintf(INFO, "opened %s newsrc store", cfg.Driver)
	return st, nil
}

func (st *SQLStore) Get(host, group string) (Entry, error) {
	var x sqlEntry
	err := st.db.Get(&x, st.db.Rebind(
		`SELECT host, grp, subscribed, readset FROM nk_newsrc WHERE host = ? AND grp = ?`),
		host, group)
	if err == sql.ErrNoRows {
		return Entry{Group: group}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("newsrc: loading %s: %w", group, err)
	}
	return x.entry(), nil
}

func (st *SQLStore) List(host string) ([]Entry, error) {
	var xs []sqlEntry
	err := st.db.Select(&xs, st.db.Rebind(
		`SELECT host, grp, subscribed, readset FROM nk_newsrc WHERE host = ? ORDER BY grp`),
		host)
	if err != nil {
		return nil, fmt.Errorf("newsrc: listing: %w", err)
	}
	r := make([]Entry, len(xs))
	for i := range xs {
		r[i] = xs[i].entry()
	}
	return r, nil
}

func (st *SQLStore) Put(host string, e Entry) (err error) {
	tx, err := st.db.Beginx()
	if err != nil {
		return fmt.Errorf("newsrc: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if _, err = tx.Exec(st.db.Rebind(
		`DELETE FROM nk_newsrc WHERE host = ? AND grp = ?`), host, e.Group); err != nil {
		return fmt.Errorf("newsrc: storing %s: %w", e.Group, err)
	}
	_, err = tx.NamedExec(
		`INSERT INTO nk_newsrc (host, grp, subscribed, readset) VALUES (:host, :grp, :subscribed, :readset)`,
		sqlEntry{Host: host, Group: e.Group, Subscribed: e.Subscribed, ReadSet: e.Read.String()})
	if err != nil {
		return fmt.Errorf("newsrc: storing %s: %w", e.Group, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("newsrc: commit: %w", err)
	}
	return nil
}

func (st *SQLStore) Close() error {
	return st.db.Close()
}

// Open opens store described by kind: "file" uses path, "sql" uses driver and dsn.
func Open(kind, path string, cfg SQLConfig) (Store, error) {
	switch strings.ToLower(kind) {
	case "", "file":
		return NewFileStore(path), nil
	case "sql":
		return OpenSQL(cfg)
	}
	return nil, fmt.Errorf("newsrc: unknown store kind %q", kind)
}
