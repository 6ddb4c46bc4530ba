package nkcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if c.NNTP.MaxLoginTrials != 3 {
		t.Errorf("unexpected nntp defaults: %+v", c.NNTP)
	}
	if c.Newsrc.Kind != "file" || c.Spool.Hash != "auto" || c.Log.Level != "info" {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		err  bool
	}{
		{"full", `
[nntp]
port = 563
alt_port = 119
max_login_trials = 5
debug = true
dial = "socks5://127.0.0.1:9050/"
[newsrc]
kind = "sql"
driver = "sqlite3"
dsn = ":memory:"
[spool]
path = "/tmp/spool"
hash = "blake3"
[log]
level = "debug"
`, false},
		{"badport", "[nntp]\nport = 70000\n", true},
		{"badkind", "[newsrc]\nkind = \"mbox\"\n", true},
		{"nodsn", "[newsrc]\nkind = \"sql\"\n", true},
		{"baddriver", "[newsrc]\nkind = \"sql\"\ndriver = \"oracle\"\ndsn = \"x\"\n", true},
		{"badhash", "[spool]\nhash = \"md5\"\n", true},
		{"badlevel", "[log]\nlevel = \"loud\"\n", true},
		{"unknown", "[nntp]\nprot = 1\n", true},
		{"syntax", "[nntp\n", true},
	}
	for _, tc := range tests {
		_, err := Parse(tc.in)
		if (err != nil) != tc.err {
			t.Errorf("%s: unexpected error state: %v", tc.name, err)
		}
	}

	c, _ := Parse(tests[0].in)
	if c.NNTP.Port != 563 || c.NNTP.AltPort != 119 || c.NNTP.MaxLoginTrials != 5 ||
		c.Newsrc.DSN != ":memory:" || c.Spool.Hash != "blake3" {
		t.Errorf("unexpected decoded config: %+v", c)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil || c.NNTP.MaxLoginTrials != 3 {
		t.Errorf("missing file should give defaults: %+v %v", c, err)
	}
	p := filepath.Join(dir, "nkmail.toml")
	if err := os.WriteFile(p, []byte("[nntp]\nport = 1119\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err = Load(p)
	if err != nil || c.NNTP.Port != 1119 {
		t.Errorf("load failed: %+v %v", c.NNTP, err)
	}
}

func TestExpandHome(t *testing.T) {
	if ExpandHome("/abs") != "/abs" || ExpandHome("") != "" {
		t.Error("non-home paths must stay")
	}
	home, err := os.UserHomeDir()
	if err == nil && ExpandHome("~/.newsrc") != filepath.Join(home, ".newsrc") {
		t.Errorf("got %q", ExpandHome("~/.newsrc"))
	}
}
