package nkcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"nkmail/lib/utils/hashtools"
	"nkmail/lib/utils/logx"
)

// Parse decodes TOML text on top of DefaultConfig.
func Parse(cfg string) (c Config, err error) {
	c = DefaultConfig

	md, err := toml.Decode(cfg, &c)
	if err != nil {
		return
	}
	if und := md.Undecoded(); len(und) != 0 {
		err = fmt.Errorf("unknown config keys: %v", und)
		return
	}
	err = c.validate()
	return
}

// Load reads config file. Missing file yields defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c := DefaultConfig
			return c, c.validate()
		}
		return Config{}, err
	}
	c, err := Parse(string(b))
	if err != nil {
		return c, fmt.Errorf("config %q: %w", path, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.NNTP.Port < 0 || c.NNTP.Port > 65535 ||
		c.NNTP.AltPort < 0 || c.NNTP.AltPort > 65535 {
		return fmt.Errorf("nntp: port out of range")
	}
	if c.NNTP.MaxLoginTrials <= 0 {
		c.NNTP.MaxLoginTrials = DefaultNNTPCfg.MaxLoginTrials
	}

	switch c.Newsrc.Kind {
	case "file":
		c.Newsrc.Path = ExpandHome(c.Newsrc.Path)
	case "sql":
		switch c.Newsrc.Driver {
		case "sqlite3", "postgres", "mysql":
		default:
			return fmt.Errorf("newsrc: unsupported sql driver %q", c.Newsrc.Driver)
		}
		if c.Newsrc.DSN == "" {
			return fmt.Errorf("newsrc: sql store requires dsn")
		}
	default:
		return fmt.Errorf("newsrc: unknown kind %q", c.Newsrc.Kind)
	}

	if _, err := hashtools.ParseHashType(c.Spool.Hash); err != nil {
		return fmt.Errorf("spool: %w", err)
	}
	c.Spool.Path = ExpandHome(c.Spool.Path)

	if _, err := logx.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// ExpandHome replaces leading "~/" with user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
