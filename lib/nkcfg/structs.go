package nkcfg

type NNTPCfg struct {
	Port           int    `toml:"port"`
	AltPort        int    `toml:"alt_port"`
	AltName        string `toml:"alt_name"`
	MaxLoginTrials int    `toml:"max_login_trials"`
	Debug          bool   `toml:"debug"`
	Dial           string `toml:"dial"`
	User           string `toml:"user"`
	Pass           string `toml:"pass"`
}

var DefaultNNTPCfg = NNTPCfg{
	MaxLoginTrials: 3,
}

type NewsrcCfg struct {
	Kind     string `toml:"kind"`
	Path     string `toml:"path"`
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	TraceSQL bool   `toml:"trace_sql"`
}

var DefaultNewsrcCfg = NewsrcCfg{
	Kind:   "file",
	Path:   "~/.newsrc",
	Driver: "sqlite3",
}

type SpoolCfg struct {
	Path string `toml:"path"` // empty disables proxy copy
	Hash string `toml:"hash"`
}

var DefaultSpoolCfg = SpoolCfg{
	Hash: "auto",
}

type LogCfg struct {
	Level string `toml:"level"`
	Color string `toml:"color"`
}

var DefaultLogCfg = LogCfg{
	Level: "info",
	Color: "auto",
}

type Config struct {
	NNTP   NNTPCfg   `toml:"nntp"`
	Newsrc NewsrcCfg `toml:"newsrc"`
	Spool  SpoolCfg  `toml:"spool"`
	Log    LogCfg    `toml:"log"`
}

var DefaultConfig = Config{
	NNTP:   DefaultNNTPCfg,
	Newsrc: DefaultNewsrcCfg,
	Spool:  DefaultSpoolCfg,
	Log:    DefaultLogCfg,
}
