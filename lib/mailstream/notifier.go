package mailstream

type LogKind int

const (
	LogInfo LogKind = iota
	LogParse
	LogWarn
	LogError
)

func (k LogKind) String() string {
	switch k {
	case LogInfo:
		return "info"
	case LogParse:
		return "parse"
	case LogWarn:
		return "warn"
	case LogError:
		return "error"
	}
	return "unknown"
}

type ListAttrs uint8

const (
	ListNoInferiors ListAttrs = 1 << iota
	ListNoSelect
	ListMarked
	ListUnmarked
)

type StatusFlags uint8

const (
	StatusMessages StatusFlags = 1 << iota
	StatusRecent
	StatusUnseen
	StatusUIDNext
	StatusUIDValidity

	StatusAll = StatusMessages | StatusRecent | StatusUnseen | StatusUIDNext | StatusUIDValidity
)

type Status struct {
	Flags       StatusFlags // which fields are filled
	Messages    uint64
	Recent      uint64
	Unseen      uint64
	UIDNext     uint64
	UIDValidity uint32
}

// Notifier receives events the application is interested in.
type Notifier interface {
	Exists(s *Stream, n uint64)
	Expunged(s *Stream, msgno uint64)
	Flags(s *Stream, msgno uint64)
	Searched(s *Stream, n uint64)
	List(s *Stream, delim byte, name string, attrs ListAttrs)
	LSub(s *Stream, delim byte, name string, attrs ListAttrs)
	Status(s *Stream, mbx string, st *Status)
	Notify(s *Stream, text string, kind LogKind)
	Log(text string, kind LogKind)
	DLog(text string)
}

// LoginFunc supplies credentials for trial (starting from 1).
// Empty password means user gave up.
type LoginFunc func(mb NetMbx, user string, trial int) (u, pass string)

// NopNotifier ignores everything. Embed it to implement only some events.
type NopNotifier struct{}

func (NopNotifier) Exists(*Stream, uint64)                {}
func (NopNotifier) Expunged(*Stream, uint64)              {}
func (NopNotifier) Flags(*Stream, uint64)                 {}
func (NopNotifier) Searched(*Stream, uint64)              {}
func (NopNotifier) List(*Stream, byte, string, ListAttrs) {}
func (NopNotifier) LSub(*Stream, byte, string, ListAttrs) {}
func (NopNotifier) Status(*Stream, string, *Status)       {}
func (NopNotifier) Notify(*Stream, string, LogKind)       {}
func (NopNotifier) Log(string, LogKind)                   {}
func (NopNotifier) DLog(string)                           {}
