package mailstream

import (
	"fmt"
	"sort"
)

// Stream is one open mailbox (or half-open connection) served by Driver.
type Stream struct {
	Name     string
	Driver   Driver
	Local    interface{} // driver private state
	Notifier Notifier
	Login    LoginFunc

	Debug     bool
	ReadOnly  bool
	HalfOpen  bool
	Silent    bool // suppress search notifications
	Anonymous bool

	UIDValidity uint32
	UIDLast     uint64
	Recent      uint64

	elts []*Elt
}

func NewStream(n Notifier) *Stream {
	if n == nil {
		n = NopNotifier{}
	}
	return &Stream{Notifier: n}
}

func (s *Stream) Exists() uint64 { return uint64(len(s.elts)) }

// Elt returns element for message number, nil if out of range.
func (s *Stream) Elt(msgno uint64) *Elt {
	if msgno == 0 || msgno > uint64(len(s.elts)) {
		return nil
	}
	return s.elts[msgno-1]
}

// SetExists resizes message cache and notifies about new count.
func (s *Stream) SetExists(n uint64) {
	old := uint64(len(s.elts))
	if n < old {
		for i := n; i < old; i++ {
			s.elts[i] = nil
		}
		s.elts = s.elts[:n]
	}
	for i := old; i < n; i++ {
		s.elts = append(s.elts, &Elt{MsgNo: i + 1})
	}
	s.Notifier.Exists(s, n)
}

// SetMessages replaces message cache with messages of ascending uids
// and notifies new count.
func (s *Stream) SetMessages(uids []uint64) {
	for i := range s.elts {
		s.elts[i] = nil
	}
	s.elts = s.elts[:0]
	for i, u := range uids {
		s.elts = append(s.elts, &Elt{MsgNo: uint64(i + 1), UID: u})
	}
	s.Notifier.Exists(s, uint64(len(uids)))
}

func (s *Stream) UID(msgno uint64) uint64 {
	if e := s.Elt(msgno); e != nil {
		return e.UID
	}
	return 0
}

// MsgNo maps UID to message number, 0 if no such message.
// UIDs are kept ascending.
func (s *Stream) MsgNo(uid uint64) uint64 {
	i := sort.Search(len(s.elts), func(i int) bool { return s.elts[i].UID >= uid })
	if i < len(s.elts) && s.elts[i].UID == uid {
		return uint64(i + 1)
	}
	return 0
}

// MarkSequence sets Sequence on exactly those messages listed in seq.
func (s *Stream) MarkSequence(seq string) error {
	ss, err := ParseSeqSet(seq)
	if err != nil {
		return &UsageError{Op: "sequence", Name: seq, Reason: err.Error()}
	}
	max := s.Exists()
	for _, x := range ss {
		if (x.Lo != Star && x.Lo > max) || (x.Hi != Star && x.Hi > max) || max == 0 {
			return &UsageError{Op: "sequence", Name: seq, Reason: "sequence out of range"}
		}
	}
	ss = ss.Resolve(max)
	for _, e := range s.elts {
		e.Sequence = ss.Contains(e.MsgNo)
	}
	return nil
}

// MarkUIDSequence sets Sequence on messages whose UIDs are listed in seq.
func (s *Stream) MarkUIDSequence(seq string) error {
	ss, err := ParseSeqSet(seq)
	if err != nil {
		return &UsageError{Op: "uid sequence", Name: seq, Reason: err.Error()}
	}
	var max uint64
	if n := len(s.elts); n != 0 {
		max = s.elts[n-1].UID
	}
	ss = ss.Resolve(max)
	for _, e := range s.elts {
		e.Sequence = ss.Contains(e.UID)
	}
	return nil
}

func (s *Stream) Mark(seq string, uid bool) error {
	if uid {
		return s.MarkUIDSequence(seq)
	}
	return s.MarkSequence(seq)
}

// MarkAll selects every message.
func (s *Stream) MarkAll() {
	for _, e := range s.elts {
		e.Sequence = true
	}
}

// Selected returns elements with Sequence set.
func (s *Stream) Selected() []*Elt {
	var r []*Elt
	for _, e := range s.elts {
		if e.Sequence {
			r = append(r, e)
		}
	}
	return r
}

// Elts gives direct access to cache elements.
func (s *Stream) Elts() []*Elt { return s.elts }

// ReleaseCache drops every cached header and slot.
func (s *Stream) ReleaseCache() {
	for _, e := range s.elts {
		e.Header = nil
		e.Slot = nil
	}
}

// SetFlags sets or clears flags on selected messages, telling driver about each change.
func (s *Stream) SetFlags(seq string, uid bool, f Flags, on bool) error {
	if s.Driver == nil {
		return fmt.Errorf("stream not open")
	}
	if err := s.Mark(seq, uid); err != nil {
		return err
	}
	for _, e := range s.elts {
		if !e.Sequence {
			continue
		}
		old := e.Flags
		e.set(f, on)
		s.Driver.FlagMsg(s, e, old)
		if e.Flags != old {
			s.Notifier.Flags(s, e.MsgNo)
		}
	}
	return nil
}

// Close closes driver part and drops cache. Safe to call multiple times.
func (s *Stream) Close() {
	if s.Driver != nil {
		s.Driver.Close(s)
	}
	s.Driver = nil
	s.Local = nil
	s.ReleaseCache()
	s.elts = nil
}

func (s *Stream) Log(kind LogKind, format string, args ...interface{}) {
	s.Notifier.Log(fmt.Sprintf(format, args...), kind)
}

func (s *Stream) Notify(kind LogKind, format string, args ...interface{}) {
	s.Notifier.Notify(s, fmt.Sprintf(format, args...), kind)
}
