package mailstream

import (
	"strings"
	"time"
)

type Flags uint8

const (
	FlagSeen Flags = 1 << iota
	FlagDeleted
	FlagFlagged
	FlagAnswered
	FlagDraft
	FlagRecent
)

var flagNames = [...]string{`\Seen`, `\Deleted`, `\Flagged`, `\Answered`, `\Draft`, `\Recent`}

func (f Flags) String() string {
	var b strings.Builder
	for i, n := range flagNames {
		if f&(1<<i) != 0 {
			if b.Len() != 0 {
				b.WriteByte(' ')
			}
			b.WriteString(n)
		}
	}
	return b.String()
}

// Slot is per-message driver cache.
// It holds either nothing, RawOverview or *SortCache.
type Slot interface {
	isSlot()
}

// RawOverview is unparsed overview text as received from server,
// without leading article number. Empty value marks unusable entry
// which must not be fetched again.
type RawOverview string

func (RawOverview) isSlot() {}

func (*SortCache) isSlot() {}

// Elt is message cache element.
type Elt struct {
	MsgNo uint64
	UID   uint64
	Flags Flags
	Size  uint64
	Date  time.Time

	Valid    bool // flags known
	Sequence bool // selected by last sequence operation
	Searched bool // matched by last search

	Header []byte // cached header text, nil if not fetched yet
	Slot   Slot
}

// RawOverview returns cached overview text, whichever form the slot has.
func (e *Elt) RawOverview() (RawOverview, bool) {
	switch x := e.Slot.(type) {
	case RawOverview:
		return x, true
	case *SortCache:
		return x.Raw, x.HasRaw
	}
	return "", false
}

// SetRawOverview replaces cached overview text. Sort keys, if present, stay.
func (e *Elt) SetRawOverview(s RawOverview) {
	if sc, ok := e.Slot.(*SortCache); ok {
		sc.Raw, sc.HasRaw = s, true
		return
	}
	e.Slot = s
}

// SortCache returns sort cache of element, creating it if absent.
// Already cached overview text is carried over.
func (e *Elt) SortCache() *SortCache {
	switch x := e.Slot.(type) {
	case *SortCache:
		return x
	case RawOverview:
		sc := &SortCache{Raw: x, HasRaw: true}
		e.Slot = sc
		return sc
	}
	sc := &SortCache{}
	e.Slot = sc
	return sc
}

// HasSortCache reports whether sort keys were loaded already.
func (e *Elt) HasSortCache() bool {
	sc, ok := e.Slot.(*SortCache)
	return ok && sc.Loaded
}

func (e *Elt) Has(f Flags) bool { return e.Flags&f == f }

func (e *Elt) set(f Flags, on bool) {
	if on {
		e.Flags |= f
	} else {
		e.Flags &^= f
	}
}
