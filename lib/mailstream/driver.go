package mailstream

import (
	"io"
)

// OverviewFunc receives overview of one message; ov is nil when none is available.
type OverviewFunc func(s *Stream, uid uint64, ov *Overview)

// Driver is one mailbox backend.
type Driver interface {
	Name() string
	// Valid reports whether driver can handle mailbox name.
	Valid(name string) bool

	Open(s *Stream) error
	Close(s *Stream)

	Status(s *Stream, mbx string, flags StatusFlags) (*Status, error)
	List(s *Stream, ref, pat string) error
	LSub(s *Stream, ref, pat string) error
	Subscribe(s *Stream, mbx string) error
	Unsubscribe(s *Stream, mbx string) error
	Scan(s *Stream, ref, pat, contents string) error
	Create(s *Stream, mbx string) error
	Delete(s *Stream, mbx string) error
	Rename(s *Stream, old, new string) error
	Append(s *Stream, mbx string, msg io.Reader) error

	FetchFast(s *Stream, seq string, uid bool) error
	FetchFlags(s *Stream, seq string, uid bool) error
	Overview(s *Stream, seq string, uid bool, fn OverviewFunc) error
	Header(s *Stream, msgno uint64) ([]byte, error)
	Text(s *Stream, msgno uint64, peek bool) ([]byte, error)
	// FlagMsg is told about every flag change; old is previous flag state.
	FlagMsg(s *Stream, e *Elt, old Flags)

	Search(s *Stream, charset string, pgm *SearchProgram, opts SearchOptions) ([]uint64, error)
	Sort(s *Stream, charset string, spg *SearchProgram, pgm []SortProgram, opts SortOptions) ([]uint64, error)
	Thread(s *Stream, algorithm, charset string, spg *SearchProgram, opts SortOptions) ([]*ThreadNode, error)

	Ping(s *Stream) bool
	Check(s *Stream) error
	Expunge(s *Stream) error
	Copy(s *Stream, seq string, uid bool, mbx string) error
}

// Registry holds drivers probed in order.
type Registry struct {
	drivers []Driver
}

func NewRegistry(drivers ...Driver) *Registry {
	return &Registry{drivers: drivers}
}

func (r *Registry) Link(d Driver) {
	r.drivers = append(r.drivers, d)
}

// Lookup returns first driver accepting name.
func (r *Registry) Lookup(name string) Driver {
	for _, d := range r.drivers {
		if d.Valid(name) {
			return d
		}
	}
	return nil
}

type OpenOptions struct {
	ReadOnly bool
	HalfOpen bool
	Debug    bool
	Silent   bool
	Notifier Notifier
	Login    LoginFunc
}

// Open opens name, reusing s if given. Stream handled by another driver is
// closed first. On failure returned stream is nil and s is closed.
func (r *Registry) Open(s *Stream, name string, opts OpenOptions) (*Stream, error) {
	d := r.Lookup(name)
	if d == nil {
		if s != nil {
			s.Close()
		}
		return nil, &UsageError{Op: "open", Name: name, Reason: "no driver for mailbox name"}
	}
	if s != nil && s.Driver != d {
		s.Close()
	}
	if s == nil {
		s = NewStream(opts.Notifier)
	} else if opts.Notifier != nil {
		s.Notifier = opts.Notifier
	}
	s.Name = name
	s.Driver = d
	s.ReadOnly = opts.ReadOnly
	s.HalfOpen = opts.HalfOpen
	s.Debug = opts.Debug
	s.Silent = opts.Silent
	if opts.Login != nil {
		s.Login = opts.Login
	}
	if err := d.Open(s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (r *Registry) driverFor(s *Stream, name string) (Driver, error) {
	if s != nil && s.Driver != nil {
		return s.Driver, nil
	}
	if d := r.Lookup(name); d != nil {
		return d, nil
	}
	return nil, &UsageError{Op: "lookup", Name: name, Reason: "no driver for mailbox name"}
}

func (r *Registry) Status(s *Stream, mbx string, flags StatusFlags) (*Status, error) {
	d, err := r.driverFor(nil, mbx)
	if err != nil {
		return nil, err
	}
	if s != nil && s.Driver != d {
		s = nil
	}
	return d.Status(s, mbx, flags)
}

// List asks every driver accepting ref+pat.
func (r *Registry) List(s *Stream, ref, pat string) error {
	d, err := r.driverFor(s, ref+pat)
	if err != nil {
		return err
	}
	return d.List(s, ref, pat)
}

func (r *Registry) LSub(s *Stream, ref, pat string) error {
	d, err := r.driverFor(s, ref+pat)
	if err != nil {
		return err
	}
	return d.LSub(s, ref, pat)
}

func (r *Registry) Subscribe(s *Stream, mbx string) error {
	d, err := r.driverFor(nil, mbx)
	if err != nil {
		return err
	}
	return d.Subscribe(s, mbx)
}

func (r *Registry) Unsubscribe(s *Stream, mbx string) error {
	d, err := r.driverFor(nil, mbx)
	if err != nil {
		return err
	}
	return d.Unsubscribe(s, mbx)
}

func (r *Registry) Create(s *Stream, mbx string) error {
	d, err := r.driverFor(nil, mbx)
	if err != nil {
		return err
	}
	return d.Create(s, mbx)
}

func (r *Registry) Append(s *Stream, mbx string, msg io.Reader) error {
	d, err := r.driverFor(nil, mbx)
	if err != nil {
		return err
	}
	return d.Append(s, mbx, msg)
}

// Search clears previous results and runs driver search.
func (s *Stream) Search(charset string, pgm *SearchProgram, opts SearchOptions) ([]uint64, error) {
	if s.Driver == nil {
		return nil, &UsageError{Op: "search", Reason: "stream not open"}
	}
	if pgm == nil {
		pgm = &SearchProgram{}
	}
	for _, e := range s.elts {
		e.Searched = false
	}
	return s.Driver.Search(s, charset, pgm, opts)
}

func (s *Stream) Sort(charset string, spg *SearchProgram, pgm []SortProgram, opts SortOptions) ([]uint64, error) {
	if s.Driver == nil {
		return nil, &UsageError{Op: "sort", Reason: "stream not open"}
	}
	return s.Driver.Sort(s, charset, spg, pgm, opts)
}

func (s *Stream) Thread(algorithm, charset string, spg *SearchProgram, opts SortOptions) ([]*ThreadNode, error) {
	if s.Driver == nil {
		return nil, &UsageError{Op: "thread", Reason: "stream not open"}
	}
	return s.Driver.Thread(s, algorithm, charset, spg, opts)
}
