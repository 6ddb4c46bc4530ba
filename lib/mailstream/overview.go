package mailstream

// Overview is per-message summary as provided by news servers.
type Overview struct {
	Subject    string
	From       []*Address
	FromText   string // From as received
	Date       string
	MessageID  string
	References string
	Octets     uint64
	Lines      uint64
	Xref       string
}
