package mailstream

import "fmt"

// UsageError is returned for requests the driver can never satisfy:
// invalid names, unsupported operations.
type UsageError struct {
	Op     string
	Name   string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q: %s", e.Op, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func usageErr(op, name, reason string) error {
	return &UsageError{Op: op, Name: name, Reason: reason}
}

// Unsupported is helper for drivers rejecting whole operation.
func Unsupported(op, name string) error {
	return &UsageError{Op: op, Name: name, Reason: "operation not supported by this driver"}
}
