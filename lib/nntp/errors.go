package nntp

import (
	"errors"
	"fmt"
)

var (
	ErrBroken       = errors.New("nntp: connection broken")
	ErrLoginFailed  = errors.New("nntp: authentication failed")
	ErrLoginAborted = errors.New("nntp: login aborted")
	ErrNoHost       = errors.New("nntp: missing service host")
	ErrNoPosting    = errors.New("nntp: posting not allowed")

	errTooLargeResponse = errors.New("nntp: too large response")
)

// ReplyError is unexpected server reply.
type ReplyError struct {
	Code int
	Text string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("nntp: unexpected reply %d %s", e.Code, e.Text)
}

// Is makes broken replies match ErrBroken.
func (e *ReplyError) Is(target error) bool {
	return target == ErrBroken && e.Code == ReplyBroken
}
