package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable reports that no listener exists at the channel name.
	// It is an expected outcome while the peer is starting or absent.
	ErrUnreachable = errors.New("channel unreachable")

	// ErrSendTimeout reports that the payload could not be handed to the
	// listener within the send timeout.
	ErrSendTimeout = errors.New("send timed out")

	// ErrReplyTimeout reports that the payload was delivered but no reply
	// arrived within the reply timeout.
	ErrReplyTimeout = errors.New("reply timed out")
)

// Error describes a failed exchange on a named channel.
type Error struct {
	Name string // channel name
	Op   string // "dial", "send" or "receive"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("channel %s: %s: %v", e.Name, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a send or reply timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrSendTimeout) || errors.Is(err, ErrReplyTimeout)
}
