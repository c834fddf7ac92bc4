package clop

import (
	"errors"

	"github.com/lydakis/clop/internal/channel"
	"github.com/lydakis/clop/internal/peer"
)

var (
	// ErrRequestFailed reports that the peer answered with nothing usable:
	// an absent or undecodable reply, an empty result list, or results that
	// do not line up with the inputs.
	ErrRequestFailed = errors.New("optimisation failed")

	// ErrChannelUnreachable reports that no peer listens on the channel.
	ErrChannelUnreachable = channel.ErrUnreachable

	// ErrSendTimeout reports that the request could not be delivered in time.
	ErrSendTimeout = channel.ErrSendTimeout

	// ErrReplyTimeout reports that the peer did not answer in time.
	ErrReplyTimeout = channel.ErrReplyTimeout

	// ErrPeerNotFound reports that no peer install could be located.
	ErrPeerNotFound = peer.ErrPeerNotFound
)
