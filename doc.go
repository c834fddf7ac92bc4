// Package clop sends optimisation requests for images, videos and PDFs to a
// locally running Clop peer and returns its typed responses.
//
// A Client talks to the peer over two named local channels: a work channel
// that accepts an OptimisationRequest and replies with one
// OptimisationResponse per input, and a stop channel that accepts
// StopOptimisationRequest notifications. The Client does not start the peer
// on its own; call WaitUntilReady before Optimise when the peer may be
// absent.
//
//	c := clop.New()
//	defer c.Close()
//	if !c.WaitUntilReady(ctx, 5*time.Second) {
//		return clop.ErrChannelUnreachable
//	}
//	res, err := c.Optimise(ctx, []string{"/tmp/photo.png"}, clop.Options{Aggressive: true})
package clop
