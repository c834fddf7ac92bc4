package channel

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameKind tells the listener what the sender expects back.
type frameKind byte

const (
	kindRequest frameKind = 1 // sender blocks for a reply frame
	kindNotify  frameKind = 2 // fire and forget, no reply is written
	kindReply   frameKind = 3

	frameVersion = 0
	headerSize   = 8

	// maxPayload bounds allocations driven by a corrupt length field.
	maxPayload = 64 << 20
)

func (k frameKind) String() string {
	switch k {
	case kindRequest:
		return "REQUEST"
	case kindNotify:
		return "NOTIFY"
	case kindReply:
		return "REPLY"
	default:
		return fmt.Sprintf("KIND:%d", byte(k))
	}
}

// frame is one message on a channel connection:
//
//	'C' 'L' version kind | uint32 big-endian payload length | payload
type frame struct {
	kind    frameKind
	payload []byte
}

// WriteTo writes the frame to w in binary format. It satisfies io.WriterTo.
func (f *frame) WriteTo(w io.Writer) (int64, error) {
	if len(f.payload) > maxPayload {
		return 0, fmt.Errorf("payload too large (%d bytes)", len(f.payload))
	}
	buf := make([]byte, headerSize+len(f.payload))
	buf[0], buf[1], buf[2], buf[3] = 'C', 'L', frameVersion, byte(f.kind)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(f.payload)))
	copy(buf[headerSize:], f.payload)
	nw, err := w.Write(buf)
	return int64(nw), err
}

// ReadFrom reads a frame from r in binary format. It satisfies io.ReaderFrom.
// An empty payload decodes to nil.
func (f *frame) ReadFrom(r io.Reader) (int64, error) {
	var hdr [headerSize]byte
	nr, err := io.ReadFull(r, hdr[:])
	if err != nil {
		if nr == 0 && err == io.EOF {
			return 0, io.EOF
		}
		return int64(nr), fmt.Errorf("short frame header: %w", err)
	}
	if hdr[0] != 'C' || hdr[1] != 'L' || hdr[2] != frameVersion {
		return int64(nr), fmt.Errorf("invalid frame header %q", hdr[:3])
	}

	f.kind = frameKind(hdr[3])
	f.payload = nil

	size := binary.BigEndian.Uint32(hdr[4:])
	if size > maxPayload {
		return int64(nr), fmt.Errorf("frame payload too large (%d bytes)", size)
	}
	if size == 0 {
		return int64(nr), nil
	}

	f.payload = make([]byte, int(size))
	np, err := io.ReadFull(r, f.payload)
	nr += np
	if err != nil {
		return int64(nr), fmt.Errorf("short payload: %w", err)
	}
	return int64(nr), nil
}
