package channel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		kind    frameKind
		payload []byte
	}{
		{kindRequest, []byte(`{"id":"a"}`)},
		{kindNotify, []byte(`{"ids":["a"],"remove":false}`)},
		{kindReply, nil},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		in := frame{kind: tc.kind, payload: tc.payload}
		if _, err := in.WriteTo(&buf); err != nil {
			t.Fatalf("WriteTo(%v) error = %v", tc.kind, err)
		}

		var out frame
		if _, err := out.ReadFrom(&buf); err != nil {
			t.Fatalf("ReadFrom(%v) error = %v", tc.kind, err)
		}
		if out.kind != tc.kind {
			t.Fatalf("kind = %v, want %v", out.kind, tc.kind)
		}
		if !bytes.Equal(out.payload, tc.payload) {
			t.Fatalf("payload = %q, want %q", out.payload, tc.payload)
		}
		if tc.payload == nil && out.payload != nil {
			t.Fatalf("empty payload decoded as %#v, want nil", out.payload)
		}
	}
}

func TestFrameReadFromEmptyStreamIsEOF(t *testing.T) {
	var f frame
	if _, err := f.ReadFrom(strings.NewReader("")); err != io.EOF {
		t.Fatalf("ReadFrom(empty) error = %v, want io.EOF", err)
	}
}

func TestFrameRejectsBadHeader(t *testing.T) {
	var f frame
	_, err := f.ReadFrom(strings.NewReader("XX\x00\x01\x00\x00\x00\x00"))
	if err == nil || !strings.Contains(err.Error(), "invalid frame header") {
		t.Fatalf("ReadFrom(bad header) error = %v, want invalid frame header", err)
	}
}

func TestFrameRejectsOversizedLength(t *testing.T) {
	hdr := []byte{'C', 'L', frameVersion, byte(kindReply), 0, 0, 0, 0}
	binary.BigEndian.PutUint32(hdr[4:], maxPayload+1)

	var f frame
	_, err := f.ReadFrom(bytes.NewReader(hdr))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("ReadFrom(oversized) error = %v, want too large", err)
	}
}

func TestFrameShortPayload(t *testing.T) {
	hdr := []byte{'C', 'L', frameVersion, byte(kindReply), 0, 0, 0, 10, 'a', 'b'}

	var f frame
	_, err := f.ReadFrom(bytes.NewReader(hdr))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("ReadFrom(short) error = %v, want unexpected EOF", err)
	}
}
