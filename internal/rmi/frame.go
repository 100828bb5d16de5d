package rmi

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// maxMessageSize bounds a single frame body to guard against a malformed
// length prefix turning into an unbounded allocation.
const maxMessageSize = 4 * 1024 * 1024

// writeFrame writes a length-prefixed message: a 4-byte big-endian byte
// count followed by body.
func writeFrame(w io.Writer, body []byte) error {
	if len(body) > maxMessageSize {
		return fmt.Errorf("rmi: frame body too large (%d bytes)", len(body))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// readFrame reads one length-prefixed message from r.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxMessageSize {
		return nil, fmt.Errorf("rmi: incoming frame too large (%d bytes)", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// asConnError classifies err as a ConnError if it looks like a
// transport-level failure (refused, reset, unreachable, timed out, or a
// generic net.Error), leaving other errors (e.g. application-level
// decoding failures) untouched.
func asConnError(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(net.Error); ok {
		return &ConnError{Op: op, Addr: addr, Err: err}
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &ConnError{Op: op, Addr: addr, Err: err}
	}
	return err
}
