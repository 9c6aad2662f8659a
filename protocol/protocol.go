// Package protocol implements the binary frame protocol of the host bridge channel.
//
// A fixed-size 14-byte header is followed by a variable-length body. The receiver
// reads the header first to learn the body length, then reads exactly that many bytes.
//
// Frame format:
//
//	0      3  4  5  6         10        14
//	┌──────┬──┬──┬──┬─────────┬─────────┬───────────────┐
//	│magic │v │ct│mt│   seq   │ bodyLen │    body ...    │
//	│ hbc  │01│  │  │ uint32  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴──┴─────────┴─────────┴───────────────┘
package protocol

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// Magic number bytes: "hbc" (host bridge channel).
const (
	MagicNumber byte = 0x68 // 'h'
	MagicByte2  byte = 0x62 // 'b'
	MagicByte3  byte = 0x63 // 'c'
	Version     byte = 0x01
	HeaderSize  int  = 14 // 3 (magic) + 1 (version) + 1 (codec) + 1 (msgType) + 4 (seq) + 4 (bodyLen)

	// MaxBodyLen bounds the allocation made for a single frame body.
	MaxBodyLen uint32 = 16 << 20
)

// MsgType distinguishes request, response, and heartbeat frames.
type MsgType byte

const (
	MsgTypeRequest   MsgType = 0 // Runtime → Host method call
	MsgTypeResponse  MsgType = 1 // Host → Runtime method result
	MsgTypeHeartbeat MsgType = 2 // KeepAlive probe (no body)
)

// Codec type constants, mirrored from codec package to avoid circular import.
const (
	CodecTypeJSON   byte = 0
	CodecTypeBinary byte = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrBodyTooLarge   = errors.New("frame body too large")
	ErrUnsupportedVer = errors.New("unsupported protocol version")
)

// Header represents the fixed 14-byte frame header.
type Header struct {
	CodecType byte    // Serialization format: 0=JSON, 1=Binary
	MsgType   MsgType // Request, Response, or Heartbeat
	Seq       uint32  // Matches a response to its request on a multiplexed connection
	BodyLen   uint32  // Body length in bytes
}

// Encode writes a complete frame (header + body) to w in a single Write call.
// The caller must still hold a write lock if multiple goroutines share the same writer.
func Encode(w io.Writer, h *Header, body []byte) error {
	if uint32(len(body)) > MaxBodyLen {
		return errors.Wrapf(ErrBodyTooLarge, "%d bytes", len(body))
	}
	buf := make([]byte, HeaderSize, HeaderSize+len(body))

	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = h.CodecType
	buf[5] = byte(h.MsgType)
	binary.BigEndian.PutUint32(buf[6:10], h.Seq)
	binary.BigEndian.PutUint32(buf[10:14], uint32(len(body)))
	buf = append(buf, body...)

	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// Decode reads a complete frame (header + body) from r.
// It validates the magic number, version, codec type, message type and body length.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, errors.Wrapf(ErrInvalidMagic, "%x", headerBuf[0:3])
	}

	if headerBuf[3] != Version {
		return nil, nil, errors.Wrapf(ErrUnsupportedVer, "%d", headerBuf[3])
	}

	if headerBuf[4] != CodecTypeJSON && headerBuf[4] != CodecTypeBinary {
		return nil, nil, errors.Newf("unsupported codec type: %d", headerBuf[4])
	}

	msgType := headerBuf[5]
	if msgType != byte(MsgTypeRequest) && msgType != byte(MsgTypeResponse) && msgType != byte(MsgTypeHeartbeat) {
		return nil, nil, errors.Newf("unsupported message type: %d", msgType)
	}

	seq := binary.BigEndian.Uint32(headerBuf[6:10])
	bodyLen := binary.BigEndian.Uint32(headerBuf[10:14])
	if bodyLen > MaxBodyLen {
		return nil, nil, errors.Wrapf(ErrBodyTooLarge, "%d bytes", bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{
		CodecType: headerBuf[4],
		MsgType:   MsgType(msgType),
		Seq:       seq,
		BodyLen:   bodyLen,
	}, body, nil
}
