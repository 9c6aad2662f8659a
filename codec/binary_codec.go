package codec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"host-bridge/message"
)

// BinaryCodec writes length-prefixed fields in big-endian order.
//
//	MethodCall:   chanLen(2) chan methodLen(2) method argsLen(4) args
//	MethodResult: status(1) valueLen(4) value codeLen(2) code msgLen(2) msg detailsLen(4) details
type BinaryCodec struct{}

var errShortBuffer = errors.New("BinaryCodec: short buffer")

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	switch msg := v.(type) {
	case *message.MethodCall:
		total := 2 + len(msg.Channel) + 2 + len(msg.Method) + 4 + len(msg.Arguments)
		w := &writer{buf: make([]byte, 0, total)}
		w.str16(msg.Channel)
		w.str16(msg.Method)
		w.bytes32(msg.Arguments)
		return w.buf, w.err
	case *message.MethodResult:
		total := 1 + 4 + len(msg.Value) + 2 + len(msg.ErrorCode) + 2 + len(msg.ErrorMessage) + 4 + len(msg.ErrorDetails)
		w := &writer{buf: make([]byte, 0, total)}
		w.buf = append(w.buf, byte(msg.Status))
		w.bytes32(msg.Value)
		w.str16(msg.ErrorCode)
		w.str16(msg.ErrorMessage)
		w.bytes32(msg.ErrorDetails)
		return w.buf, w.err
	default:
		return nil, errors.Newf("BinaryCodec: unsupported type %T", v)
	}
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	r := &reader{data: data}
	switch msg := v.(type) {
	case *message.MethodCall:
		msg.Channel = r.str16()
		msg.Method = r.str16()
		msg.Arguments = r.bytes32()
	case *message.MethodResult:
		msg.Status = message.Status(r.u8())
		msg.Value = r.bytes32()
		msg.ErrorCode = r.str16()
		msg.ErrorMessage = r.str16()
		msg.ErrorDetails = r.bytes32()
	default:
		return errors.Newf("BinaryCodec: unsupported type %T", v)
	}
	return r.err
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

type writer struct {
	buf []byte
	err error
}

func (w *writer) str16(s string) {
	if len(s) > 0xFFFF {
		w.err = errors.Newf("BinaryCodec: string field too long (%d bytes)", len(s))
		return
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) bytes32(b []byte) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// reader records the first out-of-bounds read and turns every later read into a no-op.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = errShortBuffer
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) str16() string {
	l := r.take(2)
	if l == nil {
		return ""
	}
	return string(r.take(int(binary.BigEndian.Uint16(l))))
}

func (r *reader) bytes32() []byte {
	l := r.take(4)
	if l == nil {
		return nil
	}
	n := binary.BigEndian.Uint32(l)
	if n == 0 {
		return nil
	}
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
