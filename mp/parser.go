package mp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/aldas/go-marine-logger"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// BufferSize is size of parser buffer. Message larger than buffer can never be decoded and is skipped.
const BufferSize = 4096

const (
	// messageMarker is first element of every message array
	messageMarker = 0x55
	// arrayHeader is MessagePack fixarray header for 4 element array. Message is always [marker, source, channel, data]
	arrayHeader = 0x94
)

var (
	// ErrNoMessage is returned when buffer does not (yet) contain complete message. This is not a transport failure,
	// caller should try again.
	ErrNoMessage = errors.New("no complete message available")
	// ErrInvalidMessage is returned when message can not be serialized (undefined payload or invalid source/channel)
	ErrInvalidMessage = errors.New("invalid message")

	errIncomplete = errors.New("incomplete object")
	errNotMessage = errors.New("object is not a message")
	// errMalformed means bytes at cursor can not start an object, parser skips one byte
	errMalformed = errors.New("malformed object")
)

// Parser extracts messages from MessagePack byte stream. Parser state persists between reads so bytes of partially
// received message are kept until rest of the message arrives.
//
// Parser is not safe for concurrent use. Each connection owns its own parser.
type Parser struct {
	buf [BufferSize]byte
	// index is parse cursor, bytes before index are already consumed
	index int
	// hw is high-water mark, bytes from index to hw are received but not yet consumed
	hw int
	// received counts all bytes read from reader
	received uint64
}

// Buffered returns number of received bytes not yet consumed
func (p *Parser) Buffered() int {
	return p.hw - p.index
}

// Reset discards all buffered data
func (p *Parser) Reset() {
	p.index = 0
	p.hw = 0
}

// ReadMessage returns next message from stream. When buffer already holds complete message it is returned without
// reading from reader. Otherwise single Read call is made.
//
// Returns ErrNoMessage when no complete message could be decoded yet, io.EOF when reader reached end of stream and
// has no more data, and wrapped reader errors.
func (p *Parser) ReadMessage(r io.Reader) (marinelog.Message, error) {
	if msg, ok := p.next(); ok {
		return msg, nil
	}
	p.compact()

	n, err := r.Read(p.buf[p.hw:])
	if n > 0 {
		p.hw += n
		p.received += uint64(n)
		if msg, ok := p.next(); ok {
			return msg, nil
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if n > 0 {
				return marinelog.Message{}, ErrNoMessage
			}
			if msg, ok := p.resync(); ok {
				return msg, nil
			}
			return marinelog.Message{}, io.EOF
		}
		return marinelog.Message{}, fmt.Errorf("mp: read failed: %w", err)
	}
	return marinelog.Message{}, ErrNoMessage
}

// Feed appends bytes to parser buffer and returns how many bytes fit. Used when bytes come from source that is not
// an io.Reader.
func (p *Parser) Feed(b []byte) int {
	p.compact()
	n := copy(p.buf[p.hw:], b)
	p.hw += n
	return n
}

// Next decodes next message from already buffered bytes. Returns ErrNoMessage when there is no complete message.
func (p *Parser) Next() (marinelog.Message, error) {
	if msg, ok := p.next(); ok {
		return msg, nil
	}
	return marinelog.Message{}, ErrNoMessage
}

// compact moves unconsumed bytes to start of buffer
func (p *Parser) compact() {
	if p.index == 0 {
		return
	}
	if p.index < p.hw {
		copy(p.buf[:], p.buf[p.index:p.hw])
	}
	p.hw -= p.index
	p.index = 0
}

func (p *Parser) next() (marinelog.Message, bool) {
	for p.index < p.hw {
		if p.buf[p.index] != arrayHeader {
			p.index++ // resync to next possible message start
			continue
		}
		msg, n, err := decodeMessage(p.buf[p.index:p.hw])
		switch {
		case err == nil:
			p.index += n
			return msg, true
		case errors.Is(err, errIncomplete):
			if p.index == 0 && p.hw == len(p.buf) {
				p.index++ // can not complete in full buffer, must be garbage or too large
				continue
			}
			return marinelog.Message{}, false
		case errors.Is(err, errNotMessage):
			p.index += n // valid object but not a message, skip it whole
		default:
			p.index++
		}
	}
	return marinelog.Message{}, false
}

// resync is used when stream has no more data but buffered object at cursor is still incomplete. When complete message
// follows later in buffer, the incomplete prefix could never have completed and is dropped. Trailing incomplete
// message with nothing complete after it is kept as more data may still arrive.
func (p *Parser) resync() (marinelog.Message, bool) {
	for i := p.index + 1; i < p.hw; i++ {
		if p.buf[i] != arrayHeader {
			continue
		}
		msg, n, err := decodeMessage(p.buf[i:p.hw])
		if err == nil {
			p.index = i + n
			return msg, true
		}
	}
	return marinelog.Message{}, false
}

// maxNesting limits depth of foreign objects skipped inside message array
const maxNesting = 8

// decodeMessage decodes single message from start of b. Returns number of bytes the object took.
//
// Object is read element by element and every length header is checked against the bytes available before anything
// is allocated, so a corrupted header can not claim more memory than the parser buffer holds.
func decodeMessage(b []byte) (marinelog.Message, int, error) {
	r := bytes.NewReader(b)
	o := objectReader{r: r, dec: msgpack.NewDecoder(r)}

	msg, err := o.message()
	n := len(b) - r.Len()
	switch {
	case err == nil:
		return msg, n, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, errIncomplete):
		return marinelog.Message{}, 0, errIncomplete
	case errors.Is(err, errNotMessage):
		return marinelog.Message{}, n, errNotMessage
	}
	return marinelog.Message{}, 0, errMalformed
}

type objectReader struct {
	r   *bytes.Reader
	dec *msgpack.Decoder
}

// limit checks that n elements of at least size bytes each can be present in buffer
func (o objectReader) limit(n int, size int) error {
	if n < 0 || n*size > BufferSize {
		return errMalformed
	}
	if n*size > o.r.Len() {
		return errIncomplete
	}
	return nil
}

func (o objectReader) message() (marinelog.Message, error) {
	n, err := o.dec.DecodeArrayLen()
	if err != nil {
		return marinelog.Message{}, err
	}
	if err := o.limit(n, 1); err != nil {
		return marinelog.Message{}, err
	}
	if n != 4 {
		return marinelog.Message{}, o.skipN(n, errNotMessage)
	}

	var header [3]int64
	valid := true
	for i := range header {
		v, ok, err := o.integer()
		if err != nil {
			return marinelog.Message{}, err
		}
		valid = valid && ok
		header[i] = v
	}
	marker, source, channel := header[0], header[1], header[2]
	if !valid || marker != messageMarker ||
		source < 0 || source > int64(marinelog.MaxID) ||
		channel < 0 || channel > int64(marinelog.MaxID) {
		return marinelog.Message{}, o.skipN(1, errNotMessage)
	}
	return o.data(uint8(source), uint8(channel))
}

func (o objectReader) data(src uint8, ch uint8) (marinelog.Message, error) {
	c, err := o.dec.PeekCode()
	if err != nil {
		return marinelog.Message{}, err
	}
	switch {
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := o.dec.DecodeFloat64()
		if err != nil {
			return marinelog.Message{}, err
		}
		return marinelog.NewFloat(src, ch, float32(f)), nil
	case isInteger(c):
		i, ok, err := o.integer()
		switch {
		case err != nil:
			return marinelog.Message{}, err
		case !ok || i > math.MaxUint32:
			return marinelog.Message{}, errNotMessage
		case i < 0:
			return marinelog.NewFloat(src, ch, float32(i)), nil
		}
		return marinelog.NewTimestamp(src, ch, uint32(i)), nil
	case msgpcode.IsBin(c):
		b, err := o.bytes()
		if err != nil {
			return marinelog.Message{}, err
		}
		return marinelog.NewBytes(src, ch, b), nil
	case msgpcode.IsString(c):
		b, err := o.bytes()
		if err != nil {
			return marinelog.Message{}, err
		}
		return marinelog.NewString(src, ch, string(b)), nil
	case isArray(c):
		n, err := o.dec.DecodeArrayLen()
		if err != nil {
			return marinelog.Message{}, err
		}
		if err := o.limit(n, 1); err != nil {
			return marinelog.Message{}, err
		}
		strs := make([]string, 0, n)
		for i := 0; i < n; i++ {
			c, err := o.dec.PeekCode()
			if err != nil {
				return marinelog.Message{}, err
			}
			if !msgpcode.IsString(c) {
				return marinelog.Message{}, o.skipN(n-i, errNotMessage)
			}
			b, err := o.bytes()
			if err != nil {
				return marinelog.Message{}, err
			}
			strs = append(strs, string(b))
		}
		return marinelog.NewStringArray(src, ch, strs), nil
	}
	return marinelog.Message{}, o.skipN(1, errNotMessage)
}

// integer decodes integer element. Non-integer element is skipped and reported with ok=false.
func (o objectReader) integer() (int64, bool, error) {
	c, err := o.dec.PeekCode()
	if err != nil {
		return 0, false, err
	}
	if !isInteger(c) {
		return 0, false, o.skip(0)
	}
	if c == msgpcode.Uint64 {
		u, err := o.dec.DecodeUint64()
		if err != nil || u > math.MaxInt64 {
			return 0, false, err
		}
		return int64(u), true, nil
	}
	i, err := o.dec.DecodeInt64()
	return i, err == nil, err
}

// bytes reads str or bin element
func (o objectReader) bytes() ([]byte, error) {
	n, err := o.dec.DecodeBytesLen()
	if err != nil {
		return nil, err
	}
	if err := o.limit(n, 1); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := o.dec.ReadFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

// skipN skips n elements and returns result when all of them were skipped
func (o objectReader) skipN(n int, result error) error {
	for i := 0; i < n; i++ {
		if err := o.skip(0); err != nil {
			return err
		}
	}
	return result
}

// skip skips single element of any type without allocating more than buffer size
func (o objectReader) skip(depth int) error {
	if depth > maxNesting {
		return errMalformed
	}
	c, err := o.dec.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case isArray(c):
		n, err := o.dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if err := o.limit(n, 1); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := o.skip(depth + 1); err != nil {
				return err
			}
		}
		return nil
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := o.dec.DecodeMapLen()
		if err != nil {
			return err
		}
		if err := o.limit(n, 2); err != nil {
			return err
		}
		for i := 0; i < 2*n; i++ {
			if err := o.skip(depth + 1); err != nil {
				return err
			}
		}
		return nil
	case msgpcode.IsString(c) || msgpcode.IsBin(c):
		_, err := o.bytes()
		return err
	case msgpcode.IsExt(c) || c == 0xc1: // extensions are never used by devices, 0xc1 is unused code
		return errMalformed
	}
	return o.dec.Skip()
}

func isArray(c byte) bool {
	return msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32
}

func isInteger(c byte) bool {
	if msgpcode.IsFixedNum(c) {
		return true
	}
	switch c {
	case msgpcode.Uint8, msgpcode.Uint16, msgpcode.Uint32, msgpcode.Uint64,
		msgpcode.Int8, msgpcode.Int16, msgpcode.Int32, msgpcode.Int64:
		return true
	}
	return false
}
