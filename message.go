package marinelog

import "fmt"

// DType identifies which payload variant a Message carries.
type DType uint8

const (
	// DTypeUndefined is an empty or released message
	DTypeUndefined DType = iota
	// DTypeFloat is a single 32-bit numeric value
	DTypeFloat
	// DTypeTimestamp is a millisecond clock value (arbitrary epoch)
	DTypeTimestamp
	// DTypeBytes is raw binary data
	DTypeBytes
	// DTypeString is a single string
	DTypeString
	// DTypeStringArray is an ordered list of strings, usually a channel name map
	DTypeStringArray
)

func (t DType) String() string {
	switch t {
	case DTypeFloat:
		return "float"
	case DTypeTimestamp:
		return "timestamp"
	case DTypeBytes:
		return "bytes"
	case DTypeString:
		return "string"
	case DTypeStringArray:
		return "string-array"
	}
	return "undefined"
}

// Payload is the data carried by a Message. It is implemented only by Float, Timestamp, Bytes, String and
// StringArray so consumers use a type switch to access the value of the variant that is actually present.
type Payload interface {
	DType() DType
	// Len returns payload length in units that depend on the variant: bytes for Bytes and String, elements for
	// StringArray and 1 for scalar values.
	Len() int

	payload()
}

// Float is generic numeric data
type Float float32

// Timestamp is a millisecond level clock value
type Timestamp uint32

// Bytes is the raw binary variant
type Bytes []byte

// String is a single string
type String string

// StringArray is an ordered list of strings. Intended for channel name maps.
type StringArray []string

func (Float) DType() DType       { return DTypeFloat }
func (Timestamp) DType() DType   { return DTypeTimestamp }
func (Bytes) DType() DType       { return DTypeBytes }
func (String) DType() DType      { return DTypeString }
func (StringArray) DType() DType { return DTypeStringArray }

func (Float) Len() int          { return 1 }
func (Timestamp) Len() int      { return 1 }
func (b Bytes) Len() int        { return len(b) }
func (s String) Len() int       { return len(s) }
func (sa StringArray) Len() int { return len(sa) }
func (Float) payload()          {}
func (Timestamp) payload()      {}
func (Bytes) payload()          {}
func (String) payload()         {}
func (StringArray) payload()    {}

// Message is the unit exchanged between all sources, queues and consumers.
//
// Message exclusively owns its payload. Constructors take ownership of the slices given to them and callers must
// not modify those slices afterwards. Once a Message has been pushed to a Queue the producer must not touch it again.
type Message struct {
	// Source identifies originating device or class of device. 7 bits (0x00-0x7F), see Source* constants.
	Source uint8
	// Channel identifies data stream within source. 7 bits (0x00-0x7F), see Channel* constants.
	Channel uint8
	// Data is the payload. nil means undefined message.
	Data Payload
}

// NewFloat creates message with single numeric value
func NewFloat(source uint8, channel uint8, value float32) Message {
	return Message{Source: source, Channel: channel, Data: Float(value)}
}

// NewTimestamp creates message with millisecond timestamp value
func NewTimestamp(source uint8, channel uint8, ts uint32) Message {
	return Message{Source: source, Channel: channel, Data: Timestamp(ts)}
}

// NewBytes creates message with raw binary data. Message takes ownership of given slice.
func NewBytes(source uint8, channel uint8, data []byte) Message {
	if data == nil {
		data = []byte{}
	}
	return Message{Source: source, Channel: channel, Data: Bytes(data)}
}

// NewString creates message with single string
func NewString(source uint8, channel uint8, s string) Message {
	return Message{Source: source, Channel: channel, Data: String(s)}
}

// NewStringArray creates message with list of strings. Message takes ownership of given slice.
func NewStringArray(source uint8, channel uint8, strs []string) Message {
	if strs == nil {
		strs = []string{}
	}
	return Message{Source: source, Channel: channel, Data: StringArray(strs)}
}

// DType returns type of payload carried by message
func (m Message) DType() DType {
	if m.Data == nil {
		return DTypeUndefined
	}
	return m.Data.DType()
}

// Length returns payload length. Bytes and strings report byte count, string arrays element count and scalar
// values 1. Undefined messages have length 0.
func (m Message) Length() int {
	if m.Data == nil {
		return 0
	}
	return m.Data.Len()
}

// Release drops the payload and turns message into undefined message. Owned buffers, strings and string arrays
// (including element strings) become unreachable from this message. Released message must not be reused.
func (m *Message) Release() {
	switch d := m.Data.(type) {
	case Bytes:
		for i := range d {
			d[i] = 0
		}
	case StringArray:
		for i := range d {
			d[i] = ""
		}
	}
	m.Data = nil
}

func (m Message) String() string {
	prefix := fmt.Sprintf("0x%02x:0x%02x", m.Source, m.Channel)
	switch d := m.Data.(type) {
	case Float:
		return fmt.Sprintf("%v %v", prefix, float32(d))
	case Timestamp:
		return fmt.Sprintf("%v %dms", prefix, uint32(d))
	case Bytes:
		return fmt.Sprintf("%v %x", prefix, []byte(d))
	case String:
		return fmt.Sprintf("%v %q", prefix, string(d))
	case StringArray:
		return fmt.Sprintf("%v %q", prefix, []string(d))
	}
	return prefix + " <undefined>"
}
