package mp

import (
	"bytes"
	"fmt"
	"io"

	"github.com/aldas/go-marine-logger"
	"github.com/vmihailenco/msgpack/v5"
)

// Marshal serializes message to MessagePack array [0x55, source, channel, data].
//
// Float is encoded as float32, Timestamp as unsigned integer, Bytes as bin, String as str and StringArray as array
// of str.
func Marshal(msg marinelog.Message) ([]byte, error) {
	buf := bytes.Buffer{}
	if err := encode(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteMessage serializes message and writes it to writer with single Write call.
func WriteMessage(w io.Writer, msg marinelog.Message) error {
	b, err := Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("mp: write failed: %w", err)
	}
	return nil
}

func encode(w io.Writer, msg marinelog.Message) error {
	if msg.Source > marinelog.MaxID || msg.Channel > marinelog.MaxID {
		return fmt.Errorf("%w: source or channel id out of range 0x%02x:0x%02x", ErrInvalidMessage, msg.Source, msg.Channel)
	}
	if msg.Data == nil {
		return fmt.Errorf("%w: message has no payload", ErrInvalidMessage)
	}

	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeArrayLen(4); err != nil {
		return err
	}
	if err := enc.EncodeUint(messageMarker); err != nil {
		return err
	}
	if err := enc.EncodeUint(uint64(msg.Source)); err != nil {
		return err
	}
	if err := enc.EncodeUint(uint64(msg.Channel)); err != nil {
		return err
	}

	switch data := msg.Data.(type) {
	case marinelog.Float:
		return enc.EncodeFloat32(float32(data))
	case marinelog.Timestamp:
		return enc.EncodeUint(uint64(data))
	case marinelog.Bytes:
		if data == nil {
			data = marinelog.Bytes{}
		}
		return enc.EncodeBytes(data)
	case marinelog.String:
		return enc.EncodeString(string(data))
	case marinelog.StringArray:
		if err := enc.EncodeArrayLen(len(data)); err != nil {
			return err
		}
		for _, s := range data {
			if err := enc.EncodeString(s); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported payload %T", ErrInvalidMessage, msg.Data)
}
