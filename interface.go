package marinelog

import (
	"context"
)

// MessageReader reads messages from a source. ReadMessage blocks until a message is available or an error occurs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (Message, error)
	Close() error
}

type MessageWriter interface {
	WriteMessage(Message) error
	Close() error
}

type MessageReaderWriter interface {
	MessageReader
	MessageWriter
}
