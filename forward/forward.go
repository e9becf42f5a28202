package forward

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aldas/go-marine-logger"
	"github.com/aldas/go-marine-logger/mp"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher publishes payload to subject. *nats.Conn satisfies this interface.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Subject returns subject for message in form `<prefix>.<source>.<channel>`, source and channel are 2 digit hex.
func Subject(prefix string, msg marinelog.Message) string {
	return fmt.Sprintf("%s.%02x.%02x", prefix, msg.Source, msg.Channel)
}

// Forwarder drains the queue and hands every message to its sinks: optional console writer and optional publisher.
type Forwarder struct {
	queue     *marinelog.Queue
	publisher Publisher
	subject   string
	console   io.Writer
	logger    zerolog.Logger
}

// Config configures Forwarder
type Config struct {
	// Publisher receives messages encoded as MessagePack. Nil disables publishing.
	Publisher Publisher
	// Subject is prefix for published subjects
	Subject string
	// Console receives one line per message. Nil disables console output.
	Console io.Writer
	Logger  zerolog.Logger
}

// New creates new Forwarder reading messages from queue
func New(queue *marinelog.Queue, config Config) *Forwarder {
	return &Forwarder{
		queue:     queue,
		publisher: config.Publisher,
		subject:   config.Subject,
		console:   config.Console,
		logger:    config.Logger,
	}
}

// Connect connects to NATS server at url
func Connect(url string, name string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name(name),
		nats.MaxReconnects(-1),
	)
}

// Run forwards messages until context is cancelled or queue is closed and drained. Closed queue is not an error.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		msg, err := f.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, marinelog.ErrQueueClosed) {
				return nil
			}
			return err
		}
		f.forward(msg)
		msg.Release()
	}
}

func (f *Forwarder) forward(msg marinelog.Message) {
	if f.console != nil {
		if _, err := fmt.Fprintln(f.console, msg.String()); err != nil {
			f.logger.Warn().Err(err).Msg("console write failed")
		}
	}
	if f.publisher == nil {
		return
	}
	payload, err := mp.Marshal(msg)
	if err != nil {
		f.logger.Warn().Err(err).
			Uint8("source", msg.Source).
			Uint8("channel", msg.Channel).
			Msg("message encoding failed")
		return
	}
	if err := f.publisher.Publish(Subject(f.subject, msg), payload); err != nil {
		f.logger.Warn().Err(err).Msg("message publishing failed")
	}
}
