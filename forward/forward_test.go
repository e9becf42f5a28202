package forward

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aldas/go-marine-logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	published []published
	err       error
}

func (p *fakePublisher) Publish(subj string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, published{subject: subj, data: append([]byte(nil), data...)})
	return nil
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "boat.30.04", Subject("boat", marinelog.NewFloat(0x30, 0x04, 1)))
	assert.Equal(t, "boat.7f.00", Subject("boat", marinelog.NewFloat(0x7f, 0x00, 1)))
}

func TestForwarder_Run(t *testing.T) {
	q := marinelog.NewQueue(4)
	ctx := context.Background()
	assert.NoError(t, q.Push(ctx, marinelog.NewFloat(0x30, 0x04, 1.5)))
	assert.NoError(t, q.Push(ctx, marinelog.NewBytes(0x10, 0x01, []byte{0x01, 0x02})))
	q.Close()

	pub := &fakePublisher{}
	console := &bytes.Buffer{}
	f := New(q, Config{Publisher: pub, Subject: "marinelog", Console: console, Logger: zerolog.Nop()})

	err := f.Run(ctx)
	assert.NoError(t, err)

	assert.Equal(t, []published{
		{subject: "marinelog.30.04", data: []byte{0x94, 0x55, 0x30, 0x04, 0xca, 0x3f, 0xc0, 0x00, 0x00}},
		{subject: "marinelog.10.01", data: []byte{0x94, 0x55, 0x10, 0x01, 0xc4, 0x02, 0x01, 0x02}},
	}, pub.published)
	assert.Equal(t, "0x30:0x04 1.5\n0x10:0x01 0102\n", console.String())
}

func TestForwarder_RunPublishErrorDoesNotStop(t *testing.T) {
	q := marinelog.NewQueue(4)
	ctx := context.Background()
	assert.NoError(t, q.Push(ctx, marinelog.NewFloat(0x30, 0x04, 1.5)))
	q.Close()

	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	f := New(q, Config{Publisher: pub, Subject: "marinelog", Logger: zerolog.Nop()})

	assert.NoError(t, f.Run(ctx))
	assert.Len(t, pub.published, 0)
	assert.Equal(t, 0, q.Len())
}

func TestForwarder_RunContextCancelled(t *testing.T) {
	q := marinelog.NewQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	f := New(q, Config{Logger: zerolog.Nop()})

	err := f.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
