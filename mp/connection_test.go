package mp

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aldas/go-marine-logger"
	test_test "github.com/aldas/go-marine-logger/test"
	"github.com/stretchr/testify/assert"
)

func TestConnection_ReadMessage(t *testing.T) {
	r := &test_test.ChunkReader{Chunks: [][]byte{
		floatMessageBytes[0:3],
		floatMessageBytes[3:],
		stringMessageBytes,
	}}
	c := NewConnection(r)

	msg, err := c.ReadMessage(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, marinelog.NewFloat(0x10, 0x04, 1.5), msg)

	msg, err = c.ReadMessage(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, marinelog.NewString(0x30, 0x00, "ab"), msg)

	_, err = c.ReadMessage(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestConnection_ReadMessage_idleTimeout(t *testing.T) {
	r := &test_test.ChunkReader{}
	c := NewConnectionWithConfig(r, Config{ReceiveDataTimeout: 1 * time.Second})

	now := test_test.UTCTime(1665488842)
	c.timeNow = func() time.Time {
		return now
	}
	sleeps := 0
	c.sleepFunc = func(timeout time.Duration) {
		sleeps++
		now = now.Add(400 * time.Millisecond)
	}

	_, err := c.ReadMessage(context.Background())

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 3, sleeps)
}

// emptyReader returns no data and no error
type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, nil }

func (emptyReader) Write(p []byte) (int, error) { return len(p), nil }

func TestConnection_ReadMessage_idleTimeoutWithoutEOF(t *testing.T) {
	c := NewConnectionWithConfig(emptyReader{}, Config{ReceiveDataTimeout: 1 * time.Second})

	now := test_test.UTCTime(1665488842)
	c.timeNow = func() time.Time {
		return now
	}
	sleeps := 0
	c.sleepFunc = func(timeout time.Duration) {
		sleeps++
		now = now.Add(400 * time.Millisecond)
	}

	_, err := c.ReadMessage(context.Background())

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 3, sleeps)
}

func TestConnection_ReadMessage_contextCancelled(t *testing.T) {
	c := NewConnection(&test_test.ChunkReader{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ReadMessage(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnection_ReadMessage_readError(t *testing.T) {
	readErr := errors.New("device disconnected")
	c := NewConnection(&test_test.ChunkReader{Err: readErr})

	_, err := c.ReadMessage(context.Background())

	assert.ErrorIs(t, err, readErr)
}

func TestConnection_WriteMessage(t *testing.T) {
	rw := &test_test.ChunkReader{}
	c := NewConnection(rw)

	err := c.WriteMessage(marinelog.NewFloat(0x10, 0x04, 1.5))
	assert.NoError(t, err)
	assert.Equal(t, floatMessageBytes, rw.Written)

	err = c.WriteMessage(marinelog.Message{})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	assert.NoError(t, c.Close())
	assert.True(t, rw.Closed)
}

func TestConnection_pipeRoundTrip(t *testing.T) {
	pr, pw := io.Pipe()
	reader := NewConnection(struct {
		io.Reader
		io.Writer
	}{pr, io.Discard})
	writer := NewConnection(struct {
		io.Reader
		io.Writer
	}{nil, pw})

	sent := []marinelog.Message{
		marinelog.NewString(marinelog.SourceMP, marinelog.ChannelName, "IMU"),
		marinelog.NewStringArray(marinelog.SourceMP, marinelog.ChannelMap, []string{"Name", "Channels", "Timestamp"}),
		marinelog.NewTimestamp(marinelog.SourceMP, marinelog.ChannelTimestamp, 123456),
		marinelog.NewFloat(marinelog.SourceMP, 0x04, 0.25),
	}
	go func() {
		for _, m := range sent {
			_ = writer.WriteMessage(m)
		}
		_ = pw.Close()
	}()

	received := make([]marinelog.Message, 0)
	for {
		msg, err := reader.ReadMessage(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if !assert.NoError(t, err) {
			return
		}
		received = append(received, msg)
	}
	test_test.AssertMessages(t, sent, received, 0)
}
