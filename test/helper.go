package test_test

import (
	"io"
	"time"
)

// UTCTime creates instance of time in UTC timezone this helps avoid problems running tests with different timezone computers
func UTCTime(sec int64) time.Time {
	return time.Unix(sec, 0).In(time.UTC)
}

// ChunkReader returns scripted chunks one per Read call. After all chunks are read Err is returned (io.EOF when
// Err is not set). Used to simulate short reads from serial devices.
type ChunkReader struct {
	Chunks [][]byte
	Err    error

	// Written collects everything written to reader
	Written []byte
	Closed  bool
}

func (r *ChunkReader) Read(p []byte) (int, error) {
	if len(r.Chunks) == 0 {
		if r.Err != nil {
			return 0, r.Err
		}
		return 0, io.EOF
	}
	n := copy(p, r.Chunks[0])
	if n < len(r.Chunks[0]) {
		r.Chunks[0] = r.Chunks[0][n:]
	} else {
		r.Chunks = r.Chunks[1:]
	}
	return n, nil
}

func (r *ChunkReader) Write(p []byte) (int, error) {
	r.Written = append(r.Written, p...)
	return len(p), nil
}

func (r *ChunkReader) Close() error {
	r.Closed = true
	return nil
}
