package canboat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aldas/go-marine-logger/n2k"
	"github.com/stretchr/testify/assert"
)

func TestDevice_ReadFrame(t *testing.T) {
	input := `# recorded with actisense-serial
2021-07-29T10:18:31.758Z,6,126208,36,0,7,02,82,ff,00,10,02,00

2021-07-29T10:18:31.800Z,2,129025,1,255,8,3d,0d,b3,22,48,32,59,0d
`
	d := NewCanBoatReader(strings.NewReader(input))
	assert.NoError(t, d.Initialize())

	pgns := make([]uint32, 0)
	for {
		f, err := d.ReadFrame(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if !assert.NoError(t, err) {
			return
		}
		pgns = append(pgns, f.PGN)
	}
	assert.Equal(t, []uint32{126208, 129025}, pgns)
	assert.NoError(t, d.Close())
}

func TestDevice_ReadFrameInvalidLine(t *testing.T) {
	d := NewCanBoatReader(strings.NewReader("garbage\n"))

	f, err := d.ReadFrame(context.Background())

	assert.EqualError(t, err, "canboat input has fewer components than expected")
	assert.Equal(t, n2k.Frame{}, f)
}
