package test_test

import (
	"testing"

	"github.com/aldas/go-marine-logger"
	"github.com/stretchr/testify/assert"
)

// AssertMessage compares messages. Float payloads are compared with delta.
func AssertMessage(t *testing.T, expect marinelog.Message, actual marinelog.Message, delta float64) {
	t.Helper()
	assert.Equal(t, expect.Source, actual.Source, "source")
	assert.Equal(t, expect.Channel, actual.Channel, "channel")
	assert.Equal(t, expect.DType(), actual.DType(), "dtype")
	assert.Equal(t, expect.Length(), actual.Length(), "length")

	if e, ok := expect.Data.(marinelog.Float); ok {
		a, _ := actual.Data.(marinelog.Float)
		assert.InDelta(t, float64(e), float64(a), delta)
		return
	}
	assert.Equal(t, expect.Data, actual.Data)
}

// AssertMessages compares message slices element by element
func AssertMessages(t *testing.T, expect []marinelog.Message, actual []marinelog.Message, delta float64) {
	t.Helper()
	if !assert.Len(t, actual, len(expect)) {
		return
	}
	for i := range expect {
		AssertMessage(t, expect[i], actual[i], delta)
	}
}
