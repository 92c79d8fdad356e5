package device

import (
	"io"
	"sync/atomic"
)

// bytesPerSample for signed 16-bit mono
const bytesPerSample = 2

// countingReader tracks how many bytes the device has pulled
type countingReader struct {
	r    io.Reader
	read atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read.Add(int64(n))
	return n, err
}

func (c *countingReader) count() int64 {
	return c.read.Load()
}

// samplePosition converts bytes pulled minus bytes still queued in the
// device buffer into the index of the sample being heard
func samplePosition(consumed, buffered int64, total int) int {
	pos := int((consumed - buffered) / bytesPerSample)
	if pos < 0 {
		return 0
	}
	if pos > total {
		return total
	}
	return pos
}
