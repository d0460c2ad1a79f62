package logger

import (
	"bytes"
	"io"
	"sync"
)

// GatedWriter is an io.Writer that buffers output until its gate is
// opened, then flushes the buffer and writes through. The server keeps
// the gate closed while booting so that startup noise from half-wired
// subsystems is held until the log destination is final.
type GatedWriter struct {
	mu         sync.Mutex
	underlying io.Writer
	buffer     bytes.Buffer
	open       bool
	maxBuffer  int
}

// NewGatedWriter creates a gated writer in the closed state. maxBuffer
// limits buffered bytes (0 = unlimited); when exceeded, the oldest
// buffered output is discarded.
func NewGatedWriter(underlying io.Writer, maxBuffer int) *GatedWriter {
	if underlying == nil {
		underlying = io.Discard
	}
	return &GatedWriter{
		underlying: underlying,
		maxBuffer:  maxBuffer,
	}
}

// Write implements io.Writer
func (gw *GatedWriter) Write(p []byte) (int, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if gw.open {
		return gw.underlying.Write(p)
	}

	if gw.maxBuffer > 0 && gw.buffer.Len()+len(p) > gw.maxBuffer {
		excess := (gw.buffer.Len() + len(p)) - gw.maxBuffer
		gw.buffer.Next(excess)
	}
	return gw.buffer.Write(p)
}

// OpenGate opens the gate and flushes all buffered output
func (gw *GatedWriter) OpenGate() error {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if gw.open {
		return nil
	}
	gw.open = true

	if gw.buffer.Len() > 0 {
		if _, err := gw.underlying.Write(gw.buffer.Bytes()); err != nil {
			return err
		}
		gw.buffer.Reset()
	}
	return nil
}
