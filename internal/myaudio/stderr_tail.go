package myaudio

import (
	"sync"

	"github.com/smallnest/ringbuffer"
)

// stderrTailSize is how much trailing ffmpeg diagnostic output is kept.
const stderrTailSize = 4096

// tailWriter keeps the last bytes written to it, discarding older output
// once the ring buffer is full.
type tailWriter struct {
	mu sync.Mutex
	rb *ringbuffer.RingBuffer
}

func newTailWriter(size int) *tailWriter {
	return &tailWriter{rb: ringbuffer.New(size)}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(p)
	capacity := w.rb.Capacity()
	if len(p) >= capacity {
		w.rb.Reset()
		p = p[len(p)-capacity:]
	} else if free := w.rb.Free(); free < len(p) {
		discard := make([]byte, len(p)-free)
		_, _ = w.rb.Read(discard)
	}
	if _, err := w.rb.Write(p); err != nil {
		return 0, err
	}
	return n, nil
}

// String returns the retained output. It drains the buffer.
func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.rb.Length() == 0 {
		return ""
	}
	out := make([]byte, w.rb.Length())
	n, _ := w.rb.Read(out)
	return string(out[:n])
}
