package vm

import "io"

// Sink receives output bytes in emission order, one call per '.'.
// Emitting never fails from the machine's point of view; sinks that can fail
// must remember the error themselves.
type Sink interface {
	Emit(b byte)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(b byte)

func (f SinkFunc) Emit(b byte) { f(b) }

// Discard drops all output.
var Discard Sink = SinkFunc(func(byte) {})

// Buffer collects output in memory.
type Buffer struct {
	data []byte
}

func (b *Buffer) Emit(c byte) { b.data = append(b.data, c) }

// Bytes returns the collected output.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) String() string { return string(b.data) }

// Len returns the number of bytes emitted so far.
func (b *Buffer) Len() int { return len(b.data) }

// WriterSink forwards each byte to an io.Writer. After the first write error
// further bytes are dropped and the error is reported by Err.
type WriterSink struct {
	w   io.Writer
	buf [1]byte
	n   int64
	err error
}

// NewWriterSink wraps w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Emit(b byte) {
	if s.err != nil {
		return
	}
	if bw, ok := s.w.(io.ByteWriter); ok {
		s.err = bw.WriteByte(b)
	} else {
		s.buf[0] = b
		_, s.err = s.w.Write(s.buf[:])
	}
	if s.err == nil {
		s.n++
	}
}

// Written returns the number of bytes successfully forwarded.
func (s *WriterSink) Written() int64 { return s.n }

// Err returns the first write error, if any.
func (s *WriterSink) Err() error { return s.err }

// Tee emits every byte to each sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(b byte) {
		for _, s := range sinks {
			s.Emit(b)
		}
	})
}
