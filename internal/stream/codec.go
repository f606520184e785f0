// Package stream implements the multiplexed substream wire format.
//
// Four logical substreams share one byte channel. Each run of bytes is
// introduced by a two-byte tag marker "<tag>:" and belongs to that
// substream until the next marker. There is no length prefix and no
// separator between runs, so the decoder must tolerate markers split
// across transport chunk boundaries.
package stream

import "io"

// Channel identifies one of the four substreams by its wire tag byte.
type Channel byte

const (
	ChannelContent Channel = 'c'
	ChannelThought Channel = 't'
	ChannelStatus  Channel = 's'
	ChannelTitle   Channel = 'u'
)

const markerSep = ':'

func (c Channel) String() string {
	switch c {
	case ChannelContent:
		return "content"
	case ChannelThought:
		return "thought"
	case ChannelStatus:
		return "status"
	case ChannelTitle:
		return "title"
	}
	return "unknown"
}

func isTag(b byte) bool {
	switch Channel(b) {
	case ChannelContent, ChannelThought, ChannelStatus, ChannelTitle:
		return true
	}
	return false
}

// Emitter is the server-side sink for classified chunks.
type Emitter interface {
	Emit(ch Channel, text string) error
}

// Encoder writes classified chunks as tagged runs. It must only be used
// from one goroutine per turn: interleaving two producers into one
// stream would corrupt run boundaries.
type Encoder struct {
	w     io.Writer
	flush func()
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// NewFlushingEncoder calls flush after every chunk so tokens reach the
// client as they are produced.
func NewFlushingEncoder(w io.Writer, flush func()) *Encoder {
	return &Encoder{w: w, flush: flush}
}

func (e *Encoder) Emit(ch Channel, text string) error {
	if text == "" {
		return nil
	}
	buf := make([]byte, 0, len(text)+2)
	buf = append(buf, byte(ch), markerSep)
	buf = append(buf, text...)
	if _, err := e.w.Write(buf); err != nil {
		return err
	}
	if e.flush != nil {
		e.flush()
	}
	return nil
}

// Sink receives decoded substream events.
type Sink interface {
	// Switch is called when a tag marker is consumed and the active
	// substream changes (or restarts).
	Switch(ch Channel)
	// Chunk delivers bytes attributed to the active substream.
	Chunk(ch Channel, data []byte)
}

// Decoder reconstructs the four substreams from arbitrarily split
// pieces of the encoded byte sequence. Pieces must be fed in arrival
// order; the state below is order-dependent.
type Decoder struct {
	sink    Sink
	current Channel
	active  bool
	pending []byte
}

func NewDecoder(sink Sink) *Decoder {
	return &Decoder{sink: sink}
}

// Write feeds one transport piece into the decoder. It never fails;
// unrecognized tag bytes are treated as ordinary content of the current
// substream rather than a protocol error.
func (d *Decoder) Write(p []byte) (int, error) {
	d.pending = append(d.pending, p...)

	for len(d.pending) > 0 {
		if isTag(d.pending[0]) {
			if len(d.pending) == 1 {
				// Possibly the first byte of a split marker. Hold it
				// back until the next piece decides.
				return len(p), nil
			}
			if d.pending[1] == markerSep {
				d.current = Channel(d.pending[0])
				d.active = true
				d.pending = d.pending[2:]
				d.sink.Switch(d.current)
				continue
			}
		}

		idx := nextMarker(d.pending)
		if idx >= 0 {
			d.emit(d.pending[:idx])
			d.pending = d.pending[idx:]
			continue
		}

		// No complete marker left. Hold back a trailing tag byte, it
		// may be the first half of a marker split at this boundary.
		if last := len(d.pending) - 1; isTag(d.pending[last]) {
			d.emit(d.pending[:last])
			d.pending = d.pending[last:]
			return len(p), nil
		}

		d.emit(d.pending)
		d.pending = nil
	}
	return len(p), nil
}

// Flush releases decoder state at end of stream. A held-back trailing
// tag byte was real content after all and is attributed to the current
// substream.
func (d *Decoder) Flush() {
	if len(d.pending) > 0 {
		d.emit(d.pending)
		d.pending = nil
	}
}

func (d *Decoder) emit(data []byte) {
	if len(data) == 0 {
		return
	}
	if !d.active {
		// Bytes before the first tag marker belong to no substream.
		return
	}
	d.sink.Chunk(d.current, data)
}

// nextMarker returns the index of the first complete tag marker in buf,
// or -1. Index 0 is skipped: a marker at the head is consumed by the
// caller's fast path, and a head tag byte without a separator is
// ordinary content.
func nextMarker(buf []byte) int {
	for i := 1; i+1 < len(buf); i++ {
		if isTag(buf[i]) && buf[i+1] == markerSep {
			return i
		}
	}
	return -1
}
