package stream

import (
	"bytes"
	"strings"
)

// Collector is a Sink that applies the per-substream accumulation
// rules: content and thought append for the lifetime of the turn, a new
// status run replaces the previous one, and title runs are trimmed and
// applied as they arrive instead of accumulating into displayed output.
type Collector struct {
	content  bytes.Buffer
	thought  bytes.Buffer
	status   bytes.Buffer
	titleRun bytes.Buffer
	title    string
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Switch(ch Channel) {
	switch ch {
	case ChannelStatus:
		// Status is a replaceable transient signal, not a log.
		c.status.Reset()
	case ChannelTitle:
		c.titleRun.Reset()
	}
}

func (c *Collector) Chunk(ch Channel, data []byte) {
	switch ch {
	case ChannelContent:
		c.content.Write(data)
	case ChannelThought:
		c.thought.Write(data)
	case ChannelStatus:
		c.status.Write(data)
	case ChannelTitle:
		c.titleRun.Write(data)
		if t := strings.TrimSpace(c.titleRun.String()); t != "" {
			c.title = t
		}
	}
}

func (c *Collector) Content() string { return c.content.String() }
func (c *Collector) Thought() string { return c.thought.String() }
func (c *Collector) Status() string  { return c.status.String() }
func (c *Collector) Title() string   { return c.title }
