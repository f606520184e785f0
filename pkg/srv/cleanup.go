package srv

import "context"

// cleanup adapts a plain close function (a DB handle, a client pool)
// into a Service so it rides the normal shutdown sequence.
type cleanup struct {
	fn func() error
}

func NewCleanup(fn func() error) Service {
	return &cleanup{fn: fn}
}

func (c *cleanup) Start(ctx context.Context) error {
	return nil
}

func (c *cleanup) Shutdown(ctx context.Context) error {
	if c.fn == nil {
		return nil
	}
	return c.fn()
}
