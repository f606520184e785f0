package retry

import (
	"context"
	"math/rand"
	"time"
)

type Operation = func() error

// Config controls the exponential backoff schedule. Jitter is added on
// top of the computed delay for every attempt.
type Config struct {
	MaxRetries    int
	BackoffFactor float64
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Jitter        time.Duration
}

// NewDefaultConfig returns the schedule used for outbound HTTP calls:
// up to 4 retries spread over roughly 4 seconds.
func NewDefaultConfig() *Config {
	return &Config{
		MaxRetries:    4,
		BackoffFactor: 2.0,
		InitialDelay:  250 * time.Millisecond,
		MaxDelay:      15 * time.Second,
		Jitter:        75 * time.Millisecond,
	}
}

type Retrier struct {
	config *Config
}

func NewRetrier(config *Config) *Retrier {
	return &Retrier{config: config}
}

func NewDefaultRetrier() *Retrier {
	return NewRetrier(NewDefaultConfig())
}

// Do runs op until it succeeds, the retry budget is spent, or ctx is
// cancelled. The last operation error is returned when retries run out.
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	delay := r.config.InitialDelay

	var err error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == r.config.MaxRetries {
			return err
		}

		wait := delay
		if wait > r.config.MaxDelay {
			wait = r.config.MaxDelay
		}
		wait += time.Duration(rnd.Float64() * float64(r.config.Jitter))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * r.config.BackoffFactor)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}
	return err
}
