// Package backoff computes delays between retry attempts of a failing item.
//
// A Strategy is created per item and is not safe for concurrent use; the
// decorrelated strategy carries state from one attempt to the next.
package backoff

import (
	"math/rand/v2"
	"time"
)

// maxShift caps the exponent so 1<<attempt cannot overflow an int64.
const maxShift = 62

// Kind selects the delay algorithm.
type Kind int

const (
	// Exponential doubles the delay on every retry.
	Exponential Kind = iota
	// Jittered is exponential with a random spread of ±Jitter around each delay.
	Jittered
	// Decorrelated picks each delay uniformly between Initial and three
	// times the previous delay (AWS "decorrelated jitter").
	Decorrelated
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Jittered:
		return "jittered"
	case Decorrelated:
		return "decorrelated"
	default:
		return "exponential"
	}
}

// Config describes the delay curve shared by all kinds.
type Config struct {
	Kind    Kind
	Initial time.Duration
	// Max caps every delay. Zero means no cap.
	Max time.Duration
	// Jitter is the relative spread for Jittered, clamped to [0, 1].
	Jitter float64
}

// Strategy yields the wait before each retry.
type Strategy interface {
	// Next returns the delay before retry number retry (0 = first retry).
	Next(retry int) time.Duration
}

// New builds a fresh strategy for one item.
func New(cfg Config) Strategy {
	if cfg.Max <= 0 {
		cfg.Max = time.Duration(1<<63 - 1)
	}
	if cfg.Initial < 0 {
		cfg.Initial = 0
	}

	switch cfg.Kind {
	case Jittered:
		return &jittered{cfg: cfg, factor: clamp(cfg.Jitter, 0, 1)}
	case Decorrelated:
		return &decorrelated{cfg: cfg, prev: cfg.Initial}
	default:
		return exponential{cfg: cfg}
	}
}

type exponential struct {
	cfg Config
}

func (e exponential) Next(retry int) time.Duration {
	return Exp(retry, e.cfg.Initial, e.cfg.Max)
}

type jittered struct {
	cfg    Config
	factor float64
}

func (j *jittered) Next(retry int) time.Duration {
	if retry < 0 {
		return 0
	}
	base := Exp(retry, j.cfg.Initial, j.cfg.Max)
	spread := 1 + (rand.Float64()*2-1)*j.factor // #nosec G404 -- jitter does not need crypto randomness
	return clamp(time.Duration(float64(base)*spread), 0, j.cfg.Max)
}

type decorrelated struct {
	cfg  Config
	prev time.Duration
}

func (d *decorrelated) Next(retry int) time.Duration {
	if retry <= 0 {
		d.prev = d.cfg.Initial
		return d.prev
	}

	upper := min(d.prev*3, d.cfg.Max)
	if upper < d.prev {
		// d.prev*3 overflowed
		upper = d.cfg.Max
	}

	span := upper - d.cfg.Initial
	if span <= 0 {
		d.prev = d.cfg.Initial
		return d.prev
	}

	d.prev = d.cfg.Initial + time.Duration(rand.Int64N(int64(span))) // #nosec G404
	return d.prev
}

// Exp returns initial * 2^retry, capped at max.
func Exp(retry int, initial, max time.Duration) time.Duration {
	if retry < 0 {
		return 0
	}
	if retry > maxShift {
		return max
	}

	delay := initial * time.Duration(int64(1)<<uint(retry))
	if delay > max || delay < 0 || (initial != 0 && delay/initial != time.Duration(int64(1)<<uint(retry))) {
		return max
	}
	return delay
}

func clamp[T ~int64 | ~float64](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
