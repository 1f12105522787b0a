// Package ratelimit caps the throughput of file copies
package ratelimit

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// minBurst keeps small limits from degenerating into tiny reads
const minBurst = 64 * 1024

// Limiter is a byte budget shared by every reader created from it. A nil
// Limiter does not limit.
type Limiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewLimiter creates a limiter for bytesPerSecond, or nil when it is not positive
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := int(max(bytesPerSecond, minBurst))
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		burst:   burst,
	}
}

// ParseRate parses a bandwidth such as "10M", "512 KiB" or "0". An empty
// string means unlimited.
func ParseRate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth %q: %w", s, err)
	}
	return int64(n), nil
}

// Rate returns the configured bytes per second, 0 for a nil limiter
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return int64(l.limiter.Limit())
}

// Reader wraps r so reads wait for the shared budget. Cancelling ctx ends
// a pending wait.
func (l *Limiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if l == nil {
		return r
	}
	return &reader{ctx: ctx, r: r, l: l}
}

type reader struct {
	ctx context.Context
	r   io.Reader
	l   *Limiter
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) > r.l.burst {
		p = p[:r.l.burst]
	}
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.l.limiter.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
