package transcode

import "context"

// Job is one file to encode
type Job struct {
	Input  string
	Output string
	Params Params
}

// Progress is an interim report from a running encode
type Progress struct {
	// Percent is the completed share, 0 to 100
	Percent float64
	// TargetSize is the number of bytes written so far
	TargetSize uint64
}

// Encoder runs an external transform. Encode blocks until the output is
// complete or the encode failed. Interim progress is sent on progress, which
// the caller owns and closes after Encode returns; implementations must not
// send after returning.
type Encoder interface {
	Encode(ctx context.Context, job Job, progress chan<- Progress) error
	Name() string
}

// Throttle passes a progress value only when it advanced more than step
// points past the last value passed
type Throttle struct {
	step float64
	last float64
}

// DefaultProgressStep is the minimum advance, in percentage points, between two reports
const DefaultProgressStep = 10

// NewThrottle creates a throttle; a non-positive step uses DefaultProgressStep
func NewThrottle(step float64) *Throttle {
	if step <= 0 {
		step = DefaultProgressStep
	}
	return &Throttle{step: step}
}

// Check records value and reports whether it should be shown
func (t *Throttle) Check(value float64) bool {
	if value-t.last > t.step {
		t.last = value
		return true
	}
	return false
}
