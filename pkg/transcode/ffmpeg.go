package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sdejongh/mediakit/pkg/models"
)

// stderrTail is how much of ffmpeg's stderr is kept for error reports
const stderrTail = 4096

// FFmpeg encodes with the ffmpeg binary and reads durations with ffprobe
type FFmpeg struct {
	Binary      string
	ProbeBinary string
}

// NewFFmpeg creates an encoder; empty paths use the binaries on PATH
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{Binary: ffmpegPath, ProbeBinary: ffprobePath}
}

// Name returns the encoder name
func (f *FFmpeg) Name() string {
	return "ffmpeg"
}

// Args builds the ffmpeg command line for a job. Progress goes to stdout as
// key=value blocks.
func (f *FFmpeg) Args(job Job) []string {
	args := []string{"-hide_banner", "-nostats", "-progress", "pipe:1", "-y", "-i", job.Input}
	args = append(args, job.Params.Args()...)
	return append(args, job.Output)
}

// Encode runs ffmpeg and blocks until it exits
func (f *FFmpeg) Encode(ctx context.Context, job Job, progress chan<- Progress) error {
	// without a duration percentages are unknown; the encode still runs
	duration, _ := f.Probe(ctx, job.Input)

	cmd := exec.CommandContext(ctx, f.Binary, f.Args(job)...)
	stderr := &tailBuffer{max: stderrTail}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &models.ExternalProcessError{Tool: "ffmpeg", Path: job.Input, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &models.ExternalProcessError{Tool: "ffmpeg", Path: job.Input, Err: err}
	}

	parser := &progressParser{duration: duration}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		p, ok := parser.feed(scanner.Text())
		if !ok || progress == nil {
			continue
		}
		select {
		case progress <- p:
		case <-ctx.Done():
		}
	}
	// drain so ffmpeg never blocks on a full pipe
	io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		procErr := &models.ExternalProcessError{
			Tool:   "ffmpeg",
			Path:   job.Input,
			Stderr: stderr.String(),
			Err:    err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			procErr.ExitCode = exitErr.ExitCode()
		}
		return procErr
	}
	return nil
}

// Probe returns the duration of a media file
func (f *FFmpeg) Probe(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, f.ProbeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return 0, &models.ExternalProcessError{Tool: "ffprobe", Path: path, Stderr: stderr.String(), Err: err}
	}
	return parseDuration(string(out))
}

func parseDuration(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// progressParser turns ffmpeg -progress output into Progress values. A block
// ends with a progress=continue or progress=end line.
type progressParser struct {
	duration time.Duration
	outTime  time.Duration
	size     uint64
}

func (p *progressParser) feed(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}

	switch key {
	case "out_time_us", "out_time_ms":
		// out_time_ms is also in microseconds
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.outTime = time.Duration(us) * time.Microsecond
		}
	case "total_size":
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			p.size = n
		}
	case "progress":
		pr := Progress{TargetSize: p.size}
		if p.duration > 0 {
			pr.Percent = min(float64(p.outTime)/float64(p.duration)*100, 100)
		}
		if value == "end" {
			pr.Percent = 100
		}
		return pr, true
	}
	return Progress{}, false
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
