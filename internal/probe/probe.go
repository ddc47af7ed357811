package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrProbeFailed marks any failure to run ffprobe or decode its output.
// Callers are expected to treat it as "no metadata available" rather than
// aborting the ingestion.
var ErrProbeFailed = errors.New("probe failed")

// DefaultMaxOutputBytes caps captured ffprobe output. Deeply tagged files can
// produce large JSON; overflow is a probe failure, not a crash.
const DefaultMaxOutputBytes = 10 * 1024 * 1024

// Result is the decoded ffprobe JSON document
type Result struct {
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams"`
}

// Format holds the container-level section of the probe output. Numeric
// fields arrive as strings in ffprobe JSON.
type Format struct {
	Filename       string            `json:"filename"`
	NBStreams      int               `json:"nb_streams"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	Duration       string            `json:"duration"`
	Size           string            `json:"size"`
	BitRate        string            `json:"bit_rate"`
	Tags           map[string]string `json:"tags"`
}

// Stream holds a single stream entry of the probe output
type Stream struct {
	CodecType          string            `json:"codec_type"`
	CodecName          string            `json:"codec_name"`
	CodecLongName      string            `json:"codec_long_name"`
	Profile            string            `json:"profile"`
	Width              int               `json:"width"`
	Height             int               `json:"height"`
	DisplayAspectRatio string            `json:"display_aspect_ratio"`
	PixFmt             string            `json:"pix_fmt"`
	Level              int               `json:"level"`
	ColorSpace         string            `json:"color_space"`
	ColorRange         string            `json:"color_range"`
	RFrameRate         string            `json:"r_frame_rate"`
	AvgFrameRate       string            `json:"avg_frame_rate"`
	BitRate            string            `json:"bit_rate"`
	Duration           string            `json:"duration"`
	SampleRate         string            `json:"sample_rate"`
	Channels           int               `json:"channels"`
	ChannelLayout      string            `json:"channel_layout"`
	Tags               map[string]string `json:"tags"`
}

// VideoStream returns the first stream with codec_type "video", or nil.
func (r *Result) VideoStream() *Stream {
	return r.firstStream("video")
}

// AudioStream returns the first stream with codec_type "audio", or nil.
func (r *Result) AudioStream() *Stream {
	return r.firstStream("audio")
}

func (r *Result) firstStream(codecType string) *Stream {
	for i := range r.Streams {
		if r.Streams[i].CodecType == codecType {
			return &r.Streams[i]
		}
	}
	return nil
}

// Prober runs ffprobe against media files
type Prober struct {
	ffprobePath    string
	timeout        time.Duration
	maxOutputBytes int64
}

// New creates a new Prober
func New(ffprobePath string, timeout time.Duration, maxOutputBytes int64) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	return &Prober{
		ffprobePath:    ffprobePath,
		timeout:        timeout,
		maxOutputBytes: maxOutputBytes,
	}
}

// Probe runs ffprobe against the file at path and returns the decoded
// container and stream description. The path must reference a fully written
// file.
func (p *Prober) Probe(ctx context.Context, path string) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)

	stdout := &cappedBuffer{limit: p.maxOutputBytes}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stdout.overflowed {
			return nil, fmt.Errorf("%w: output exceeded %d bytes", ErrProbeFailed, p.maxOutputBytes)
		}
		return nil, fmt.Errorf("%w: ffprobe: %v, stderr: %s", ErrProbeFailed, err, stderr.String())
	}

	var result Result
	if err := json.Unmarshal(stdout.buf.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ffprobe output: %v", ErrProbeFailed, err)
	}

	return &result, nil
}

// cappedBuffer fails the write (and therefore the command) once limit bytes
// have been captured instead of growing without bound.
type cappedBuffer struct {
	buf        bytes.Buffer
	limit      int64
	overflowed bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if int64(b.buf.Len())+int64(len(p)) > b.limit {
		b.overflowed = true
		return 0, fmt.Errorf("probe output exceeds %d bytes", b.limit)
	}
	return b.buf.Write(p)
}
