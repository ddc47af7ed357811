package metadata

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cinevault/cinevault/internal/probe"
)

type fakeProber struct {
	result *probe.Result
	err    error
	calls  int
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*probe.Result, error) {
	f.calls++
	return f.result, f.err
}

func TestExtractorProbeFailure(t *testing.T) {
	prober := &fakeProber{err: fmt.Errorf("%w: ffprobe: executable not found", probe.ErrProbeFailed)}
	extractor := NewExtractor(prober, nil)

	meta := extractor.Extract(context.Background(), "/videos/vid-1.mp4")

	if meta == nil {
		t.Fatal("Extract must not return nil on probe failure")
	}
	if meta.Duration != 0 {
		t.Errorf("Duration = %d, want 0", meta.Duration)
	}
	if meta.Width != nil || meta.Codec != nil || meta.Latitude != nil {
		t.Error("All optional fields should be unset on probe failure")
	}
}

func TestExtractorUnexpectedError(t *testing.T) {
	// Errors that are not ErrProbeFailed degrade the same way
	prober := &fakeProber{err: errors.New("context deadline exceeded")}
	extractor := NewExtractor(prober, nil)

	meta := extractor.Extract(context.Background(), "/videos/vid-1.mp4")
	if meta.Duration != 0 {
		t.Errorf("Duration = %d, want 0", meta.Duration)
	}
}

func TestExtractorSuccess(t *testing.T) {
	prober := &fakeProber{
		result: &probe.Result{
			Format: probe.Format{Duration: "42.0"},
			Streams: []probe.Stream{
				{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080},
			},
		},
	}
	extractor := NewExtractor(prober, nil)

	meta := extractor.Extract(context.Background(), "/videos/vid-1.mp4")

	if meta.Duration != 42 {
		t.Errorf("Duration = %d, want 42", meta.Duration)
	}
	if meta.Codec == nil || *meta.Codec != "h264" {
		t.Errorf("Codec = %v, want h264", meta.Codec)
	}
	if prober.calls != 1 {
		t.Errorf("Prober called %d times, want 1", prober.calls)
	}
}
