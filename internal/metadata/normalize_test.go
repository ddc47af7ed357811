package metadata

import (
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cinevault/cinevault/internal/probe"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"30000/1001", floatPtr(29.97)},
		{"24000/1001", floatPtr(23.98)},
		{"30/1", floatPtr(30)},
		{"25/1", floatPtr(25)},
		{"60/2", floatPtr(30)},
		{"29.97", floatPtr(29.97)},
		{"0/0", nil},
		{"30/0", nil},
		{"", nil},
		{"abc", nil},
		{"abc/def", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := parseFrameRate(tt.raw)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parseFrameRate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("parseFrameRate(%q) = %v, want %v", tt.raw, *got, *tt.want)
			}
		})
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		name   string
		stream probe.Stream
		want   string // "" means nil
	}{
		{"4k", probe.Stream{Width: 3840, Height: 2160}, "16:9"},
		{"1080p", probe.Stream{Width: 1920, Height: 1080}, "16:9"},
		{"dvd", probe.Stream{Width: 720, Height: 480}, "3:2"},
		{"vga", probe.Stream{Width: 640, Height: 480}, "4:3"},
		{"vertical", probe.Stream{Width: 1080, Height: 1920}, "9:16"},
		{"explicit dar wins", probe.Stream{Width: 720, Height: 480, DisplayAspectRatio: "16:9"}, "16:9"},
		{"zero width", probe.Stream{Width: 0, Height: 1080}, ""},
		{"zero height", probe.Stream{Width: 1920, Height: 0}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := aspectRatio(&tt.stream)
			if tt.want == "" {
				if got != nil {
					t.Errorf("aspectRatio() = %q, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("aspectRatio() = %v, want %q", got, tt.want)
			}
		})
	}
}

// Derived ratios must multiply back to the source dimensions through the GCD.
func TestAspectRatioRoundTrip(t *testing.T) {
	dims := [][2]int{
		{3840, 2160}, {1920, 1080}, {1280, 720}, {720, 480},
		{640, 480}, {1080, 1920}, {100, 100}, {1366, 768},
	}

	for _, d := range dims {
		w, h := d[0], d[1]
		ratio := aspectRatio(&probe.Stream{Width: w, Height: h})
		if ratio == nil {
			t.Fatalf("aspectRatio(%d, %d) = nil", w, h)
		}

		parts := strings.SplitN(*ratio, ":", 2)
		rw, _ := strconv.Atoi(parts[0])
		rh, _ := strconv.Atoi(parts[1])

		g := gcd(w, h)
		if rw*g != w || rh*g != h {
			t.Errorf("aspectRatio(%d, %d) = %q does not reproduce dimensions via gcd %d", w, h, *ratio, g)
		}
		if gcd(rw, rh) != 1 {
			t.Errorf("aspectRatio(%d, %d) = %q is not fully reduced", w, h, *ratio)
		}
	}
}

func TestGCD(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{3840, 2160, 240},
		{1920, 1080, 120},
		{0, 7, 7},
		{7, 0, 7},
		{1, 1, 1},
	}

	for _, tt := range tests {
		if got := gcd(tt.a, tt.b); got != tt.want {
			t.Errorf("gcd(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// The same coordinates encoded in each of the three tag dialects must yield
// identical output.
func TestParseGPSFormats(t *testing.T) {
	tagSets := map[string]map[string]string{
		"combined location": {
			"location": "+37.7749-122.4194+14.000/",
		},
		"apple iso6709": {
			"com.apple.quicktime.location.ISO6709": "+37.7749-122.4194+14.000/",
		},
		"location-eng": {
			"location-eng": "+37.7749-122.4194+14.000/",
		},
		"split tags": {
			"GPSLatitude":  "37.7749",
			"GPSLongitude": "-122.4194",
			"GPSAltitude":  "14.000",
		},
	}

	for name, tags := range tagSets {
		t.Run(name, func(t *testing.T) {
			lat, lon, alt := parseGPS(tags)
			if lat == nil || lon == nil {
				t.Fatal("Expected latitude and longitude")
			}
			if *lat != 37.7749 {
				t.Errorf("latitude = %v, want 37.7749", *lat)
			}
			if *lon != -122.4194 {
				t.Errorf("longitude = %v, want -122.4194", *lon)
			}
			if alt == nil || *alt != 14.0 {
				t.Errorf("altitude = %v, want 14.0", alt)
			}
		})
	}
}

func TestParseGPSPriority(t *testing.T) {
	// The combined location tag outranks the split tags
	tags := map[string]string{
		"location":     "+10.0000-20.0000",
		"GPSLatitude":  "99.0",
		"GPSLongitude": "99.0",
	}

	lat, lon, _ := parseGPS(tags)
	if lat == nil || *lat != 10.0 {
		t.Errorf("latitude = %v, want 10.0 from location tag", lat)
	}
	if lon == nil || *lon != -20.0 {
		t.Errorf("longitude = %v, want -20.0 from location tag", lon)
	}
}

func TestParseGPSNoMatch(t *testing.T) {
	tests := []map[string]string{
		{},
		{"location": "somewhere nice"},
		{"GPSLatitude": "37.7749"}, // longitude missing
		{"GPSLongitude": "-122.4194"},
	}

	for _, tags := range tests {
		lat, lon, alt := parseGPS(tags)
		if lat != nil || lon != nil || alt != nil {
			t.Errorf("parseGPS(%v) = (%v, %v, %v), want all nil", tags, lat, lon, alt)
		}
	}
}

func TestParseGPSWithoutAltitude(t *testing.T) {
	lat, lon, alt := parseGPS(map[string]string{"location": "+48.8584+2.2945/"})
	if lat == nil || *lat != 48.8584 {
		t.Errorf("latitude = %v, want 48.8584", lat)
	}
	if lon == nil || *lon != 2.2945 {
		t.Errorf("longitude = %v, want 2.2945", lon)
	}
	if alt != nil {
		t.Errorf("altitude = %v, want nil", *alt)
	}
}

func TestParseRecordedAt(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want string // RFC3339, "" means nil
	}{
		{
			name: "creation_time rfc3339",
			tags: map[string]string{"creation_time": "2024-03-10T17:22:05.000000Z"},
			want: "2024-03-10T17:22:05Z",
		},
		{
			name: "exif colon date",
			tags: map[string]string{"DateTimeOriginal": "2023:07:01 09:30:00"},
			want: "2023-07-01T09:30:00Z",
		},
		{
			name: "invalid first candidate is skipped",
			tags: map[string]string{
				"creation_time": "not-a-date",
				"date":          "2022-12-24T18:00:00Z",
			},
			want: "2022-12-24T18:00:00Z",
		},
		{
			name: "priority order",
			tags: map[string]string{
				"creation_time": "2024-01-01T00:00:00Z",
				"date":          "2020-01-01T00:00:00Z",
			},
			want: "2024-01-01T00:00:00Z",
		},
		{
			name: "no candidates",
			tags: map[string]string{"encoder": "Lavf58"},
			want: "",
		},
		{
			name: "all invalid",
			tags: map[string]string{"creation_time": "yesterday", "date": "???"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRecordedAt(tt.tags)
			if tt.want == "" {
				if got != nil {
					t.Errorf("parseRecordedAt() = %v, want nil", got)
				}
				return
			}
			want, _ := time.Parse(time.RFC3339, tt.want)
			if got == nil || !got.Equal(want) {
				t.Errorf("parseRecordedAt() = %v, want %v", got, want)
			}
		})
	}
}

func TestNormalizeFullRecord(t *testing.T) {
	result := &probe.Result{
		Format: probe.Format{
			Filename:   "clip.mov",
			FormatName: "mov,mp4,m4a,3gp,3g2,mj2",
			Duration:   "12.645000",
			BitRate:    "6795000",
			Tags: map[string]string{
				"location":      "+37.7749-122.4194+14.000/",
				"creation_time": "2024-03-10T17:22:05.000000Z",
				"make":          "Apple",
				"model":         "iPhone 14 Pro",
				"encoder":       "Lavf60.3.100",
			},
		},
		Streams: []probe.Stream{
			{
				CodecType:  "video",
				CodecName:  "hevc",
				Width:      3840,
				Height:     2160,
				RFrameRate: "30000/1001",
				BitRate:    "6500000",
			},
			{
				CodecType:  "audio",
				CodecName:  "aac",
				SampleRate: "44100",
				Channels:   2,
				BitRate:    "192000",
			},
		},
	}

	meta := Normalize(result)

	if meta.Duration != 13 {
		t.Errorf("Duration = %d, want 13", meta.Duration)
	}
	if meta.Width == nil || *meta.Width != 3840 {
		t.Errorf("Width = %v, want 3840", meta.Width)
	}
	if meta.FrameRate == nil || *meta.FrameRate != 29.97 {
		t.Errorf("FrameRate = %v, want 29.97", meta.FrameRate)
	}
	if meta.Codec == nil || *meta.Codec != "hevc" {
		t.Errorf("Codec = %v, want hevc", meta.Codec)
	}
	if meta.AspectRatio == nil || *meta.AspectRatio != "16:9" {
		t.Errorf("AspectRatio = %v, want 16:9", meta.AspectRatio)
	}
	if meta.Bitrate == nil || *meta.Bitrate != 6795000 {
		t.Errorf("Bitrate = %v, want container-level 6795000", meta.Bitrate)
	}
	if meta.AudioCodec == nil || *meta.AudioCodec != "aac" {
		t.Errorf("AudioCodec = %v, want aac", meta.AudioCodec)
	}
	if meta.AudioChannels == nil || *meta.AudioChannels != 2 {
		t.Errorf("AudioChannels = %v, want 2", meta.AudioChannels)
	}
	if meta.AudioSampleRate == nil || *meta.AudioSampleRate != 44100 {
		t.Errorf("AudioSampleRate = %v, want 44100", meta.AudioSampleRate)
	}
	if meta.Latitude == nil || *meta.Latitude != 37.7749 {
		t.Errorf("Latitude = %v, want 37.7749", meta.Latitude)
	}
	if meta.Longitude == nil || *meta.Longitude != -122.4194 {
		t.Errorf("Longitude = %v, want -122.4194", meta.Longitude)
	}
	if meta.CameraMake == nil || *meta.CameraMake != "Apple" {
		t.Errorf("CameraMake = %v, want Apple", meta.CameraMake)
	}
	if meta.CameraModel == nil || *meta.CameraModel != "iPhone 14 Pro" {
		t.Errorf("CameraModel = %v, want iPhone 14 Pro", meta.CameraModel)
	}
	if meta.Software == nil || *meta.Software != "Lavf60.3.100" {
		t.Errorf("Software = %v, want Lavf60.3.100", meta.Software)
	}
	if meta.RecordedAt == nil {
		t.Error("RecordedAt should be set")
	}
	if meta.Raw["format"] == nil || meta.Raw["video"] == nil || meta.Raw["audio"] == nil {
		t.Error("Raw snapshot should contain format, video, and audio sections")
	}
}

// Scenario: 4k 29.97fps upload without GPS tags
func TestNormalizeNoGPS(t *testing.T) {
	result := &probe.Result{
		Format: probe.Format{Duration: "60.0"},
		Streams: []probe.Stream{
			{CodecType: "video", CodecName: "h264", Width: 3840, Height: 2160, RFrameRate: "30000/1001"},
		},
	}

	meta := Normalize(result)

	if meta.AspectRatio == nil || *meta.AspectRatio != "16:9" {
		t.Errorf("AspectRatio = %v, want 16:9", meta.AspectRatio)
	}
	if meta.FrameRate == nil || *meta.FrameRate != 29.97 {
		t.Errorf("FrameRate = %v, want 29.97", meta.FrameRate)
	}
	if meta.Latitude != nil || meta.Longitude != nil {
		t.Error("Latitude/Longitude should be nil without GPS tags")
	}
	if meta.HasCoordinates() {
		t.Error("HasCoordinates() should be false")
	}
	if meta.AudioCodec != nil || meta.AudioChannels != nil {
		t.Error("Audio facet should be nil without an audio stream")
	}
}

func TestNormalizeBitrateFallback(t *testing.T) {
	result := &probe.Result{
		Format: probe.Format{Duration: "10"},
		Streams: []probe.Stream{
			{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720, BitRate: "2500000"},
		},
	}

	meta := Normalize(result)
	if meta.Bitrate == nil || *meta.Bitrate != 2500000 {
		t.Errorf("Bitrate = %v, want stream-level fallback 2500000", meta.Bitrate)
	}
}

func TestNormalizeNoStreams(t *testing.T) {
	meta := Normalize(&probe.Result{Format: probe.Format{Duration: "5.2"}})

	if meta.Duration != 5 {
		t.Errorf("Duration = %d, want 5", meta.Duration)
	}
	if meta.Width != nil || meta.Height != nil || meta.Codec != nil || meta.AspectRatio != nil {
		t.Error("Video facet should be nil without a video stream")
	}
	if meta.AudioCodec != nil {
		t.Error("Audio facet should be nil without an audio stream")
	}
}

// Normalize is a pure function: two runs over the same input must agree.
func TestNormalizeIdempotent(t *testing.T) {
	result := &probe.Result{
		Format: probe.Format{
			Duration: "33.3",
			BitRate:  "1000000",
			Tags: map[string]string{
				"location":      "+51.5074-0.1278/",
				"creation_time": "2024-06-15T12:00:00Z",
			},
		},
		Streams: []probe.Stream{
			{CodecType: "video", CodecName: "vp9", Width: 1920, Height: 1080, RFrameRate: "60/1"},
			{CodecType: "audio", CodecName: "opus", SampleRate: "48000", Channels: 2},
		},
	}

	first := Normalize(result)
	second := Normalize(result)

	if !reflect.DeepEqual(first, second) {
		t.Error("Normalize should be deterministic for the same input")
	}
}

func TestEmpty(t *testing.T) {
	meta := Empty()

	if meta.Duration != 0 {
		t.Errorf("Duration = %d, want 0", meta.Duration)
	}
	if meta.Width != nil || meta.FrameRate != nil || meta.Latitude != nil ||
		meta.CameraMake != nil || meta.RecordedAt != nil {
		t.Error("Empty record should have every optional field unset")
	}
	if meta.Raw == nil || len(meta.Raw) != 0 {
		t.Errorf("Raw = %v, want empty map", meta.Raw)
	}
}

func floatPtr(f float64) *float64 { return &f }
