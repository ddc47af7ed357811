package metadata

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cinevault/cinevault/internal/probe"
	"github.com/cinevault/cinevault/pkg/models"
)

// iso6709Pattern matches the combined coordinate tags written by phone
// recorders, e.g. "+37.7749-122.4194+14.000/". Group 1 is latitude, group 2
// longitude, optional group 3 altitude.
var iso6709Pattern = regexp.MustCompile(`([+-]\d+\.\d+)([+-]\d+\.\d+)(?:([+-]\d+\.\d+))?`)

// recordedAtTags lists candidate tag keys for the capture timestamp, most
// common first. The first value that parses wins.
var recordedAtTags = []string{
	"creation_time",
	"date",
	"com.apple.quicktime.creationdate",
	"DateTimeOriginal",
	"CreateDate",
	"MediaCreateDate",
}

// recordedAtLayouts covers the timestamp formats recording devices actually
// write: RFC3339 (ffmpeg), bare datetime, and the EXIF colon-date variant.
var recordedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02 15:04:05",
	"2006-01-02",
}

// Normalize transforms raw probe output into a typed metadata record. It is
// a pure function: the same input always yields the same record.
func Normalize(result *probe.Result) *models.VideoMetadata {
	if result == nil {
		return Empty()
	}

	videoStream := result.VideoStream()
	audioStream := result.AudioStream()
	tags := result.Format.Tags

	meta := &models.VideoMetadata{
		Duration: parseDuration(&result.Format, videoStream),
		Raw:      rawSnapshot(result, videoStream, audioStream),
	}

	if videoStream != nil {
		if videoStream.Width > 0 {
			meta.Width = intPtr(videoStream.Width)
		}
		if videoStream.Height > 0 {
			meta.Height = intPtr(videoStream.Height)
		}
		meta.FrameRate = parseFrameRate(videoStream.RFrameRate)
		if videoStream.CodecName != "" {
			meta.Codec = strPtr(videoStream.CodecName)
		}
		meta.AspectRatio = aspectRatio(videoStream)
	}

	// Container-level bitrate wins; fall back to the video stream's own
	if br := parseInt64(result.Format.BitRate); br != nil {
		meta.Bitrate = br
	} else if videoStream != nil {
		meta.Bitrate = parseInt64(videoStream.BitRate)
	}

	if audioStream != nil {
		if audioStream.CodecName != "" {
			meta.AudioCodec = strPtr(audioStream.CodecName)
		}
		if audioStream.Channels > 0 {
			meta.AudioChannels = intPtr(audioStream.Channels)
		}
		meta.AudioSampleRate = parseInt(audioStream.SampleRate)
		meta.AudioBitrate = parseInt64(audioStream.BitRate)
	}

	meta.Latitude, meta.Longitude, meta.Altitude = parseGPS(tags)
	meta.RecordedAt = parseRecordedAt(tags)

	meta.CameraModel = firstTag(tags, "model", "com.apple.quicktime.model")
	meta.CameraMake = firstTag(tags, "make", "com.apple.quicktime.make")
	meta.Software = firstTag(tags, "encoder", "software", "handler_name")

	return meta
}

// Empty returns the terminal metadata record used when probing fails:
// duration 0, every other field unset.
func Empty() *models.VideoMetadata {
	return &models.VideoMetadata{
		Duration: 0,
		Raw:      models.RawMetadata{},
	}
}

// parseDuration reads the container duration in whole seconds, falling back
// to the video stream's duration, then 0.
func parseDuration(format *probe.Format, videoStream *probe.Stream) int {
	raw := format.Duration
	if raw == "" && videoStream != nil {
		raw = videoStream.Duration
	}

	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return int(math.Round(seconds))
}

// parseFrameRate handles both decimal ("29.97") and rational ("30000/1001")
// frame-rate strings. A zero denominator yields nil.
func parseFrameRate(raw string) *float64 {
	if raw == "" {
		return nil
	}

	if strings.Contains(raw, "/") {
		parts := strings.SplitN(raw, "/", 2)
		num, errN := strconv.ParseFloat(parts[0], 64)
		den, errD := strconv.ParseFloat(parts[1], 64)
		if errN != nil || errD != nil || den == 0 {
			return nil
		}
		rounded := math.Round(num/den*100) / 100
		return &rounded
	}

	fps, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &fps
}

// aspectRatio prefers the stream's display aspect ratio; otherwise it reduces
// width:height by their GCD. Zero dimensions mean insufficient data.
func aspectRatio(stream *probe.Stream) *string {
	if stream.DisplayAspectRatio != "" {
		return strPtr(stream.DisplayAspectRatio)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil
	}
	g := gcd(stream.Width, stream.Height)
	ratio := strconv.Itoa(stream.Width/g) + ":" + strconv.Itoa(stream.Height/g)
	return &ratio
}

// gcd is the Euclidean greatest common divisor; gcd(0, n) = n.
func gcd(a, b int) int {
	if b == 0 {
		return a
	}
	return gcd(b, a%b)
}

// parseGPS tries the known coordinate tag dialects in priority order and
// stops at the first that matches. Latitude and longitude are always set
// together.
func parseGPS(tags map[string]string) (lat, lon, alt *float64) {
	extractors := []func(map[string]string) (*float64, *float64, *float64){
		gpsFromLocationTag,
		gpsFromISO6709Tags,
		gpsFromSplitTags,
	}

	for _, extract := range extractors {
		if lat, lon, alt = extract(tags); lat != nil {
			return lat, lon, alt
		}
	}
	return nil, nil, nil
}

// gpsFromLocationTag handles the combined "location" tag common in phone
// videos.
func gpsFromLocationTag(tags map[string]string) (*float64, *float64, *float64) {
	return matchISO6709(tags["location"])
}

// gpsFromISO6709Tags handles device-specific keys carrying the same encoded
// coordinate string.
func gpsFromISO6709Tags(tags map[string]string) (*float64, *float64, *float64) {
	for _, key := range []string{
		"com.apple.quicktime.location.ISO6709",
		"location-eng",
		"location-iso6709",
	} {
		if lat, lon, alt := matchISO6709(tags[key]); lat != nil {
			return lat, lon, alt
		}
	}
	return nil, nil, nil
}

// gpsFromSplitTags handles separate decimal GPSLatitude/GPSLongitude tags.
func gpsFromSplitTags(tags map[string]string) (*float64, *float64, *float64) {
	latRaw, lonRaw := tags["GPSLatitude"], tags["GPSLongitude"]
	if latRaw == "" || lonRaw == "" {
		return nil, nil, nil
	}

	lat, errLat := strconv.ParseFloat(latRaw, 64)
	lon, errLon := strconv.ParseFloat(lonRaw, 64)
	if errLat != nil || errLon != nil {
		return nil, nil, nil
	}

	var alt *float64
	if a, err := strconv.ParseFloat(tags["GPSAltitude"], 64); err == nil {
		alt = &a
	}
	return &lat, &lon, alt
}

func matchISO6709(value string) (*float64, *float64, *float64) {
	if value == "" {
		return nil, nil, nil
	}

	match := iso6709Pattern.FindStringSubmatch(value)
	if match == nil {
		return nil, nil, nil
	}

	lat, errLat := strconv.ParseFloat(match[1], 64)
	lon, errLon := strconv.ParseFloat(match[2], 64)
	if errLat != nil || errLon != nil {
		return nil, nil, nil
	}

	var alt *float64
	if match[3] != "" {
		if a, err := strconv.ParseFloat(match[3], 64); err == nil {
			alt = &a
		}
	}
	return &lat, &lon, alt
}

// parseRecordedAt returns the first tag value that parses into a valid
// timestamp. Unparseable candidates are skipped.
func parseRecordedAt(tags map[string]string) *time.Time {
	for _, key := range recordedAtTags {
		value := tags[key]
		if value == "" {
			continue
		}
		for _, layout := range recordedAtLayouts {
			if ts, err := time.Parse(layout, value); err == nil {
				utc := ts.UTC()
				return &utc
			}
		}
	}
	return nil
}

// rawSnapshot preserves the interesting parts of the probe output verbatim
// for forward compatibility. It is stored once and never interpreted again.
func rawSnapshot(result *probe.Result, videoStream, audioStream *probe.Stream) models.RawMetadata {
	raw := models.RawMetadata{
		"format": map[string]interface{}{
			"filename":         result.Format.Filename,
			"nb_streams":       result.Format.NBStreams,
			"format_name":      result.Format.FormatName,
			"format_long_name": result.Format.FormatLongName,
			"duration":         result.Format.Duration,
			"size":             result.Format.Size,
			"bit_rate":         result.Format.BitRate,
			"tags":             result.Format.Tags,
		},
	}

	if videoStream != nil {
		raw["video"] = map[string]interface{}{
			"codec_name":           videoStream.CodecName,
			"codec_long_name":      videoStream.CodecLongName,
			"profile":              videoStream.Profile,
			"width":                videoStream.Width,
			"height":               videoStream.Height,
			"display_aspect_ratio": videoStream.DisplayAspectRatio,
			"pix_fmt":              videoStream.PixFmt,
			"level":                videoStream.Level,
			"color_space":          videoStream.ColorSpace,
			"color_range":          videoStream.ColorRange,
			"r_frame_rate":         videoStream.RFrameRate,
			"bit_rate":             videoStream.BitRate,
			"tags":                 videoStream.Tags,
		}
	}

	if audioStream != nil {
		raw["audio"] = map[string]interface{}{
			"codec_name":      audioStream.CodecName,
			"codec_long_name": audioStream.CodecLongName,
			"sample_rate":     audioStream.SampleRate,
			"channels":        audioStream.Channels,
			"channel_layout":  audioStream.ChannelLayout,
			"bit_rate":        audioStream.BitRate,
			"tags":            audioStream.Tags,
		}
	}

	return raw
}

func firstTag(tags map[string]string, keys ...string) *string {
	for _, key := range keys {
		if value := tags[key]; value != "" {
			return strPtr(value)
		}
	}
	return nil
}

func parseInt(raw string) *int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func parseInt64(raw string) *int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }
