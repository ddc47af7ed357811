package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Video represents a video in a user's library
type Video struct {
	ID       string  `json:"id" db:"id"`
	OwnerID  string  `json:"owner_id" db:"owner_id"`
	FolderID *string `json:"folder_id,omitempty" db:"folder_id"`

	Title       string  `json:"title" db:"title"`
	Description *string `json:"description,omitempty" db:"description"`

	// Storage
	OriginalFilename *string `json:"original_filename,omitempty" db:"original_filename"`
	FileSize         int64   `json:"file_size" db:"file_size"`
	StoragePath      *string `json:"storage_path,omitempty" db:"storage_path"`
	StreamURL        *string `json:"stream_url,omitempty" db:"stream_url"`

	// Video metadata
	Duration    int      `json:"duration" db:"duration"`
	Width       *int     `json:"width,omitempty" db:"width"`
	Height      *int     `json:"height,omitempty" db:"height"`
	FrameRate   *float64 `json:"frame_rate,omitempty" db:"frame_rate"`
	Codec       *string  `json:"codec,omitempty" db:"codec"`
	Bitrate     *int64   `json:"bitrate,omitempty" db:"bitrate"`
	AspectRatio *string  `json:"aspect_ratio,omitempty" db:"aspect_ratio"`

	// Audio metadata
	AudioCodec      *string `json:"audio_codec,omitempty" db:"audio_codec"`
	AudioChannels   *int    `json:"audio_channels,omitempty" db:"audio_channels"`
	AudioSampleRate *int    `json:"audio_sample_rate,omitempty" db:"audio_sample_rate"`
	AudioBitrate    *int64  `json:"audio_bitrate,omitempty" db:"audio_bitrate"`

	// GPS/location metadata
	Latitude     *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64 `json:"longitude,omitempty" db:"longitude"`
	Altitude     *float64 `json:"altitude,omitempty" db:"altitude"`
	LocationName *string  `json:"location_name,omitempty" db:"location_name"`

	// Camera/device metadata
	CameraMake  *string `json:"camera_make,omitempty" db:"camera_make"`
	CameraModel *string `json:"camera_model,omitempty" db:"camera_model"`
	Software    *string `json:"software,omitempty" db:"software"`

	RecordedAt *time.Time `json:"recorded_at,omitempty" db:"recorded_at"`

	RawMetadata RawMetadata `json:"raw_metadata,omitempty" db:"raw_metadata"`

	ProcessingStatus   string  `json:"processing_status" db:"processing_status"`
	ProcessingProgress int     `json:"processing_progress" db:"processing_progress"`
	ProcessingError    *string `json:"processing_error,omitempty" db:"processing_error"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// VideoMetadata is the record produced once per ingestion by the metadata
// extractor and then flattened into the video row. Duration is always
// present; every other field is optional.
type VideoMetadata struct {
	// Video
	Duration    int
	Width       *int
	Height      *int
	FrameRate   *float64
	Codec       *string
	Bitrate     *int64
	AspectRatio *string

	// Audio
	AudioCodec      *string
	AudioChannels   *int
	AudioSampleRate *int
	AudioBitrate    *int64

	// GPS/location
	Latitude  *float64
	Longitude *float64
	Altitude  *float64

	// Camera/device
	CameraMake  *string
	CameraModel *string
	Software    *string

	RecordedAt *time.Time

	// Full probe snapshot, kept for debugging. Written once, never
	// interpreted again after ingestion.
	Raw RawMetadata
}

// Resolution returns a "WxH" string, or "" when either dimension is unknown.
func (m *VideoMetadata) Resolution() string {
	if m.Width == nil || m.Height == nil {
		return ""
	}
	return fmt.Sprintf("%dx%d", *m.Width, *m.Height)
}

// HasCoordinates reports whether both latitude and longitude were extracted.
func (m *VideoMetadata) HasCoordinates() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// RawMetadata holds the opaque probe snapshot stored in the jsonb column
type RawMetadata map[string]interface{}

// Value implements driver.Valuer for database storage
func (m RawMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval
func (m *RawMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(RawMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// ProcessingStatus constants
const (
	ProcessingStatusPending    = "pending"
	ProcessingStatusUploading  = "uploading"
	ProcessingStatusProcessing = "processing"
	ProcessingStatusCompleted  = "completed"
	ProcessingStatusFailed     = "failed"
)
