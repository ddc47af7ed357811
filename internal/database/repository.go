package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cinevault/cinevault/pkg/models"
)

// Repository provides database operations for video records
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks if the underlying database is healthy
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

const videoColumns = `
	id, owner_id, folder_id, title, description,
	original_filename, file_size, storage_path, stream_url,
	duration, width, height, frame_rate, codec, bitrate, aspect_ratio,
	audio_codec, audio_channels, audio_sample_rate, audio_bitrate,
	latitude, longitude, altitude, location_name,
	camera_make, camera_model, software, recorded_at, raw_metadata,
	processing_status, processing_progress, processing_error,
	created_at, updated_at
`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID, &video.OwnerID, &video.FolderID, &video.Title, &video.Description,
		&video.OriginalFilename, &video.FileSize, &video.StoragePath, &video.StreamURL,
		&video.Duration, &video.Width, &video.Height, &video.FrameRate, &video.Codec,
		&video.Bitrate, &video.AspectRatio,
		&video.AudioCodec, &video.AudioChannels, &video.AudioSampleRate, &video.AudioBitrate,
		&video.Latitude, &video.Longitude, &video.Altitude, &video.LocationName,
		&video.CameraMake, &video.CameraModel, &video.Software, &video.RecordedAt, &video.RawMetadata,
		&video.ProcessingStatus, &video.ProcessingProgress, &video.ProcessingError,
		&video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// GetVideoForOwner retrieves a video by id, scoped to its owner. Returns
// (nil, nil) when no such video exists for that owner.
func (r *Repository) GetVideoForOwner(ctx context.Context, videoID, ownerID string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1 AND owner_id = $2`

	video, err := scanVideo(r.db.Pool.QueryRow(ctx, query, videoID, ownerID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

// SetProcessingState updates the processing status and progress of a video
func (r *Repository) SetProcessingState(ctx context.Context, videoID, status string, progress int) error {
	query := `
		UPDATE videos
		SET processing_status = $2, processing_progress = $3, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, videoID, status, progress)
	if err != nil {
		return fmt.Errorf("failed to update processing state: %w", err)
	}

	return nil
}

// SetProcessingProgress updates only the processing progress of a video
func (r *Repository) SetProcessingProgress(ctx context.Context, videoID string, progress int) error {
	query := `
		UPDATE videos
		SET processing_progress = $2, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, videoID, progress)
	if err != nil {
		return fmt.Errorf("failed to update processing progress: %w", err)
	}

	return nil
}

// CompleteIngest writes the final ingestion result in a single update:
// storage location, stream URL, every metadata field, and the terminal
// completed state. One statement keeps the record consistent; readers never
// observe a half-filled metadata set.
func (r *Repository) CompleteIngest(ctx context.Context, videoID, ownerID, storagePath, streamURL string, meta *models.VideoMetadata, locationName *string) error {
	query := `
		UPDATE videos
		SET storage_path = $3,
		    stream_url = $4,
		    processing_status = $5,
		    processing_progress = 100,
		    processing_error = NULL,
		    duration = $6,
		    width = $7,
		    height = $8,
		    frame_rate = $9,
		    codec = $10,
		    bitrate = $11,
		    aspect_ratio = $12,
		    audio_codec = $13,
		    audio_channels = $14,
		    audio_sample_rate = $15,
		    audio_bitrate = $16,
		    latitude = $17,
		    longitude = $18,
		    altitude = $19,
		    location_name = $20,
		    camera_make = $21,
		    camera_model = $22,
		    software = $23,
		    recorded_at = $24,
		    raw_metadata = $25,
		    updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`

	_, err := r.db.Pool.Exec(ctx, query,
		videoID, ownerID, storagePath, streamURL, models.ProcessingStatusCompleted,
		meta.Duration, meta.Width, meta.Height, meta.FrameRate, meta.Codec,
		meta.Bitrate, meta.AspectRatio,
		meta.AudioCodec, meta.AudioChannels, meta.AudioSampleRate, meta.AudioBitrate,
		meta.Latitude, meta.Longitude, meta.Altitude, locationName,
		meta.CameraMake, meta.CameraModel, meta.Software, meta.RecordedAt, meta.Raw,
	)
	if err != nil {
		return fmt.Errorf("failed to complete ingest: %w", err)
	}

	return nil
}

// MarkIngestFailed moves a video to the failed state and records the reason
func (r *Repository) MarkIngestFailed(ctx context.Context, videoID, reason string) error {
	query := `
		UPDATE videos
		SET processing_status = $2, processing_error = $3, updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, videoID, models.ProcessingStatusFailed, reason)
	if err != nil {
		return fmt.Errorf("failed to mark ingest failed: %w", err)
	}

	return nil
}
