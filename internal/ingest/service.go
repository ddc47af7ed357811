package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cinevault/cinevault/internal/events"
	"github.com/cinevault/cinevault/internal/logging"
	"github.com/cinevault/cinevault/internal/metrics"
	"github.com/cinevault/cinevault/internal/storage"
	"github.com/cinevault/cinevault/internal/tracing"
	"github.com/cinevault/cinevault/pkg/models"
)

// Repository is the video record store the orchestrator writes to
type Repository interface {
	// GetVideoForOwner returns (nil, nil) when the video does not exist
	// for that owner.
	GetVideoForOwner(ctx context.Context, videoID, ownerID string) (*models.Video, error)
	SetProcessingState(ctx context.Context, videoID, status string, progress int) error
	SetProcessingProgress(ctx context.Context, videoID string, progress int) error
	CompleteIngest(ctx context.Context, videoID, ownerID, storagePath, streamURL string, meta *models.VideoMetadata, locationName *string) error
	MarkIngestFailed(ctx context.Context, videoID, reason string) error
}

// MetadataExtractor derives a metadata record from a stored file. It never
// fails; probe errors degrade to an empty record.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) *models.VideoMetadata
}

// Geocoder resolves coordinates to a place name
type Geocoder interface {
	Resolve(ctx context.Context, latitude, longitude float64) (string, error)
}

// LocationCache caches resolved place names by coordinates
type LocationCache interface {
	GetLocationName(ctx context.Context, latitude, longitude float64) (string, bool, error)
	SetLocationName(ctx context.Context, latitude, longitude float64, name string, ttl time.Duration) error
}

// EventPublisher announces completed ingestions
type EventPublisher interface {
	PublishVideoIngested(ctx context.Context, event events.VideoIngested) error
}

// Config holds orchestrator configuration
type Config struct {
	PublicBaseURL    string
	ProgressInterval time.Duration
	ProbeConcurrency int
	GeocodeCacheTTL  time.Duration
}

// Service orchestrates the ingestion pipeline: persist the upload, extract
// metadata, resolve the location, and complete the record in one update.
type Service struct {
	repo      Repository
	store     storage.Store
	extractor MetadataExtractor
	geocoder  Geocoder      // optional
	locations LocationCache // optional
	publisher EventPublisher // optional
	log       *logging.Logger
	cfg       Config

	// Bounds concurrent ffprobe processes under upload bursts
	probeSem chan struct{}
}

// NewService creates a new ingestion service. geocoder, locations, and
// publisher may be nil; the pipeline degrades without them.
func NewService(repo Repository, store storage.Store, extractor MetadataExtractor, geocoder Geocoder, locations LocationCache, publisher EventPublisher, log *logging.Logger, cfg Config) *Service {
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "/api/v1/videos"
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 2 * time.Second
	}
	if cfg.ProbeConcurrency <= 0 {
		cfg.ProbeConcurrency = 4
	}
	if cfg.GeocodeCacheTTL <= 0 {
		cfg.GeocodeCacheTTL = 30 * 24 * time.Hour
	}

	return &Service{
		repo:      repo,
		store:     store,
		extractor: extractor,
		geocoder:  geocoder,
		locations: locations,
		publisher: publisher,
		log:       log,
		cfg:       cfg,
		probeSem:  make(chan struct{}, cfg.ProbeConcurrency),
	}
}

// Request is one ingestion request: the uploaded file plus the pre-created
// video record it belongs to.
type Request struct {
	VideoID  string
	OwnerID  string
	Filename string
	Size     int64
	File     io.Reader
}

// Result is the successful ingestion response
type Result struct {
	URL        string     `json:"url"`
	Duration   int        `json:"duration"`
	Resolution string     `json:"resolution,omitempty"`
	Location   string     `json:"location,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// Ingest runs the pipeline. Failures before the file is durably stored
// abort the request; after that point metadata enrichment is best-effort
// and the record always reaches the completed state.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	span, ctx := tracing.StartSpan(ctx, "ingest.video")
	defer span.Finish()
	span.SetTag("video.id", req.VideoID)

	if req.VideoID == "" {
		return nil, ErrMissingVideoID
	}
	if req.File == nil {
		return nil, ErrMissingFile
	}

	log := s.log.WithVideoID(req.VideoID).WithUserID(req.OwnerID)

	// Ownership gate: the video record must already exist for this owner
	video, err := s.repo.GetVideoForOwner(ctx, req.VideoID, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("ownership lookup: %w", err)
	}
	if video == nil {
		return nil, ErrVideoNotFound
	}

	metrics.IngestsInProgress.Inc()
	defer metrics.IngestsInProgress.Dec()

	objectName := storage.ObjectName(req.VideoID, req.Filename)

	path, err := s.saveUpload(ctx, req, objectName, log)
	if err != nil {
		// Leave the record retryable: back to its pre-upload state
		if stateErr := s.repo.SetProcessingState(ctx, req.VideoID, models.ProcessingStatusPending, 0); stateErr != nil {
			log.WithError(stateErr).Warn("Failed to reset processing state after storage failure")
		}
		metrics.IngestsTotal.WithLabelValues("failed").Inc()
		tracing.LogError(span, err)
		return nil, &StorageError{Err: err}
	}

	// The file is durable; nothing past this point may fail the request
	if err := s.repo.SetProcessingState(ctx, req.VideoID, models.ProcessingStatusProcessing, 90); err != nil {
		log.WithError(err).Warn("Failed to set processing state")
	}

	meta := s.extractMetadata(ctx, path)

	var locationName *string
	if meta.HasCoordinates() {
		if name := s.resolveLocation(ctx, *meta.Latitude, *meta.Longitude, log); name != "" {
			locationName = &name
		}
	}

	streamURL := fmt.Sprintf("%s/%s/stream", strings.TrimRight(s.cfg.PublicBaseURL, "/"), req.VideoID)

	// One update carries the terminal state and every metadata field;
	// readers never see a half-filled record.
	if err := s.repo.CompleteIngest(ctx, req.VideoID, req.OwnerID, path, streamURL, meta, locationName); err != nil {
		if failErr := s.repo.MarkIngestFailed(ctx, req.VideoID, err.Error()); failErr != nil {
			log.WithError(failErr).Warn("Failed to mark ingest failed")
		}
		metrics.IngestsTotal.WithLabelValues("failed").Inc()
		tracing.LogError(span, err)
		return nil, fmt.Errorf("complete ingest: %w", err)
	}

	result := &Result{
		URL:        streamURL,
		Duration:   meta.Duration,
		Resolution: meta.Resolution(),
		RecordedAt: meta.RecordedAt,
	}
	if locationName != nil {
		result.Location = *locationName
	}

	s.publishEvent(ctx, req, result, log)

	metrics.IngestsTotal.WithLabelValues("completed").Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if req.Size > 0 {
		metrics.UploadSizeBytes.Observe(float64(req.Size))
	}

	log.LogIngestEvent(req.VideoID, "completed", map[string]interface{}{
		"duration":   meta.Duration,
		"resolution": result.Resolution,
		"location":   result.Location,
	})

	return result, nil
}

// saveUpload persists the uploaded bytes and checkpoints upload progress to
// the database on a fixed interval while the copy runs.
func (s *Service) saveUpload(ctx context.Context, req Request, objectName string, log *logging.Logger) (string, error) {
	if err := s.repo.SetProcessingState(ctx, req.VideoID, models.ProcessingStatusUploading, 0); err != nil {
		log.WithError(err).Warn("Failed to set uploading state")
	}

	reader := &countingReader{r: req.File}

	done := make(chan struct{})
	if req.Size > 0 {
		go s.checkpointProgress(ctx, req.VideoID, req.Size, reader, done, log)
	}

	saveStart := time.Now()
	path, err := s.store.Save(ctx, objectName, reader, req.Size)
	close(done)

	log.LogStorageOperation("save", objectName, reader.Count(), time.Since(saveStart), err)
	return path, err
}

// checkpointProgress flushes upload progress to the record every
// ProgressInterval until done closes.
func (s *Service) checkpointProgress(ctx context.Context, videoID string, total int64, reader *countingReader, done <-chan struct{}, log *logging.Logger) {
	ticker := time.NewTicker(s.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			percent := int(reader.Count() * 100 / total)
			if percent > 90 {
				percent = 90
			}
			if err := s.repo.SetProcessingProgress(ctx, videoID, percent); err != nil {
				log.WithError(err).Debug("Failed to checkpoint upload progress")
			}
		}
	}
}

// extractMetadata runs the probe under the concurrency bound
func (s *Service) extractMetadata(ctx context.Context, path string) *models.VideoMetadata {
	s.probeSem <- struct{}{}
	defer func() { <-s.probeSem }()

	span, ctx := tracing.StartSpan(ctx, "ingest.probe")
	defer span.Finish()

	return s.extractor.Extract(ctx, path)
}

// resolveLocation turns coordinates into a place name, consulting the cache
// first. Geocoding is decorative; every failure path returns "".
func (s *Service) resolveLocation(ctx context.Context, latitude, longitude float64, log *logging.Logger) string {
	if s.locations != nil {
		if name, hit, err := s.locations.GetLocationName(ctx, latitude, longitude); err == nil && hit {
			metrics.GeocodeRequestsTotal.WithLabelValues("cached").Inc()
			return name
		}
	}

	if s.geocoder == nil {
		return ""
	}

	span, ctx := tracing.StartSpan(ctx, "ingest.geocode")
	defer span.Finish()

	name, err := s.geocoder.Resolve(ctx, latitude, longitude)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("failed").Inc()
		tracing.LogError(span, err)
		log.WithError(err).Warn("Reverse geocoding failed, continuing without location name")
		return ""
	}
	if name == "" {
		metrics.GeocodeRequestsTotal.WithLabelValues("empty").Inc()
		return ""
	}

	metrics.GeocodeRequestsTotal.WithLabelValues("resolved").Inc()

	if s.locations != nil {
		if err := s.locations.SetLocationName(ctx, latitude, longitude, name, s.cfg.GeocodeCacheTTL); err != nil {
			log.WithError(err).Debug("Failed to cache location name")
		}
	}

	return name
}

// publishEvent announces the completed ingestion, best-effort
func (s *Service) publishEvent(ctx context.Context, req Request, result *Result, log *logging.Logger) {
	if s.publisher == nil {
		return
	}

	event := events.VideoIngested{
		VideoID:    req.VideoID,
		OwnerID:    req.OwnerID,
		Duration:   result.Duration,
		Resolution: result.Resolution,
		Location:   result.Location,
		RecordedAt: result.RecordedAt,
	}

	if err := s.publisher.PublishVideoIngested(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish ingest event")
	}
}

// countingReader counts bytes as they pass through so progress checkpoints
// can read the current position concurrently.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	atomic.AddInt64(&c.n, int64(n))
	return n, err
}

func (c *countingReader) Count() int64 {
	return atomic.LoadInt64(&c.n)
}
