package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cinevault/cinevault/internal/cache"
	"github.com/cinevault/cinevault/internal/config"
	"github.com/cinevault/cinevault/internal/ingest"
	"github.com/cinevault/cinevault/internal/logging"
	"github.com/cinevault/cinevault/internal/middleware"
	"github.com/cinevault/cinevault/internal/storage"
	"github.com/cinevault/cinevault/pkg/models"
)

// IngestService runs the ingestion pipeline for an uploaded file
type IngestService interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// VideoStore reads video records
type VideoStore interface {
	GetVideoForOwner(ctx context.Context, videoID, ownerID string) (*models.Video, error)
	Health(ctx context.Context) error
}

type API struct {
	svc    IngestService
	videos VideoStore
	cache  *cache.Cache // optional
	log    *logging.Logger
	cfg    *config.Config
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.videos.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Ingest endpoint: receives the uploaded file for a pre-created video record
// and runs the full pipeline before responding.
func (api *API) ingestVideo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	videoID := c.Param("id")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if max := api.cfg.Server.MaxUploadBytes; max > 0 && header.Size > max {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	result, err := api.svc.Ingest(c.Request.Context(), ingest.Request{
		VideoID:  videoID,
		OwnerID:  userID,
		Filename: header.Filename,
		Size:     header.Size,
		File:     file,
	})
	if err != nil {
		api.writeIngestError(c, videoID, err)
		return
	}

	// The record changed; drop any stale cached copy
	if api.cache != nil {
		if err := api.cache.DeleteVideo(c.Request.Context(), videoID); err != nil {
			api.log.WithError(err).Debug("Failed to invalidate video cache")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"url":     result.URL,
		"metadata": gin.H{
			"duration":    result.Duration,
			"resolution":  result.Resolution,
			"location":    result.Location,
			"recorded_at": result.RecordedAt,
		},
	})
}

func (api *API) writeIngestError(c *gin.Context, videoID string, err error) {
	var storageErr *ingest.StorageError

	switch {
	case errors.Is(err, ingest.ErrMissingVideoID), errors.Is(err, ingest.ErrMissingFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrVideoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
	case errors.As(err, &storageErr):
		api.log.WithVideoID(videoID).WithError(err).Error("Failed to store uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store video file"})
	default:
		api.log.WithVideoID(videoID).WithError(err).Error("Ingestion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// Get video endpoint, owner-scoped
func (api *API) getVideo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	videoID := c.Param("id")
	ctx := c.Request.Context()

	if api.cache != nil {
		if video, err := api.cache.GetVideo(ctx, videoID); err == nil && video != nil {
			if video.OwnerID == userID {
				c.JSON(http.StatusOK, video)
				return
			}
		}
	}

	video, err := api.videos.GetVideoForOwner(ctx, videoID, userID)
	if err != nil {
		api.log.WithVideoID(videoID).WithError(err).Error("Failed to load video")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if video == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	if api.cache != nil {
		if err := api.cache.SetVideo(ctx, video, api.cfg.Redis.VideoTTL); err != nil {
			api.log.WithError(err).Debug("Failed to cache video")
		}
	}

	c.JSON(http.StatusOK, video)
}

// Stream endpoint: serves the stored file with range support
func (api *API) streamVideo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	videoID := c.Param("id")

	video, err := api.videos.GetVideoForOwner(c.Request.Context(), videoID, userID)
	if err != nil {
		api.log.WithVideoID(videoID).WithError(err).Error("Failed to load video")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if video == nil || video.StoragePath == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	c.Header("Content-Type", storage.ContentType(*video.StoragePath))
	c.File(*video.StoragePath)
}
