package metadata

import (
	"context"

	"github.com/cinevault/cinevault/internal/logging"
	"github.com/cinevault/cinevault/internal/metrics"
	"github.com/cinevault/cinevault/internal/probe"
	"github.com/cinevault/cinevault/pkg/models"
)

// Prober describes the probe invoker the extractor depends on
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Result, error)
}

// Extractor derives a metadata record from a stored video file. Probe
// failures degrade to an empty record: a file whose upload succeeded must
// stay queryable even when nothing can be read out of its container.
type Extractor struct {
	prober Prober
	log    *logging.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(prober Prober, log *logging.Logger) *Extractor {
	return &Extractor{prober: prober, log: log}
}

// Extract probes the file at path and normalizes the result. It never
// returns an error; when probing fails the record has duration 0 and every
// other field unset.
func (e *Extractor) Extract(ctx context.Context, path string) *models.VideoMetadata {
	result, err := e.prober.Probe(ctx, path)
	if err != nil {
		metrics.ProbeFailuresTotal.Inc()
		if e.log != nil {
			e.log.WithError(err).Warn("Metadata probe failed, continuing with empty metadata")
		}
		return Empty()
	}

	return Normalize(result)
}
