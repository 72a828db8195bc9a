package backup

import (
	"context"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/gcsuploader"
	"github.com/dvloznov/farm-ledger/internal/logger"
	"github.com/dvloznov/farm-ledger/internal/metrics"
)

const objectPrefix = "backups"

// Job builds the workbook and uploads it to a bucket.
type Job struct {
	builder  *Builder
	storage  gcsuploader.StorageService
	bucket   string
	location *time.Location
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewJob creates a backup job writing to bucket. Dates are taken in loc.
func NewJob(builder *Builder, storage gcsuploader.StorageService, bucket string, loc *time.Location, m *metrics.Metrics) *Job {
	if loc == nil {
		loc = time.UTC
	}
	return &Job{
		builder:  builder,
		storage:  storage,
		bucket:   bucket,
		location: loc,
		metrics:  m,
		now:      time.Now,
	}
}

// Run builds and uploads one backup and returns its gs:// URI.
func (j *Job) Run(ctx context.Context) (string, error) {
	log := logger.FromContext(ctx)

	today := civil.DateOf(j.now().In(j.location))
	name, data, err := j.builder.Build(ctx, today)
	if err != nil {
		j.metrics.Backup(metrics.OutcomeError)
		return "", fmt.Errorf("Run: %w", err)
	}

	object := path.Join(objectPrefix, name)
	if err := j.storage.Upload(ctx, j.bucket, object, ContentType, data); err != nil {
		j.metrics.Backup(metrics.OutcomeStoreError)
		return "", fmt.Errorf("Run: %w", err)
	}
	j.metrics.Backup(metrics.OutcomeOK)

	uri := fmt.Sprintf("gs://%s/%s", j.bucket, object)
	log.Info().
		Str("uri", uri).
		Int("bytes", len(data)).
		Msg("Backup uploaded")
	return uri, nil
}
