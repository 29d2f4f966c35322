// Package dedup persists validated job records exactly once per source URL.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

// Outcome is the result of a Persist call that did not error.
type Outcome int

// Persist outcomes.
const (
	OutcomePersisted Outcome = iota
	OutcomeDuplicate
)

func (o Outcome) String() string {
	if o == OutcomeDuplicate {
		return "duplicate"
	}
	return "persisted"
}

// JobCreatedEvent is published after a job row is inserted.
type JobCreatedEvent struct {
	JobID          string    `json:"job_id"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	SourcePlatform string    `json:"source_platform"`
	SourceURL      string    `json:"source_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// Config wires the optional collaborators.
type Config struct {
	// Topic enables job-created events when non-empty and a Publisher is set.
	Topic string
}

// Deduplicator runs lock, existence check, insert, benefits and publish for
// one record at a time.
type Deduplicator struct {
	store     crawler.JobStore
	locker    crawler.Locker
	publisher crawler.Publisher
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New builds a Deduplicator. locker and publisher may be nil.
func New(store crawler.JobStore, locker crawler.Locker, publisher crawler.Publisher, cfg Config, logger *zap.Logger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{
		store:     store,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.Named("dedup"),
		now:       time.Now,
	}
}

// Persist stores rec unless a job with the same source URL already exists.
// Benefits and the job-created event are best effort: their failures are
// logged and do not change the outcome.
func (d *Deduplicator) Persist(ctx context.Context, rec crawler.Record) (Outcome, error) {
	if rec.SourceURL == "" {
		return 0, errors.New("persist: source url is required")
	}
	if d.locker != nil {
		unlock, err := d.locker.Lock(ctx, rec.SourceURL)
		if err != nil {
			return 0, fmt.Errorf("persist %s: %w", rec.SourceURL, err)
		}
		defer unlock()
	}

	exists, err := d.store.ExistsBySourceURL(ctx, rec.SourceURL)
	if err != nil {
		return 0, fmt.Errorf("check existing %s: %w", rec.SourceURL, err)
	}
	if exists {
		return OutcomeDuplicate, nil
	}

	jobID, err := d.store.InsertJob(ctx, rec)
	if errors.Is(err, crawler.ErrDuplicateJob) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert job %s: %w", rec.SourceURL, err)
	}

	if len(rec.Benefits) > 0 {
		if err := d.store.InsertBenefits(ctx, jobID, rec.Benefits); err != nil {
			d.logger.Warn("failed to store benefits",
				zap.String("job_id", jobID),
				zap.String("source_url", rec.SourceURL),
				zap.Error(err),
			)
		}
	}
	d.publishCreated(ctx, jobID, rec)
	return OutcomePersisted, nil
}

func (d *Deduplicator) publishCreated(ctx context.Context, jobID string, rec crawler.Record) {
	if d.publisher == nil || d.cfg.Topic == "" {
		return
	}
	evt := JobCreatedEvent{
		JobID:          jobID,
		Title:          rec.Title,
		Company:        rec.Company,
		SourcePlatform: rec.SourcePlatform,
		SourceURL:      rec.SourceURL,
		CreatedAt:      d.now().UTC(),
	}
	if _, err := d.publisher.Publish(ctx, d.cfg.Topic, evt); err != nil {
		d.logger.Warn("failed to publish job created event",
			zap.String("job_id", jobID),
			zap.String("topic", d.cfg.Topic),
			zap.Error(err),
		)
	}
}
