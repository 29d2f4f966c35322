package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves and parses a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// JobStore is the persistence sink for crawled jobs.
type JobStore interface {
	// InsertJob stores rec and returns its ID. It returns ErrDuplicateJob when
	// the source URL is already present.
	InsertJob(ctx context.Context, rec Record) (string, error)
	InsertBenefits(ctx context.Context, jobID string, names []string) error
	ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error)
}

// Clock stamps run boundaries and measures source durations.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// Locker serializes work on a key across goroutines or processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Publisher pushes job events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// SourceScraper crawls every category of one external site.
type SourceScraper interface {
	Name() string
	Run(ctx context.Context) (SourceReport, error)
}

// Pauser waits between requests.
type Pauser interface {
	Pause(ctx context.Context, d time.Duration)
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
