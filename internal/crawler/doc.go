// Package crawler defines the domain model shared by every job source: the
// normalized job record, per-entry results, run statistics and the
// interfaces the scrapers depend on (fetchers, stores, locks and publishers).
package crawler
