package crawler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateJob is returned by a JobStore when source_url already exists.
var ErrDuplicateJob = errors.New("job with this source url already exists")

// ErrLockHeld is returned by a Locker that gave up waiting for a key.
var ErrLockHeld = errors.New("lock is held by another worker")

// FetchError is a transport failure or non-2xx response for a URL.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExtractionError describes an entry whose required fields could not be read.
type ExtractionError struct {
	Source string
	URL    string
	Title  string
	Fields []string
	Err    error
}

func (e *ExtractionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "extract %s entry", e.Source)
	if e.URL != "" {
		fmt.Fprintf(&b, " %s", e.URL)
	} else if e.Title != "" {
		fmt.Fprintf(&b, " %q", e.Title)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
