// Package fetcher downloads candidate documents.
package fetcher

import (
	"context"
	"fmt"
)

// Fetcher retrieves the raw bytes behind a locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Locator string
	Status  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: unexpected status %d from %s", e.Status, e.Locator)
}
