package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/report-agent/internal/embed"
	"github.com/sells-group/report-agent/internal/extract"
	"github.com/sells-group/report-agent/internal/fetcher"
	"github.com/sells-group/report-agent/internal/ledger"
	"github.com/sells-group/report-agent/internal/model"
)

// --- Discoverer Mock ---

type mockDiscoverer struct {
	mock.Mock
}

func (m *mockDiscoverer) Discover(ctx context.Context, query string, n int) ([]string, error) {
	args := m.Called(ctx, query, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, batch []model.CandidateRecord) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

// --- Fakes ---

// fakeFetcher serves fixed bodies; unknown locators fail with a 404.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, locator string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, locator)
	body, ok := f.bodies[locator]
	if !ok {
		return nil, &fetcher.StatusError{Locator: locator, Status: 404}
	}
	return []byte(body), nil
}

// fakeExtractor maps raw bodies to documents; unknown bodies are malformed.
type fakeExtractor struct {
	docs map[string]extract.Document
}

func (f *fakeExtractor) Extract(_ context.Context, raw []byte, _ string) (extract.Document, error) {
	doc, ok := f.docs[string(raw)]
	if !ok {
		return extract.Document{}, &extract.UnreadableDocumentError{
			Category: extract.CategoryMalformed,
			Err:      errors.New("unknown body"),
		}
	}
	return doc, nil
}

// fakeEmbedder returns a constant vector. Texts under five words are
// insufficient; texts containing "EMBEDFAIL" fail.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "EMBEDFAIL") {
		return nil, errors.New("model unavailable")
	}
	if len(strings.Fields(text)) < 5 {
		return nil, embed.ErrInsufficientText
	}
	return []float32{0.2, 0.4, 0.6}, nil
}

// countingStore wraps a ledger and counts persist calls.
type countingStore struct {
	inner      Store
	appends    int
	persistErr error
}

func (c *countingStore) Load(ctx context.Context) (*ledger.Snapshot, error) {
	return c.inner.Load(ctx)
}

func (c *countingStore) AppendAndPersist(ctx context.Context, existing *ledger.Snapshot, recs []model.CandidateRecord) (*ledger.Snapshot, error) {
	c.appends++
	if c.persistErr != nil {
		return nil, c.persistErr
	}
	return c.inner.AppendAndPersist(ctx, existing, recs)
}
