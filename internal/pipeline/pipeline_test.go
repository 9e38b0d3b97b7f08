package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/discovery"
	"github.com/sells-group/report-agent/internal/embed"
	"github.com/sells-group/report-agent/internal/extract"
	"github.com/sells-group/report-agent/internal/gate"
	"github.com/sells-group/report-agent/internal/ledger"
	"github.com/sells-group/report-agent/internal/metrics"
	"github.com/sells-group/report-agent/internal/model"
	"github.com/sells-group/report-agent/internal/runlog"
)

const testQuery = "climate adaptation report filetype:pdf"

var ledgerCfg = config.LedgerConfig{Dir: "data", JSONName: "reports_master.json", CSVName: "reports_master.csv"}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Discovery.Query = testQuery
	cfg.Discovery.NumResults = 20
	cfg.Gate.MinYear = 2015
	cfg.Gate.MinPages = 5
	cfg.Gate.YearScanChars = 4000
	cfg.Extract.SummaryChars = 40
	cfg.Pipeline.Concurrency = 1
	return cfg
}

func longText(year int) string {
	return fmt.Sprintf("Annual climate adaptation review %d covering insurers coastal exposure and repricing across the portfolio", year)
}

type harness struct {
	cfg        *config.Config
	fs         afero.Fs
	store      *countingStore
	discoverer *mockDiscoverer
	fetcher    *fakeFetcher
	extractor  *fakeExtractor
	notifier   *mockNotifier
	metrics    *metrics.Metrics
	runs       *runlog.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	return &harness{
		cfg:        testConfig(),
		fs:         fs,
		store:      &countingStore{inner: ledger.New(fs, ledgerCfg)},
		discoverer: new(mockDiscoverer),
		fetcher:    &fakeFetcher{bodies: map[string]string{}},
		extractor:  &fakeExtractor{docs: map[string]extract.Document{}},
		notifier:   new(mockNotifier),
		metrics:    metrics.New(),
	}
}

func (h *harness) pipeline() *Pipeline {
	p := New(h.cfg, Deps{
		Discoverer: h.discoverer,
		Fetcher:    h.fetcher,
		Extractor:  h.extractor,
		Embedder:   fakeEmbedder{},
		Scorer:     embed.MeanScorer{},
		Gate:       gate.New(h.cfg.Gate),
		Ledger:     h.store,
		Notifier:   h.notifier,
		Runs:       h.runs,
		Metrics:    h.metrics,
	})
	p.now = func() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) }
	return p
}

// serve registers a locator whose body extracts to doc.
func (h *harness) serve(locator, body string, doc extract.Document) {
	h.fetcher.bodies[locator] = body
	h.extractor.docs[body] = doc
}

func (h *harness) discover(locators ...string) {
	h.discoverer.On("Discover", mock.Anything, testQuery, 20).Return(locators, nil)
}

func (h *harness) ledgerRecords(t *testing.T) []model.CandidateRecord {
	t.Helper()
	snap, err := ledger.New(h.fs, ledgerCfg).Load(context.Background())
	require.NoError(t, err)
	return snap.Records()
}

func validDoc(year int) extract.Document {
	return extract.Document{Text: longText(year), Pages: 12, Format: model.FormatPDF, Title: "Climate Review"}
}

func TestRun_EndToEndScenario(t *testing.T) {
	h := newHarness(t)
	h.serve("https://example.org/short.pdf", "short-bytes", extract.Document{Text: longText(2022), Pages: 2, Format: model.FormatPDF})
	h.serve("https://example.org/review_2021.pdf", "good-bytes", validDoc(2021))
	h.discover("https://example.org/missing.pdf", "https://example.org/short.pdf", "https://example.org/review_2021.pdf")

	var sent []model.CandidateRecord
	h.notifier.On("Notify", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]model.CandidateRecord) }).
		Return(nil).Once()

	summary, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Discovered)
	assert.Equal(t, 2, summary.Fetched)
	assert.Equal(t, 1, summary.Admitted)
	assert.Equal(t, 1, summary.Counts[model.OutcomeSkippedFetchError])
	assert.Equal(t, 1, summary.Counts[model.OutcomeSkippedBelowThreshold])
	assert.Equal(t, 1, summary.Counts[model.OutcomeAdmitted])
	assert.True(t, summary.Persisted)
	assert.True(t, summary.Notified)

	records := h.ledgerRecords(t)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, ContentHash([]byte("good-bytes")), rec.SHA)
	assert.Equal(t, "https://example.org/review_2021.pdf", rec.URL)
	assert.Equal(t, 2021, rec.Year)
	assert.Equal(t, 12, rec.Pages)
	assert.InDelta(t, 0.4, rec.Score, 0.0001)
	assert.Equal(t, summary.RunID, rec.RunID)
	assert.Equal(t, "Climate Review", rec.Title)
	assert.Len(t, []rune(rec.Summary), 40)

	require.Len(t, sent, 1)
	assert.Equal(t, rec, sent[0])
	h.notifier.AssertExpectations(t)

	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.CandidatesTotal.WithLabelValues("admitted")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.RunNotified), 0.001)
}

func TestRun_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.serve("https://example.org/a.pdf", "a-bytes", validDoc(2021))
	h.discover("https://example.org/a.pdf")
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	first, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Admitted)

	second, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Admitted)
	assert.Equal(t, 1, second.Counts[model.OutcomeSkippedDuplicate])
	assert.False(t, second.Persisted)
	assert.False(t, second.Notified)

	assert.Len(t, h.ledgerRecords(t), 1)
	assert.Equal(t, 1, h.store.appends)
	h.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestRun_SameBytesAtTwoLocators(t *testing.T) {
	h := newHarness(t)
	h.serve("https://example.org/a.pdf", "same-bytes", validDoc(2021))
	h.fetcher.bodies["https://mirror.example.net/copy.pdf"] = "same-bytes"
	h.discover("https://example.org/a.pdf", "https://mirror.example.net/copy.pdf")
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	summary, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Admitted)
	assert.Equal(t, 1, summary.Counts[model.OutcomeSkippedDuplicate])

	records := h.ledgerRecords(t)
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.org/a.pdf", records[0].URL)
}

func TestRun_ChangedBytesAtSameLocator(t *testing.T) {
	h := newHarness(t)
	h.serve("https://example.org/a.pdf", "v1", validDoc(2021))
	h.discover("https://example.org/a.pdf")
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Twice()

	_, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	h.serve("https://example.org/a.pdf", "v2", validDoc(2022))
	summary, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Admitted)

	records := h.ledgerRecords(t)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].SHA, records[1].SHA)
	assert.Equal(t, records[0].URL, records[1].URL)
}

func TestRun_AllDuplicatesWritesAndNotifiesNothing(t *testing.T) {
	h := newHarness(t)
	h.serve("https://example.org/a.pdf", "a-bytes", validDoc(2021))
	h.serve("https://example.org/b.pdf", "b-bytes", validDoc(2022))

	seed := []model.CandidateRecord{
		{SHA: ContentHash([]byte("a-bytes")), URL: "https://example.org/a.pdf"},
		{SHA: ContentHash([]byte("b-bytes")), URL: "https://old.example.org/b.pdf"},
	}
	_, err := ledger.New(h.fs, ledgerCfg).AppendAndPersist(context.Background(), nil, seed)
	require.NoError(t, err)
	h.discover("https://example.org/a.pdf", "https://example.org/b.pdf")

	summary, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Counts[model.OutcomeSkippedDuplicate])
	assert.Equal(t, 0, h.store.appends)
	h.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestRun_PersistFailureIsFatalAndSkipsNotify(t *testing.T) {
	h := newHarness(t)
	h.store.persistErr = &ledger.PersistError{Stage: "swap csv", RolledBack: true, Err: assert.AnError}
	h.serve("https://example.org/a.pdf", "a-bytes", validDoc(2021))
	h.discover("https://example.org/a.pdf")

	summary, err := h.pipeline().Run(context.Background())
	require.Error(t, err)

	var perr *ledger.PersistError
	assert.ErrorAs(t, err, &perr)
	assert.False(t, summary.Persisted)
	h.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestRun_NotifyFailureIsDegraded(t *testing.T) {
	h := newHarness(t)
	h.serve("https://example.org/a.pdf", "a-bytes", validDoc(2021))
	h.discover("https://example.org/a.pdf")
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	summary, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Persisted)
	assert.False(t, summary.Notified)
	assert.Contains(t, summary.NotifyError, assert.AnError.Error())
	assert.Len(t, h.ledgerRecords(t), 1)
}

func TestRun_PerCandidateFailuresAreIsolated(t *testing.T) {
	h := newHarness(t)
	h.fetcher.bodies["https://example.org/garbled.pdf"] = "garbled"
	h.serve("https://example.org/tiny.html", "tiny", extract.Document{Text: "too short", Pages: 1, Format: model.FormatHTML})
	h.serve("https://example.org/broken.pdf", "broken", extract.Document{Text: longText(2020) + " EMBEDFAIL", Pages: 8, Format: model.FormatPDF})
	h.serve("https://example.org/old.pdf", "old", extract.Document{Text: longText(2010), Pages: 8, Format: model.FormatPDF})
	h.serve("https://example.org/good.pdf", "good", validDoc(2023))
	h.discover(
		"https://example.org/garbled.pdf",
		"https://example.org/tiny.html",
		"https://example.org/broken.pdf",
		"https://example.org/old.pdf",
		"https://example.org/good.pdf",
	)
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	summary, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Counts[model.OutcomeSkippedUnreadable])
	assert.Equal(t, 1, summary.Counts[model.OutcomeSkippedInsufficientText])
	assert.Equal(t, 1, summary.Counts[model.OutcomeSkippedEmbedError])
	assert.Equal(t, 1, summary.Counts[model.OutcomeSkippedBelowThreshold])
	assert.Equal(t, 1, summary.Counts[model.OutcomeAdmitted])
	assert.Equal(t, 5, summary.Fetched)
}

func TestRun_ConcurrentWorkersKeepDiscoveryOrder(t *testing.T) {
	h := newHarness(t)
	h.cfg.Pipeline.Concurrency = 4

	var locators []string
	for i := 0; i < 8; i++ {
		loc := fmt.Sprintf("https://example.org/r%d.pdf", i)
		h.serve(loc, fmt.Sprintf("bytes-%d", i), validDoc(2016+i))
		locators = append(locators, loc)
	}
	h.discover(locators...)
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	summary, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Admitted)

	records := h.ledgerRecords(t)
	require.Len(t, records, 8)
	for i, r := range records {
		assert.Equal(t, locators[i], r.URL)
	}
}

func TestRun_ConcurrentIdenticalBytesAdmittedOnce(t *testing.T) {
	for round := 0; round < 20; round++ {
		h := newHarness(t)
		h.cfg.Pipeline.Concurrency = 8

		var mirrors []string
		for i := 0; i < 8; i++ {
			loc := fmt.Sprintf("https://mirror%d.example.org/review_2021.pdf", i)
			h.serve(loc, "same-bytes", validDoc(2021))
			mirrors = append(mirrors, loc)
		}
		h.discover(mirrors...)
		h.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

		summary, err := h.pipeline().Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, summary.Admitted, "round %d", round)
		assert.Equal(t, 7, summary.Counts[model.OutcomeSkippedDuplicate], "round %d", round)
		require.Len(t, h.ledgerRecords(t), 1, "round %d", round)
	}
}

func TestRun_CorruptLedgerIsFatal(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "data/reports_master.json", []byte("{not json"), 0o644))

	_, err := h.pipeline().Run(context.Background())
	var corrupt *ledger.StoreCorruptError
	require.ErrorAs(t, err, &corrupt)
	h.discoverer.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_DiscoveryFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.discoverer.On("Discover", mock.Anything, testQuery, 20).Return(nil, discovery.ErrNoCandidates)

	_, err := h.pipeline().Run(context.Background())
	assert.ErrorIs(t, err, discovery.ErrNoCandidates)
	assert.Empty(t, h.fetcher.calls)
}

func TestRun_EmptyDiscoveryIsFatal(t *testing.T) {
	h := newHarness(t)
	h.discover()

	_, err := h.pipeline().Run(context.Background())
	assert.ErrorIs(t, err, discovery.ErrNoCandidates)
}

func TestRun_RecordsRunLog(t *testing.T) {
	h := newHarness(t)
	st, err := runlog.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	h.runs = runlog.NewRecorder(st)

	h.serve("https://example.org/a.pdf", "a-bytes", validDoc(2021))
	h.discover("https://example.org/a.pdf")
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	summary, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	run, err := st.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusDegraded, run.Status)
	assert.Equal(t, testQuery, run.Query)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 1, run.Summary.Admitted)
	assert.NotEmpty(t, run.Error)
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(nil))
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}

func TestHashSet_Claim(t *testing.T) {
	h := newHashSet(map[string]struct{}{"known": {}})
	assert.False(t, h.claim("known"))
	assert.True(t, h.claim("new"))
	assert.False(t, h.claim("new"))
}
