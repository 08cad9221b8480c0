package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/domain/analyst"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scanerrors"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight int
	maxSeen  int
	fn       func(ctx context.Context, req ai.AnalysisRequest) (string, error)
}

func newFakeAnalyzer(fn func(ctx context.Context, req ai.AnalysisRequest) (string, error)) *fakeAnalyzer {
	return &fakeAnalyzer{calls: map[string]int{}, fn: fn}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req ai.AnalysisRequest) (string, error) {
	f.mu.Lock()
	f.calls[req.ScanID]++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	return f.fn(ctx, req)
}

func (f *fakeAnalyzer) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAnalyzer) callsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func replyJSON(level string) func(context.Context, ai.AnalysisRequest) (string, error) {
	return func(context.Context, ai.AnalysisRequest) (string, error) {
		return `{"risk_level": "` + level + `", "confidence_score": 0.9, "disease_classification": "Normal"}`, nil
	}
}

type fakeRepo struct {
	mu       sync.Mutex
	saved    map[scans.ScanID]*scans.Finding
	saveErr  error
	ctxAlive []bool
}

func newFakeRepo() *fakeRepo { return &fakeRepo{saved: map[scans.ScanID]*scans.Finding{}} }

func (r *fakeRepo) Save(context.Context, *scans.Scan) error { return nil }
func (r *fakeRepo) Get(context.Context, string, scans.ScanID) (*scans.Scan, error) {
	return nil, scans.ErrNotFound
}
func (r *fakeRepo) GetByID(context.Context, scans.ScanID) (*scans.Scan, error) {
	return nil, scans.ErrNotFound
}
func (r *fakeRepo) ListByPatient(context.Context, string, int) ([]*scans.Scan, error) {
	return nil, nil
}
func (r *fakeRepo) Paginate(context.Context, string, int, int) (scans.PaginatedResult, error) {
	return scans.PaginatedResult{}, nil
}

func (r *fakeRepo) SaveFinding(ctx context.Context, id scans.ScanID, f *scans.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxAlive = append(r.ctxAlive, ctx.Err() == nil)
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved[id] = f
	return nil
}

func (r *fakeRepo) savedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

type fakeAudit struct {
	mu    sync.Mutex
	items []*analyst.Analysis
}

func (a *fakeAudit) Save(_ context.Context, x *analyst.Analysis) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, x)
	return nil
}
func (a *fakeAudit) ListByScan(context.Context, string, int) ([]*analyst.Analysis, error) {
	return nil, nil
}
func (a *fakeAudit) LatestByScan(context.Context, string) (*analyst.Analysis, error) {
	return nil, nil
}

type fakeFailures struct {
	mu    sync.Mutex
	items []*scanerrors.ScanError
	err   error
}

func (f *fakeFailures) Save(_ context.Context, e *scanerrors.ScanError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, e)
	return f.err
}
func (f *fakeFailures) ListByScan(context.Context, string, int) ([]*scanerrors.ScanError, error) {
	return nil, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	latency  int
}

func (c *countingRecorder) AnalysisOutcome(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[status]++
}

func (c *countingRecorder) AnalyzerLatency(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency++
}

var errBoom = errors.New("upstream 500")
