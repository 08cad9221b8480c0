package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/radiology-ai/internal/application"
	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/domain/analyst"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scanerrors"
	"github.com/bryanwahyu/radiology-ai/internal/domain/scans"
	"github.com/bryanwahyu/radiology-ai/internal/infra/logging"
)

const defaultConcurrency = 3

// Recorder receives per-item metrics. metrics.Manager implements it.
type Recorder interface {
	AnalysisOutcome(status string)
	AnalyzerLatency(d time.Duration)
}

// Orchestrator makes sure scans carry a Finding, calling the analyzer only
// for scans that need it. One item failing never aborts the batch.
// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	Analyzer ai.Analyzer
	Scans    scans.Repository
	Audit    analyst.Repository    // optional
	Failures scanerrors.Repository // optional
	Clock    application.Clock
	Log      logging.Logger
	Metrics  Recorder

	// Timeout bounds each analyzer call; zero means no timeout.
	Timeout     time.Duration
	Concurrency int
	// DefaultRisk is used when the reply has no usable tier.
	DefaultRisk scans.RiskLevel
}

// EnsureAnalyzed analyzes the items that need it and reports every input
// item exactly once, in input order.
//
// Already analyzed items are skipped unless req.Force. At most req.Limit
// items are dispatched when Limit > 0; the rest are deferred. An item listed
// twice is dispatched once. Findings are committed one by one with a context
// detached from ctx, so cancelling the request does not drop finished work;
// items not yet started when ctx ends fail with the cancellation cause.
func (o *Orchestrator) EnsureAnalyzed(ctx context.Context, items []*scans.Scan, req Request) BatchResult {
	outcomes := make([]Outcome, len(items))
	seen := make(map[scans.ScanID]bool, len(items))
	var dispatch []int

	for i, it := range items {
		if it == nil {
			outcomes[i] = Outcome{Status: StatusFailed, Reason: "missing scan"}
			continue
		}
		outcomes[i].ScanID = it.ID
		switch {
		case seen[it.ID]:
			outcomes[i].Status, outcomes[i].Reason = StatusSkipped, "duplicate in batch"
		case !req.Force && it.Analyzed():
			outcomes[i].Status, outcomes[i].Reason = StatusSkipped, "already analyzed"
		case req.Limit > 0 && len(dispatch) >= req.Limit:
			outcomes[i].Status, outcomes[i].Reason = StatusDeferred, "over batch limit"
		default:
			dispatch = append(dispatch, i)
		}
		seen[it.ID] = true
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency())
	for _, idx := range dispatch {
		idx := idx
		g.Go(func() error {
			outcomes[idx] = o.analyzeOne(ctx, items[idx], req)
			return nil
		})
	}
	_ = g.Wait()

	res := newBatchResult(outcomes)
	for _, oc := range res.Items {
		o.metrics().AnalysisOutcome(string(oc.Status))
	}
	o.log().Info("analysis batch finished",
		logging.Int("items", len(items)),
		logging.Int("analyzed", res.Analyzed),
		logging.Int("skipped", res.Skipped),
		logging.Int("failed", res.Failed),
		logging.Int("deferred", res.Deferred),
		logging.Bool("force", req.Force),
	)
	return res
}

func (o *Orchestrator) analyzeOne(ctx context.Context, scan *scans.Scan, req Request) Outcome {
	log := o.log().With(logging.String("scan_id", string(scan.ID)), logging.String("patient_id", scan.PatientID))

	if err := ctx.Err(); err != nil {
		log.Warn("analysis not started", logging.Err(err))
		return failed(scan.ID, fmt.Errorf("not started: %w", err))
	}

	start := time.Now()
	raw, err := o.callAnalyzer(ctx, ai.AnalysisRequest{
		ScanID:   string(scan.ID),
		ImageRef: scan.ImageRef,
		Modality: string(scan.Modality),
		Context:  req.PatientContext,
	})
	o.metrics().AnalyzerLatency(time.Since(start))

	// hasil yang sudah jadi tetap disimpan walau request di-cancel
	persistCtx := context.WithoutCancel(ctx)

	if err != nil {
		err = &ai.AnalyzerError{ScanID: string(scan.ID), Err: err}
		log.Warn("analyzer call failed", logging.Err(err), logging.Duration("elapsed", time.Since(start)))
		o.recordFailure(persistCtx, scan, scanerrors.PhaseAnalyze, err)
		return failed(scan.ID, err)
	}

	res := ai.Normalize(raw)
	finding := scans.FindingFromResult(res, o.defaultRisk(), o.now())
	o.audit(persistCtx, scan, raw, res)

	if err := o.Scans.SaveFinding(persistCtx, scan.ID, finding); err != nil {
		err = fmt.Errorf("save finding: %w", err)
		log.Error("finding not persisted", logging.Err(err))
		o.recordFailure(persistCtx, scan, scanerrors.PhasePersist, err)
		return failed(scan.ID, err)
	}
	scan.Apply(finding)

	_, structured := res.(ai.Structured)
	log.Info("scan analyzed",
		logging.String("risk_level", string(finding.Risk)),
		logging.Bool("structured", structured),
		logging.Duration("elapsed", time.Since(start)),
	)
	return Outcome{ScanID: scan.ID, Status: StatusAnalyzed, Risk: finding.Risk}
}

// callAnalyzer applies the per-item timeout. A collaborator that ignores ctx
// is abandoned when the deadline passes; its late reply is dropped.
func (o *Orchestrator) callAnalyzer(ctx context.Context, req ai.AnalysisRequest) (string, error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("analyzer panic: %v", r)}
			}
		}()
		raw, err := o.Analyzer.Analyze(ctx, req)
		ch <- reply{raw: raw, err: err}
	}()

	select {
	case r := <-ch:
		return r.raw, r.err
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out after %s: %w", o.Timeout, err)
		}
		return "", err
	}
}

func (o *Orchestrator) audit(ctx context.Context, scan *scans.Scan, raw string, res ai.Result) {
	if o.Audit == nil {
		return
	}
	normalized, _ := json.Marshal(res)
	_, structured := res.(ai.Structured)
	a := &analyst.Analysis{
		ID:         analyst.AnalysisID(uuid.NewString()),
		PatientID:  scan.PatientID,
		ScanID:     string(scan.ID),
		ImageRef:   scan.ImageRef,
		Raw:        raw,
		Result:     string(normalized),
		Structured: structured,
		CreatedAt:  o.now(),
	}
	if err := o.Audit.Save(ctx, a); err != nil {
		o.log().Warn("audit save failed", logging.String("scan_id", string(scan.ID)), logging.Err(err))
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, scan *scans.Scan, phase scanerrors.Phase, cause error) {
	if o.Failures == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{
		"modality":  scan.Modality,
		"image_ref": scan.ImageRef,
		"timeout":   errors.Is(cause, context.DeadlineExceeded),
	})
	e := &scanerrors.ScanError{
		PatientID:   scan.PatientID,
		ScanID:      string(scan.ID),
		Phase:       phase,
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   o.now(),
	}
	if err := o.Failures.Save(ctx, e); err != nil {
		o.log().Warn("failure log save failed", logging.String("scan_id", string(scan.ID)), logging.Err(err))
	}
}

func failed(id scans.ScanID, err error) Outcome {
	return Outcome{ScanID: id, Status: StatusFailed, Reason: err.Error(), Err: err}
}

func (o *Orchestrator) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return defaultConcurrency
}

func (o *Orchestrator) defaultRisk() scans.RiskLevel {
	if o.DefaultRisk.Valid() {
		return o.DefaultRisk
	}
	return scans.DefaultRiskLevel
}

func (o *Orchestrator) now() time.Time {
	if o.Clock == nil {
		return time.Now().UTC()
	}
	return o.Clock.Now()
}

func (o *Orchestrator) log() logging.Logger {
	if o.Log == nil {
		return logging.Default()
	}
	return o.Log
}

func (o *Orchestrator) metrics() Recorder {
	if o.Metrics == nil {
		return nopRecorder{}
	}
	return o.Metrics
}

type nopRecorder struct{}

func (nopRecorder) AnalysisOutcome(string)        {}
func (nopRecorder) AnalyzerLatency(time.Duration) {}
