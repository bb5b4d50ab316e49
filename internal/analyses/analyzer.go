package analyses

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"resume-screener/internal/extract"
	"resume-screener/internal/shared/metrics"
	"resume-screener/internal/shared/telemetry"
)

const cancelledMessage = "Operation was cancelled or timed out."

type AnalyzerDeps struct {
	Collector *extract.Collector
	Jobs      JobParser
	Resumes   ResumeParser
	Matcher   Matcher
	// Gate is shared by every run of this Analyzer. Nil gets a gate of 3.
	Gate       *Gate
	Thresholds Thresholds
	// MaxTotalCandidates rejects a run with more sources than this. 0 disables the check.
	MaxTotalCandidates int
}

// Analyzer turns uploads and pasted texts into scored candidate results.
type Analyzer struct {
	collector     *extract.Collector
	jobs          JobParser
	resumes       ResumeParser
	matcher       Matcher
	gate          *Gate
	thresholds    Thresholds
	maxCandidates int
}

func NewAnalyzer(deps AnalyzerDeps) *Analyzer {
	gate := deps.Gate
	if gate == nil {
		gate = NewGate(3)
	}
	thresholds := deps.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	return &Analyzer{
		collector:     deps.Collector,
		jobs:          deps.Jobs,
		resumes:       deps.Resumes,
		matcher:       deps.Matcher,
		gate:          gate,
		thresholds:    thresholds,
		maxCandidates: deps.MaxTotalCandidates,
	}
}

// Extract returns one item per file, archive member and pasted text.
func (a *Analyzer) Extract(ctx context.Context, files []extract.Upload, texts []string) ([]extract.Item, error) {
	var items []extract.Item
	if len(files) > 0 {
		if a.collector == nil {
			return nil, errors.New("analyzer has no file collector")
		}
		fileItems, err := a.collector.CollectFiles(ctx, files)
		if err != nil {
			return nil, err
		}
		items = append(items, fileItems...)
	}
	items = append(items, extract.TextItems(texts)...)
	return items, nil
}

// CollectSources keeps the successful, non-empty extraction items.
func (a *Analyzer) CollectSources(ctx context.Context, files []extract.Upload, texts []string) ([]Source, error) {
	items, err := a.Extract(ctx, files, texts)
	if err != nil {
		return nil, err
	}
	sources := make([]Source, 0, len(items))
	for _, it := range items {
		if !it.Success || it.Text == "" {
			continue
		}
		sources = append(sources, Source{Name: it.SourceName, Text: it.Text})
	}
	if a.maxCandidates > 0 && len(sources) > a.maxCandidates {
		return nil, fmt.Errorf("%w: %d sources, limit %d", ErrTooManyCandidates, len(sources), a.maxCandidates)
	}
	return sources, nil
}

// Analyze runs the whole pipeline. Per-candidate failures are reported in the
// results; the error return is for request-level rejections and for
// cancellation before any candidate work started.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Report, error) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysisDuration(time.Since(start).Seconds()) }()
	requestID := requestIDFromContext(ctx)

	sources, err := a.CollectSources(ctx, req.Files, req.Texts)
	if err != nil {
		metrics.IncAnalysisRun("rejected")
		return Report{}, err
	}
	if len(sources) == 0 {
		metrics.IncAnalysisRun("empty")
		return Report{Results: []Result{}}, nil
	}

	job, err := a.jobs.ParseJob(ctx, req.JobDescription)
	if err != nil {
		metrics.IncAnalysisRun("job_parse_failed")
		telemetry.Error("analysis.job_parse_failed", map[string]any{
			"request_id": requestID,
			"sources":    len(sources),
			"error":      err,
		})
		return Report{Results: []Result{}, Meta: Summary{Processed: 0, Failed: len(sources)}}, nil
	}

	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(sources))
		g       errgroup.Group
	)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			res := a.runCandidate(ctx, job, src)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results}
	for _, r := range results {
		if r.Success {
			report.Meta.Processed++
		} else {
			report.Meta.Failed++
		}
	}
	metrics.IncAnalysisRun("completed")
	telemetry.Info("analysis.complete", map[string]any{
		"request_id":  requestID,
		"processed":   report.Meta.Processed,
		"failed":      report.Meta.Failed,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return report, nil
}

func (a *Analyzer) runCandidate(ctx context.Context, job JobProfile, src Source) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = a.failed(ctx, src, fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := a.gate.Acquire(ctx); err != nil {
		return a.failed(ctx, src, err)
	}
	defer a.gate.Release()

	candidate, err := a.resumes.ParseResume(ctx, src.Text)
	if err != nil {
		return a.failed(ctx, src, err)
	}
	verdict, err := a.matcher.Match(ctx, job, candidate)
	if err != nil {
		return a.failed(ctx, src, err)
	}

	score := clampScore(verdict.MatchScore)
	level, recommended := a.thresholds.Classify(score)
	metrics.IncCandidate("ok")
	return Result{
		SourceName:      src.Name,
		Success:         true,
		Candidate:       &candidate,
		MatchScore:      &score,
		MatchLevel:      level,
		MissingSkills:   verdict.MissingSkills,
		IsRecommended:   &recommended,
		AnalysisSummary: verdict.AnalysisSummary,
	}
}

func (a *Analyzer) failed(ctx context.Context, src Source, err error) Result {
	msg := err.Error()
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = cancelledMessage
		metrics.IncCandidate("cancelled")
	} else {
		metrics.IncCandidate("failed")
	}
	telemetry.Warn("analysis.candidate_failed", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"source":     src.Name,
		"error":      err,
	})
	return Result{SourceName: src.Name, Success: false, Error: msg}
}
