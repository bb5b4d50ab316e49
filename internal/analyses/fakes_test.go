package analyses

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"resume-screener/internal/archive"
	"resume-screener/internal/extract"
	"resume-screener/internal/queue"
)

type fakeJobs struct {
	err   error
	calls atomic.Int32
}

func (f *fakeJobs) ParseJob(ctx context.Context, jobDescription string) (JobProfile, error) {
	f.calls.Add(1)
	if f.err != nil {
		return JobProfile{}, f.err
	}
	return JobProfile{Title: jobDescription, RequiredSkills: []string{"Go", "Kafka"}}, nil
}

// fakeResumes names each candidate after its trimmed resume text.
type fakeResumes struct {
	fn    func(ctx context.Context, text string) (CandidateProfile, error)
	calls atomic.Int32
}

func (f *fakeResumes) ParseResume(ctx context.Context, text string) (CandidateProfile, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return CandidateProfile{}, err
	}
	name := strings.TrimSpace(text)
	return CandidateProfile{Name: &name, Skills: []string{"Go"}}, nil
}

// scoreMatcher scores candidates by name; unknown names score 50.
type scoreMatcher struct {
	mu     sync.Mutex
	scores map[string]int
	panics map[string]bool
}

func (m *scoreMatcher) Match(ctx context.Context, job JobProfile, candidate CandidateProfile) (MatchVerdict, error) {
	if err := ctx.Err(); err != nil {
		return MatchVerdict{}, err
	}
	name := ""
	if candidate.Name != nil {
		name = *candidate.Name
	}
	m.mu.Lock()
	score, ok := m.scores[name]
	shouldPanic := m.panics[name]
	m.mu.Unlock()
	if shouldPanic {
		panic("matcher exploded")
	}
	if !ok {
		score = 50
	}
	return MatchVerdict{MatchScore: score, MissingSkills: []string{"Kafka"}, AnalysisSummary: "compared " + name}, nil
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *fakeQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, msg.ScreeningID)
	return nil
}

var errModelDown = errors.New("AI model request failed with status 503: overloaded")

func newTestCollector() *extract.Collector {
	return &extract.Collector{
		Extractor: extract.New(nil, extract.DefaultOptions()),
		Archive:   archive.DefaultOptions(),
	}
}

func newTestAnalyzer(jobs JobParser, resumes ResumeParser, matcher Matcher, gate *Gate) *Analyzer {
	return NewAnalyzer(AnalyzerDeps{
		Collector: newTestCollector(),
		Jobs:      jobs,
		Resumes:   resumes,
		Matcher:   matcher,
		Gate:      gate,
	})
}

func resultsByName(results []Result) map[string]Result {
	out := make(map[string]Result, len(results))
	for _, r := range results {
		out[r.SourceName] = r
	}
	return out
}
