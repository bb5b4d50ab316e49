package analyses

import (
	"time"

	"resume-screener/internal/extract"
)

// JobProfile is the structured form of a job description.
type JobProfile struct {
	Title                  string   `json:"title"`
	RequiredSkills         []string `json:"requiredSkills"`
	PreferredSkills        []string `json:"preferredSkills"`
	MinimumYearsExperience int      `json:"minimumYearsExperience"`
	Summary                string   `json:"summary"`
}

// CandidateProfile is the structured form of one resume. Fields the model
// could not find are nil.
type CandidateProfile struct {
	Name            *string  `json:"name"`
	Email           *string  `json:"email"`
	Skills          []string `json:"skills"`
	YearsExperience *float64 `json:"yearsExperience"`
	Education       []string `json:"education"`
	Certifications  []string `json:"certifications"`
	Summary         *string  `json:"summary"`
}

// MatchVerdict is the model's comparison of a candidate against a job.
type MatchVerdict struct {
	MatchScore      int      `json:"matchScore"`
	MissingSkills   []string `json:"missingSkills"`
	AnalysisSummary string   `json:"analysisSummary"`
}

type MatchLevel string

const (
	LevelStrongYes MatchLevel = "strong_yes"
	LevelYes       MatchLevel = "yes"
	LevelMaybe     MatchLevel = "maybe"
	LevelNo        MatchLevel = "no"
)

// Result is the outcome for one candidate source. A successful result carries
// the candidate and verdict fields; a failed one carries only Error.
type Result struct {
	SourceName      string            `json:"sourceName"`
	Success         bool              `json:"success"`
	Candidate       *CandidateProfile `json:"candidate,omitempty"`
	MatchScore      *int              `json:"matchScore,omitempty"`
	MatchLevel      MatchLevel        `json:"matchLevel,omitempty"`
	MissingSkills   []string          `json:"missingSkills,omitempty"`
	IsRecommended   *bool             `json:"isRecommended,omitempty"`
	AnalysisSummary string            `json:"analysisSummary,omitempty"`
	Error           string            `json:"error,omitempty"`
}

type Summary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Report is the aggregated outcome of one analysis run.
type Report struct {
	Results []Result `json:"results"`
	Meta    Summary  `json:"meta"`
}

// Request is the input to one analysis run.
type Request struct {
	JobDescription string
	Files          []extract.Upload
	Texts          []string
}

// Source is one candidate text ready for parsing.
type Source struct {
	Name string
	Text string
}

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// StoredFile points at an upload saved in the object store.
type StoredFile struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	StorageKey  string `json:"storageKey"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// Screening is a persisted, asynchronously processed analysis run.
type Screening struct {
	ID             string       `json:"id"`
	Status         string       `json:"status"`
	JobDescription string       `json:"-"`
	Texts          []string     `json:"-"`
	Files          []StoredFile `json:"-"`
	Results        []Result     `json:"results,omitempty"`
	Summary        *Summary     `json:"meta,omitempty"`
	ErrorMessage   string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	StartedAt      *time.Time   `json:"startedAt,omitempty"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}
