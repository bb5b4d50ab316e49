package analyses

import (
	"context"
	"encoding/json"
	"fmt"

	"resume-screener/internal/llm"
)

type JobParser interface {
	ParseJob(ctx context.Context, jobDescription string) (JobProfile, error)
}

type ResumeParser interface {
	ParseResume(ctx context.Context, resumeText string) (CandidateProfile, error)
}

type Matcher interface {
	Match(ctx context.Context, job JobProfile, candidate CandidateProfile) (MatchVerdict, error)
}

// ModelParsers implements JobParser, ResumeParser and Matcher on top of one
// structured model client.
type ModelParsers struct {
	Client *llm.Client
}

func (m ModelParsers) ParseJob(ctx context.Context, jobDescription string) (JobProfile, error) {
	return llm.GenerateStructured[JobProfile](ctx, m.Client, llm.Prompt{
		Text:   jobDescription,
		System: jobSystemPrompt,
		Schema: jobProfileSchema,
	})
}

func (m ModelParsers) ParseResume(ctx context.Context, resumeText string) (CandidateProfile, error) {
	return llm.GenerateStructured[CandidateProfile](ctx, m.Client, llm.Prompt{
		Text:   resumeText,
		System: resumeSystemPrompt,
		Schema: candidateProfileSchema,
	})
}

type matchInput struct {
	JobRequirement JobProfile       `json:"JobRequirement"`
	Candidate      CandidateProfile `json:"Candidate"`
}

func (m ModelParsers) Match(ctx context.Context, job JobProfile, candidate CandidateProfile) (MatchVerdict, error) {
	prompt, err := matchPrompt(job, candidate)
	if err != nil {
		return MatchVerdict{}, err
	}
	verdict, err := llm.GenerateStructured[MatchVerdict](ctx, m.Client, llm.Prompt{
		Text:   prompt,
		System: matchSystemPrompt,
		Schema: matchVerdictSchema,
	})
	if err != nil {
		return MatchVerdict{}, err
	}
	verdict.MatchScore = clampScore(verdict.MatchScore)
	return verdict, nil
}

func matchPrompt(job JobProfile, candidate CandidateProfile) (string, error) {
	raw, err := json.Marshal(matchInput{JobRequirement: job, Candidate: candidate})
	if err != nil {
		return "", fmt.Errorf("encode match input: %w", err)
	}
	return string(raw), nil
}
