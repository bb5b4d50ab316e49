package analyses

import (
	_ "embed"
	"strings"

	"resume-screener/internal/llm"
)

var (
	//go:embed prompts/job_system.txt
	jobSystemPromptRaw string
	//go:embed prompts/resume_system.txt
	resumeSystemPromptRaw string
	//go:embed prompts/match_system.txt
	matchSystemPromptRaw string

	//go:embed schemas/job_profile.json
	jobProfileSchemaSrc string
	//go:embed schemas/candidate_profile.json
	candidateProfileSchemaSrc string
	//go:embed schemas/match_verdict.json
	matchVerdictSchemaSrc string
)

var (
	jobSystemPrompt    = strings.TrimSpace(jobSystemPromptRaw)
	resumeSystemPrompt = strings.TrimSpace(resumeSystemPromptRaw)
	matchSystemPrompt  = strings.TrimSpace(matchSystemPromptRaw)

	jobProfileSchema       = llm.MustSchema(jobProfileSchemaSrc)
	candidateProfileSchema = llm.MustSchema(candidateProfileSchemaSrc)
	matchVerdictSchema     = llm.MustSchema(matchVerdictSchemaSrc)
)
