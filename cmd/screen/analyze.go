package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"resume-screener/internal/analyses"
	"resume-screener/internal/bootstrap"
	"resume-screener/internal/extract"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume files...]",
	Short: "Score resume files and texts against a job description",
	RunE:  runAnalyze,
}

var (
	analyzeJobFile   string
	analyzeJobText   string
	analyzeTexts     []string
	analyzeOutFile   string
	analyzeSortScore bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeJobFile, "job", "j", "", "Path to the job description text file")
	analyzeCmd.Flags().StringVar(&analyzeJobText, "job-text", "", "Job description text (instead of --job)")
	analyzeCmd.Flags().StringArrayVarP(&analyzeTexts, "text", "t", nil, "Pasted resume text; repeat for several candidates")
	analyzeCmd.Flags().StringVarP(&analyzeOutFile, "out", "o", "", "Write the report to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeSortScore, "sort-score", false, "Order results by score, best first")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	job, err := jobDescription(analyzeJobFile, analyzeJobText)
	if err != nil {
		return err
	}
	uploads, err := readUploads(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GlobalTimeout())
	defer cancel()

	analyzer, err := bootstrap.BuildAnalyzer(cfg)
	if err != nil {
		return err
	}
	report, err := analyzer.Analyze(ctx, analyses.Request{
		JobDescription: job,
		Files:          uploads,
		Texts:          nonBlank(analyzeTexts),
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if analyzeSortScore {
		report.Results = analyses.SortByScore(report.Results)
	}
	return writeJSON(analyzeOutFile, cmd.OutOrStdout(), report)
}

func jobDescription(path, text string) (string, error) {
	if path != "" && text != "" {
		return "", fmt.Errorf("use either --job or --job-text, not both")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read job description: %w", err)
		}
		text = string(raw)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("a job description is required (--job or --job-text)")
	}
	return text, nil
}

func readUploads(paths []string) ([]extract.Upload, error) {
	uploads := make([]extract.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		name := filepath.Base(p)
		uploads = append(uploads, extract.Upload{
			FileName:    name,
			ContentType: extract.ContentTypeFor(name),
			Data:        data,
		})
	}
	return uploads, nil
}

func nonBlank(texts []string) []string {
	var out []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

func writeJSON(path string, stdout io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	out = append(out, '\n')
	if path == "" {
		_, err = stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
