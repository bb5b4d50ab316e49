// Package ocr recognizes text in images and scanned PDFs with the tesseract
// and pdftoppm command-line tools. Every call spawns its own processes, so an
// Engine is safe for concurrent use.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"resume-screener/internal/shared/metrics"
	"resume-screener/internal/shared/telemetry"
)

// TimeoutMarker replaces or terminates text when OCR ran out of time.
const TimeoutMarker = "[OCR Timeout]"

type Options struct {
	Timeout       time.Duration
	Language      string
	TesseractPath string
	PdftoppmPath  string
	DPI           int
	PageSegMode   int
}

func DefaultOptions() Options {
	return Options{
		Timeout:       30 * time.Second,
		Language:      "eng",
		TesseractPath: "tesseract",
		PdftoppmPath:  "pdftoppm",
		DPI:           300,
		PageSegMode:   3,
	}
}

type Engine struct {
	opts   Options
	runner Runner
}

// New fills zero options from DefaultOptions. A nil runner uses ExecRunner.
func New(opts Options, runner Runner) *Engine {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Language == "" {
		opts.Language = def.Language
	}
	if opts.TesseractPath == "" {
		opts.TesseractPath = def.TesseractPath
	}
	if opts.PdftoppmPath == "" {
		opts.PdftoppmPath = def.PdftoppmPath
	}
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.PageSegMode <= 0 {
		opts.PageSegMode = def.PageSegMode
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Engine{opts: opts, runner: runner}
}

// RecognizeImage returns the text found in an encoded image. It returns
// TimeoutMarker when its own timeout fires and "" on any other OCR failure.
// Only cancellation of ctx is reported as an error.
func (e *Engine) RecognizeImage(ctx context.Context, data []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	text, err := e.tesseract(callCtx, data)
	if err == nil {
		metrics.IncOCR("image", "ok")
		return text, nil
	}
	if ctx.Err() != nil {
		metrics.IncOCR("image", "cancelled")
		return "", ctx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		metrics.IncOCR("image", "timeout")
		telemetry.Warn("ocr.timeout", map[string]any{"kind": "image", "timeout_seconds": e.opts.Timeout.Seconds()})
		return TimeoutMarker, nil
	}
	metrics.IncOCR("image", "error")
	telemetry.Error("ocr.failed", map[string]any{"kind": "image", "error": err})
	return "", nil
}

// RecognizePDFPages rasterizes every page and OCRs them in order. The text of
// each page is followed by a newline. When the call times out, the text read
// so far is returned with TimeoutMarker appended.
func (e *Engine) RecognizePDFPages(ctx context.Context, data []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	var sb strings.Builder
	err := e.eachPage(callCtx, data, func(page []byte) error {
		text, err := e.RecognizeImage(callCtx, page)
		if err != nil {
			return err
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		return nil
	})
	if err == nil {
		metrics.IncOCR("pdf", "ok")
		return sb.String(), nil
	}
	if ctx.Err() != nil {
		metrics.IncOCR("pdf", "cancelled")
		return "", ctx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		metrics.IncOCR("pdf", "timeout")
		telemetry.Warn("ocr.timeout", map[string]any{"kind": "pdf", "timeout_seconds": e.opts.Timeout.Seconds()})
		sb.WriteString(TimeoutMarker)
		sb.WriteString("\n")
		return sb.String(), nil
	}
	metrics.IncOCR("pdf", "error")
	telemetry.Error("ocr.failed", map[string]any{"kind": "pdf", "error": err})
	return sb.String(), nil
}

func (e *Engine) tesseract(ctx context.Context, image []byte) (string, error) {
	args := []string{
		"stdin", "stdout",
		"-l", e.opts.Language,
		"--psm", strconv.Itoa(e.opts.PageSegMode),
	}
	out, err := e.runner.Run(ctx, e.opts.TesseractPath, args, image)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// eachPage renders the PDF into a private temp dir and feeds the page images
// to fn in page order.
func (e *Engine) eachPage(ctx context.Context, pdf []byte, fn func(page []byte) error) error {
	dir, err := os.MkdirTemp("", "resume-ocr-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(e.opts.DPI), "-png", input, prefix}
	if _, err := e.runner.Run(ctx, e.opts.PdftoppmPath, args, nil); err != nil {
		return fmt.Errorf("rasterize pdf: %w", err)
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	// pdftoppm zero-pads page numbers to a common width.
	sort.Strings(pages)

	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read page %d: %w", i+1, err)
		}
		telemetry.Debug("ocr.page", map[string]any{"page": i + 1, "pages": len(pages)})
		if err := fn(img); err != nil {
			return err
		}
	}
	return nil
}
