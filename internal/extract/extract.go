package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"resume-screener/internal/shared/metrics"
	"resume-screener/internal/shared/telemetry"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// Result is the outcome of extracting one document. Failures are data, not errors.
type Result struct {
	Success bool
	Text    string
	Error   string
}

// OCR recognizes text in raster content.
type OCR interface {
	RecognizeImage(ctx context.Context, data []byte) (string, error)
	RecognizePDFPages(ctx context.Context, data []byte) (string, error)
}

type Options struct {
	// ScannedDensityThreshold is the average characters per page below which a
	// PDF is treated as scanned and sent to OCR.
	ScannedDensityThreshold int
	// MaxDocumentBytes caps the decompressed size of a DOCX body part.
	MaxDocumentBytes int64
}

func DefaultOptions() Options {
	return Options{ScannedDensityThreshold: 100, MaxDocumentBytes: 10 * 1024 * 1024}
}

type format struct {
	name    string
	match   func(fileName, contentType string) bool
	extract func(e *Extractor, ctx context.Context, data []byte) (string, error)
}

// formats is checked in order; the first match wins.
var formats = []format{
	{name: "pdf", match: isPDF, extract: (*Extractor).extractPDF},
	{name: "docx", match: isDOCX, extract: func(e *Extractor, _ context.Context, data []byte) (string, error) {
		return extractDOCX(data, e.opts.MaxDocumentBytes)
	}},
	{name: "text", match: isText, extract: func(_ *Extractor, _ context.Context, data []byte) (string, error) {
		return decodeText(data), nil
	}},
	{name: "image", match: isImage, extract: (*Extractor).extractImage},
}

// Extractor turns uploaded documents into plain text.
type Extractor struct {
	ocr  OCR
	opts Options
}

func New(ocr OCR, opts Options) *Extractor {
	if opts.ScannedDensityThreshold <= 0 {
		opts.ScannedDensityThreshold = DefaultOptions().ScannedDensityThreshold
	}
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = DefaultOptions().MaxDocumentBytes
	}
	return &Extractor{ocr: ocr, opts: opts}
}

// Extract reads r fully and extracts it. See ExtractBytes.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, fileName, contentType string) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{Success: false, Error: "Error: " + err.Error()}, nil
	}
	return e.ExtractBytes(ctx, data, fileName, contentType)
}

// ExtractBytes picks a format by file name or content type and returns its
// text. Parser failures come back as an unsuccessful Result. The error return
// is reserved for cancellation of ctx.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte, fileName, contentType string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	contentType = normalizeContentType(contentType, fileName, data)
	for _, f := range formats {
		if !f.match(fileName, contentType) {
			continue
		}
		text, err := e.run(ctx, f, data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			metrics.IncExtraction(f.name, "error")
			telemetry.Warn("extract.failed", map[string]any{"file": fileName, "format": f.name, "error": err})
			return Result{Success: false, Error: "Error: " + err.Error()}, nil
		}
		metrics.IncExtraction(f.name, "ok")
		return Result{Success: true, Text: text}, nil
	}

	metrics.IncExtraction("unsupported", "error")
	return Result{Success: false, Error: "Unsupported file type: " + fileName}, nil
}

func (e *Extractor) run(ctx context.Context, f format, data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s parser panic: %v", f.name, rec)
		}
	}()
	return f.extract(e, ctx, data)
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, error) {
	if e.ocr == nil {
		return "", errors.New("ocr engine not configured")
	}
	return e.ocr.RecognizeImage(ctx, data)
}

func isPDF(fileName, contentType string) bool {
	return hasExt(fileName, ".pdf") || contentType == mimePDF
}

func isDOCX(fileName, contentType string) bool {
	return hasExt(fileName, ".docx") || contentType == mimeDOCX
}

func isText(fileName, contentType string) bool {
	return hasExt(fileName, ".txt", ".text", ".md", ".markdown") || strings.HasPrefix(contentType, "text/")
}

func isImage(fileName, contentType string) bool {
	return hasExt(fileName, ".png", ".jpg", ".jpeg", ".tiff", ".bmp") || strings.HasPrefix(contentType, "image/")
}

func hasExt(fileName string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
