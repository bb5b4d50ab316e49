package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"resume-screener/internal/shared/metrics"
	"resume-screener/internal/shared/telemetry"
)

// extractPDF returns the embedded text, or OCR output when the text is too
// sparse for the page count to be anything but a scan.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	text, pages, chars, err := pdfText(data)
	if err != nil {
		return "", err
	}
	if pages == 0 {
		return text, nil
	}

	density := textDensity(chars, pages)
	if density >= e.opts.ScannedDensityThreshold {
		return text, nil
	}
	if e.ocr == nil {
		telemetry.Warn("extract.pdf_scanned_no_ocr", map[string]any{"pages": pages, "density": density})
		return text, nil
	}

	telemetry.Info("extract.pdf_ocr_fallback", map[string]any{
		"pages":     pages,
		"density":   density,
		"threshold": e.opts.ScannedDensityThreshold,
	})
	metrics.IncExtraction("pdf_ocr", "attempt")
	return e.ocr.RecognizePDFPages(ctx, data)
}

// textDensity is the average number of characters per page.
func textDensity(chars, pages int) int {
	if pages <= 0 {
		return 0
	}
	return chars / pages
}

// pdfText joins the plain text of every page with newlines and counts the
// page characters, separators excluded. A page that fails to decode
// contributes an empty string.
func pdfText(data []byte) (string, int, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, 0, err
	}

	n := r.NumPage()
	chars := 0
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			parts = append(parts, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		chars += utf8.RuneCountInString(text)
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), n, chars, nil
}
