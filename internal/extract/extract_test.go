package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

type fakeOCR struct {
	imageText string
	pdfText   string
	err       error
	calls     []string
}

func (f *fakeOCR) RecognizeImage(ctx context.Context, data []byte) (string, error) {
	f.calls = append(f.calls, "image")
	if f.err != nil {
		return "", f.err
	}
	return f.imageText, nil
}

func (f *fakeOCR) RecognizePDFPages(ctx context.Context, data []byte) (string, error) {
	f.calls = append(f.calls, "pdf")
	if f.err != nil {
		return "", f.err
	}
	return f.pdfText, nil
}

// buildPDF writes a one-page PDF that draws text with a standard font.
func buildPDF(t *testing.T, text string) []byte {
	t.Helper()
	return buildPDFPages(t, text)
}

// buildPDFPages writes one page per text.
func buildPDFPages(t *testing.T, pages ...string) []byte {
	t.Helper()
	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document part: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write document part: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close docx: %v", err)
	}
	return buf.Bytes()
}

func TestExtractPDFWithEmbeddedText(t *testing.T) {
	line := strings.Repeat("Senior Go engineer with Kubernetes and Postgres experience. ", 3)
	ocr := &fakeOCR{pdfText: "ocr output"}
	ex := New(ocr, DefaultOptions())

	res, err := ex.ExtractBytes(context.Background(), buildPDF(t, line), "cv.pdf", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if !strings.Contains(res.Text, "Kubernetes") {
		t.Fatalf("expected embedded text, got %q", res.Text)
	}
	if len(ocr.calls) != 0 {
		t.Fatalf("expected no OCR calls, got %v", ocr.calls)
	}
}

func TestExtractScannedPDFFallsBackToOCR(t *testing.T) {
	ocr := &fakeOCR{pdfText: "Jane Doe\nPython, 6 years\n"}
	ex := New(ocr, DefaultOptions())

	res, err := ex.ExtractBytes(context.Background(), buildPDF(t, "scan"), "scan.pdf", mimePDF)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !res.Success || res.Text != ocr.pdfText {
		t.Fatalf("expected OCR text, got %+v", res)
	}
	if len(ocr.calls) != 1 || ocr.calls[0] != "pdf" {
		t.Fatalf("expected one pdf OCR call, got %v", ocr.calls)
	}
}

func TestPDFTextCountsPageCharactersOnly(t *testing.T) {
	text, pages, chars, err := pdfText(buildPDFPages(t, "Jane Doe", "Go and SQL", "Kafka"))
	if err != nil {
		t.Fatalf("pdfText: %v", err)
	}
	if pages != 3 {
		t.Fatalf("pages = %d, want 3", pages)
	}
	if want := utf8.RuneCountInString(text) - (pages - 1); chars != want {
		t.Fatalf("chars = %d, want %d (separators excluded)", chars, want)
	}
}

func TestTextDensity(t *testing.T) {
	tests := []struct {
		chars, pages, want int
	}{
		{chars: 14, pages: 3, want: 4},
		{chars: 300, pages: 3, want: 100},
		{chars: 10, pages: 0, want: 0},
	}
	for _, tt := range tests {
		if got := textDensity(tt.chars, tt.pages); got != tt.want {
			t.Fatalf("textDensity(%d, %d) = %d, want %d", tt.chars, tt.pages, got, tt.want)
		}
	}
}

func TestExtractCorruptPDFIsFailedResult(t *testing.T) {
	ex := New(&fakeOCR{}, DefaultOptions())

	res, err := ex.ExtractBytes(context.Background(), []byte("not really a pdf"), "broken.pdf", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(res.Error, "Error: ") {
		t.Fatalf("unexpected error text %q", res.Error)
	}
}

func TestExtractDOCXParagraphs(t *testing.T) {
	body := `<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Go</w:t><w:tab/><w:t xml:space="preserve">SQL</w:t><w:br/><w:t>Kafka</w:t></w:r></w:p>`
	ex := New(nil, DefaultOptions())

	res, err := ex.ExtractBytes(context.Background(), buildDOCX(t, body), "cv.docx", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Jane Doe\nGo\tSQL\nKafka\n"
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}

	withTabStops := `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/><w:tab w:val="right" w:pos="9360"/></w:tabs></w:pPr>` +
		`<w:r><w:t>Jane Doe</w:t><w:tab/><w:t>Berlin</w:t></w:r></w:p>`
	res, err = ex.ExtractBytes(context.Background(), buildDOCX(t, withTabStops), "cv.docx", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if want := "Jane Doe\tBerlin\n"; res.Text != want {
		t.Fatalf("tab stops leaked into text: %q, want %q", res.Text, want)
	}
}

func TestExtractDOCXRejectsOversizedDocumentPart(t *testing.T) {
	body := strings.Repeat(`<w:p><w:r><w:t>padding padding padding</w:t></w:r></w:p>`, 200)
	opts := DefaultOptions()
	opts.MaxDocumentBytes = 1024
	ex := New(nil, opts)

	res, err := ex.ExtractBytes(context.Background(), buildDOCX(t, body), "cv.docx", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if res.Success {
		t.Fatal("expected oversized document part to fail")
	}
	if res.Error != "Error: document.xml exceeds 1024 bytes" {
		t.Fatalf("unexpected error text %q", res.Error)
	}

	opts.MaxDocumentBytes = 64 * 1024
	res, err = New(nil, opts).ExtractBytes(context.Background(), buildDOCX(t, body), "cv.docx", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success under the cap, got %q", res.Error)
	}
}

func TestExtractDOCXSentAsZip(t *testing.T) {
	body := `<w:p><w:r><w:t>Renamed upload</w:t></w:r></w:p>`
	ex := New(nil, DefaultOptions())

	res, err := ex.ExtractBytes(context.Background(), buildDOCX(t, body), "resume", "application/zip")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !res.Success || res.Text != "Renamed upload\n" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExtractDOCXMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	res, err := New(nil, DefaultOptions()).ExtractBytes(context.Background(), buf.Bytes(), "cv.docx", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if res.Success || res.Error != "Error: document.xml file not found" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		data        []byte
		want        string
	}{
		{name: "bom stripped", fileName: "cv.txt", data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...), want: "hello"},
		{name: "markdown", fileName: "cv.md", data: []byte("# Jane"), want: "# Jane"},
		{name: "content type only", fileName: "cv", contentType: "text/plain; charset=utf-8", data: []byte("plain"), want: "plain"},
		{name: "invalid utf8 replaced", fileName: "cv.text", data: []byte{'a', 0xff, 'b'}, want: "a�b"},
	}
	ex := New(nil, DefaultOptions())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, err := ex.ExtractBytes(context.Background(), tt.data, tt.fileName, tt.contentType)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if !res.Success || res.Text != tt.want {
				t.Fatalf("got %+v, want text %q", res, tt.want)
			}
		})
	}
}

func TestExtractImageUsesOCR(t *testing.T) {
	ocr := &fakeOCR{imageText: "scanned words"}
	ex := New(ocr, DefaultOptions())

	res, err := ex.ExtractBytes(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "photo.PNG", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !res.Success || res.Text != "scanned words" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExtractUnsupported(t *testing.T) {
	res, err := New(nil, DefaultOptions()).ExtractBytes(context.Background(), []byte("x"), "sheet.xlsx", "application/octet-stream")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if res.Success || res.Error != "Unsupported file type: sheet.xlsx" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExtractCancellationIsAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ocr := &fakeOCR{err: context.Canceled}

	_, err := New(ocr, DefaultOptions()).ExtractBytes(ctx, []byte("img"), "a.png", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractOCRErrorIsFailedResult(t *testing.T) {
	ocr := &fakeOCR{err: errors.New("engine exploded")}

	res, err := New(ocr, DefaultOptions()).ExtractBytes(context.Background(), []byte("img"), "a.jpg", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if res.Success || res.Error != "Error: engine exploded" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.PDF":  mimePDF,
		"b.docx": mimeDOCX,
		"c.txt":  mimeText,
		"d.png":  "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Fatalf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
