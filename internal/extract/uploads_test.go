package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"resume-screener/internal/archive"
)

func zipOf(t *testing.T, files map[string][]byte, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func newCollector() *Collector {
	return &Collector{
		Extractor: New(&fakeOCR{imageText: "ocr"}, DefaultOptions()),
		Archive:   archive.DefaultOptions(),
	}
}

func TestCollectFilesMixedUploads(t *testing.T) {
	inner := zipOf(t, map[string][]byte{"c.txt": []byte("inner resume")}, "c.txt")
	outer := zipOf(t, map[string][]byte{
		"a.txt":  []byte("outer resume"),
		"b.zip":  inner,
		"x.xlsx": []byte("sheet"),
	}, "a.txt", "b.zip", "x.xlsx")

	uploads := []Upload{
		{FileName: "plain.txt", ContentType: "text/plain", Data: []byte("Jane Doe")},
		{FileName: "bundle.zip", ContentType: "application/zip", Data: outer},
	}
	items, err := newCollector().CollectFiles(context.Background(), uploads)
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}

	want := []struct {
		sourceType string
		name       string
		success    bool
	}{
		{SourceFile, "plain.txt", true},
		{SourceZipEntry, "bundle.zip:a.txt", true},
		{SourceZipEntry, "bundle.zip:x.xlsx", false},
		{SourceZipEntry, "bundle.zip:b.zip:c.txt", true},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d: %+v", len(want), len(items), items)
	}
	for i, w := range want {
		got := items[i]
		if got.SourceType != w.sourceType || got.SourceName != w.name || got.Success != w.success {
			t.Fatalf("item %d = %+v, want %+v", i, got, w)
		}
	}
	if items[0].Chars != len("Jane Doe") {
		t.Fatalf("expected char count %d, got %d", len("Jane Doe"), items[0].Chars)
	}
	if items[2].Error != "Unsupported file type: x.xlsx" {
		t.Fatalf("unexpected error %q", items[2].Error)
	}
}

func TestCollectFilesEmptyAndCorruptZip(t *testing.T) {
	empty := zipOf(t, map[string][]byte{})
	uploads := []Upload{
		{FileName: "empty.zip", Data: empty},
		{FileName: "corrupt.zip", Data: []byte("nope")},
	}
	items, err := newCollector().CollectFiles(context.Background(), uploads)
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].SourceType != SourceZip || items[0].Error != "No valid entries found in zip file." {
		t.Fatalf("unexpected empty zip item %+v", items[0])
	}
	if items[1].SourceType != SourceZipError || items[1].SourceName != "corrupt.zip" || items[1].Success {
		t.Fatalf("unexpected corrupt zip item %+v", items[1])
	}

	meta := Summarize(items)
	if meta.Total != 2 || meta.Success != 0 || meta.Failed != 2 {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestCollectFilesTruncatesText(t *testing.T) {
	c := newCollector()
	c.MaxTextLength = 4
	items, err := c.CollectFiles(context.Background(), []Upload{{FileName: "a.txt", Data: []byte("Zoë Smith")}})
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if items[0].Text != "Zoë " || items[0].Chars != 4 {
		t.Fatalf("unexpected truncation %+v", items[0])
	}
}

func TestTextItems(t *testing.T) {
	items := TextItems([]string{"first", ""})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].SourceName != "textInput[1]" || items[1].SourceType != SourceText || !items[1].Success {
		t.Fatalf("unexpected item %+v", items[1])
	}
}
