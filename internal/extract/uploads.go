package extract

import (
	"context"
	"fmt"
	"unicode/utf8"

	"resume-screener/internal/archive"
)

const (
	SourceFile     = "file"
	SourceZipEntry = "zip-entry"
	SourceZipError = "zip-error"
	SourceZip      = "zip"
	SourceText     = "text"
)

// Upload is one submitted file held in memory.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Item is the extraction outcome for one source.
type Item struct {
	SourceType string `json:"sourceType"`
	SourceName string `json:"sourceName"`
	Success    bool   `json:"success"`
	Text       string `json:"extractedText,omitempty"`
	Error      string `json:"error,omitempty"`
	Chars      int    `json:"length"`
}

type Meta struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Collector expands archives and extracts every upload into Items.
type Collector struct {
	Extractor     *Extractor
	Archive       archive.Options
	MaxTextLength int
}

// CollectFiles returns items in upload order; archive members follow the
// order of the expansion. Only cancellation of ctx is returned as an error.
func (c *Collector) CollectFiles(ctx context.Context, uploads []Upload) ([]Item, error) {
	var items []Item
	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if archive.IsArchive(up.FileName) {
			zipItems, err := c.collectArchive(ctx, up)
			if err != nil {
				return nil, err
			}
			items = append(items, zipItems...)
			continue
		}

		res, err := c.Extractor.ExtractBytes(ctx, up.Data, up.FileName, up.ContentType)
		if err != nil {
			return nil, err
		}
		items = append(items, c.item(SourceFile, up.FileName, res))
	}
	return items, nil
}

func (c *Collector) collectArchive(ctx context.Context, up Upload) ([]Item, error) {
	expanded, err := archive.ExpandBytes(ctx, up.Data, up.FileName, c.Archive)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(expanded.Items)+len(expanded.Errors))
	for _, entry := range expanded.Items {
		res, err := c.Extractor.ExtractBytes(ctx, entry.Data, entry.Name, ContentTypeFor(entry.Name))
		if err != nil {
			return nil, err
		}
		items = append(items, c.item(SourceZipEntry, entry.Path, res))
	}
	for _, zerr := range expanded.Errors {
		items = append(items, Item{
			SourceType: SourceZipError,
			SourceName: zerr.Path,
			Success:    false,
			Error:      zerr.Message,
		})
	}
	if len(expanded.Items) == 0 && len(expanded.Errors) == 0 {
		items = append(items, Item{
			SourceType: SourceZip,
			SourceName: up.FileName,
			Success:    false,
			Error:      "No valid entries found in zip file.",
		})
	}
	return items, nil
}

func (c *Collector) item(sourceType, name string, res Result) Item {
	text := truncateRunes(res.Text, c.MaxTextLength)
	return Item{
		SourceType: sourceType,
		SourceName: name,
		Success:    res.Success,
		Text:       text,
		Error:      res.Error,
		Chars:      utf8.RuneCountInString(text),
	}
}

// TextItems wraps pasted resume texts as successful items.
func TextItems(texts []string) []Item {
	items := make([]Item, 0, len(texts))
	for i, t := range texts {
		items = append(items, Item{
			SourceType: SourceText,
			SourceName: fmt.Sprintf("textInput[%d]", i),
			Success:    true,
			Text:       t,
			Chars:      utf8.RuneCountInString(t),
		})
	}
	return items
}

func Summarize(items []Item) Meta {
	meta := Meta{Total: len(items)}
	for _, it := range items {
		if it.Success {
			meta.Success++
		} else {
			meta.Failed++
		}
	}
	return meta
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
