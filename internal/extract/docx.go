package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// extractDOCX returns the paragraph text of word/document.xml. The part is
// decompressed at most maxPart bytes; 0 leaves it unbounded.
func extractDOCX(data []byte, maxPart int64) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if maxPart <= 0 {
		return paragraphText(rc)
	}
	lr := &cappedReader{r: rc, limit: maxPart}
	text, err := paragraphText(lr)
	if lr.exceeded {
		return "", fmt.Errorf("document.xml exceeds %d bytes", maxPart)
	}
	return text, err
}

var errPartTooLarge = errors.New("document part too large")

// cappedReader fails once more than limit bytes have been read.
type cappedReader struct {
	r        io.Reader
	limit    int64
	read     int64
	exceeded bool
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.exceeded {
		return 0, errPartTooLarge
	}
	if remaining := c.limit + 1 - c.read; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.limit {
		c.exceeded = true
		return 0, errPartTooLarge
	}
	return n, err
}

// paragraphText collects w:t runs, turning w:tab into a tab and w:br into a
// newline. Every paragraph ends with a newline. Tab stops declared in
// paragraph properties are layout, not text.
func paragraphText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var buf strings.Builder
	inText := false
	runDepth, tabStopDepth := 0, 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "r":
				runDepth++
			case "tabs":
				tabStopDepth++
			case "tab":
				if runDepth > 0 && tabStopDepth == 0 {
					buf.WriteString("\t")
				}
			case "br", "cr":
				buf.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				runDepth--
			case "tabs":
				tabStopDepth--
			case "p":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return buf.String(), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText reads data as UTF-8, dropping a leading BOM and replacing
// invalid sequences with U+FFFD.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
