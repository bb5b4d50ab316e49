package extract

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
)

// ContentTypeFor guesses a MIME type from a file name. Archive entries carry
// no content type of their own.
func ContentTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	case ".txt":
		return mimeText
	default:
		return "application/octet-stream"
	}
}

// normalizeContentType lowercases the MIME type and drops parameters. Browsers
// often send a .docx as application/zip, so OOXML packages are recognised by
// their parts.
func normalizeContentType(contentType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if clean != "application/zip" && clean != "application/x-zip-compressed" {
		return clean
	}
	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}
	if hasExt(fileName, ".docx") {
		return mimeDOCX
	}
	return clean
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return mimeDOCX
		}
	}
	return ""
}
