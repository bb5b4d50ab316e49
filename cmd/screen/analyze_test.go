package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJobDescription(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Go engineer\n"), 0o644))

	got, err := jobDescription(path, "")
	require.NoError(t, err)
	require.Equal(t, "Go engineer", got)

	_, err = jobDescription(path, "inline")
	require.Error(t, err)

	_, err = jobDescription("", "   ")
	require.Error(t, err)
}

func TestReadUploads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alice.txt")
	require.NoError(t, os.WriteFile(path, []byte("Alice, Go"), 0o644))

	uploads, err := readUploads([]string{path})
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	require.Equal(t, "alice.txt", uploads[0].FileName)
	require.Equal(t, "Alice, Go", string(uploads[0].Data))
	require.NotEmpty(t, uploads[0].ContentType)

	_, err = readUploads([]string{filepath.Join(dir, "missing.pdf")})
	require.Error(t, err)
}

func TestNonBlank(t *testing.T) {
	require.Equal(t, []string{"a", " b "}, nonBlank([]string{"a", "  ", " b ", ""}))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON("", &buf, map[string]int{"n": 1}))
	require.True(t, strings.HasSuffix(buf.String(), "\n"))
	require.Contains(t, buf.String(), `"n": 1`)

	out := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeJSON(out, &buf, []string{}))
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(raw))
}
