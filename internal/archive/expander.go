// Package archive expands nested zip containers into leaf payloads under
// depth, count, size and path-safety limits.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"resume-screener/internal/shared/metrics"
	"resume-screener/internal/shared/telemetry"
)

const archiveExt = ".zip"

// Options bounds a single expansion. Every limit is enforced on its own.
type Options struct {
	MaxItems      int
	MaxDepth      int
	MaxEntryBytes int64
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		MaxItems:      10,
		MaxDepth:      5,
		MaxEntryBytes: 10 * 1024 * 1024,
	}
}

// Item is a leaf entry. Path is the colon-joined label through every
// enclosing container, e.g. "outer.zip:b.zip:c.pdf".
type Item struct {
	Path string
	Name string
	Data []byte
}

// Error records a container or entry that could not be read.
type Error struct {
	Path    string
	Message string
}

// Result is the outcome of one expansion.
type Result struct {
	Items  []Item
	Errors []Error
}

// frame is an open container and the index of its next entry. Only the
// frames on the current path are live, so at most MaxDepth nested buffers
// are held at once.
type frame struct {
	zr    *zip.Reader
	label string
	depth int
	size  int64
	next  int
}

type expansion struct {
	opts Options
	res  Result
	// live and peak track decompressed nested container bytes held by open frames.
	live int64
	peak int64
}

// IsArchive reports whether name looks like a zip container.
func IsArchive(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), archiveExt)
}

// Expand reads r fully and expands it. See ExpandBytes.
func Expand(ctx context.Context, r io.Reader, label string, opts Options) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{Errors: []Error{{Path: label, Message: fmt.Sprintf("failed to read zip archive: %v", err)}}}, nil
	}
	return ExpandBytes(ctx, data, label, opts)
}

// ExpandBytes walks data and every nested container it holds, depth first
// in archive order. Limit violations and unsafe paths are skipped silently;
// unreadable containers and entries are reported in Result.Errors. Only
// cancellation returns an error.
func ExpandBytes(ctx context.Context, data []byte, label string, opts Options) (Result, error) {
	e := &expansion{opts: opts}
	err := e.run(ctx, data, label)
	return e.res, err
}

func (e *expansion) run(ctx context.Context, data []byte, label string) error {
	root, ok := e.open(data, label, 0)
	if !ok {
		return nil
	}
	// The upload itself is not a nested buffer.
	root.size, e.live, e.peak = 0, 0, 0
	stack := []*frame{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(e.res.Items) >= e.opts.MaxItems {
			telemetry.Debug("archive.max_items", map[string]any{"label": label, "max_items": e.opts.MaxItems})
			return nil
		}

		cur := stack[len(stack)-1]
		if cur.next >= len(cur.zr.File) {
			stack = stack[:len(stack)-1]
			e.live -= cur.size
			continue
		}
		f := cur.zr.File[cur.next]
		cur.next++

		if child := e.entry(cur, f); child != nil {
			stack = append(stack, child)
		}
	}
	return nil
}

// entry handles one zip entry and returns the frame to descend into when the
// entry is a readable nested container.
func (e *expansion) entry(cur *frame, f *zip.File) *frame {
	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return nil
	}
	entryPath, ok := safeEntryPath(f.Name)
	if !ok {
		metrics.IncArchiveSkipped("unsafe_path")
		return nil
	}
	if f.UncompressedSize64 == 0 {
		metrics.IncArchiveSkipped("empty")
		return nil
	}
	if e.opts.MaxEntryBytes > 0 && f.UncompressedSize64 > uint64(e.opts.MaxEntryBytes) {
		metrics.IncArchiveSkipped("too_large")
		return nil
	}

	labelPath := cur.label + ":" + entryPath
	nested := IsArchive(entryPath)
	if nested && cur.depth+1 > e.opts.MaxDepth {
		metrics.IncArchiveSkipped("depth")
		telemetry.Debug("archive.max_depth", map[string]any{"label": labelPath, "depth": cur.depth + 1})
		return nil
	}

	data, tooLarge, err := readEntry(f, e.opts.MaxEntryBytes)
	if err != nil {
		e.res.Errors = append(e.res.Errors, Error{
			Path:    labelPath,
			Message: fmt.Sprintf("failed to read zip entry: %v", err),
		})
		return nil
	}
	if tooLarge {
		metrics.IncArchiveSkipped("too_large")
		return nil
	}
	if len(data) == 0 {
		metrics.IncArchiveSkipped("empty")
		return nil
	}

	if nested {
		child, ok := e.open(data, labelPath, cur.depth+1)
		if !ok {
			return nil
		}
		return child
	}

	e.res.Items = append(e.res.Items, Item{
		Path: labelPath,
		Name: path.Base(entryPath),
		Data: data,
	})
	return nil
}

func (e *expansion) open(data []byte, label string, depth int) (*frame, bool) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		// Unsafe names are filtered per entry.
		err = nil
	}
	if err != nil {
		e.res.Errors = append(e.res.Errors, Error{
			Path:    label,
			Message: fmt.Sprintf("failed to open zip archive: %v", err),
		})
		return nil, false
	}
	size := int64(len(data))
	e.live += size
	if e.live > e.peak {
		e.peak = e.live
	}
	return &frame{zr: zr, label: label, depth: depth, size: size}, true
}

// readEntry reads at most limit bytes. The declared size in the central
// directory is untrusted, so the read itself is capped.
func readEntry(f *zip.File, limit int64) ([]byte, bool, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()

	if limit <= 0 {
		data, err := io.ReadAll(rc)
		return data, false, err
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return nil, true, nil
	}
	return data, false, nil
}

// safeEntryPath normalizes separators and rejects absolute or traversing paths.
func safeEntryPath(name string) (string, bool) {
	p := strings.ReplaceAll(name, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", false
	}
	if len(p) >= 2 && p[1] == ':' {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return p, true
}
