package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu        sync.Mutex
	calls     [][]string
	pages     [][]byte
	rasterErr error
	recognize func(ctx context.Context, image []byte) ([]byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	switch name {
	case "pdftoppm":
		if f.rasterErr != nil {
			return nil, f.rasterErr
		}
		prefix := args[len(args)-1]
		for i, p := range f.pages {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i+1), p, 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case "tesseract":
		return f.recognize(ctx, stdin)
	}
	return nil, fmt.Errorf("unexpected command %s", name)
}

func echoText(_ context.Context, image []byte) ([]byte, error) {
	return []byte("text-" + string(image)), nil
}

func blockUntilDone(ctx context.Context, _ []byte) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRecognizeImageBuildsTesseractCommand(t *testing.T) {
	runner := &fakeRunner{recognize: echoText}
	engine := New(Options{Language: "deu", PageSegMode: 6}, runner)

	text, err := engine.RecognizeImage(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Equal(t, "text-img", text)
	require.Len(t, runner.calls, 1)
	require.Equal(t, []string{"tesseract", "stdin", "stdout", "-l", "deu", "--psm", "6"}, runner.calls[0])
}

func TestRecognizeImageOwnTimeoutReturnsMarker(t *testing.T) {
	runner := &fakeRunner{recognize: blockUntilDone}
	engine := New(Options{Timeout: 20 * time.Millisecond}, runner)

	text, err := engine.RecognizeImage(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Equal(t, TimeoutMarker, text)
}

func TestRecognizeImageCallerCancellationPropagates(t *testing.T) {
	runner := &fakeRunner{recognize: blockUntilDone}
	engine := New(Options{Timeout: time.Minute}, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	text, err := engine.RecognizeImage(ctx, []byte("img"))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, text)
}

func TestRecognizeImageFailureYieldsEmptyText(t *testing.T) {
	runner := &fakeRunner{recognize: func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("tesseract: exit status 1")
	}}
	engine := New(Options{}, runner)

	text, err := engine.RecognizeImage(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestRecognizePDFPagesInOrder(t *testing.T) {
	runner := &fakeRunner{
		pages:     [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")},
		recognize: echoText,
	}
	engine := New(Options{DPI: 150}, runner)

	text, err := engine.RecognizePDFPages(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "text-p1\ntext-p2\ntext-p3\n", text)

	raster := runner.calls[0]
	require.Equal(t, "pdftoppm", raster[0])
	require.Equal(t, []string{"-r", "150", "-png"}, raster[1:4])
}

func TestRecognizePDFPagesTimeoutKeepsPartialText(t *testing.T) {
	runner := &fakeRunner{
		pages: [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")},
		recognize: func(ctx context.Context, image []byte) ([]byte, error) {
			if string(image) == "p2" {
				return blockUntilDone(ctx, image)
			}
			return echoText(ctx, image)
		},
	}
	engine := New(Options{Timeout: 50 * time.Millisecond}, runner)

	text, err := engine.RecognizePDFPages(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "text-p1\n"+TimeoutMarker+"\n", text)
}

func TestRecognizePDFPagesRasterFailure(t *testing.T) {
	runner := &fakeRunner{rasterErr: errors.New("pdftoppm: not found"), recognize: echoText}
	engine := New(Options{}, runner)

	text, err := engine.RecognizePDFPages(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestRecognizePDFPagesCallerCancellation(t *testing.T) {
	runner := &fakeRunner{pages: [][]byte{[]byte("p1")}, recognize: blockUntilDone}
	engine := New(Options{Timeout: time.Minute}, runner)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := engine.RecognizePDFPages(ctx, []byte("%PDF-1.4"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
