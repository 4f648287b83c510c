package report

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aurorai/internal/domain/entity"
	"aurorai/internal/infrastructure/knowledge"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// fakeResolver отдаёт ассеты с заданной задержкой и следит за параллельностью вызовов.
type fakeResolver struct {
	t      *testing.T
	delays map[string]time.Duration
	fail   map[string]error

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeResolver(t *testing.T) *fakeResolver {
	return &fakeResolver{t: t, delays: map[string]time.Duration{}, fail: map[string]error{}}
}

func (f *fakeResolver) Resolve(ctx context.Context, locator string) (entity.Asset, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	if n > f.maxSeen.Load() {
		f.maxSeen.Store(n)
	}

	f.mu.Lock()
	f.calls = append(f.calls, locator)
	f.mu.Unlock()

	select {
	case <-time.After(f.delays[locator]):
	case <-ctx.Done():
		return entity.Asset{}, ctx.Err()
	}

	if err := f.fail[locator]; err != nil {
		return entity.Asset{}, err
	}
	return entity.Asset{Locator: locator, Data: jpegBytes(f.t, 32, 18), Width: 32, Height: 18}, nil
}

func (f *fakeResolver) Normalize(locator string, data []byte) (entity.Asset, error) {
	if len(data) == 0 {
		return entity.Asset{}, &entity.DecodeError{Locator: locator, Err: errors.New("empty payload")}
	}
	return entity.Asset{Locator: locator, Data: data, Width: 32, Height: 18}, nil
}

func newTestCompiler(t *testing.T, r *fakeResolver, logo string) *Compiler {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	return NewCompiler(r, knowledge.MustDefault(), logo, slog.New(slog.NewTextHandler(io.Discard, nil)), WithClock(clock))
}

func analyzed(result entity.AnalysisResult) entity.Session {
	s := entity.NewSession(1, 0.25)
	s = entity.Reduce(s, entity.FileSelected{File: entity.SourceFile{Name: "road.mp4", Data: []byte{1}}})
	s = entity.Reduce(s, entity.SubmissionStarted{})
	return entity.Reduce(s, entity.SubmissionSucceeded{Generation: s.Generation, Result: result})
}

// sequence собирает подписи кадров и заголовки разделов в порядке страниц.
func sequence(doc Document) []string {
	var out []string
	for _, p := range doc.Pages[1:] {
		for _, te := range texts(p) {
			if strings.HasPrefix(te.Text, "Frame ") || strings.HasPrefix(te.Text, "Hazard: ") || te.Text == "Analyzed image" {
				out = append(out, te.Text)
			}
		}
	}
	return out
}

func TestBuild_ImageWithoutDetections(t *testing.T) {
	c := newTestCompiler(t, newFakeResolver(t), "")

	doc, err := c.Build(context.Background(), analyzed(entity.ImageResult{Image: jpegBytes(t, 32, 18)}))
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	require.Equal(t, PageMedia, doc.Pages[1].Kind)
	require.Zero(t, doc.Sections)
	require.Empty(t, doc.Missing)
}

func TestBuild_ImageSkipsUnknownLabels(t *testing.T) {
	c := newTestCompiler(t, newFakeResolver(t), "")

	doc, err := c.Build(context.Background(), analyzed(entity.ImageResult{
		Image: jpegBytes(t, 32, 18),
		Detections: []entity.Detection{
			{Label: "pothole"},
			{Label: "manhole"},
			{Label: "crocodile crack"},
		},
	}))
	require.NoError(t, err)
	require.Equal(t, 2, doc.Sections)
	require.Equal(t, []string{"Hazard: pothole", "Hazard: crocodile crack", "Analyzed image"}, sequence(doc))
	require.Equal(t, PageMedia, doc.Pages[len(doc.Pages)-1].Kind)
}

func TestBuild_VideoFramesKeepOrderDespiteLatency(t *testing.T) {
	r := newFakeResolver(t)
	r.delays["http://svc/f0.jpg"] = 40 * time.Millisecond
	r.delays["http://svc/f30.jpg"] = 20 * time.Millisecond

	frames := []entity.Frame{
		{Index: 0, ImageURL: "http://svc/f0.jpg", Detections: []entity.Detection{{Label: "pothole"}}},
		{Index: 30, ImageURL: "http://svc/f30.jpg", Detections: []entity.Detection{{Label: "lateral-crack"}, {Label: "manhole"}}},
		{Index: 60, ImageURL: "http://svc/f60.jpg", Detections: []entity.Detection{{Label: "d00"}}},
	}
	c := newTestCompiler(t, r, "")

	doc, err := c.Build(context.Background(), analyzed(entity.VideoResult{Frames: frames, FPS: 30}))
	require.NoError(t, err)

	require.Equal(t, 3, doc.MediaPages)
	require.Equal(t, 3, doc.Sections)
	require.Equal(t, []string{
		"Frame 0 (0m 0s)", "Hazard: pothole",
		"Frame 30 (0m 1s)", "Hazard: lateral-crack",
		"Frame 60 (0m 2s)", "Hazard: d00",
	}, sequence(doc))

	require.Equal(t, []string{"http://svc/f0.jpg", "http://svc/f30.jpg", "http://svc/f60.jpg"}, r.calls)
	require.Equal(t, int32(1), r.maxSeen.Load())
}

func TestBuild_FailedFrameBecomesPlaceholder(t *testing.T) {
	r := newFakeResolver(t)
	r.fail["http://svc/f30.jpg"] = &entity.FetchError{Locator: "http://svc/f30.jpg", Status: 404}

	frames := []entity.Frame{
		{Index: 0, ImageURL: "http://svc/f0.jpg", Detections: []entity.Detection{{Label: "pothole"}}},
		{Index: 30, ImageURL: "http://svc/f30.jpg", Detections: []entity.Detection{{Label: "pothole"}}},
	}
	c := newTestCompiler(t, r, "")

	doc, err := c.Build(context.Background(), analyzed(entity.VideoResult{Frames: frames, FPS: 30}))
	require.NoError(t, err)
	require.Equal(t, 2, doc.MediaPages)
	require.Len(t, doc.Missing, 1)
	require.Equal(t, "http://svc/f30.jpg", doc.Missing[0].Locator)

	var placeholder bool
	for _, p := range doc.Pages {
		for _, el := range p.Elements {
			if img, ok := el.(ImageElement); ok && img.Asset.Locator == "http://svc/f30.jpg" {
				placeholder = len(img.Asset.Data) > 0
			}
		}
	}
	require.True(t, placeholder)
}

func TestBuild_LogoFailureFallsBackToBrandMark(t *testing.T) {
	r := newFakeResolver(t)
	r.fail["http://cdn/logo.png"] = &entity.DecodeError{Locator: "http://cdn/logo.png", Err: errors.New("bad")}
	c := newTestCompiler(t, r, "http://cdn/logo.png")

	doc, err := c.Build(context.Background(), analyzed(entity.ImageResult{Image: jpegBytes(t, 32, 18)}))
	require.NoError(t, err)
	require.Len(t, doc.Missing, 1)
	require.Equal(t, "http://cdn/logo.png", doc.Missing[0].Locator)

	header := doc.Pages[1].Elements[0].(ImageElement)
	require.NotEmpty(t, header.Asset.Data)
}

func TestBuild_RejectsUnanalyzedSession(t *testing.T) {
	c := newTestCompiler(t, newFakeResolver(t), "")

	_, err := c.Build(context.Background(), entity.NewSession(1, 0.25))
	require.ErrorIs(t, err, entity.ErrNotAnalyzed)
	require.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestBuild_CancelledContextAborts(t *testing.T) {
	r := newFakeResolver(t)
	frames := []entity.Frame{{Index: 0, ImageURL: "http://svc/f0.jpg", Detections: []entity.Detection{{Label: "pothole"}}}}
	c := newTestCompiler(t, r, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Build(ctx, analyzed(entity.VideoResult{Frames: frames, FPS: 30}))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompile_WritesPDF(t *testing.T) {
	r := newFakeResolver(t)
	r.fail["http://svc/f30.jpg"] = &entity.FetchError{Locator: "http://svc/f30.jpg", Status: 500}
	frames := []entity.Frame{
		{Index: 0, ImageURL: "http://svc/f0.jpg", Detections: []entity.Detection{{Label: "pothole"}}},
		{Index: 30, ImageURL: "http://svc/f30.jpg", Detections: []entity.Detection{{Label: "alligator crack"}}},
	}
	c := newTestCompiler(t, r, "")

	var buf bytes.Buffer
	summary, err := c.Compile(context.Background(), analyzed(entity.VideoResult{Frames: frames, FPS: 30}), &buf)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	require.Equal(t, 2, summary.MediaPages)
	require.Equal(t, 2, summary.Sections)
	require.GreaterOrEqual(t, summary.Pages, 3)
	require.Len(t, summary.MissingAssets, 1)

	// одинаковый вход даёт одинаковый документ
	var again bytes.Buffer
	_, err = c.Compile(context.Background(), analyzed(entity.VideoResult{Frames: frames, FPS: 30}), &again)
	require.NoError(t, err)
	require.Equal(t, buf.Bytes(), again.Bytes())
}
