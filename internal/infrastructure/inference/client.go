package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

const (
	opPredict      = "predict"
	opAnalyzeVideo = "analyze_video"

	defaultTimeout          = 120 * time.Second
	defaultMaxResponseBytes = 64 * 1024 * 1024
)

// Client HTTP-клиент сервиса инференса (/predict и /analyze_video).
type Client struct {
	baseURL          *url.URL
	client           *http.Client
	maxResponseBytes int64
	logger           *slog.Logger
}

// NewClient создаёт клиента для сервиса по адресу baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse inference url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("inference url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:          u,
		client:           &http.Client{Timeout: timeout},
		maxResponseBytes: defaultMaxResponseBytes,
		logger:           logger,
	}, nil
}

// BaseURL адрес сервиса, относительно которого разрешаются ссылки на кадры.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

type predictResponse struct {
	Image       string    `json:"image"`
	Classes     []string  `json:"classes"`
	Confidences []float64 `json:"confidences,omitempty"`
}

type videoResponse struct {
	VideoAnalysis []videoFrame `json:"video_analysis"`
	FPS           float64      `json:"fps"`
}

type videoFrame struct {
	Frame      int              `json:"frame"`
	ImageURL   string           `json:"image_url"`
	Detections []videoDetection `json:"detections"`
}

type videoDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

// Predict отправляет изображение на /predict.
func (c *Client) Predict(ctx context.Context, file entity.SourceFile, confidence float64) (entity.ImageResult, error) {
	fields := map[string]string{
		"confidence": formatFloat(entity.ClampThreshold(confidence)),
	}

	var resp predictResponse
	if err := c.post(ctx, opPredict, file, fields, &resp); err != nil {
		return entity.ImageResult{}, err
	}

	image, err := decodeImage(resp.Image)
	if err != nil {
		return entity.ImageResult{}, &entity.NetworkError{Op: opPredict, Err: fmt.Errorf("decode image: %w", err)}
	}

	detections := make([]entity.Detection, 0, len(resp.Classes))
	for i, label := range resp.Classes {
		d := entity.Detection{Label: label}
		if i < len(resp.Confidences) {
			d.Confidence = resp.Confidences[i]
		}
		detections = append(detections, d)
	}

	c.logger.Debug("predict done", "file", file.Name, "detections", len(detections))
	return entity.ImageResult{Image: image, Detections: detections}, nil
}

// AnalyzeVideo отправляет видео на /analyze_video.
func (c *Client) AnalyzeVideo(ctx context.Context, file entity.SourceFile, intervalSeconds, confidence float64) (entity.VideoResult, error) {
	if intervalSeconds <= 0 {
		intervalSeconds = 1.0
	}
	fields := map[string]string{
		"interval_seconds": formatFloat(intervalSeconds),
		"confidence":       formatFloat(entity.ClampThreshold(confidence)),
	}

	var resp videoResponse
	if err := c.post(ctx, opAnalyzeVideo, file, fields, &resp); err != nil {
		return entity.VideoResult{}, err
	}

	fps := resp.FPS
	if fps <= 0 {
		fps = entity.DefaultFPS
	}

	frames := make([]entity.Frame, 0, len(resp.VideoAnalysis))
	for _, f := range resp.VideoAnalysis {
		if f.Frame < 0 {
			c.logger.Warn("skip frame with negative index", "frame", f.Frame)
			continue
		}
		frame := entity.Frame{
			Index:      f.Frame,
			ImageURL:   c.resolveRef(f.ImageURL),
			Detections: make([]entity.Detection, 0, len(f.Detections)),
		}
		for _, d := range f.Detections {
			frame.Detections = append(frame.Detections, entity.Detection{Label: d.Label, Confidence: d.Confidence})
		}
		frames = append(frames, frame)
	}
	frames = orderFrames(frames)

	c.logger.Debug("analyze_video done", "file", file.Name, "frames", len(frames), "fps", fps)
	return entity.VideoResult{Frames: frames, FPS: fps}, nil
}

// post отправляет multipart-запрос и декодирует JSON-ответ в out.
func (c *Client) post(ctx context.Context, op string, file entity.SourceFile, fields map[string]string, out any) error {
	body, contentType, err := buildMultipart(file, fields)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: op})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &entity.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.maxResponseBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return &entity.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return &entity.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("response exceeded limit (%d bytes)", c.maxResponseBytes)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &entity.NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(errorDetail(respBody, resp.Status))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &entity.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.Info("inference request done", "op", op, "file", file.Name, "bytes", len(file.Data), "took", time.Since(started))
	return nil
}

// resolveRef разрешает относительный адрес кадра относительно адреса сервиса.
// Путь от корня ("/frames/1.jpg") считается путём внутри сервиса: при адресе
// http://host/api кадр ищется по http://host/api/frames/1.jpg.
func (c *Client) resolveRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		c.logger.Warn("bad frame url", "url", ref, "err", err)
		return ref
	}
	return resolveUnder(c.baseURL, u).String()
}

// resolveUnder как ResolveReference, но не теряет префикс пути base.
// base.Path должен оканчиваться на "/".
func resolveUnder(base, ref *url.URL) *url.URL {
	if ref.IsAbs() || ref.Host != "" || !strings.HasPrefix(ref.Path, "/") {
		return base.ResolveReference(ref)
	}
	if base.Path == "/" || base.Path == "" || strings.HasPrefix(ref.Path, base.Path) {
		return base.ResolveReference(ref)
	}
	joined := *ref
	joined.Path = base.Path + strings.TrimPrefix(ref.Path, "/")
	joined.RawPath = ""
	return base.ResolveReference(&joined)
}

func buildMultipart(file entity.SourceFile, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := file.Name
	if name == "" {
		name = "upload"
	}
	mediaType := file.DetectedMediaType()
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", mediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// orderFrames сортирует кадры по номеру и убирает повторы, чтобы номера строго возрастали.
func orderFrames(frames []entity.Frame) []entity.Frame {
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })

	out := frames[:0]
	for i, f := range frames {
		if i > 0 && f.Index == out[len(out)-1].Index {
			continue
		}
		out = append(out, f)
	}
	return out
}

func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	if s == "" {
		return nil, errors.New("empty image")
	}
	return base64.StdEncoding.DecodeString(s)
}

func errorDetail(body []byte, status string) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != nil {
		if s, ok := e.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(e.Detail); err == nil {
			return string(b)
		}
	}
	return status
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ port.InferenceClient = (*Client)(nil)
