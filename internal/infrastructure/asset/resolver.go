package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

const (
	defaultMaxBytes  = 20 * 1024 * 1024
	defaultTimeout   = 30 * time.Second
	DefaultCacheSize = 64 // изображений, около 1.5 МБ каждое в худшем случае
	userAgent       = "AurorAI/1.0"
)

// Resolver скачивает изображения и готовит их для встраивания в документ.
// Успешные результаты держатся в LRU-кеше ограниченного размера, ошибки не кешируются.
type Resolver struct {
	baseURL  *url.URL
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger

	cache *lru.Cache[string, entity.Asset] // nil: кеш выключен
	group singleflight.Group
}

// NewResolver создаёт резолвер. Относительные адреса разрешаются относительно baseURL.
// cacheSize 0 означает DefaultCacheSize, отрицательный отключает кеш.
func NewResolver(baseURL string, timeout time.Duration, maxBytes int64, cacheSize int, logger *slog.Logger) (*Resolver, error) {
	var base *url.URL
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse asset base url: %w", err)
		}
		base = u
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}

	r := &Resolver{
		baseURL:  base,
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   logger,
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, entity.Asset](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create asset cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Cached число изображений в кеше.
func (r *Resolver) Cached() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.Len()
}

// Resolve скачивает изображение по адресу и возвращает JPEG для документа.
func (r *Resolver) Resolve(ctx context.Context, locator string) (entity.Asset, error) {
	abs, err := r.absolute(locator)
	if err != nil {
		return entity.Asset{}, &entity.FetchError{Locator: locator, Err: err}
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(abs); ok {
			return cached, nil
		}
	}

	v, err, shared := r.group.Do(abs, func() (any, error) {
		data, err := r.fetch(ctx, abs)
		if err != nil {
			return nil, err
		}
		a, err := r.Normalize(abs, data)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			r.cache.Add(abs, a)
		}
		return a, nil
	})
	if err != nil {
		r.logger.Warn("asset resolve failed", "locator", abs, "err", err)
		return entity.Asset{}, err
	}

	if shared {
		r.logger.Debug("asset resolve shared", "locator", abs)
	}
	return v.(entity.Asset), nil
}

// Normalize декодирует байты изображения и перекодирует их в JPEG.
func (r *Resolver) Normalize(locator string, data []byte) (entity.Asset, error) {
	if len(data) == 0 {
		return entity.Asset{}, &entity.DecodeError{Locator: locator, Err: errors.New("empty payload")}
	}

	out, w, h, err := encodeForDocument(data)
	if err != nil {
		return entity.Asset{}, &entity.DecodeError{Locator: locator, Err: err}
	}

	return entity.Asset{Locator: locator, Data: out, Width: w, Height: h}, nil
}

func (r *Resolver) fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &entity.FetchError{Locator: locator, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &entity.FetchError{Locator: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &entity.FetchError{Locator: locator, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, &entity.FetchError{Locator: locator, Status: resp.StatusCode, Err: err}
	}
	if int64(len(data)) > r.maxBytes {
		return nil, &entity.FetchError{Locator: locator, Status: resp.StatusCode, Err: fmt.Errorf("asset exceeded limit (%d bytes)", r.maxBytes)}
	}

	return data, nil
}

// absolute приводит адрес к абсолютному виду.
func (r *Resolver) absolute(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", errors.New("empty locator")
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if r.baseURL == nil {
		return "", fmt.Errorf("relative locator %q without base url", locator)
	}
	if strings.HasPrefix(u.Path, "/") && u.Host == "" && !strings.HasPrefix(u.Path, r.baseURL.Path) {
		// путь от корня лежит внутри base: /frames/1.jpg при base http://host/api
		joined := *u
		joined.Path = r.baseURL.Path + strings.TrimPrefix(u.Path, "/")
		joined.RawPath = ""
		u = &joined
	}
	return r.baseURL.ResolveReference(u).String(), nil
}

var _ port.AssetResolver = (*Resolver)(nil)
