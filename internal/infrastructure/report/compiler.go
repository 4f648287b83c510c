package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
	"aurorai/internal/infrastructure/asset"
)

// Title заголовок отчёта на обложке и в шапке страниц.
const Title = "AurorAI Report"

// Compiler собирает PDF-отчёт по проанализированной сессии.
// Сначала последовательно получает все изображения, затем верстает и выводит документ.
type Compiler struct {
	resolver port.AssetResolver
	kb       port.HazardKnowledgeBase
	logo     string
	now      func() time.Time
	logger   *slog.Logger
}

// Option настройка Compiler
type Option func(*Compiler)

// WithClock задаёт источник времени для даты на обложке и в метаданных PDF.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// NewCompiler создаёт сборщик отчётов. Пустой logoLocator означает фирменный знак по умолчанию.
func NewCompiler(resolver port.AssetResolver, kb port.HazardKnowledgeBase, logoLocator string, logger *slog.Logger, opts ...Option) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Compiler{
		resolver: resolver,
		kb:       kb,
		logo:     logoLocator,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile собирает отчёт и пишет PDF в w.
func (c *Compiler) Compile(ctx context.Context, s entity.Session, w io.Writer) (entity.ReportSummary, error) {
	doc, err := c.Build(ctx, s)
	if err != nil {
		return entity.ReportSummary{}, err
	}

	if err := Render(doc, w); err != nil {
		return entity.ReportSummary{}, fmt.Errorf("render report: %w", err)
	}

	summary := doc.Summary()
	c.logger.Info("report compiled",
		"chat_id", s.ChatID,
		"pages", summary.Pages,
		"media_pages", summary.MediaPages,
		"sections", summary.Sections,
		"missing_assets", len(summary.MissingAssets),
	)
	return summary, nil
}

// Build получает изображения и верстает документ без вывода в PDF.
// Ошибка возвращается только для неготовой сессии и при отмене контекста.
func (c *Compiler) Build(ctx context.Context, s entity.Session) (Document, error) {
	if s.Status != entity.StatusAnalyzed || s.Result == nil {
		return Document{}, entity.ErrNotAnalyzed
	}

	blocks := c.plan(s)

	logo, err := c.resolveLogo(ctx)
	if err != nil {
		return Document{}, err
	}

	// строго по порядку страниц, по одному изображению за раз
	for i, b := range blocks {
		m, ok := b.(MediaBlock)
		if !ok {
			continue
		}
		resolved, err := c.resolveMedia(ctx, m)
		if err != nil {
			return Document{}, err
		}
		m.Resolved = resolved
		blocks[i] = m
	}

	createdAt := c.now().UTC()
	return Layout(Input{
		Title:     Title,
		Subtitle:  subtitle(s, createdAt),
		CreatedAt: createdAt,
		Logo:      logo,
		Blocks:    blocks,
	}), nil
}

// plan раскладывает результат анализа в блоки в порядке страниц.
func (c *Compiler) plan(s entity.Session) []Block {
	var blocks []Block

	switch result := s.Result.(type) {
	case entity.ImageResult:
		blocks = append(blocks, c.sections(result.Detections)...)
		blocks = append(blocks, MediaBlock{
			Caption: "Analyzed image",
			Locator: inlineLocator(s),
			Inline:  result.Image,
		})

	case entity.VideoResult:
		if len(s.Filtered) == 0 {
			blocks = append(blocks, NoticeBlock{Text: "No hazards were detected in the analyzed video."})
		}
		for _, f := range s.Filtered {
			blocks = append(blocks, MediaBlock{
				Caption: frameCaption(f, result.FPS),
				Locator: f.ImageURL,
			})
			blocks = append(blocks, c.sections(f.Detections)...)
		}
	}

	return blocks
}

func (c *Compiler) sections(detections []entity.Detection) []Block {
	var blocks []Block
	for _, d := range detections {
		switch h := c.kb.Classify(d.Label).(type) {
		case entity.KnownHazard:
			blocks = append(blocks, SectionBlock{Hazard: h})
		case entity.UnknownHazard:
			c.logger.Debug("unknown hazard label skipped", "label", h.Label)
		}
	}
	return blocks
}

func (c *Compiler) resolveLogo(ctx context.Context) (ResolvedAsset, error) {
	if c.logo == "" {
		mark, err := asset.BrandMark("AurorAI")
		if err != nil {
			c.logger.Warn("brand mark failed", "err", err)
		}
		return ResolvedAsset{Locator: mark.Locator, Asset: mark}, nil
	}

	a, err := c.resolver.Resolve(ctx, c.logo)
	if err == nil {
		return ResolvedAsset{Locator: c.logo, Asset: a}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ResolvedAsset{}, ctxErr
	}

	c.logger.Warn("logo unavailable, using brand mark", "locator", c.logo, "err", err)
	mark, markErr := asset.BrandMark("AurorAI")
	if markErr != nil {
		c.logger.Warn("brand mark failed", "err", markErr)
	}
	return ResolvedAsset{Locator: c.logo, Asset: mark, Err: err}, nil
}

func (c *Compiler) resolveMedia(ctx context.Context, m MediaBlock) (ResolvedAsset, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedAsset{}, err
	}

	var (
		a   entity.Asset
		err error
	)
	if m.Inline != nil || m.Locator == "" {
		a, err = c.resolver.Normalize(m.Locator, m.Inline)
	} else {
		a, err = c.resolver.Resolve(ctx, m.Locator)
	}
	if err == nil {
		return ResolvedAsset{Locator: m.Locator, Asset: a}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ResolvedAsset{}, ctxErr
	}

	c.logger.Warn("asset replaced with placeholder", "locator", m.Locator, "err", err)
	placeholder, phErr := asset.Placeholder(m.Locator, "Image unavailable")
	if phErr != nil {
		c.logger.Warn("placeholder failed", "err", phErr)
	}
	return ResolvedAsset{Locator: m.Locator, Asset: placeholder, Err: err}, nil
}

func inlineLocator(s entity.Session) string {
	if s.Source != nil && s.Source.Name != "" {
		return "upload:" + s.Source.Name
	}
	return "upload:image"
}

func subtitle(s entity.Session, createdAt time.Time) []string {
	var lines []string
	if s.Source != nil && s.Source.Name != "" {
		lines = append(lines, "Source: "+s.Source.Name)
	}
	lines = append(lines,
		"Mode: "+string(s.Result.Mode())+" analysis",
		"Confidence threshold: "+strconv.FormatFloat(s.Threshold, 'f', 2, 64),
		"Generated: "+createdAt.Format("2006-01-02 15:04 MST"),
	)
	return lines
}

// Summary итог сборки для пользователя.
func (d Document) Summary() entity.ReportSummary {
	return entity.ReportSummary{
		Pages:         len(d.Pages),
		MediaPages:    d.MediaPages,
		Sections:      d.Sections,
		MissingAssets: d.Missing,
	}
}

var _ port.ReportCompiler = (*Compiler)(nil)
