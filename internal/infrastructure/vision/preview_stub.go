//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"fmt"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
	"aurorai/internal/infrastructure/asset"
)

// Previewer строит превью без OpenCV: миниатюру изображения или карточку с именем видео.
type Previewer struct {
	MaxSide int
}

// NewPreviewer создаёт генератор превью (без OpenCV).
func NewPreviewer() *Previewer {
	return &Previewer{MaxSide: previewMaxSide}
}

// Preview возвращает JPEG-превью выбранного файла.
func (p *Previewer) Preview(ctx context.Context, file entity.SourceFile) ([]byte, error) {
	mode, err := file.Mode()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if mode == entity.ModeVideo {
		// кадры видео без gocv не достать
		card, err := asset.Placeholder("preview:"+file.Name, "Video: "+file.Name)
		if err != nil {
			return nil, fmt.Errorf("video preview: %w", err)
		}
		return card.Data, nil
	}

	out, err := asset.Thumbnail(file.Data, p.MaxSide)
	if err != nil {
		return nil, fmt.Errorf("image preview: %w", err)
	}
	return out, nil
}

var _ port.PreviewGenerator = (*Previewer)(nil)
