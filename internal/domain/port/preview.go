package port

import (
	"context"

	"aurorai/internal/domain/entity"
)

// PreviewGenerator создаёт JPEG-превью выбранного файла
type PreviewGenerator interface {
	Preview(ctx context.Context, file entity.SourceFile) ([]byte, error)
}
