package port

import (
	"context"

	"aurorai/internal/domain/entity"
)

// AssetResolver превращает адрес изображения в готовый для документа JPEG
type AssetResolver interface {
	// Resolve скачивает и декодирует изображение.
	// Ошибки: *entity.FetchError, *entity.DecodeError.
	Resolve(ctx context.Context, locator string) (entity.Asset, error)

	// Normalize декодирует уже загруженные байты так же, как Resolve
	Normalize(locator string, data []byte) (entity.Asset, error)
}
