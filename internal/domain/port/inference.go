package port

import (
	"context"

	"aurorai/internal/domain/entity"
)

// InferenceClient интерфейс внешнего сервиса поиска дефектов
type InferenceClient interface {
	// Predict анализирует изображение
	Predict(ctx context.Context, file entity.SourceFile, confidence float64) (entity.ImageResult, error)

	// AnalyzeVideo анализирует видео, выбирая кадры с шагом intervalSeconds
	AnalyzeVideo(ctx context.Context, file entity.SourceFile, intervalSeconds, confidence float64) (entity.VideoResult, error)
}
