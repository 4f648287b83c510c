package port

import (
	"context"

	"aurorai/internal/domain/entity"
)

// SessionRepository интерфейс хранилища сессий
type SessionRepository interface {
	// Get возвращает сессию чата, создаёт новую если не найдена
	Get(ctx context.Context, chatID int64) (entity.Session, error)

	// Save заменяет сессию чата
	Save(ctx context.Context, session entity.Session) error
}
