package storage

import (
	"context"
	"sync"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

// MemorySessionRepository in-memory хранилище сессий, по одной на чат
type MemorySessionRepository struct {
	mu               sync.RWMutex
	sessions         map[int64]entity.Session
	defaultThreshold float64
}

// NewMemorySessionRepository создаёт новое in-memory хранилище
func NewMemorySessionRepository(defaultThreshold float64) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:         make(map[int64]entity.Session),
		defaultThreshold: entity.ClampThreshold(defaultThreshold),
	}
}

// Get возвращает сессию чата, создаёт новую если не найдена
func (r *MemorySessionRepository) Get(ctx context.Context, chatID int64) (entity.Session, error) {
	r.mu.RLock()
	session, exists := r.sessions[chatID]
	r.mu.RUnlock()

	if exists {
		return session, nil
	}

	// Создаём новую сессию
	newSession := entity.NewSession(chatID, r.defaultThreshold)

	r.mu.Lock()
	defer r.mu.Unlock()
	if session, exists := r.sessions[chatID]; exists {
		return session, nil
	}
	r.sessions[chatID] = newSession

	return newSession, nil
}

// Save заменяет сессию чата целиком
func (r *MemorySessionRepository) Save(ctx context.Context, session entity.Session) error {
	r.mu.Lock()
	r.sessions[session.ChatID] = session
	r.mu.Unlock()

	return nil
}

// Проверка реализации интерфейса
var _ port.SessionRepository = (*MemorySessionRepository)(nil)
