package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

// SessionService управляет сессией анализа: выбор файла, отправка, навигация по кадрам.
// Переходы сессии выполняются под мьютексом, сетевой вызов идёт без него.
type SessionService struct {
	repo      port.SessionRepository
	inference port.InferenceClient
	previews  port.PreviewGenerator
	interval  float64
	logger    *slog.Logger

	mu sync.Mutex
}

// NewSessionService создаёт сервис сессий. intervalSeconds шаг выборки кадров видео.
func NewSessionService(repo port.SessionRepository, inference port.InferenceClient, previews port.PreviewGenerator, intervalSeconds float64, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		repo:      repo,
		inference: inference,
		previews:  previews,
		interval:  intervalSeconds,
		logger:    logger,
	}
}

// Get возвращает текущую сессию чата.
func (s *SessionService) Get(ctx context.Context, chatID int64) (entity.Session, error) {
	return s.repo.Get(ctx, chatID)
}

// SelectFile выбирает новый файл и начинает новую сессию.
// Неподдерживаемый файл отклоняется без изменения текущей сессии.
func (s *SessionService) SelectFile(ctx context.Context, chatID int64, file entity.SourceFile) (entity.Session, error) {
	if _, err := file.Mode(); err != nil {
		return entity.Session{}, err
	}

	var preview []byte
	if s.previews != nil {
		p, err := s.previews.Preview(ctx, file)
		if err != nil {
			// без превью работать можно
			s.logger.Warn("preview failed", "chat_id", chatID, "file", file.Name, "err", err)
		}
		preview = p
	}

	session, err := s.update(ctx, chatID, func(entity.Session) (entity.Event, error) {
		return entity.FileSelected{File: file, Preview: preview}, nil
	})
	if err != nil {
		return entity.Session{}, err
	}

	s.logger.Info("file selected", "chat_id", chatID, "file", file.Name, "generation", session.Generation)
	return session, nil
}

// Submit отправляет выбранный файл на анализ и ждёт ответа: Start, затем Finish.
func (s *SessionService) Submit(ctx context.Context, chatID int64) (entity.Session, error) {
	started, err := s.Start(ctx, chatID)
	if err != nil {
		return started, err
	}
	return s.Finish(ctx, started)
}

// Start переводит сессию в ожидание ответа. Повторный вызов до завершения
// возвращает ErrSubmissionPending, сетевого вызова при этом нет.
func (s *SessionService) Start(ctx context.Context, chatID int64) (entity.Session, error) {
	started, err := s.update(ctx, chatID, func(cur entity.Session) (entity.Event, error) {
		if err := cur.CanSubmit(); err != nil {
			return nil, err
		}
		return entity.SubmissionStarted{}, nil
	})
	if err != nil {
		return started, err
	}

	s.logger.Info("submission started", "chat_id", chatID, "file", started.Source.Name, "generation", started.Generation, "threshold", started.Threshold)
	return started, nil
}

// Finish выполняет анализ для сессии, полученной из Start, и применяет ответ.
// Ответ для уже заменённой сессии отбрасывается с ErrStaleSubmission.
func (s *SessionService) Finish(ctx context.Context, started entity.Session) (entity.Session, error) {
	if started.Status != entity.StatusSubmitting || started.Source == nil {
		return started, entity.ErrNoFileSelected
	}

	chatID := started.ChatID
	gen := started.Generation

	result, analyzeErr := s.analyze(ctx, *started.Source, started.Threshold)

	var ev entity.Event = entity.SubmissionSucceeded{Generation: gen, Result: result}
	if analyzeErr != nil {
		ev = entity.SubmissionFailed{Generation: gen, Err: analyzeErr}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.repo.Get(ctx, chatID)
	if err != nil {
		return entity.Session{}, fmt.Errorf("get session: %w", err)
	}
	if cur.Generation != gen || cur.Status != entity.StatusSubmitting {
		s.logger.Info("stale submission discarded", "chat_id", chatID, "generation", gen, "current", cur.Generation)
		return cur, entity.ErrStaleSubmission
	}

	next := entity.Reduce(cur, ev)
	if err := s.repo.Save(ctx, next); err != nil {
		return entity.Session{}, fmt.Errorf("save session: %w", err)
	}

	if analyzeErr != nil {
		s.logger.Warn("submission failed", "chat_id", chatID, "generation", gen, "err", analyzeErr)
		return next, fmt.Errorf("analyze %s: %w", started.Source.Name, analyzeErr)
	}

	s.logger.Info("submission succeeded", "chat_id", chatID, "generation", gen, "mode", result.Mode(), "frames", len(next.Filtered))
	return next, nil
}

func (s *SessionService) analyze(ctx context.Context, file entity.SourceFile, threshold float64) (entity.AnalysisResult, error) {
	mode, err := file.Mode()
	if err != nil {
		return nil, err
	}

	switch mode {
	case entity.ModeVideo:
		return s.inference.AnalyzeVideo(ctx, file, s.interval, threshold)
	default:
		return s.inference.Predict(ctx, file, threshold)
	}
}

// SelectFrame выбирает кадр видео по номеру в отфильтрованном списке, номер ограничивается.
func (s *SessionService) SelectFrame(ctx context.Context, chatID int64, index int) (entity.Session, error) {
	return s.update(ctx, chatID, func(cur entity.Session) (entity.Event, error) {
		if err := requireFrames(cur); err != nil {
			return nil, err
		}
		return entity.FrameSelected{Index: index}, nil
	})
}

// StepFrame переходит на delta кадров вперёд или назад по кругу.
func (s *SessionService) StepFrame(ctx context.Context, chatID int64, delta int) (entity.Session, error) {
	return s.update(ctx, chatID, func(cur entity.Session) (entity.Event, error) {
		if err := requireFrames(cur); err != nil {
			return nil, err
		}
		idx, _ := entity.StepFrame(cur.Filtered, cur.FrameIndex, delta)
		return entity.FrameSelected{Index: idx}, nil
	})
}

// SetThreshold меняет порог уверенности для следующих отправок.
func (s *SessionService) SetThreshold(ctx context.Context, chatID int64, value float64) (entity.Session, error) {
	return s.update(ctx, chatID, func(entity.Session) (entity.Event, error) {
		return entity.ThresholdChanged{Value: value}, nil
	})
}

// Reset сбрасывает сессию. Незавершённый анализ будет отброшен.
func (s *SessionService) Reset(ctx context.Context, chatID int64) (entity.Session, error) {
	return s.update(ctx, chatID, func(entity.Session) (entity.Event, error) {
		return entity.Reset{}, nil
	})
}

// update читает сессию, применяет событие и сохраняет результат под мьютексом.
func (s *SessionService) update(ctx context.Context, chatID int64, decide func(entity.Session) (entity.Event, error)) (entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.repo.Get(ctx, chatID)
	if err != nil {
		return entity.Session{}, fmt.Errorf("get session: %w", err)
	}

	ev, err := decide(cur)
	if err != nil {
		return cur, err
	}

	next := entity.Reduce(cur, ev)
	if err := s.repo.Save(ctx, next); err != nil {
		return entity.Session{}, fmt.Errorf("save session: %w", err)
	}
	return next, nil
}

func requireFrames(s entity.Session) error {
	if s.Status != entity.StatusAnalyzed {
		return entity.ErrNotAnalyzed
	}
	if len(s.Filtered) == 0 {
		return entity.ErrNoFrames
	}
	return nil
}
