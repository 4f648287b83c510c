package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

// ReportService экспортирует отчёт по проанализированной сессии в файл.
type ReportService struct {
	sessions port.SessionRepository
	compiler port.ReportCompiler
	dir      string
	logger   *slog.Logger
}

// NewReportService создаёт сервис экспорта. Отчёты пишутся в dir/<chat_id>/.
func NewReportService(sessions port.SessionRepository, compiler port.ReportCompiler, dir string, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{sessions: sessions, compiler: compiler, dir: dir, logger: logger}
}

// Export собирает отчёт и записывает его под фиксированным именем.
// Файл пишется во временный и переименовывается, повторный экспорт перезаписывает отчёт.
func (r *ReportService) Export(ctx context.Context, chatID int64) (entity.ReportSummary, error) {
	session, err := r.sessions.Get(ctx, chatID)
	if err != nil {
		return entity.ReportSummary{}, fmt.Errorf("get session: %w", err)
	}
	if session.Status != entity.StatusAnalyzed || session.Result == nil {
		return entity.ReportSummary{}, entity.ErrNotAnalyzed
	}

	dir := filepath.Join(r.dir, strconv.FormatInt(chatID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return entity.ReportSummary{}, fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.pdf")
	if err != nil {
		return entity.ReportSummary{}, fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name()) // после rename файла уже нет

	w := bufio.NewWriter(tmp)
	summary, err := r.compiler.Compile(ctx, session, w)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return entity.ReportSummary{}, fmt.Errorf("compile report: %w", err)
	}

	path := filepath.Join(dir, entity.ReportFileName)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return entity.ReportSummary{}, fmt.Errorf("save report: %w", err)
	}

	summary.Path = path
	r.logger.Info("report exported", "chat_id", chatID, "path", path, "pages", summary.Pages)
	for _, m := range summary.MissingAssets {
		r.logger.Warn("report asset replaced", "chat_id", chatID, "locator", m.Locator, "reason", m.Reason)
	}
	return summary, nil
}

// IsUserError сообщает, что ошибку можно показать пользователю как подсказку.
func IsUserError(err error) bool {
	return errors.Is(err, entity.ErrInvalidInput) || errors.Is(err, entity.ErrStaleSubmission)
}
