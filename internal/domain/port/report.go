package port

import (
	"context"
	"io"

	"aurorai/internal/domain/entity"
)

// ReportCompiler собирает PDF-отчёт по проанализированной сессии
type ReportCompiler interface {
	Compile(ctx context.Context, session entity.Session, w io.Writer) (entity.ReportSummary, error)
}
