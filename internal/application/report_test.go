package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"aurorai/internal/domain/entity"
	"aurorai/internal/infrastructure/storage"
)

type fakeCompiler struct {
	body string
	err  error
}

func (c fakeCompiler) Compile(ctx context.Context, s entity.Session, w io.Writer) (entity.ReportSummary, error) {
	if c.err != nil {
		return entity.ReportSummary{}, c.err
	}
	if _, err := io.WriteString(w, c.body); err != nil {
		return entity.ReportSummary{}, err
	}
	return entity.ReportSummary{Pages: 2, MediaPages: 1}, nil
}

func analyzedRepo(t *testing.T) *storage.MemorySessionRepository {
	t.Helper()
	repo := storage.NewMemorySessionRepository(0.25)
	s := entity.NewSession(7, 0.25)
	s = entity.Reduce(s, entity.FileSelected{File: imageFile})
	s = entity.Reduce(s, entity.SubmissionStarted{})
	s = entity.Reduce(s, entity.SubmissionSucceeded{Generation: s.Generation, Result: entity.ImageResult{Image: []byte("img")}})
	require.NoError(t, repo.Save(context.Background(), s))
	return repo
}

func TestReportService_ExportOverwrites(t *testing.T) {
	dir := t.TempDir()
	repo := analyzedRepo(t)
	ctx := context.Background()

	summary, err := NewReportService(repo, fakeCompiler{body: "%PDF-first"}, dir, discardLogger()).Export(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "7", entity.ReportFileName), summary.Path)
	require.Equal(t, 2, summary.Pages)

	summary, err = NewReportService(repo, fakeCompiler{body: "%PDF-second"}, dir, discardLogger()).Export(ctx, 7)
	require.NoError(t, err)

	data, err := os.ReadFile(summary.Path)
	require.NoError(t, err)
	require.Equal(t, "%PDF-second", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "7"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestReportService_RequiresAnalyzedSession(t *testing.T) {
	repo := storage.NewMemorySessionRepository(0.25)

	_, err := NewReportService(repo, fakeCompiler{}, t.TempDir(), discardLogger()).Export(context.Background(), 7)
	require.ErrorIs(t, err, entity.ErrNotAnalyzed)
	require.True(t, IsUserError(err))
}

func TestReportService_CompileErrorLeavesNoFile(t *testing.T) {
	dir := t.TempDir()

	_, err := NewReportService(analyzedRepo(t), fakeCompiler{err: errors.New("boom")}, dir, discardLogger()).Export(context.Background(), 7)
	require.Error(t, err)
	require.False(t, IsUserError(err))

	entries, err := os.ReadDir(filepath.Join(dir, "7"))
	require.NoError(t, err)
	require.Empty(t, entries)
}
