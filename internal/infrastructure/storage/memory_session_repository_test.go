package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"aurorai/internal/domain/entity"
)

func TestMemorySessionRepository_GetCreatesIdleSession(t *testing.T) {
	repo := NewMemorySessionRepository(0.3)
	ctx := context.Background()

	s, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, entity.StatusIdle, s.Status)
	require.Equal(t, int64(42), s.ChatID)
	require.Equal(t, 0.3, s.Threshold)
}

func TestMemorySessionRepository_SaveReplaces(t *testing.T) {
	repo := NewMemorySessionRepository(2)
	ctx := context.Background()

	s, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1.0, s.Threshold)

	s = entity.Reduce(s, entity.FileSelected{File: entity.SourceFile{Name: "a.jpg", Data: []byte("a")}})
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StatusFileSelected, got.Status)
	require.Equal(t, "a.jpg", got.Source.Name)

	other, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, entity.StatusIdle, other.Status)
}
