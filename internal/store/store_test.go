package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/moviecat/internal/model"
	"github.com/dtroode/moviecat/internal/storage/memory"
	"github.com/dtroode/moviecat/internal/testutil"
)

type failingStorage struct {
	model.Storage
}

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func (failingStorage) Set(context.Context, string, string) error {
	return errors.New("disk on fire")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), testutil.MakeNoopLogger())

	items := []model.WatchlistItem{
		{IMDbID: "tt2", Title: "Two", Year: "2002", Type: "movie", Poster: "p2", AddedAt: 2},
		{IMDbID: "tt1", Title: "One", AddedAt: 1},
	}

	require.NoError(t, Save(ctx, s, "list", items))

	got, ok := Load[[]model.WatchlistItem](ctx, s, "list")
	require.True(t, ok)
	assert.Equal(t, items, got)
}

func TestLoad_FailSoft(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		raw  *string
	}{
		{name: "absent key"},
		{name: "not json", raw: ptr("{not json")},
		{name: "json null", raw: ptr("null")},
		{name: "empty string", raw: ptr("")},
		{name: "wrong shape", raw: ptr(`{"imdbID":"tt1"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := memory.New()
			if tt.raw != nil {
				require.NoError(t, backend.Set(ctx, "list", *tt.raw))
			}
			s := New(backend, testutil.MakeNoopLogger())

			got, ok := Load[[]model.WatchlistItem](ctx, s, "list")
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestLoad_BackendErrorIsAbsent(t *testing.T) {
	s := New(failingStorage{}, testutil.MakeNoopLogger())

	_, ok := Load[model.Account](context.Background(), s, "netflix-user")
	assert.False(t, ok)
}

func TestSave_BackendError(t *testing.T) {
	s := New(failingStorage{}, testutil.MakeNoopLogger())

	err := Save(context.Background(), s, "k", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write")
}

func TestSave_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), testutil.MakeNoopLogger())

	require.NoError(t, Save(ctx, s, "k", []string{"a"}))
	require.NoError(t, Save(ctx, s, "k", []string{"b", "c"}))

	got, ok := Load[[]string](ctx, s, "k")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, got)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), testutil.MakeNoopLogger())

	require.NoError(t, Save(ctx, s, "k", "v"))
	require.NoError(t, s.Remove(ctx, "k"))

	_, ok := Load[string](ctx, s, "k")
	assert.False(t, ok)
}

func ptr(s string) *string {
	return &s
}
