package chunk

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecompressPayloadRejectsGarbage(t *testing.T) {
	_, err := decompressPayload([]byte("plain json"))
	require.Error(t, err)
}

func TestGormSourceIntegration(t *testing.T) {
	dsn := os.Getenv("TILENAV_TEST_DSN")
	if dsn == "" {
		t.Skip("TILENAV_TEST_DSN not set")
	}
	db, err := OpenPostgres(dsn)
	require.NoError(t, err)

	ctx := context.Background()
	src := NewGormSource(db, "itest")
	require.NoError(t, src.Migrate(ctx))

	data := newMapBuilder(8, 8).collision([2]int{1, 1}).bytes(t)
	require.NoError(t, src.Save(ctx, Coord{-1, 2}, data))
	require.NoError(t, src.Save(ctx, Coord{-1, 2}, data))

	got, err := src.Fetch(ctx, Coord{-1, 2})
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(got))

	_, err = src.Fetch(ctx, Coord{99, 99})
	require.True(t, errors.Is(err, ErrChunkNotFound))

	store := NewStore(src, testOpts)
	c, err := store.Ensure(ctx, Coord{-1, 2})
	require.NoError(t, err)
	require.True(t, c.Collision.Blocked(1, 1))
}
