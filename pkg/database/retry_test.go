package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusy(t *testing.T) {
	t.Parallel()
	assert.False(t, IsBusy(nil))
	assert.True(t, IsBusy(errors.New("database is locked")))
	assert.True(t, IsBusy(errors.New("SQLITE_BUSY: cannot commit")))
	assert.True(t, IsBusy(errors.New("sqlite error (6): table locked")))
	assert.False(t, IsBusy(errors.New("UNIQUE constraint failed: tags.name")))
	assert.False(t, IsBusy(errors.New("connection refused")))
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("busy then success", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := retry(context.Background(), 5, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("other errors stop immediately", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := retry(context.Background(), 5, func() error {
			attempts++
			return errors.New("no such table: books")
		})
		require.EqualError(t, err, "no such table: books")
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := retry(context.Background(), 2, func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.Error(t, err)
		assert.True(t, IsBusy(err))
		assert.Equal(t, 3, attempts)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		attempts := 0
		err := retry(ctx, 100, func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, attempts, 100)
	})
}
