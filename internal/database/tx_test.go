package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterCommit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	errAbort := errors.New("abort")

	t.Run("outside a transaction runs immediately", func(t *testing.T) {
		var ran bool
		database.AfterCommit(ctx, func() { ran = true })
		assert.True(t, ran)
	})

	t.Run("runs after commit", func(t *testing.T) {
		var ran bool
		err := database.RunInTx(ctx, db, func(ctx context.Context) error {
			database.AfterCommit(ctx, func() { ran = true })
			assert.False(t, ran, "not before the commit")
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("dropped on rollback", func(t *testing.T) {
		var ran bool
		err := database.RunInTx(ctx, db, func(ctx context.Context) error {
			database.AfterCommit(ctx, func() { ran = true })
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)
		assert.False(t, ran)
	})

	t.Run("nested commit waits for the outer transaction", func(t *testing.T) {
		var ran bool
		err := database.RunInTx(ctx, db, func(ctx context.Context) error {
			require.NoError(t, database.RunInTx(ctx, db, func(ctx context.Context) error {
				database.AfterCommit(ctx, func() { ran = true })
				return nil
			}))
			assert.False(t, ran)
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)
		assert.False(t, ran)
	})

	t.Run("failed savepoint drops its callbacks", func(t *testing.T) {
		var inner, outer bool
		err := database.RunInTx(ctx, db, func(ctx context.Context) error {
			database.AfterCommit(ctx, func() { outer = true })
			innerErr := database.RunInTx(ctx, db, func(ctx context.Context) error {
				database.AfterCommit(ctx, func() { inner = true })
				return errAbort
			})
			assert.ErrorIs(t, innerErr, errAbort)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, outer)
		assert.False(t, inner)
	})
}
