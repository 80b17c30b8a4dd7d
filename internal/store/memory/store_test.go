package memory

import (
	"context"
	"errors"
	"testing"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"
	"fjacquet/teamkasse/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New(WithMaxBatchSize(25), WithMaxRetries(100))
	})
}

func TestDefaultBatchSize(t *testing.T) {
	assert.Equal(t, store.DefaultMaxBatchSize, New().MaxBatchSize())
}

func TestCommitHookAbortsTransaction(t *testing.T) {
	ctx := context.Background()
	unavailable := errors.New("backend down")
	s := New(WithCommitHook(func(_ context.Context, info CommitInfo) error {
		if info.Kind == "tx" {
			return unavailable
		}
		return nil
	}))

	m := models.NewMember("Anna", testTime)
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutMember(ctx, m)
	})
	assert.ErrorIs(t, err, unavailable)

	_, err = s.GetMember(ctx, m.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestCommitHookAbortsBatch(t *testing.T) {
	ctx := context.Background()
	s := New(WithCommitHook(func(_ context.Context, info CommitInfo) error {
		if info.Kind == "batch" && info.Seq == 2 {
			return store.ErrUnavailable
		}
		return nil
	}))

	first := s.NewBatch()
	require.NoError(t, first.PutMember(models.NewMember("Anna", testTime)))
	require.NoError(t, first.Commit(ctx))

	second := s.NewBatch()
	require.NoError(t, second.PutMember(models.NewMember("Ben", testTime)))
	assert.ErrorIs(t, second.Commit(ctx), store.ErrUnavailable)

	members, err := s.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestConflictIsRetried(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := models.NewMember("Anna", testTime)
	require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutMember(ctx, m)
	}))

	attempts := 0
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		attempts++
		cur, err := tx.GetMember(ctx, m.ID)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// A concurrent writer sneaks in between read and commit.
			require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx2 store.Tx) error {
				other, err := tx2.GetMember(ctx, m.ID)
				if err != nil {
					return err
				}
				other.Nickname = "changed"
				return tx2.PutMember(ctx, other)
			}))
		}
		cur.Name = "Anna Schmidt"
		return tx.PutMember(ctx, cur)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Nickname)
	assert.Equal(t, "Anna Schmidt", got.Name)
}

func TestConflictGivesUp(t *testing.T) {
	ctx := context.Background()
	s := New(WithMaxRetries(2))
	m := models.NewMember("Anna", testTime)
	require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutMember(ctx, m)
	}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetMember(ctx, m.ID)
		if err != nil {
			return err
		}
		require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx2 store.Tx) error {
			return tx2.PutMember(ctx, cur)
		}))
		return tx.PutMember(ctx, cur)
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.True(t, store.IsRetryable(err))
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := models.NewMember("Anna", testTime)
	require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutMember(ctx, m)
	}))
	m.Name = "mutated after write"

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	got.Name = "mutated after read"

	again, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", again.Name)
}

func TestClosed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())

	_, err := s.ListMembers(context.Background())
	assert.ErrorIs(t, err, store.ErrClosed)
}
