// Package storetest is a behavioural test suite every store.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

var base = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"MemberRoundTrip", testMemberRoundTrip},
		{"FindMemberByName", testFindMemberByName},
		{"FindMemberByNamePrefersActive", testFindMemberByNamePrefersActive},
		{"EntryRoundTrip", testEntryRoundTrip},
		{"TransactionRollback", testTransactionRollback},
		{"ReadYourWrites", testReadYourWrites},
		{"DeleteEntry", testDeleteEntry},
		{"BatchCommit", testBatchCommit},
		{"BatchLimit", testBatchLimit},
		{"ConcurrentTransactions", testConcurrentTransactions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func newMember(name string) *models.Member {
	return models.NewMember(name, base)
}

func putMember(t *testing.T, s store.Store, m *models.Member) {
	t.Helper()
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.PutMember(ctx, m)
	})
	require.NoError(t, err)
}

func testMemberRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := newMember("Anna Schmidt")
	m.Balance = decimal.RequireFromString("-12.3456")
	putMember(t, s, m)

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, m.Nickname, got.Nickname)
	assert.Equal(t, m.Avatar, got.Avatar)
	assert.True(t, m.Balance.Equal(got.Balance), "balance %s", got.Balance)
	assert.Equal(t, models.LifecycleActive, got.Status)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))

	_, err = s.GetMember(ctx, "missing")
	assert.True(t, store.IsNotFound(err))
	assert.ErrorIs(t, err, store.ErrMemberNotFound)

	members, err := s.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func testFindMemberByName(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := newMember("Jörg Müller")
	putMember(t, s, m)

	got, err := s.FindMemberByName(ctx, "  JÖRG müller ")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = s.FindMemberByName(ctx, "Jörg Meier")
	assert.True(t, store.IsNotFound(err))
}

func testFindMemberByNamePrefersActive(t *testing.T, s store.Store) {
	ctx := context.Background()
	old := models.NewMember("Max Weber", base.Add(-time.Hour))
	old.Status = models.LifecycleDeleted
	putMember(t, s, old)

	got, err := s.FindMemberByName(ctx, "max weber")
	require.NoError(t, err)
	assert.Equal(t, old.ID, got.ID, "a deleted member is still found when it is the only match")

	current := models.NewMember("Max Weber", base)
	putMember(t, s, current)

	got, err = s.FindMemberByName(ctx, "Max Weber")
	require.NoError(t, err)
	assert.Equal(t, current.ID, got.ID)
	assert.False(t, got.IsDeleted())
}

func sampleEntries(memberID string) []models.Entry {
	debt := func(id, amount string, minutes int) models.Debt {
		return models.Debt{
			ID:          id,
			MemberID:    memberID,
			TotalAmount: decimal.RequireFromString(amount),
			Status:      models.LifecycleActive,
			CreatedAt:   base.Add(time.Duration(minutes) * time.Minute),
		}
	}
	paidAt := base.Add(time.Hour)

	fine := &models.Fine{Debt: debt("fine-1", "5", 1), Reason: "Zu spät", FineType: models.FineTypeRegular}
	fine.AmountPaid = models.DecimalPtr(decimal.RequireFromString("2.5"))
	due := &models.DuePayment{Debt: debt("due-1", "60", 2), DueID: "d", DueName: "Saison", Exempt: true}
	bev := &models.BeverageConsumption{
		Debt:         debt("bev-1", "7", 3),
		BeverageID:   models.BeverageID(models.BeverageBeerSoft),
		BeverageName: "Pils",
		Quantity:     2,
		UnitPrice:    decimal.RequireFromString("3.5"),
	}
	bev.Paid = true
	bev.AmountPaid = models.DecimalPtr(bev.TotalAmount)
	bev.PaidAt = &paidAt
	pay := &models.Payment{
		ID:        "pay-1",
		MemberID:  memberID,
		Amount:    decimal.RequireFromString("20"),
		Paid:      true,
		PaidAt:    &paidAt,
		Reason:    "Guthaben",
		Status:    models.LifecycleActive,
		CreatedAt: base.Add(4 * time.Minute),
	}
	return []models.Entry{fine, due, bev, pay}
}

func testEntryRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := newMember("Kalle")
	putMember(t, s, m)

	entries := sampleEntries(m.ID)
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, e := range entries {
			if err := tx.PutEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	for _, e := range entries {
		got, err := s.GetEntry(ctx, e.Key())
		require.NoError(t, err, e.Key().String())
		assertSameEntry(t, e, got)
	}

	l, err := s.LoadLedger(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, l.Fines, 1)
	assert.Len(t, l.DuePayments, 1)
	assert.Len(t, l.BeverageConsumptions, 1)
	assert.Len(t, l.Payments, 1)

	other, err := s.LoadLedger(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())

	_, err = s.GetEntry(ctx, models.EntryKey{Kind: models.KindFine, MemberID: m.ID, ID: "nope"})
	assert.ErrorIs(t, err, store.ErrEntryNotFound)
}

// assertSameEntry compares entries field by field through their flat
// record, so decimals and times are compared by value.
func assertSameEntry(t *testing.T, want, got models.Entry) {
	t.Helper()
	w, err := store.ToRecord(want)
	require.NoError(t, err)
	g, err := store.ToRecord(got)
	require.NoError(t, err)

	assert.Equal(t, w.Key(), g.Key())
	assert.True(t, w.Amount.Equal(g.Amount), "amount %s != %s", w.Amount, g.Amount)
	assert.Equal(t, w.Paid, g.Paid)
	assert.Equal(t, w.AmountPaid == nil, g.AmountPaid == nil)
	if w.AmountPaid != nil && g.AmountPaid != nil {
		assert.True(t, w.AmountPaid.Equal(*g.AmountPaid))
	}
	assert.Equal(t, w.PaidAt == nil, g.PaidAt == nil)
	if w.PaidAt != nil && g.PaidAt != nil {
		assert.True(t, w.PaidAt.Equal(*g.PaidAt))
	}
	assert.Equal(t, w.Status, g.Status)
	assert.True(t, w.CreatedAt.Equal(g.CreatedAt))
	assert.Equal(t, w.Reason, g.Reason)
	assert.Equal(t, w.FineType, g.FineType)
	assert.Equal(t, w.BeverageID, g.BeverageID)
	assert.Equal(t, w.BeverageName, g.BeverageName)
	assert.Equal(t, w.Quantity, g.Quantity)
	assert.True(t, w.UnitPrice.Equal(g.UnitPrice))
	assert.Equal(t, w.DueID, g.DueID)
	assert.Equal(t, w.DueName, g.DueName)
	assert.Equal(t, w.Exempt, g.Exempt)
}

func testTransactionRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := newMember("Ben")
	putMember(t, s, m)

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetMember(ctx, m.ID)
		if err != nil {
			return err
		}
		cur.Balance = decimal.NewFromInt(99)
		if err := tx.PutMember(ctx, cur); err != nil {
			return err
		}
		if err := tx.PutEntry(ctx, sampleEntries(m.ID)[0]); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())

	l, err := s.LoadLedger(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func testReadYourWrites(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := newMember("Carla")
	entry := sampleEntries(m.ID)[0]

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.PutMember(ctx, m); err != nil {
			return err
		}
		if err := tx.PutEntry(ctx, entry); err != nil {
			return err
		}
		got, err := tx.GetMember(ctx, m.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, m.Name, got.Name)

		l, err := tx.LoadLedger(ctx, m.ID)
		if err != nil {
			return err
		}
		assert.Len(t, l.Fines, 1)
		return nil
	})
	require.NoError(t, err)
}

func testDeleteEntry(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := newMember("Dora")
	putMember(t, s, m)
	entry := sampleEntries(m.ID)[3]

	require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutEntry(ctx, entry)
	}))
	require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.DeleteEntry(ctx, entry.Key()); err != nil {
			return err
		}
		_, err := tx.GetEntry(ctx, entry.Key())
		assert.True(t, store.IsNotFound(err))
		return nil
	}))

	_, err := s.GetEntry(ctx, entry.Key())
	assert.True(t, store.IsNotFound(err))
}

func testBatchCommit(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := newMember("Emil")
	due := &models.Due{ID: models.NewID(), Name: "Saison 2024/25", Amount: decimal.NewFromInt(60), CreatedAt: base}
	bev := models.NewBeverage(models.BeverageCider, decimal.NewFromInt(2))

	b := s.NewBatch()
	require.NoError(t, b.PutMember(m))
	require.NoError(t, b.PutDue(due))
	require.NoError(t, b.PutBeverage(bev))
	for _, e := range sampleEntries(m.ID) {
		require.NoError(t, b.PutEntry(e))
	}
	assert.Equal(t, 7, b.Len())
	require.NoError(t, b.Commit(ctx))

	_, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)

	gotDue, err := s.FindDueByName(ctx, "saison 2024/25")
	require.NoError(t, err)
	assert.Equal(t, due.ID, gotDue.ID)
	assert.True(t, due.Amount.Equal(gotDue.Amount))

	byID, err := s.GetDue(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, due.Name, byID.Name)

	dues, err := s.ListDues(ctx)
	require.NoError(t, err)
	assert.Len(t, dues, 1)

	bevs, err := s.ListBeverages(ctx)
	require.NoError(t, err)
	require.Len(t, bevs, 1)
	assert.Equal(t, models.BeverageCider, bevs[0].Category)

	l, err := s.LoadLedger(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, l.Len())

	// Batches upsert.
	due.Archived = true
	b = s.NewBatch()
	require.NoError(t, b.PutDue(due))
	require.NoError(t, b.Commit(ctx))
	gotDue, err = s.GetDue(ctx, due.ID)
	require.NoError(t, err)
	assert.True(t, gotDue.Archived)

	_, err = s.GetDue(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrDueNotFound)
}

func testBatchLimit(t *testing.T, s store.Store) {
	b := s.NewBatch()
	for i := 0; i < s.MaxBatchSize(); i++ {
		require.NoError(t, b.PutMember(newMember("Spieler")))
	}
	err := b.PutMember(newMember("Einer zu viel"))
	assert.ErrorIs(t, err, store.ErrBatchTooLarge)
	assert.Equal(t, s.MaxBatchSize(), b.Len())
}

func testConcurrentTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := newMember("Frieda")
	putMember(t, s, m)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
				cur, err := tx.GetMember(ctx, m.ID)
				if err != nil {
					return err
				}
				cur.Balance = cur.Balance.Add(decimal.NewFromInt(1))
				return tx.PutMember(ctx, cur)
			})
		}()
	}
	wg.Wait()
	close(errs)

	committed := 0
	for err := range errs {
		if err == nil {
			committed++
			continue
		}
		require.True(t, store.IsRetryable(err), "unexpected error %v", err)
	}

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(committed), got.Balance.IntPart(), "no lost updates")
	assert.Positive(t, committed)
}
