package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/ingest"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"
	"fjacquet/teamkasse/internal/store/memory"
	"fjacquet/teamkasse/internal/suggest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func clock() time.Time { return testTime }

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	s := memory.New()
	logger := logging.NewMockLogger()
	coord := coordinator.New(s, logger, coordinator.WithClock(clock))
	pipeline := ingest.New(s, nil, logger)
	return New(s, coord, pipeline, nil, logger,
		WithClock(clock),
		WithIngestOptions(ingest.Options{Now: testTime})), s
}

func mustMember(t *testing.T, svc *Service, name string) *models.Member {
	t.Helper()
	m, err := svc.CreateMember(context.Background(), MemberInput{Name: name})
	require.NoError(t, err)
	return m
}

func balance(t *testing.T, svc *Service, id string) decimal.Decimal {
	t.Helper()
	m, err := svc.GetMember(context.Background(), id)
	require.NoError(t, err)
	return m.Balance
}

func TestCreateMember(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	m, err := svc.CreateMember(ctx, MemberInput{Name: "  Anna   Schmidt ", Nickname: "Anni"})
	require.NoError(t, err)
	assert.Equal(t, "Anna Schmidt", m.Name)
	assert.Equal(t, "Anni", m.Nickname)
	assert.True(t, m.Balance.IsZero())
	assert.Equal(t, models.LifecycleActive, m.Status)
	assert.Equal(t, testTime, m.CreatedAt)

	_, err = svc.CreateMember(ctx, MemberInput{Name: "anna schmidt"})
	assert.ErrorIs(t, err, ErrMemberExists)

	_, err = svc.CreateMember(ctx, MemberInput{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := svc.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anni", got.Nickname)
}

func TestDeleteMember(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	anna := mustMember(t, svc, "Anna Schmidt")
	ben := mustMember(t, svc, "Ben Meier")

	_, err := svc.CreateEntry(ctx, anna.ID, models.KindPayment, EntryInput{Amount: dec("20")})
	require.NoError(t, err)

	deleted, err := svc.DeleteMember(ctx, anna.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())
	assert.True(t, deleted.Balance.Equal(dec("20")), "balance is kept")

	active, err := svc.ListMembers(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ben.ID, active[0].ID)

	all, err := svc.ListMembers(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.CreateEntry(ctx, anna.ID, models.KindFine, EntryInput{Amount: dec("5"), Reason: "Zu spät"})
	assert.ErrorIs(t, err, coordinator.ErrMemberDeleted)

	again, err := svc.DeleteMember(ctx, anna.ID)
	require.NoError(t, err)
	assert.True(t, again.IsDeleted())

	_, err = svc.DeleteMember(ctx, "missing")
	assert.True(t, store.IsNotFound(err))

	// the name is free again once the member is deleted
	_, err = svc.CreateMember(ctx, MemberInput{Name: "Anna Schmidt"})
	assert.NoError(t, err)
}

func TestDues(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	anna := mustMember(t, svc, "Anna Schmidt")
	ben := mustMember(t, svc, "Ben Meier")
	_, err := svc.CreateEntry(ctx, anna.ID, models.KindPayment, EntryInput{Amount: dec("30")})
	require.NoError(t, err)

	due, err := svc.CreateDue(ctx, DueInput{Name: "Saison 2024/25", Amount: dec("50")})
	require.NoError(t, err)
	assert.Equal(t, testTime, due.CreatedAt)

	_, err = svc.CreateDue(ctx, DueInput{Name: "saison 2024/25", Amount: dec("50")})
	assert.ErrorIs(t, err, ErrDueExists)
	_, err = svc.CreateDue(ctx, DueInput{Name: "Trainingslager", Amount: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	res, err := svc.AssignDue(ctx, due.ID, AssignInput{})
	require.NoError(t, err)
	require.Len(t, res.Assigned, 2)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Failed)

	assert.True(t, balance(t, svc, anna.ID).Equal(dec("10")), "30 credit minus 20 remaining")
	assert.True(t, balance(t, svc, ben.ID).Equal(dec("-50")))

	for _, dp := range res.Assigned {
		assert.Equal(t, "Saison 2024/25", dp.DueName)
		if dp.MemberID == anna.ID {
			assert.True(t, dp.PaidAmount().Equal(dec("30")), "partially covered by the credit")
			assert.False(t, dp.Paid)
		}
	}

	again, err := svc.AssignDue(ctx, due.ID, AssignInput{MemberIDs: []string{anna.ID, "missing"}})
	require.NoError(t, err)
	assert.Empty(t, again.Assigned)
	assert.Equal(t, []string{anna.ID}, again.Skipped)
	assert.Contains(t, again.Failed, "missing")

	archived, err := svc.ArchiveDue(ctx, due.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	_, err = svc.AssignDue(ctx, due.ID, AssignInput{})
	assert.ErrorIs(t, err, ErrDueArchived)

	open, err := svc.ListDues(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, open)
	all, err := svc.ListDues(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAssignDueExempt(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	anna := mustMember(t, svc, "Anna Schmidt")
	due, err := svc.CreateDue(ctx, DueInput{Name: "Hallenmiete", Amount: dec("25")})
	require.NoError(t, err)

	res, err := svc.AssignDue(ctx, due.ID, AssignInput{MemberIDs: []string{anna.ID}, Exempt: true})
	require.NoError(t, err)
	require.Len(t, res.Assigned, 1)
	assert.True(t, res.Assigned[0].Exempt)
	assert.True(t, balance(t, svc, anna.ID).IsZero())
}

func TestCreateEntryKinds(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	anna := mustMember(t, svc, "Anna Schmidt")

	bev := models.NewBeverage(models.BeverageCider, dec("2.5"))
	b := s.NewBatch()
	require.NoError(t, b.PutBeverage(bev))
	require.NoError(t, b.Commit(ctx))
	due, err := svc.CreateDue(ctx, DueInput{Name: "Saison 2024/25", Amount: dec("50")})
	require.NoError(t, err)

	res, err := svc.CreateEntry(ctx, anna.ID, models.KindBeverageConsumption, EntryInput{BeverageID: bev.ID, Quantity: 2})
	require.NoError(t, err)
	drink := res.Entry.(*models.BeverageConsumption)
	assert.Equal(t, bev.Name, drink.BeverageName)
	assert.True(t, drink.TotalAmount.Equal(dec("5")), "total %s", drink.TotalAmount)

	res, err = svc.CreateEntry(ctx, anna.ID, models.KindDuePayment, EntryInput{DueID: due.ID})
	require.NoError(t, err)
	assert.True(t, res.Entry.(*models.DuePayment).TotalAmount.Equal(dec("50")))

	res, err = svc.CreateEntry(ctx, anna.ID, models.KindFine, EntryInput{Amount: dec("3"), Reason: " Zu spät "})
	require.NoError(t, err)
	fine := res.Entry.(*models.Fine)
	assert.Equal(t, "Zu spät", fine.Reason)
	assert.Equal(t, models.FineTypeRegular, fine.FineType)

	assert.True(t, balance(t, svc, anna.ID).Equal(dec("-58")))

	tests := []struct {
		name string
		kind models.EntryKind
		in   EntryInput
	}{
		{name: "fine without reason", kind: models.KindFine, in: EntryInput{Amount: dec("3")}},
		{name: "due payment without due", kind: models.KindDuePayment, in: EntryInput{Amount: dec("3")}},
		{name: "unknown beverage", kind: models.KindBeverageConsumption, in: EntryInput{BeverageID: "nope"}},
		{name: "unknown kind", kind: models.EntryKind("loan"), in: EntryInput{Amount: dec("3")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEntry(ctx, anna.ID, tt.kind, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err = svc.CreateEntry(ctx, anna.ID, models.KindDuePayment, EntryInput{DueID: "missing"})
	assert.True(t, store.IsNotFound(err))
}

func TestEntryLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	anna := mustMember(t, svc, "Anna Schmidt")

	first, err := svc.CreateEntry(ctx, anna.ID, models.KindFine, EntryInput{
		Amount: dec("10"), Reason: "Zu spät", CreatedAt: models.TimePtr(testTime.Add(-time.Hour)),
	})
	require.NoError(t, err)
	second, err := svc.CreateEntry(ctx, anna.ID, models.KindFine, EntryInput{Amount: dec("4"), Reason: "Trikot vergessen"})
	require.NoError(t, err)
	assert.True(t, balance(t, svc, anna.ID).Equal(dec("-14")))

	res, err := svc.ApplyPayment(ctx, first.Entry.Key(), dec("6"))
	require.NoError(t, err)
	assert.True(t, res.Member.Balance.Equal(dec("-8")))

	res, err = svc.SetPaid(ctx, second.Entry.Key(), true)
	require.NoError(t, err)
	assert.True(t, res.Member.Balance.Equal(dec("-4")))

	got, err := svc.GetEntry(ctx, second.Entry.Key())
	require.NoError(t, err)
	assert.True(t, got.(*models.Fine).Paid)

	_, err = svc.DeleteEntry(ctx, first.Entry.Key(), coordinator.SoftDelete)
	require.NoError(t, err)
	assert.True(t, balance(t, svc, anna.ID).IsZero())

	active, err := svc.ListEntries(ctx, anna.ID, models.KindFine, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.Entry.Key(), active[0].Key())

	all, err := svc.ListEntries(ctx, anna.ID, models.KindFine, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.Entry.Key(), all[0].Key(), "oldest first")

	payments, err := svc.ListEntries(ctx, anna.ID, models.KindPayment, false)
	require.NoError(t, err)
	assert.Empty(t, payments)

	l, err := svc.Ledger(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())

	_, err = svc.ListEntries(ctx, "missing", models.KindFine, false)
	assert.True(t, store.IsNotFound(err))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want models.EntryKind
	}{
		{"fines", models.KindFine},
		{"Fine", models.KindFine},
		{"due-payments", models.KindDuePayment},
		{"due_payment", models.KindDuePayment},
		{"beverages", models.KindBeverageConsumption},
		{"payments", models.KindPayment},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseKind("loans")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecomputeAndReconcile(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	anna := mustMember(t, svc, "Anna Schmidt")
	_, err := svc.CreateEntry(ctx, anna.ID, models.KindPayment, EntryInput{Amount: dec("10")})
	require.NoError(t, err)

	report, err := svc.RecomputeBalance(ctx, anna.ID)
	require.NoError(t, err)
	assert.True(t, report.Drift.IsZero())

	m, err := s.GetMember(ctx, anna.ID)
	require.NoError(t, err)
	m.Balance = dec("99")
	b := s.NewBatch()
	require.NoError(t, b.PutMember(m))
	require.NoError(t, b.Commit(ctx))

	report, err = svc.RecomputeBalance(ctx, anna.ID)
	require.NoError(t, err)
	assert.True(t, report.Cached.Equal(dec("99")))
	assert.True(t, report.Recomputed.Equal(dec("10")))
	assert.True(t, report.Drift.Equal(dec("89")))

	rec, err := svc.Reconcile(ctx, anna.ID)
	require.NoError(t, err)
	assert.True(t, rec.Corrected)
	assert.True(t, balance(t, svc, anna.ID).Equal(dec("10")))

	fixed, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, fixed)
}

func TestRunIngestion(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	in := strings.Join([]string{
		"due_name;due_amount;due_created_at;username;user_paid",
		"Saison 2024/25;5000;01.08.2024;Anna Schmidt;STATUS_UNPAID",
	}, "\n") + "\n"

	res, err := svc.RunIngestion(ctx, strings.NewReader(in), ingest.SchemaDues, ingest.Options{})
	require.NoError(t, err)
	assert.True(t, res.Success, res.Errors)
	assert.Equal(t, 1, res.PlayersCreated)

	anna, err := s.FindMemberByName(ctx, "Anna Schmidt")
	require.NoError(t, err)
	assert.True(t, anna.Balance.Equal(dec("-50")))
}

func TestImportURI(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "strafen.csv")
	require.NoError(t, os.WriteFile(path, []byte("user_name;reason;amount\nBen Meier;Zu spät;300\n"), 0600))

	res, err := svc.ImportURI(ctx, path, ingest.SchemaPunishments, ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecordsCreated)

	ben, err := s.FindMemberByName(ctx, "ben meier")
	require.NoError(t, err)
	assert.True(t, ben.Balance.Equal(dec("-3")))

	_, err = svc.ImportURI(ctx, filepath.Join(t.TempDir(), "missing.csv"), ingest.SchemaPunishments, ingest.Options{})
	assert.Error(t, err)
}

type stubSuggester struct {
	roster []string
}

func (s *stubSuggester) Suggest(_ context.Context, text string, roster []string) (suggest.Suggestion, error) {
	s.roster = roster
	if text == "fail" {
		return suggest.Suggestion{}, errors.New("boom")
	}
	return suggest.Suggestion{Reason: text}, nil
}

func TestSuggestFine(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	mustMember(t, svc, "Ben Meier")
	anna := mustMember(t, svc, "Anna Schmidt")
	mustMember(t, svc, "Carla")
	_, err := svc.DeleteMember(ctx, anna.ID)
	require.NoError(t, err)

	got, err := svc.SuggestFine(ctx, "Ben Meier Bier vergessen")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ben Meier"}, got.Players)
	assert.Equal(t, "Bier vergessen", got.Reason)
	assert.Equal(t, models.FineTypeBeverage, got.FineType)

	_, err = svc.SuggestFine(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	stub := &stubSuggester{}
	svc.suggester = stub
	_, err = svc.SuggestFine(ctx, "Zu spät")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ben Meier", "Carla"}, stub.roster, "active members only, sorted by name")
	_, err = svc.SuggestFine(ctx, "fail")
	assert.Error(t, err)
}
