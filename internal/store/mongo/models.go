package mongo

import (
	"fmt"
	"time"

	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/store"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type memberModel struct {
	ID          string          `bson:"_id"`
	Name        string          `bson:"name"`
	NameKey     string          `bson:"name_key"`
	Nickname    string          `bson:"nickname"`
	Avatar      string          `bson:"avatar"`
	Balance     bson.Decimal128 `bson:"balance"`
	TotalPaid   bson.Decimal128 `bson:"total_paid"`
	TotalUnpaid bson.Decimal128 `bson:"total_unpaid"`
	Status      string          `bson:"status"`
	CreatedAt   time.Time       `bson:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at"`
}

type dueModel struct {
	ID        string          `bson:"_id"`
	Name      string          `bson:"name"`
	NameKey   string          `bson:"name_key"`
	Amount    bson.Decimal128 `bson:"amount"`
	Archived  bool            `bson:"archived"`
	CreatedAt time.Time       `bson:"created_at"`
}

type beverageModel struct {
	ID       string          `bson:"_id"`
	Name     string          `bson:"name"`
	Category string          `bson:"category"`
	Price    bson.Decimal128 `bson:"price"`
}

// entryModel is stored in one collection per entry kind. The document id
// combines member and entry id so entries stay scoped to their member.
type entryModel struct {
	DocID      string           `bson:"_id"`
	ID         string           `bson:"entry_id"`
	MemberID   string           `bson:"member_id"`
	Amount     bson.Decimal128  `bson:"amount"`
	Paid       bool             `bson:"paid"`
	AmountPaid *bson.Decimal128 `bson:"amount_paid,omitempty"`
	PaidAt     *time.Time       `bson:"paid_at,omitempty"`
	Status     string           `bson:"status"`
	CreatedAt  time.Time        `bson:"created_at"`
	DeletedAt  *time.Time       `bson:"deleted_at,omitempty"`

	Reason       string          `bson:"reason,omitempty"`
	FineType     string          `bson:"fine_type,omitempty"`
	BeverageID   string          `bson:"beverage_id,omitempty"`
	BeverageName string          `bson:"beverage_name,omitempty"`
	Quantity     int             `bson:"quantity,omitempty"`
	UnitPrice    bson.Decimal128 `bson:"unit_price"`
	DueID        string          `bson:"due_id,omitempty"`
	DueName      string          `bson:"due_name,omitempty"`
	Exempt       bool            `bson:"exempt,omitempty"`
}

func docID(memberID, id string) string {
	return memberID + "/" + id
}

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert decimal128 %s: %w", v, err)
	}
	return d, nil
}

// utc normalizes times to the millisecond precision BSON keeps.
func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := utc(*t)
	return &v
}

func toMemberModel(m *models.Member) (*memberModel, error) {
	balance, err := toDecimal128(m.Balance)
	if err != nil {
		return nil, err
	}
	paid, err := toDecimal128(m.TotalPaid)
	if err != nil {
		return nil, err
	}
	unpaid, err := toDecimal128(m.TotalUnpaid)
	if err != nil {
		return nil, err
	}
	return &memberModel{
		ID:          m.ID,
		Name:        m.Name,
		NameKey:     models.NormalizeName(m.Name),
		Nickname:    m.Nickname,
		Avatar:      m.Avatar,
		Balance:     balance,
		TotalPaid:   paid,
		TotalUnpaid: unpaid,
		Status:      string(m.Status),
		CreatedAt:   utc(m.CreatedAt),
		UpdatedAt:   utc(m.UpdatedAt),
	}, nil
}

func fromMemberModel(mm *memberModel) (*models.Member, error) {
	balance, err := fromDecimal128(mm.Balance)
	if err != nil {
		return nil, err
	}
	paid, err := fromDecimal128(mm.TotalPaid)
	if err != nil {
		return nil, err
	}
	unpaid, err := fromDecimal128(mm.TotalUnpaid)
	if err != nil {
		return nil, err
	}
	return &models.Member{
		ID:          mm.ID,
		Name:        mm.Name,
		Nickname:    mm.Nickname,
		Avatar:      mm.Avatar,
		Balance:     balance,
		TotalPaid:   paid,
		TotalUnpaid: unpaid,
		Status:      models.Lifecycle(mm.Status),
		CreatedAt:   mm.CreatedAt,
		UpdatedAt:   mm.UpdatedAt,
	}, nil
}

func toDueModel(d *models.Due) (*dueModel, error) {
	amount, err := toDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	return &dueModel{
		ID:        d.ID,
		Name:      d.Name,
		NameKey:   models.NormalizeName(d.Name),
		Amount:    amount,
		Archived:  d.Archived,
		CreatedAt: utc(d.CreatedAt),
	}, nil
}

func fromDueModel(dm *dueModel) (*models.Due, error) {
	amount, err := fromDecimal128(dm.Amount)
	if err != nil {
		return nil, err
	}
	return &models.Due{ID: dm.ID, Name: dm.Name, Amount: amount, Archived: dm.Archived, CreatedAt: dm.CreatedAt}, nil
}

func toBeverageModel(b *models.Beverage) (*beverageModel, error) {
	price, err := toDecimal128(b.Price)
	if err != nil {
		return nil, err
	}
	return &beverageModel{ID: b.ID, Name: b.Name, Category: string(b.Category), Price: price}, nil
}

func fromBeverageModel(bm *beverageModel) (*models.Beverage, error) {
	price, err := fromDecimal128(bm.Price)
	if err != nil {
		return nil, err
	}
	return &models.Beverage{ID: bm.ID, Name: bm.Name, Category: models.BeverageCategory(bm.Category), Price: price}, nil
}

func toEntryModel(e models.Entry) (*entryModel, error) {
	r, err := store.ToRecord(e)
	if err != nil {
		return nil, err
	}
	amount, err := toDecimal128(r.Amount)
	if err != nil {
		return nil, err
	}
	unitPrice, err := toDecimal128(r.UnitPrice)
	if err != nil {
		return nil, err
	}
	em := &entryModel{
		DocID:        docID(r.MemberID, r.ID),
		ID:           r.ID,
		MemberID:     r.MemberID,
		Amount:       amount,
		Paid:         r.Paid,
		PaidAt:       utcPtr(r.PaidAt),
		Status:       string(r.Status),
		CreatedAt:    utc(r.CreatedAt),
		DeletedAt:    utcPtr(r.DeletedAt),
		Reason:       r.Reason,
		FineType:     string(r.FineType),
		BeverageID:   r.BeverageID,
		BeverageName: r.BeverageName,
		Quantity:     r.Quantity,
		UnitPrice:    unitPrice,
		DueID:        r.DueID,
		DueName:      r.DueName,
		Exempt:       r.Exempt,
	}
	if r.AmountPaid != nil {
		ap, err := toDecimal128(*r.AmountPaid)
		if err != nil {
			return nil, err
		}
		em.AmountPaid = &ap
	}
	return em, nil
}

func fromEntryModel(kind models.EntryKind, em *entryModel) (models.Entry, error) {
	amount, err := fromDecimal128(em.Amount)
	if err != nil {
		return nil, err
	}
	unitPrice, err := fromDecimal128(em.UnitPrice)
	if err != nil {
		return nil, err
	}
	r := store.Record{
		Kind:         kind,
		ID:           em.ID,
		MemberID:     em.MemberID,
		Amount:       amount,
		Paid:         em.Paid,
		PaidAt:       em.PaidAt,
		Status:       models.Lifecycle(em.Status),
		CreatedAt:    em.CreatedAt,
		DeletedAt:    em.DeletedAt,
		Reason:       em.Reason,
		FineType:     models.FineType(em.FineType),
		BeverageID:   em.BeverageID,
		BeverageName: em.BeverageName,
		Quantity:     em.Quantity,
		UnitPrice:    unitPrice,
		DueID:        em.DueID,
		DueName:      em.DueName,
		Exempt:       em.Exempt,
	}
	if em.AmountPaid != nil {
		ap, err := fromDecimal128(*em.AmountPaid)
		if err != nil {
			return nil, err
		}
		r.AmountPaid = &ap
	}
	return r.Entry()
}
