package finance

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/period"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

// PayTerms is what a student paid against one pricing.
type PayTerms struct {
	Amount       decimal.Decimal     `json:"amount"`
	Discount     decimal.Decimal     `json:"discount"`
	DiscountType school.DiscountType `json:"type" validate:"discounttype"`
}

// NewEntry is a ledger entry to post. Amount is unsigned: the sign comes from the type,
// or from IsIncome for free-form types. Monthly maps pricing IDs to the pays of a
// student_pay entry.
type NewEntry struct {
	BranchID    string              `json:"-"`
	Type        school.FinanceType  `json:"type" validate:"required"`
	Amount      decimal.Decimal     `json:"amount"`
	IsIncome    bool                `json:"is_income"`
	Source      string              `json:"source"`
	Description string              `json:"description"`
	TeacherID   string              `json:"teacher_id" validate:"required_if=Type teacher_salary"`
	StudentID   string              `json:"student_id" validate:"required_if=Type student_pay"`
	Monthly     map[string]PayTerms `json:"monthly" validate:"dive"`
	PriceColumn school.PriceColumn  `json:"price_column" validate:"pricecolumn"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Source = core.CleanString(ne.Source)
	ne.Description = core.CleanString(ne.Description)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.Amount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "must not be negative"})
	}
	return nil
}

// signed returns the ledger amount of the entry: income is positive, expense negative.
func (ne NewEntry) signed() decimal.Decimal {
	switch ne.Type {
	case school.FinanceStudentPay:
		return ne.Amount
	case school.FinanceTeacherSalary:
		return ne.Amount.Neg()
	}
	if ne.IsIncome {
		return ne.Amount
	}
	return ne.Amount.Neg()
}

type Service struct {
	store  school.Store
	logger core.Logger
	now    core.Clock
}

func NewService(store school.Store, logger core.Logger, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Service{store: store, logger: logger, now: clock}
}

// Post records the entry. For student payments the student's pays are replaced first,
// one per pricing of Monthly; either all of it lands or nothing does.
func (svc *Service) Post(ctx context.Context, ne NewEntry) (school.FinanceEntry, error) {
	now := svc.now()
	entry := school.FinanceEntry{
		BranchID:    ne.BranchID,
		Type:        ne.Type,
		Amount:      ne.signed(),
		Description: ne.Description,
		CreatedAt:   now,
	}

	err := svc.store.WithinTx(ctx, func(repo school.Repository) error {
		switch ne.Type {
		case school.FinanceStudentPay:
			student, err := user.GetKind(ctx, repo, ne.StudentID, user.KindStudent)
			if err != nil {
				return err
			}
			pricingIDs := make([]string, 0, len(ne.Monthly))
			for id := range ne.Monthly {
				pricingIDs = append(pricingIDs, id)
			}
			sort.Strings(pricingIDs)
			for _, id := range pricingIDs {
				terms := ne.Monthly[id]
				_, err = repo.UpsertPay(ctx, school.Pay{
					PricingID:    id,
					StudentID:    student.ID,
					Amount:       terms.Amount,
					Discount:     terms.Discount,
					DiscountType: terms.DiscountType,
					PriceColumn:  ne.PriceColumn,
					UpdatedAt:    now,
				})
				if err != nil {
					return errors.Wrap(err, "upserting pay")
				}
			}
			entry.Source = ne.Source
			entry.UserID = student.ID

		case school.FinanceTeacherSalary:
			teacher, err := user.GetKind(ctx, repo, ne.TeacherID, user.KindTeacher)
			if err != nil {
				return err
			}
			entry.UserID = teacher.ID

		default:
			entry.Source = ne.Source
		}

		var err error
		entry, err = repo.CreateFinanceEntry(ctx, entry)
		return errors.Wrap(err, "creating finance entry")
	})
	if err != nil {
		return school.FinanceEntry{}, err
	}

	svc.logger.Info("finance entry posted", map[string]interface{}{"branch": entry.BranchID, "type": entry.Type, "amount": entry.Amount.String()})
	return entry, nil
}

// EntryView is a ledger entry with the user it concerns, if any.
type EntryView struct {
	school.FinanceEntry
	User *user.User `json:"user"`
}

// Entries lists the branch's entries created inside the window, oldest first.
func (svc *Service) Entries(ctx context.Context, branchID string, w period.Window) ([]EntryView, error) {
	entries, err := svc.entries(ctx, branchID, w)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		if e.UserID != "" {
			ids = append(ids, e.UserID)
		}
	}
	users := make(map[string]user.User)
	if len(ids) > 0 {
		found, err := svc.store.QueryUsers(ctx, user.Filter{IDs: ids})
		if err != nil {
			return nil, errors.Wrap(err, "querying users")
		}
		for _, u := range found {
			users[u.ID] = u
		}
	}

	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		v := EntryView{FinanceEntry: e}
		if u, ok := users[e.UserID]; ok {
			v.User = &u
		}
		views = append(views, v)
	}
	return views, nil
}

type Pivots struct {
	TimeSeries    []DailyRow `json:"time_series"`
	CategoryPivot []Category `json:"category_pivot"`
}

// Pivots buckets the branch's entries created inside the window by day and by category.
// Days are calendar days in the location of the window start.
func (svc *Service) Pivots(ctx context.Context, branchID string, w period.Window) (Pivots, error) {
	entries, err := svc.entries(ctx, branchID, w)
	if err != nil {
		return Pivots{}, err
	}
	return Pivots{
		TimeSeries:    DailySeries(entries, w.Start.Location()),
		CategoryPivot: CategoryPivot(entries),
	}, nil
}

func (svc *Service) entries(ctx context.Context, branchID string, w period.Window) ([]school.FinanceEntry, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	entries, err := svc.store.QueryFinanceEntries(ctx, school.FinanceFilter{BranchID: branchID, From: w.Start, To: w.End})
	return entries, errors.Wrap(err, "querying finance entries")
}

// MonthWindow resolves the window of month ("YYYY-MM") in the service clock's location.
func (svc *Service) MonthWindow(month string, mode period.Mode) (period.Window, error) {
	now := svc.now()
	if month == "" {
		return period.Resolve(now, mode)
	}
	t, err := period.ParseMonth(month, now.Location())
	if err != nil {
		return period.Window{}, err
	}
	return period.Resolve(t, mode)
}
