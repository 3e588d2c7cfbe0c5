package billing

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/period"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

// NewPricing sets the price tiers of a branch for a month.
type NewPricing struct {
	BranchID string          `json:"-"`
	Month    string          `json:"month" validate:"required,month"`
	Price1   decimal.Decimal `json:"price1"`
	Price2   decimal.Decimal `json:"price2"`
	Price3   decimal.Decimal `json:"price3"`
}

func (np NewPricing) Validate(validate *validator.Validate) error {
	if err := validate.Struct(np); err != nil {
		return err
	}
	var flds []core.FieldError
	for name, price := range map[string]decimal.Decimal{"price1": np.Price1, "price2": np.Price2, "price3": np.Price3} {
		if price.IsNegative() {
			flds = append(flds, core.FieldError{Field: name, Error: "must not be negative"})
		}
	}
	if len(flds) > 0 {
		sort.Slice(flds, func(i, j int) bool { return flds[i].Field < flds[j].Field })
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

type Service struct {
	store  school.Store
	logger core.Logger
	now    core.Clock
}

// NewService returns a billing service; months default to the month of clock().
func NewService(store school.Store, logger core.Logger, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Service{store: store, logger: logger, now: clock}
}

// monthKey normalizes month to "YYYY-MM", the empty month being the current one.
func (svc *Service) monthKey(month string) (string, error) {
	now := svc.now()
	if month == "" {
		return period.MonthKey(now), nil
	}
	t, err := period.ParseMonth(month, now.Location())
	if err != nil {
		return "", err
	}
	return period.MonthKey(t), nil
}

func (svc *Service) SetPricing(ctx context.Context, np NewPricing) (school.Pricing, error) {
	p, err := svc.store.UpsertPricing(ctx, school.Pricing{
		BranchID: np.BranchID,
		Month:    np.Month,
		Price1:   np.Price1,
		Price2:   np.Price2,
		Price3:   np.Price3,
	})
	return p, errors.Wrap(err, "upserting pricing")
}

func (svc *Service) Pricings(ctx context.Context, branchID string) ([]school.Pricing, error) {
	pricings, err := svc.store.QueryPricings(ctx, branchID)
	return pricings, errors.Wrap(err, "querying pricings")
}

// Evaluate checks every pay against the branch pricing of month (the current month when
// empty) and deactivates, in one unit, every active student of the branch not fully paid.
// Without a pricing for the month nobody is evaluated and a core.ConflictError is returned.
// Running it again with no new pays deactivates nobody else.
func (svc *Service) Evaluate(ctx context.Context, branchID, month string) (Evaluation, error) {
	if branchID == "" {
		return Evaluation{}, core.NewValidationError(nil, core.FieldError{Field: "branch", Error: "this field is required"})
	}
	month, err := svc.monthKey(month)
	if err != nil {
		return Evaluation{}, err
	}

	var ev Evaluation
	err = svc.store.WithinTx(ctx, func(repo school.Repository) error {
		pricing, err := repo.GetPricing(ctx, branchID, month)
		if err != nil {
			if core.IsNotFound(err) {
				return core.NewConflictError("no pricing for %s", month)
			}
			return errors.Wrap(err, "getting pricing")
		}
		pays, err := repo.QueryPays(ctx, school.PayFilter{PricingIDs: []string{pricing.ID}})
		if err != nil {
			return errors.Wrap(err, "querying pays")
		}

		ev = Evaluate(pricing, pays)
		active := true
		ev.Deactivated, err = repo.SetUsersActive(ctx, user.Filter{
			BranchID:   branchID,
			Kind:       user.KindStudent,
			IsActive:   &active,
			ExcludeIDs: ev.FullyPaid,
		}, false)
		return errors.Wrap(err, "deactivating debtors")
	})
	if err != nil {
		return Evaluation{}, err
	}

	svc.logger.Info("billing evaluated", map[string]interface{}{
		"branch":      branchID,
		"month":       month,
		"fully_paid":  len(ev.FullyPaid),
		"deactivated": len(ev.Deactivated),
	})
	return ev, nil
}

// StudentAccount is a student with their pays; Payment is the pay against the
// month's pricing, if any.
type StudentAccount struct {
	user.User
	Payments []school.Pay `json:"payments"`
	Payment  *school.Pay  `json:"payment"`
}

// StudentPayments lists every student of the branch with their pays, sorted by name.
func (svc *Service) StudentPayments(ctx context.Context, branchID, month string) ([]StudentAccount, error) {
	month, err := svc.monthKey(month)
	if err != nil {
		return nil, err
	}
	var pricingID string
	pricing, err := svc.store.GetPricing(ctx, branchID, month)
	switch {
	case err == nil:
		pricingID = pricing.ID
	case !core.IsNotFound(err):
		return nil, errors.Wrap(err, "getting pricing")
	}

	students, err := svc.store.QueryUsers(ctx, user.Filter{BranchID: branchID, Kind: user.KindStudent})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	accounts := make([]StudentAccount, 0, len(students))
	if len(students) == 0 {
		return accounts, nil
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	pays, err := svc.store.QueryPays(ctx, school.PayFilter{StudentIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying pays")
	}
	byStudent := make(map[string][]school.Pay, len(students))
	for _, p := range pays {
		byStudent[p.StudentID] = append(byStudent[p.StudentID], p)
	}

	for _, s := range students {
		acc := StudentAccount{User: s, Payments: byStudent[s.ID]}
		if acc.Payments == nil {
			acc.Payments = []school.Pay{}
		}
		for i := range acc.Payments {
			if pricingID != "" && acc.Payments[i].PricingID == pricingID {
				acc.Payment = &acc.Payments[i]
			}
		}
		accounts = append(accounts, acc)
	}

	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(accounts, func(i, j int) bool {
		return c.CompareString(accounts[i].DisplayName(), accounts[j].DisplayName()) < 0
	})
	return accounts, nil
}
