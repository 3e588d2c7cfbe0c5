package sqlxrepos

import (
	"context"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
)

// upsertSuffix overwrites columns on conflict, returning the stored row.
func upsertSuffix(key string, columns ...string) string {
	s := "ON CONFLICT (" + key + ") DO UPDATE SET "
	for i, col := range columns {
		if i > 0 {
			s += ", "
		}
		s += col + " = EXCLUDED." + col
	}
	return s + " RETURNING *"
}

// updated returns the columns an upsert overwrites: the requested ones, or every updatable
// column when none is requested. Columns are checked since they are written into the statement.
func updated(updatable, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return updatable, nil
	}
	for _, col := range requested {
		if !slices.Contains(updatable, col) {
			return nil, errors.Errorf("unknown column %q", col)
		}
	}
	return requested, nil
}

// scores

var scoreColumns = []string{
	"id", "lesson_id", "student_id", "teacher_id",
	"score", "behavior", "weekly_exam", "monthly_exam", "homework", "attend",
	"assign", "updated_at",
}

func (repo *repository) UpsertScore(ctx context.Context, s school.Score, columns ...string) (school.Score, error) {
	columns, err := updated(scoreColumns[3:], columns)
	if err != nil {
		return school.Score{}, err
	}
	q := psql.Insert("scores").Columns(scoreColumns...).Values(
		uuid.New().String(), s.LessonID, s.StudentID, s.TeacherID,
		s.Score, s.Behavior, s.WeeklyExam, s.MonthlyExam, s.Homework, s.Attend,
		s.Assign, s.UpdatedAt,
	).Suffix(upsertSuffix("lesson_id, student_id", columns...))

	var stored school.Score
	if err = repo.get(ctx, &stored, q, "score", s.LessonID); err != nil {
		return school.Score{}, errors.Wrap(err, "upserting score")
	}
	return stored, nil
}

func (repo *repository) QueryScores(ctx context.Context, filter school.ScoreFilter) ([]school.Score, error) {
	scores := make([]school.Score, 0)
	q := psql.Select(scoreColumns...).From("scores").Where(scoreWhere(filter)).OrderBy("updated_at", "id")
	if err := repo.selectAll(ctx, &scores, q); err != nil {
		return nil, errors.Wrap(err, "selecting scores")
	}
	return scores, nil
}

func (repo *repository) DeleteScores(ctx context.Context, filter school.ScoreFilter) error {
	_, err := repo.exec(ctx, psql.Delete("scores").Where(scoreWhere(filter)))
	return errors.Wrap(err, "deleting scores")
}

// KPIs

var kpiColumns = []string{"id", "teacher_id", "month", "participation", "certificate", "attend"}

func (repo *repository) UpsertKPI(ctx context.Context, k school.KPI, columns ...string) (school.KPI, error) {
	columns, err := updated(kpiColumns[3:], columns)
	if err != nil {
		return school.KPI{}, err
	}
	q := psql.Insert("kpis").Columns(kpiColumns...).
		Values(uuid.New().String(), k.TeacherID, k.Month, k.Participation, k.Certificate, k.Attend).
		Suffix(upsertSuffix("teacher_id, month", columns...))

	var stored school.KPI
	if err = repo.get(ctx, &stored, q, "kpi", k.TeacherID); err != nil {
		return school.KPI{}, errors.Wrap(err, "upserting KPI")
	}
	return stored, nil
}

func (repo *repository) QueryKPIs(ctx context.Context, filter school.KPIFilter) ([]school.KPI, error) {
	kpis := make([]school.KPI, 0)
	q := psql.Select(kpiColumns...).From("kpis").Where(kpiWhere(filter)).OrderBy("month", "teacher_id")
	if err := repo.selectAll(ctx, &kpis, q); err != nil {
		return nil, errors.Wrap(err, "selecting KPIs")
	}
	return kpis, nil
}

func (repo *repository) DeleteKPIs(ctx context.Context, filter school.KPIFilter) error {
	_, err := repo.exec(ctx, psql.Delete("kpis").Where(kpiWhere(filter)))
	return errors.Wrap(err, "deleting KPIs")
}

// pricings

var pricingColumns = []string{"id", "branch_id", "month", "price1", "price2", "price3"}

func (repo *repository) UpsertPricing(ctx context.Context, p school.Pricing) (school.Pricing, error) {
	q := psql.Insert("pricings").Columns(pricingColumns...).
		Values(uuid.New().String(), p.BranchID, p.Month, p.Price1, p.Price2, p.Price3).
		Suffix(upsertSuffix("branch_id, month", pricingColumns[3:]...))

	var stored school.Pricing
	if err := repo.get(ctx, &stored, q, "pricing", p.Month); err != nil {
		return school.Pricing{}, errors.Wrap(err, "upserting pricing")
	}
	return stored, nil
}

func (repo *repository) GetPricing(ctx context.Context, branchID, month string) (school.Pricing, error) {
	var p school.Pricing
	q := psql.Select(pricingColumns...).From("pricings").Where(sq.Eq{"branch_id": branchID, "month": month})
	err := repo.get(ctx, &p, q, "pricing", month)
	return p, err
}

func (repo *repository) QueryPricings(ctx context.Context, branchID string) ([]school.Pricing, error) {
	pricings := make([]school.Pricing, 0)
	q := psql.Select(pricingColumns...).From("pricings").Where(sq.Eq{"branch_id": branchID}).OrderBy("month")
	if err := repo.selectAll(ctx, &pricings, q); err != nil {
		return nil, errors.Wrap(err, "selecting pricings")
	}
	return pricings, nil
}

// pays

var payColumns = []string{"id", "pricing_id", "student_id", "amount", "discount", "discount_type", "price_column", "updated_at"}

func (repo *repository) UpsertPay(ctx context.Context, p school.Pay) (school.Pay, error) {
	q := psql.Insert("pays").Columns(payColumns...).
		Values(uuid.New().String(), p.PricingID, p.StudentID, p.Amount, p.Discount, p.DiscountType, p.PriceColumn, p.UpdatedAt).
		Suffix(upsertSuffix("pricing_id, student_id", payColumns[3:]...))

	var stored school.Pay
	if err := repo.get(ctx, &stored, q, "pay", p.PricingID); err != nil {
		if pgCode(err) == foreignKeyViolation {
			return school.Pay{}, core.NewNotFoundError("pricing", p.PricingID)
		}
		return school.Pay{}, errors.Wrap(err, "upserting pay")
	}
	return stored, nil
}

func (repo *repository) QueryPays(ctx context.Context, filter school.PayFilter) ([]school.Pay, error) {
	pays := make([]school.Pay, 0)
	q := psql.Select(payColumns...).From("pays").Where(payWhere(filter)).OrderBy("updated_at", "id")
	if err := repo.selectAll(ctx, &pays, q); err != nil {
		return nil, errors.Wrap(err, "selecting pays")
	}
	return pays, nil
}

// finance entries

var financeColumns = []string{"id", "branch_id", "type", "source", "amount", "description", "user_id", "created_at"}

func (repo *repository) CreateFinanceEntry(ctx context.Context, e school.FinanceEntry) (school.FinanceEntry, error) {
	e.ID = uuid.New().String()
	q := psql.Insert("finance_entries").Columns(financeColumns...).
		Values(e.ID, e.BranchID, e.Type, e.Source, e.Amount, e.Description, e.UserID, e.CreatedAt)
	if _, err := repo.exec(ctx, q); err != nil {
		return school.FinanceEntry{}, errors.Wrap(err, "inserting finance entry")
	}
	return e, nil
}

func (repo *repository) QueryFinanceEntries(ctx context.Context, filter school.FinanceFilter) ([]school.FinanceEntry, error) {
	entries := make([]school.FinanceEntry, 0)
	q := psql.Select(financeColumns...).From("finance_entries").Where(financeWhere(filter)).OrderBy("created_at", "id")
	if err := repo.selectAll(ctx, &entries, q); err != nil {
		return nil, errors.Wrap(err, "selecting finance entries")
	}
	return entries, nil
}
