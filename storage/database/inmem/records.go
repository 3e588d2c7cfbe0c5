package inmemdb

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
)

// upsert replaces the row matching key, keeping its ID, or appends row with a new ID.
func upsert[T any](rows []T, row T, key func(T) bool, id func(*T) *string) ([]T, T) {
	if i := slices.IndexFunc(rows, key); i >= 0 {
		*id(&row) = *id(&rows[i])
		rows[i] = row
		return rows, row
	}
	*id(&row) = uuid.New().String()
	return append(rows, row), row
}

// scores

func (repo *repository) UpsertScore(ctx context.Context, s school.Score, columns ...string) (school.Score, error) {
	defer repo.lock()()
	key := func(row school.Score) bool { return row.LessonID == s.LessonID && row.StudentID == s.StudentID }
	if i := slices.IndexFunc(repo.db.scores, key); i >= 0 && len(columns) > 0 {
		repo.db.scores[i].Merge(s, columns...)
		return repo.db.scores[i], nil
	}
	repo.db.scores, s = upsert(repo.db.scores, s, key, func(row *school.Score) *string { return &row.ID })
	return s, nil
}

func (repo *repository) QueryScores(ctx context.Context, filter school.ScoreFilter) ([]school.Score, error) {
	defer repo.rlock()()
	return query(repo.db.scores, filter.Match), nil
}

func (repo *repository) DeleteScores(ctx context.Context, filter school.ScoreFilter) error {
	defer repo.lock()()
	repo.db.scores = slices.DeleteFunc(repo.db.scores, filter.Match)
	return nil
}

// KPIs

func (repo *repository) UpsertKPI(ctx context.Context, k school.KPI, columns ...string) (school.KPI, error) {
	defer repo.lock()()
	key := func(row school.KPI) bool { return row.TeacherID == k.TeacherID && row.Month == k.Month }
	if i := slices.IndexFunc(repo.db.kpis, key); i >= 0 && len(columns) > 0 {
		repo.db.kpis[i].Merge(k, columns...)
		return repo.db.kpis[i], nil
	}
	repo.db.kpis, k = upsert(repo.db.kpis, k, key, func(row *school.KPI) *string { return &row.ID })
	return k, nil
}

func (repo *repository) QueryKPIs(ctx context.Context, filter school.KPIFilter) ([]school.KPI, error) {
	defer repo.rlock()()
	return query(repo.db.kpis, filter.Match), nil
}

func (repo *repository) DeleteKPIs(ctx context.Context, filter school.KPIFilter) error {
	defer repo.lock()()
	repo.db.kpis = slices.DeleteFunc(repo.db.kpis, filter.Match)
	return nil
}

// pricings

func (repo *repository) UpsertPricing(ctx context.Context, p school.Pricing) (school.Pricing, error) {
	defer repo.lock()()
	repo.db.pricings, p = upsert(repo.db.pricings, p,
		func(row school.Pricing) bool { return row.BranchID == p.BranchID && row.Month == p.Month },
		func(row *school.Pricing) *string { return &row.ID },
	)
	return p, nil
}

func (repo *repository) GetPricing(ctx context.Context, branchID, month string) (school.Pricing, error) {
	defer repo.rlock()()
	return get(repo.db.pricings,
		func(p school.Pricing) bool { return p.BranchID == branchID && p.Month == month },
		"pricing", month,
	)
}

func (repo *repository) QueryPricings(ctx context.Context, branchID string) ([]school.Pricing, error) {
	defer repo.rlock()()
	pricings := query(repo.db.pricings, func(p school.Pricing) bool { return p.BranchID == branchID })
	sort.SliceStable(pricings, func(i, j int) bool { return pricings[i].Month < pricings[j].Month })
	return pricings, nil
}

// pays

func (repo *repository) UpsertPay(ctx context.Context, p school.Pay) (school.Pay, error) {
	defer repo.lock()()
	if !slices.ContainsFunc(repo.db.pricings, func(row school.Pricing) bool { return row.ID == p.PricingID }) {
		return school.Pay{}, core.NewNotFoundError("pricing", p.PricingID)
	}
	repo.db.pays, p = upsert(repo.db.pays, p,
		func(row school.Pay) bool { return row.PricingID == p.PricingID && row.StudentID == p.StudentID },
		func(row *school.Pay) *string { return &row.ID },
	)
	return p, nil
}

func (repo *repository) QueryPays(ctx context.Context, filter school.PayFilter) ([]school.Pay, error) {
	defer repo.rlock()()
	return query(repo.db.pays, filter.Match), nil
}

// finances

func (repo *repository) CreateFinanceEntry(ctx context.Context, e school.FinanceEntry) (school.FinanceEntry, error) {
	defer repo.lock()()
	e.ID = uuid.New().String()
	repo.db.finances = append(repo.db.finances, e)
	return e, nil
}

func (repo *repository) QueryFinanceEntries(ctx context.Context, filter school.FinanceFilter) ([]school.FinanceEntry, error) {
	defer repo.rlock()()
	entries := query(repo.db.finances, filter.Match)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}
