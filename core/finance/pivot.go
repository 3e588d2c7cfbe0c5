// Package finance posts ledger entries and pivots them for charts.
package finance

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/alama/core/school"
)

const dayLayout = "2006-01-02"

// DailyRow holds the summed signed amounts of one day per entry type.
// Types without entries that day are absent, not zero.
type DailyRow struct {
	Date   string
	Totals map[school.FinanceType]decimal.Decimal
}

// MarshalJSON flattens the row to {"date": ..., "<type>": amount, ...}.
func (r DailyRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Totals)+1)
	for typ, v := range r.Totals {
		out[string(typ)] = v
	}
	out["date"] = r.Date
	return json.Marshal(out)
}

// DailySeries buckets entries by calendar day in loc and by type, by ascending day.
func DailySeries(entries []school.FinanceEntry, loc *time.Location) []DailyRow {
	if loc == nil {
		loc = time.UTC
	}
	byDay := make(map[string]map[school.FinanceType]decimal.Decimal)
	for _, e := range entries {
		day := e.CreatedAt.In(loc).Format(dayLayout)
		totals, ok := byDay[day]
		if !ok {
			totals = make(map[school.FinanceType]decimal.Decimal)
			byDay[day] = totals
		}
		totals[e.Type] = totals[e.Type].Add(e.Amount)
	}

	rows := make([]DailyRow, 0, len(byDay))
	for day, totals := range byDay {
		rows = append(rows, DailyRow{Date: day, Totals: totals})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}

type Category struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
}

// CategoryPivot sums income by source and expenses by type, by ascending category.
func CategoryPivot(entries []school.FinanceEntry) []Category {
	sums := make(map[string]decimal.Decimal)
	for _, e := range entries {
		key := string(e.Type)
		if e.Amount.IsPositive() {
			key = e.Source
		}
		sums[key] = sums[key].Add(e.Amount)
	}

	pivot := make([]Category, 0, len(sums))
	for key, v := range sums {
		pivot = append(pivot, Category{Category: key, Value: v})
	}
	sort.Slice(pivot, func(i, j int) bool { return pivot[i].Category < pivot[j].Category })
	return pivot
}
