// Package inmemdb is an in-memory school.Store, used by tests and local demos.
package inmemdb

import (
	"context"
	"slices"
	"sync"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

type (
	// DB serializes units of work with its write lock. A unit runs against a copy
	// of the tables which replaces them only if the unit succeeds.
	DB struct {
		repository
		mutex sync.RWMutex
	}

	tables struct {
		users       []user.User
		groups      []school.Group
		transfers   []school.Transfer
		disciplines []school.Discipline
		connections []school.Connection
		hours       []school.Hours
		lessons     []school.Lesson
		scores      []school.Score
		quarters    []school.Quarter
		kpis        []school.KPI
		pricings    []school.Pricing
		pays        []school.Pay
		finances    []school.FinanceEntry
	}

	repository struct {
		guard *sync.RWMutex // nil inside a unit of work, which already holds the write lock
		db    *tables
	}
)

var (
	_ school.Store      = (*DB)(nil)
	_ school.Repository = (*repository)(nil)
)

func Open() *DB {
	db := new(DB)
	db.repository = repository{guard: &db.mutex, db: new(tables)}
	return db
}

func (t *tables) clone() *tables {
	groups := slices.Clone(t.groups)
	for i := range groups {
		groups[i].Students = slices.Clone(groups[i].Students)
	}
	return &tables{
		users:       slices.Clone(t.users),
		groups:      groups,
		transfers:   slices.Clone(t.transfers),
		disciplines: slices.Clone(t.disciplines),
		connections: slices.Clone(t.connections),
		hours:       slices.Clone(t.hours),
		lessons:     slices.Clone(t.lessons),
		scores:      slices.Clone(t.scores),
		quarters:    slices.Clone(t.quarters),
		kpis:        slices.Clone(t.kpis),
		pricings:    slices.Clone(t.pricings),
		pays:        slices.Clone(t.pays),
		finances:    slices.Clone(t.finances),
	}
}

func (db *DB) WithinTx(ctx context.Context, fn func(repo school.Repository) error) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	snapshot := db.db.clone()
	if err := fn(&repository{db: snapshot}); err != nil {
		return core.AbortTx(err)
	}
	db.db = snapshot
	return nil
}

// Reset drops every record.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.db = new(tables)
}

func (repo *repository) rlock() func() {
	if repo.guard == nil {
		return func() {}
	}
	repo.guard.RLock()
	return repo.guard.RUnlock
}

func (repo *repository) lock() func() {
	if repo.guard == nil {
		return func() {}
	}
	repo.guard.Lock()
	return repo.guard.Unlock
}

func get[T any](rows []T, match func(T) bool, entity, id string) (T, error) {
	if i := slices.IndexFunc(rows, match); i >= 0 {
		return rows[i], nil
	}
	var zero T
	return zero, core.NewNotFoundError(entity, id)
}

func query[T any](rows []T, match func(T) bool) []T {
	out := make([]T, 0)
	for _, row := range rows {
		if match(row) {
			out = append(out, row)
		}
	}
	return out
}

// update applies fn to every row matching match.
func update[T any](rows []T, match func(T) bool, fn func(*T)) {
	for i := range rows {
		if match(rows[i]) {
			fn(&rows[i])
		}
	}
}
