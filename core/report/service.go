// Package report joins rosters with their period and membership filtered records.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/period"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/stats"
	"github.com/trezcool/alama/core/user"
)

// ErrStudentInactive is returned when a deactivated student asks for their own reports.
var ErrStudentInactive = errors.New("student account is inactive")

// Cache stores composed reports. Implementations may expire entries at will.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	// Delete drops every key starting with one of the prefixes.
	Delete(ctx context.Context, prefixes ...string) error
}

// Cache key prefixes, followed by the ID of the group, student or branch the report is about.
const (
	groupKeys   = "report:group:"
	subjectKeys = "report:subjects:"
	teacherKeys = "report:teachers:"
)

var _ school.Invalidator = (*Service)(nil)

type Service struct {
	repo   school.Repository
	cache  Cache
	logger core.Logger
	loc    *time.Location
	lang   language.Tag
}

type Option func(*Service)

// WithCache caches composed reports in c.
func WithCache(c Cache) Option {
	return func(svc *Service) { svc.cache = c }
}

// WithLocation sets the time zone month references are parsed in.
func WithLocation(loc *time.Location) Option {
	return func(svc *Service) { svc.loc = loc }
}

// WithLanguage sets the collation rules names are sorted with.
func WithLanguage(tag language.Tag) Option {
	return func(svc *Service) { svc.lang = tag }
}

func NewService(repo school.Repository, logger core.Logger, opts ...Option) *Service {
	svc := &Service{repo: repo, logger: logger, loc: time.UTC, lang: language.Und}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// cached returns the cached value of key into dst or computes it with fn.
// Cache failures are logged and never fail the report.
func cached[T any](ctx context.Context, svc *Service, key string, fn func() (T, error)) (T, error) {
	var v T
	if svc.cache != nil {
		ok, err := svc.cache.Get(ctx, key, &v)
		if err != nil {
			svc.logger.Warn("reading report cache", err, map[string]interface{}{"key": key})
		} else if ok {
			return v, nil
		}
	}

	v, err := fn()
	if err != nil {
		return v, err
	}
	if svc.cache != nil {
		if err = svc.cache.Set(ctx, key, v); err != nil {
			svc.logger.Warn("writing report cache", err, map[string]interface{}{"key": key})
		}
	}
	return v, nil
}

// Invalidate drops the cached reports composed from the records of the scopes.
func (svc *Service) Invalidate(ctx context.Context, scopes ...school.Scope) {
	if svc.cache == nil {
		return
	}
	var prefixes []string
	for _, sc := range scopes {
		if sc.GroupID != "" {
			prefixes = append(prefixes, groupKeys+sc.GroupID+":")
		}
		if sc.StudentID != "" {
			prefixes = append(prefixes, subjectKeys+sc.StudentID+":")
		}
		if sc.BranchID != "" {
			prefixes = append(prefixes, teacherKeys+sc.BranchID+":")
		}
	}
	if len(prefixes) == 0 {
		return
	}
	if err := svc.cache.Delete(ctx, prefixes...); err != nil {
		svc.logger.Warn("invalidating report cache", err, map[string]interface{}{"prefixes": prefixes})
	}
}

// sortByName sorts rows by name, case-insensitively and following the rules of the service language.
func sortByName[T any](svc *Service, rows []T, name func(T) string) {
	c := collate.New(svc.lang, collate.IgnoreCase)
	sort.SliceStable(rows, func(i, j int) bool { return c.CompareString(name(rows[i]), name(rows[j])) < 0 })
}

func (svc *Service) quarterWindow(ctx context.Context, quarterID string) (period.Window, error) {
	q, err := svc.repo.GetQuarter(ctx, quarterID)
	if err != nil {
		return period.Window{}, errors.Wrap(err, "getting quarter")
	}
	return period.FromQuarter(q.StartDate, q.EndDate)
}

func (svc *Service) users(ctx context.Context, ids []string) (map[string]user.User, error) {
	out := make(map[string]user.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := svc.repo.QueryUsers(ctx, user.Filter{IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (svc *Service) scores(ctx context.Context, lessons []school.Lesson, studentIDs ...string) ([]school.Score, error) {
	if len(lessons) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	scores, err := svc.repo.QueryScores(ctx, school.ScoreFilter{LessonIDs: ids, StudentIDs: studentIDs})
	return scores, errors.Wrap(err, "querying scores")
}

// StudentRow is a roster student with the aggregate of their records.
type StudentRow struct {
	user.User
	stats.Summary
}

type GroupReport struct {
	Group     school.Group      `json:"group"`
	Students  []StudentRow      `json:"students"`
	Transfers []school.Transfer `json:"transfers"`
}

// GroupReport aggregates, for every current student of the group, their scores on the
// active lessons of one connection dated inside the quarter. Students without such
// scores are reported with a zero count.
func (svc *Service) GroupReport(ctx context.Context, groupID, quarterID, connectionID string) (GroupReport, error) {
	key := groupKeys + fmt.Sprintf("%s:%s:%s", groupID, quarterID, connectionID)
	return cached(ctx, svc, key, func() (GroupReport, error) {
		return svc.groupReport(ctx, groupID, quarterID, connectionID)
	})
}

func (svc *Service) groupReport(ctx context.Context, groupID, quarterID, connectionID string) (GroupReport, error) {
	group, err := svc.repo.GetGroup(ctx, groupID)
	if err != nil {
		return GroupReport{}, errors.Wrap(err, "getting group")
	}
	window, err := svc.quarterWindow(ctx, quarterID)
	if err != nil {
		return GroupReport{}, err
	}
	conn, err := svc.repo.GetConnection(ctx, connectionID)
	if err != nil {
		return GroupReport{}, errors.Wrap(err, "getting connection")
	}
	if conn.GroupID != group.ID {
		return GroupReport{}, core.NewNotFoundError("connection", connectionID)
	}

	active := true
	lessons, err := svc.repo.QueryLessons(ctx, school.LessonFilter{
		ConnectionIDs: []string{conn.ID},
		Active:        &active,
		From:          window.Start,
		To:            window.End,
	})
	if err != nil {
		return GroupReport{}, errors.Wrap(err, "querying lessons")
	}
	students, err := svc.users(ctx, group.Students)
	if err != nil {
		return GroupReport{}, err
	}
	scores, err := svc.scores(ctx, lessons, group.Students...)
	if err != nil {
		return GroupReport{}, err
	}

	records := make(map[string][]stats.Record, len(students))
	for _, s := range scores {
		records[s.StudentID] = append(records[s.StudentID], s.Record)
	}
	summaries := stats.GroupBy(group.Students, records, stats.DefaultSpec)

	rows := make([]StudentRow, 0, len(students))
	for _, id := range group.Students {
		if usr, ok := students[id]; ok {
			rows = append(rows, StudentRow{User: usr, Summary: summaries[id]})
		}
	}
	sortByName(svc, rows, func(r StudentRow) string { return r.DisplayName() })

	transfers, err := svc.repo.QueryTransfers(ctx, school.TransferFilter{GroupID: group.ID})
	if err != nil {
		return GroupReport{}, errors.Wrap(err, "querying transfers")
	}
	return GroupReport{Group: group, Students: rows, Transfers: transfers}, nil
}
