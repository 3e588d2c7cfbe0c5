package report

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core/period"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/stats"
	"github.com/trezcool/alama/core/user"
)

var monthlyExamSpec = stats.Spec{Fields: []stats.Field{stats.FieldMonthlyExam}}

// TeacherRow is a teacher's monthly exam average over the school month, with their KPI.
// Teachers without monthly exam scores have a null average and a zero count.
type TeacherRow struct {
	user.User
	MonthlyExam   null.Float64 `json:"monthlyExam"`
	Count         int          `json:"count"`
	Participation null.Float64 `json:"participation"`
	Certificate   null.Float64 `json:"certificate"`
	Attend        null.Float64 `json:"attend"`
}

type TeacherReport struct {
	Month    string        `json:"month"`
	Window   period.Window `json:"window"`
	Teachers []TeacherRow  `json:"teachers"`
}

// TeacherMonthly reports every teacher of the branch for the month of ref, a "YYYY-MM"
// or dated reference. Scores are those of active monthly exam lessons dated in the
// school month; each score counts for the teacher who gave it.
func (svc *Service) TeacherMonthly(ctx context.Context, branchID, ref string) (TeacherReport, error) {
	t, err := period.ParseMonth(ref, svc.loc)
	if err != nil {
		return TeacherReport{}, err
	}
	month := period.MonthKey(t)
	key := teacherKeys + fmt.Sprintf("%s:%s", branchID, month)
	return cached(ctx, svc, key, func() (TeacherReport, error) {
		return svc.teacherMonthly(ctx, branchID, month, period.SchoolMonth(t))
	})
}

func (svc *Service) teacherMonthly(ctx context.Context, branchID, month string, window period.Window) (TeacherReport, error) {
	teachers, err := svc.repo.QueryUsers(ctx, user.Filter{BranchID: branchID, Kind: user.KindTeacher})
	if err != nil {
		return TeacherReport{}, errors.Wrap(err, "querying teachers")
	}
	report := TeacherReport{Month: month, Window: window, Teachers: make([]TeacherRow, 0, len(teachers))}
	if len(teachers) == 0 {
		return report, nil
	}

	records, err := svc.monthlyExamRecords(ctx, branchID, window)
	if err != nil {
		return TeacherReport{}, err
	}

	ids := make([]string, 0, len(teachers))
	for _, t := range teachers {
		ids = append(ids, t.ID)
	}
	kpis, err := svc.repo.QueryKPIs(ctx, school.KPIFilter{TeacherIDs: ids, Month: month})
	if err != nil {
		return TeacherReport{}, errors.Wrap(err, "querying kpis")
	}
	byTeacher := make(map[string]school.KPI, len(kpis))
	for _, k := range kpis {
		byTeacher[k.TeacherID] = k
	}

	summaries := stats.GroupBy(ids, records, monthlyExamSpec)
	for _, t := range teachers {
		sum := summaries[t.ID]
		kpi := byTeacher[t.ID]
		report.Teachers = append(report.Teachers, TeacherRow{
			User:          t,
			MonthlyExam:   sum.MonthlyExam,
			Count:         sum.Count,
			Participation: kpi.Participation,
			Certificate:   kpi.Certificate,
			Attend:        kpi.Attend,
		})
	}
	sortByName(svc, report.Teachers, func(r TeacherRow) string { return r.DisplayName() })
	return report, nil
}

// monthlyExamRecords groups the branch's monthly exam scores in window by teacher.
// Scores recorded without a teacher are credited to the lesson's connection teacher.
func (svc *Service) monthlyExamRecords(ctx context.Context, branchID string, window period.Window) (map[string][]stats.Record, error) {
	records := make(map[string][]stats.Record)

	conns, err := svc.repo.QueryConnections(ctx, school.ConnectionFilter{BranchID: branchID})
	if err != nil {
		return nil, errors.Wrap(err, "querying connections")
	}
	if len(conns) == 0 {
		return records, nil
	}
	connTeacher := make(map[string]string, len(conns))
	connIDs := make([]string, 0, len(conns))
	for _, c := range conns {
		connTeacher[c.ID] = c.TeacherID
		connIDs = append(connIDs, c.ID)
	}

	active := true
	lessons, err := svc.repo.QueryLessons(ctx, school.LessonFilter{
		ConnectionIDs: connIDs,
		Type:          school.LessonMonthlyExam,
		Active:        &active,
		From:          window.Start,
		To:            window.End,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessonTeacher := make(map[string]string, len(lessons))
	for _, l := range lessons {
		lessonTeacher[l.ID] = connTeacher[l.ConnectionID]
	}

	scores, err := svc.scores(ctx, lessons)
	if err != nil {
		return nil, err
	}
	for _, s := range scores {
		teacherID := s.TeacherID
		if teacherID == "" {
			teacherID = lessonTeacher[s.LessonID]
		}
		if teacherID != "" {
			records[teacherID] = append(records[teacherID], s.Record)
		}
	}
	return records, nil
}
