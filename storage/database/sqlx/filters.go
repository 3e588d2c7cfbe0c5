package sqlxrepos

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

func userWhere(f user.Filter) sq.And {
	where := inIDs(sq.And{}, "id", f.IDs)
	if len(f.ExcludeIDs) > 0 {
		where = append(where, sq.NotEq{"id": f.ExcludeIDs})
	}
	where = eq(where, "branch_id", f.BranchID)
	where = eq(where, "kind", string(f.Kind))
	if f.IsActive != nil {
		where = append(where, sq.Eq{"is_active": *f.IsActive})
	}
	return eq(where, "username", f.Username)
}

func groupWhere(f school.GroupFilter) sq.And {
	where := inIDs(sq.And{}, "id", f.IDs)
	where = eq(where, "branch_id", f.BranchID)
	if f.StudentID != "" {
		where = append(where, sq.Expr("? = ANY(students)", f.StudentID))
	}
	return where
}

func transferWhere(f school.TransferFilter) sq.And {
	where := inIDs(sq.And{}, "student_id", f.StudentIDs)
	if f.GroupID != "" {
		where = append(where, sq.Or{sq.Eq{"from_group_id": f.GroupID}, sq.Eq{"to_group_id": f.GroupID}})
	}
	return where
}

func disciplineWhere(f school.DisciplineFilter) sq.And {
	return eq(inIDs(sq.And{}, "id", f.IDs), "branch_id", f.BranchID)
}

func connectionWhere(f school.ConnectionFilter) sq.And {
	where := inIDs(sq.And{}, "id", f.IDs)
	where = eq(where, "branch_id", f.BranchID)
	where = eq(where, "teacher_id", f.TeacherID)
	where = eq(where, "discipline_id", f.DisciplineID)
	where = inIDs(where, "group_id", f.GroupIDs)
	if f.Active != nil {
		where = append(where, sq.Eq{"active": *f.Active})
	}
	return where
}

func lessonWhere(f school.LessonFilter) sq.And {
	where := inIDs(sq.And{}, "id", f.IDs)
	where = inIDs(where, "connection_id", f.ConnectionIDs)
	where = eq(where, "hours_id", f.HoursID)
	where = eq(where, "type", string(f.Type))
	if f.Active != nil {
		where = append(where, sq.Eq{"active": *f.Active})
	}
	if !f.From.IsZero() {
		where = append(where, sq.GtOrEq{"date": f.From})
	}
	if !f.To.IsZero() {
		where = append(where, sq.Lt{"date": f.To})
	}
	return where
}

func scoreWhere(f school.ScoreFilter) sq.And {
	return inIDs(inIDs(sq.And{}, "lesson_id", f.LessonIDs), "student_id", f.StudentIDs)
}

func kpiWhere(f school.KPIFilter) sq.And {
	return eq(inIDs(sq.And{}, "teacher_id", f.TeacherIDs), "month", f.Month)
}

func payWhere(f school.PayFilter) sq.And {
	return inIDs(inIDs(sq.And{}, "pricing_id", f.PricingIDs), "student_id", f.StudentIDs)
}

func financeWhere(f school.FinanceFilter) sq.And {
	where := eq(sq.And{}, "branch_id", f.BranchID)
	if !f.From.IsZero() {
		where = append(where, sq.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		where = append(where, sq.Lt{"created_at": f.To})
	}
	return where
}
