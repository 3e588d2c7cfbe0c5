package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

// Deletions cascade to dependent records in one unit each.

func connectionIDs(conns []Connection) []string {
	ids := make([]string, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.ID)
	}
	return ids
}

func lessonIDs(lessons []Lesson) []string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

// deactivateConnections detaches the connections matching filter and deactivates their lessons.
func deactivateConnections(ctx context.Context, repo Repository, filter ConnectionFilter, upd ConnectionUpdate) error {
	conns, err := repo.QueryConnections(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "querying connections")
	}
	if len(conns) == 0 {
		return nil
	}
	inactive := false
	if err = repo.UpdateLessons(ctx, LessonFilter{ConnectionIDs: connectionIDs(conns)}, LessonUpdate{Active: &inactive}); err != nil {
		return errors.Wrap(err, "deactivating lessons")
	}
	upd.Active = &inactive
	return errors.Wrap(repo.UpdateConnections(ctx, ConnectionFilter{IDs: connectionIDs(conns)}, upd), "deactivating connections")
}

// DeleteStudent removes a student with their scores and roster entries.
// Transfers and payments are kept.
func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	err := svc.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := user.GetKind(ctx, repo, id, user.KindStudent); err != nil {
			return err
		}
		if err := repo.DeleteScores(ctx, ScoreFilter{StudentIDs: []string{id}}); err != nil {
			return errors.Wrap(err, "deleting scores")
		}
		if err := repo.PullGroupStudent(ctx, id); err != nil {
			return errors.Wrap(err, "pulling student from groups")
		}
		return errors.Wrap(repo.DeleteUser(ctx, id), "deleting student")
	})
	if err != nil {
		return err
	}
	svc.logger.Info("student deleted", map[string]interface{}{"student": id})
	return nil
}

// DeleteTeacher removes a teacher and their KPIs. Their connections are detached
// and deactivated together with their lessons.
func (svc *Service) DeleteTeacher(ctx context.Context, id string) error {
	err := svc.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := user.GetKind(ctx, repo, id, user.KindTeacher); err != nil {
			return err
		}
		if err := deactivateConnections(ctx, repo, ConnectionFilter{TeacherID: id}, ConnectionUpdate{ClearTeacher: true}); err != nil {
			return err
		}
		if err := repo.DeleteKPIs(ctx, KPIFilter{TeacherIDs: []string{id}}); err != nil {
			return errors.Wrap(err, "deleting KPIs")
		}
		return errors.Wrap(repo.DeleteUser(ctx, id), "deleting teacher")
	})
	if err != nil {
		return err
	}
	svc.logger.Info("teacher deleted", map[string]interface{}{"teacher": id})
	return nil
}

func (svc *Service) DeleteDiscipline(ctx context.Context, id string) error {
	return svc.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetDiscipline(ctx, id); err != nil {
			return errors.Wrap(err, "getting discipline")
		}
		if err := deactivateConnections(ctx, repo, ConnectionFilter{DisciplineID: id}, ConnectionUpdate{ClearDiscipline: true}); err != nil {
			return err
		}
		return errors.Wrap(repo.DeleteDiscipline(ctx, id), "deleting discipline")
	})
}

// DeleteConnection removes a connection with its lessons and their scores.
func (svc *Service) DeleteConnection(ctx context.Context, id string) error {
	return svc.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetConnection(ctx, id); err != nil {
			return errors.Wrap(err, "getting connection")
		}
		lessons, err := repo.QueryLessons(ctx, LessonFilter{ConnectionIDs: []string{id}})
		if err != nil {
			return errors.Wrap(err, "querying lessons")
		}
		if len(lessons) > 0 {
			if err = repo.DeleteScores(ctx, ScoreFilter{LessonIDs: lessonIDs(lessons)}); err != nil {
				return errors.Wrap(err, "deleting scores")
			}
			if err = repo.DeleteLessons(ctx, LessonFilter{ConnectionIDs: []string{id}}); err != nil {
				return errors.Wrap(err, "deleting lessons")
			}
		}
		return errors.Wrap(repo.DeleteConnection(ctx, id), "deleting connection")
	})
}

func (svc *Service) DeleteLesson(ctx context.Context, id string) error {
	return svc.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetLesson(ctx, id); err != nil {
			return errors.Wrap(err, "getting lesson")
		}
		if err := repo.DeleteScores(ctx, ScoreFilter{LessonIDs: []string{id}}); err != nil {
			return errors.Wrap(err, "deleting scores")
		}
		return errors.Wrap(repo.DeleteLessons(ctx, LessonFilter{IDs: []string{id}}), "deleting lesson")
	})
}

// DeleteHours removes a timetable slot; its lessons lose their slot and are deactivated.
func (svc *Service) DeleteHours(ctx context.Context, id string) error {
	return svc.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetHours(ctx, id); err != nil {
			return errors.Wrap(err, "getting hours")
		}
		inactive := false
		if err := repo.UpdateLessons(ctx, LessonFilter{HoursID: id}, LessonUpdate{Active: &inactive, ClearHours: true}); err != nil {
			return errors.Wrap(err, "detaching lessons")
		}
		return errors.Wrap(repo.DeleteHours(ctx, id), "deleting hours")
	})
}

// DeleteGroup removes a group with an empty roster.
func (svc *Service) DeleteGroup(ctx context.Context, id string) error {
	group, err := svc.store.GetGroup(ctx, id)
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	if len(group.Students) > 0 {
		return core.NewConflictError("group %q is not empty", id)
	}
	return svc.store.DeleteGroup(ctx, id)
}

func (svc *Service) DeleteQuarter(ctx context.Context, id string) error {
	if _, err := svc.store.GetQuarter(ctx, id); err != nil {
		return errors.Wrap(err, "getting quarter")
	}
	return svc.store.DeleteQuarter(ctx, id)
}
