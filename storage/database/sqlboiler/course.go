package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/course"
)

const courseColumns = "id, name, description, code, grade_level, teacher_id, is_active, created_at, updated_at"

type courseRow struct {
	ID          string      `boil:"id"`
	Name        string      `boil:"name"`
	Description null.String `boil:"description"`
	Code        string      `boil:"code"`
	GradeLevel  int         `boil:"grade_level"`
	TeacherID   string      `boil:"teacher_id"`
	IsActive    bool        `boil:"is_active"`
	CreatedAt   time.Time   `boil:"created_at"`
	UpdatedAt   time.Time   `boil:"updated_at"`
}

func (row courseRow) unboil() course.Course {
	return course.Course{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description.String,
		Code:        row.Code,
		GradeLevel:  row.GradeLevel,
		TeacherID:   row.TeacherID,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type enrollmentRow struct {
	ID         string    `boil:"id"`
	CourseID   string    `boil:"course_id"`
	StudentID  string    `boil:"student_id"`
	EnrolledAt time.Time `boil:"enrolled_at"`
}

func (row enrollmentRow) unboil() course.Enrollment {
	return course.Enrollment{
		ID:         row.ID,
		CourseID:   row.CourseID,
		StudentID:  row.StudentID,
		EnrolledAt: row.EnrolledAt.UTC(),
	}
}

type courseRepository struct {
	executor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{executor{db: exec}}
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}

	var row courseRow
	err := newQuery(
		qm.Select(courseColumns),
		qm.From("course"),
		qm.Where("id = ?", id),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.unboil(), nil
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code, exclID string, exec ...core.DBExecutor) error {
	mods := []qm.QueryMod{qm.From("course"), qm.Where("lower(code) = lower(?)", code)}
	if exclID != "" {
		mods = append(mods, qm.Where("id::text <> ?", exclID))
	}
	q := newQuery(mods...)
	queries.SetCount(q)

	var count int64
	if err := q.QueryRowContext(ctx, repo.getExec(exec)).Scan(&count); err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if count > 0 {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) filterMods(filter course.QueryFilter) []qm.QueryMod {
	var mods []qm.QueryMod
	if filter.TeacherID != "" {
		mods = append(mods, qm.Where("teacher_id::text = ?", filter.TeacherID))
	}
	if filter.StudentID != "" {
		mods = append(mods, qm.Where("id IN (SELECT course_id FROM enrollment WHERE student_id::text = ?)", filter.StudentID))
	}
	if filter.IsActive != nil {
		mods = append(mods, qm.Where("is_active = ?", *filter.IsActive))
	}
	return mods
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	mods := append([]qm.QueryMod{qm.Select(courseColumns), qm.From("course")}, repo.filterMods(filter)...)
	if filter.LatestFirst {
		mods = append(mods, qm.OrderBy("created_at DESC, id"))
	} else {
		mods = append(mods, qm.OrderBy("name, id"))
	}
	if filter.Limit > 0 {
		mods = append(mods, qm.Limit(filter.Limit))
	}

	var rows []courseRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.unboil())
	}
	return courses, nil
}

func (repo courseRepository) CountCourses(ctx context.Context, filter course.QueryFilter, exec ...core.DBExecutor) (int, error) {
	q := newQuery(append([]qm.QueryMod{qm.From("course")}, repo.filterMods(filter)...)...)
	queries.SetCount(q)

	var count int64
	if err := q.QueryRowContext(ctx, repo.getExec(exec)).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return int(count), nil
}

func (repo courseRepository) HasEnrollment(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) (bool, error) {
	var found bool
	err := queries.Raw(
		"SELECT EXISTS (SELECT 1 FROM enrollment WHERE course_id::text = $1 AND student_id::text = $2)",
		courseID, studentID,
	).QueryRowContext(ctx, repo.getExec(exec)).Scan(&found)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return found, nil
}

func (repo courseRepository) QueryEnrollments(ctx context.Context, courseIDs []string, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	ids := validUUIDs(courseIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []enrollmentRow
	err := newQuery(
		qm.Select("id, course_id, student_id, enrolled_at"),
		qm.From("enrollment"),
		qm.WhereIn("course_id IN ?", ids...),
		qm.OrderBy("enrolled_at, id"),
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.unboil())
	}
	return enrollments, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	c.ID = uuid.New().String()
	_, err := queries.Raw(
		`INSERT INTO course (`+courseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, null.NewString(c.Description, c.Description != ""), c.Code, c.GradeLevel,
		c.TeacherID, c.IsActive, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(c.ID); err != nil {
		return course.Course{}, course.ErrNotFound
	}

	res, err := queries.Raw(
		`UPDATE course SET name = $2, description = $3, code = $4, grade_level = $5, teacher_id = $6, is_active = $7, updated_at = $8
		WHERE id = $1`,
		c.ID, c.Name, null.NewString(c.Description, c.Description != ""), c.Code, c.GradeLevel,
		c.TeacherID, c.IsActive, c.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if err = mustAffect(res, course.ErrNotFound); err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return course.ErrNotFound
	}

	// enrollments and content go with it (ON DELETE CASCADE)
	res, err := queries.Raw("DELETE FROM course WHERE id = $1", id).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return mustAffect(res, course.ErrNotFound)
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, error) {
	enr.ID = uuid.New().String()
	_, err := queries.Raw(
		"INSERT INTO enrollment (id, course_id, student_id, enrolled_at) VALUES ($1, $2, $3, $4)",
		enr.ID, enr.CourseID, enr.StudentID, enr.EnrolledAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		if isUniqueViolation(err) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}
