package inmemdb

import (
	"context"
	"strings"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/course"
)

type courseRepository struct {
	db          *DB
	courses     *table[course.Course]
	enrollments *table[course.Enrollment]
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db, courses: db.course, enrollments: db.enrollment}
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	if c, ok := repo.courses.get(id); ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) CheckCodeUniqueness(_ context.Context, code, exclID string, _ ...core.DBExecutor) error {
	repo.courses.RLock()
	defer repo.courses.RUnlock()
	for _, c := range repo.courses.rows {
		if c.ID != exclID && strings.EqualFold(c.Code, code) {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) match(filter course.QueryFilter) func(course.Course) bool {
	var enrolled map[string]bool
	if filter.StudentID != "" {
		repo.enrollments.RLock()
		enrolled = make(map[string]bool)
		for _, enr := range repo.enrollments.rows {
			if enr.StudentID == filter.StudentID {
				enrolled[enr.CourseID] = true
			}
		}
		repo.enrollments.RUnlock()
	}
	return func(c course.Course) bool {
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			return false
		}
		if enrolled != nil && !enrolled[c.ID] {
			return false
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			return false
		}
		return true
	}
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, _ ...core.DBExecutor) ([]course.Course, error) {
	keep := repo.match(filter)

	repo.courses.RLock()
	defer repo.courses.RUnlock()
	courses := repo.courses.all(keep, func(a, b course.Course) bool {
		if filter.LatestFirst {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		} else if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return limit(courses, filter.Limit), nil
}

func (repo *courseRepository) CountCourses(_ context.Context, filter course.QueryFilter, _ ...core.DBExecutor) (int, error) {
	keep := repo.match(filter)

	repo.courses.RLock()
	defer repo.courses.RUnlock()
	return len(repo.courses.all(keep, nil)), nil
}

func (repo *courseRepository) HasEnrollment(_ context.Context, courseID, studentID string, _ ...core.DBExecutor) (bool, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()
	for _, enr := range repo.enrollments.rows {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, courseIDs []string, _ ...core.DBExecutor) ([]course.Enrollment, error) {
	wanted := set(courseIDs)

	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()
	return repo.enrollments.all(
		func(enr course.Enrollment) bool { return wanted[enr.CourseID] },
		func(a, b course.Enrollment) bool {
			if !a.EnrolledAt.Equal(b.EnrolledAt) {
				return a.EnrolledAt.Before(b.EnrolledAt)
			}
			return a.ID < b.ID
		},
	), nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()
	if repo.codeTaken(c) {
		return course.Course{}, course.ErrCodeExists
	}
	c.ID = newID()
	repo.courses.rows[c.ID] = c
	return c, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()
	if _, ok := repo.courses.rows[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	if repo.codeTaken(c) {
		return course.Course{}, course.ErrCodeExists
	}
	repo.courses.rows[c.ID] = c
	return c, nil
}

// codeTaken mimics the unique index on course.code. Callers hold the write lock.
func (repo *courseRepository) codeTaken(c course.Course) bool {
	for _, other := range repo.courses.rows {
		if other.ID != c.ID && other.Code == c.Code {
			return true
		}
	}
	return false
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string, _ ...core.DBExecutor) error {
	if removed := repo.courses.remove(func(c course.Course) bool { return c.ID == id }); len(removed) == 0 {
		return course.ErrNotFound
	}
	repo.db.cascadeCourse(id)
	return nil
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, enr course.Enrollment, _ ...core.DBExecutor) (course.Enrollment, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()
	for _, e := range repo.enrollments.rows {
		if e.CourseID == enr.CourseID && e.StudentID == enr.StudentID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}
	enr.ID = newID()
	repo.enrollments.rows[enr.ID] = enr
	return enr, nil
}
