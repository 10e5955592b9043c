package inmemdb

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

type (
	// DB is an in-memory store used by tests and local runs without postgres.
	// It has no transactions: services get a nil core.DB alongside it.
	DB struct {
		user       *table[user.User]
		course     *table[course.Course]
		enrollment *table[course.Enrollment]
		material   *table[content.Material]
		quiz       *table[content.Quiz]
		question   *table[content.Question]
		attempt    *table[content.Attempt]
		assignment *table[content.Assignment]
		submission *table[content.Submission]
		forum      *table[content.Forum]
	}

	table[T any] struct {
		sync.RWMutex
		rows map[string]T
	}
)

func Open() *DB {
	return &DB{
		user:       newTable[user.User](),
		course:     newTable[course.Course](),
		enrollment: newTable[course.Enrollment](),
		material:   newTable[content.Material](),
		quiz:       newTable[content.Quiz](),
		question:   newTable[content.Question](),
		attempt:    newTable[content.Attempt](),
		assignment: newTable[content.Assignment](),
		submission: newTable[content.Submission](),
		forum:      newTable[content.Forum](),
	}
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func newID() string { return uuid.New().String() }

// all returns the rows matching keep, sorted by less. Callers hold the read lock.
func (t *table[T]) all(keep func(T) bool, less func(a, b T) bool) []T {
	rows := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			rows = append(rows, row)
		}
	}
	if less != nil {
		sort.Slice(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	}
	return rows
}

func (t *table[T]) insert(id string, row T) {
	t.Lock()
	t.rows[id] = row
	t.Unlock()
}

// remove deletes the rows matching drop and returns their IDs.
func (t *table[T]) remove(drop func(T) bool) []string {
	t.Lock()
	defer t.Unlock()
	var ids []string
	for id, row := range t.rows {
		if drop(row) {
			delete(t.rows, id)
			ids = append(ids, id)
		}
	}
	return ids
}

// cascadeCourse removes what references course id, as the ON DELETE CASCADE foreign keys do.
func (db *DB) cascadeCourse(id string) {
	inCourse := func(courseID string) bool { return courseID == id }

	db.enrollment.remove(func(e course.Enrollment) bool { return inCourse(e.CourseID) })
	db.material.remove(func(m content.Material) bool { return inCourse(m.CourseID) })
	db.forum.remove(func(f content.Forum) bool { return inCourse(f.CourseID) })

	quizzes := set(db.quiz.remove(func(q content.Quiz) bool { return inCourse(q.CourseID) }))
	db.question.remove(func(q content.Question) bool { return quizzes[q.QuizID] })
	db.attempt.remove(func(a content.Attempt) bool { return quizzes[a.QuizID] })

	assignments := set(db.assignment.remove(func(a content.Assignment) bool { return inCourse(a.CourseID) }))
	db.submission.remove(func(s content.Submission) bool { return assignments[s.AssignmentID] })
}

func (t *table[T]) get(id string) (T, bool) {
	t.RLock()
	defer t.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

func set(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func limit[T any](rows []T, n int) []T {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
