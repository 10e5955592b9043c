package inmemdb

import (
	"context"
	"time"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/content"
)

type contentRepository struct {
	materials   *table[content.Material]
	quizzes     *table[content.Quiz]
	questions   *table[content.Question]
	attempts    *table[content.Attempt]
	assignments *table[content.Assignment]
	submissions *table[content.Submission]
	forums      *table[content.Forum]
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(db *DB) *contentRepository {
	return &contentRepository{
		materials:   db.material,
		quizzes:     db.quiz,
		questions:   db.question,
		attempts:    db.attempt,
		assignments: db.assignment,
		submissions: db.submission,
		forums:      db.forum,
	}
}

// inIDs returns a predicate on IDs; an empty list matches every ID.
func inIDs(ids []string) func(string) bool {
	if len(ids) == 0 {
		return func(string) bool { return true }
	}
	wanted := set(ids)
	return func(id string) bool { return wanted[id] }
}

func (repo *contentRepository) QueryMaterials(_ context.Context, filter content.Filter, _ ...core.DBExecutor) ([]content.Material, error) {
	inCourse := inIDs(filter.CourseIDs)

	repo.materials.RLock()
	defer repo.materials.RUnlock()
	return repo.materials.all(
		func(m content.Material) bool { return inCourse(m.CourseID) && (!filter.PublishedOnly || m.IsPublished) },
		func(a, b content.Material) bool {
			if a.SortOrder != b.SortOrder {
				return a.SortOrder < b.SortOrder
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		},
	), nil
}

func (repo *contentRepository) QueryQuizzes(_ context.Context, filter content.Filter, _ ...core.DBExecutor) ([]content.Quiz, error) {
	inCourse := inIDs(filter.CourseIDs)

	repo.quizzes.RLock()
	defer repo.quizzes.RUnlock()
	return repo.quizzes.all(
		func(q content.Quiz) bool { return inCourse(q.CourseID) && (!filter.PublishedOnly || q.IsPublished) },
		func(a, b content.Quiz) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		},
	), nil
}

func (repo *contentRepository) QueryAssignments(_ context.Context, filter content.AssignmentFilter, _ ...core.DBExecutor) ([]content.Assignment, error) {
	inCourse := inIDs(filter.CourseIDs)

	repo.assignments.RLock()
	defer repo.assignments.RUnlock()
	return repo.assignments.all(
		func(a content.Assignment) bool {
			return inCourse(a.CourseID) &&
				(!filter.PublishedOnly || a.IsPublished) &&
				(filter.DueAfter.IsZero() || a.DueDate.After(filter.DueAfter))
		},
		func(a, b content.Assignment) bool {
			if !a.DueDate.Equal(b.DueDate) {
				return a.DueDate.Before(b.DueDate)
			}
			return a.ID < b.ID
		},
	), nil
}

func (repo *contentRepository) QuerySubmissions(_ context.Context, filter content.SubmissionFilter, _ ...core.DBExecutor) ([]content.Submission, error) {
	inAssignment := inIDs(filter.AssignmentIDs)

	repo.submissions.RLock()
	subs := repo.submissions.all(
		func(s content.Submission) bool { return inAssignment(s.AssignmentID) && (!filter.UngradedOnly || !s.IsGraded()) },
		func(a, b content.Submission) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		},
	)
	repo.submissions.RUnlock()

	if filter.PerAssignmentLimit <= 0 {
		return subs, nil
	}
	kept := make([]content.Submission, 0, len(subs))
	perAssignment := make(map[string]int)
	for _, s := range subs {
		if perAssignment[s.AssignmentID] < filter.PerAssignmentLimit {
			perAssignment[s.AssignmentID]++
			kept = append(kept, s)
		}
	}
	return kept, nil
}

func (repo *contentRepository) QueryForums(_ context.Context, filter content.Filter, _ ...core.DBExecutor) ([]content.Forum, error) {
	inCourse := inIDs(filter.CourseIDs)

	repo.forums.RLock()
	defer repo.forums.RUnlock()
	return repo.forums.all(
		func(f content.Forum) bool { return inCourse(f.CourseID) },
		func(a, b content.Forum) bool {
			if a.IsPinned != b.IsPinned {
				return a.IsPinned
			}
			if c := compareNullTimes(a.LastPostAt, b.LastPostAt); c != 0 {
				return c > 0
			}
			return a.ID < b.ID
		},
	), nil
}

// compareNullTimes orders nil before any time, so that descending sorts put nulls last.
func compareNullTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return compareTimes(*a, *b)
}

func (repo *contentRepository) GetQuiz(_ context.Context, id string, _ ...core.DBExecutor) (content.Quiz, error) {
	if q, ok := repo.quizzes.get(id); ok {
		return q, nil
	}
	return content.Quiz{}, content.ErrQuizNotFound
}

func (repo *contentRepository) QueryQuestions(_ context.Context, quizID string, _ ...core.DBExecutor) ([]content.Question, error) {
	repo.questions.RLock()
	defer repo.questions.RUnlock()
	return repo.questions.all(
		func(q content.Question) bool { return q.QuizID == quizID },
		func(a, b content.Question) bool {
			if a.SortOrder != b.SortOrder {
				return a.SortOrder < b.SortOrder
			}
			return a.ID < b.ID
		},
	), nil
}

func (repo *contentRepository) CreateAttempt(_ context.Context, attempt content.Attempt, maxAttempts int, _ ...core.DBExecutor) (content.Attempt, error) {
	repo.attempts.Lock()
	defer repo.attempts.Unlock()
	if maxAttempts > 0 {
		count := 0
		for _, a := range repo.attempts.rows {
			if a.QuizID == attempt.QuizID && a.StudentID == attempt.StudentID {
				count++
			}
		}
		if count >= maxAttempts {
			return content.Attempt{}, content.ErrNoAttemptsLeft
		}
	}
	attempt.ID = newID()
	repo.attempts.rows[attempt.ID] = attempt
	return attempt, nil
}

// Writers used to load fixtures. Content authoring has no service of its own.

func (repo *contentRepository) CreateMaterial(m content.Material) content.Material {
	m.ID = newID()
	repo.materials.insert(m.ID, m)
	return m
}

func (repo *contentRepository) CreateQuiz(q content.Quiz) content.Quiz {
	q.ID = newID()
	repo.quizzes.insert(q.ID, q)
	return q
}

func (repo *contentRepository) CreateQuestion(q content.Question) content.Question {
	q.ID = newID()
	repo.questions.insert(q.ID, q)
	return q
}

func (repo *contentRepository) CreateAssignment(a content.Assignment) content.Assignment {
	a.ID = newID()
	repo.assignments.insert(a.ID, a)
	return a
}

func (repo *contentRepository) CreateSubmission(s content.Submission) content.Submission {
	s.ID = newID()
	repo.submissions.insert(s.ID, s)
	return s
}

func (repo *contentRepository) CreateForum(f content.Forum) content.Forum {
	f.ID = newID()
	repo.forums.insert(f.ID, f)
	return f
}
