package content

import (
	"time"

	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

// Viewer is a user looking at the content of one course.
type Viewer struct {
	User            user.User
	CourseTeacherID string
}

func NewViewer(usr user.User, courseTeacherID string) Viewer {
	return Viewer{User: usr, CourseTeacherID: courseTeacherID}
}

// scope tells how much of a course's content a viewer gets.
type scope int

const (
	scopePublished scope = iota // published (and, for quizzes, available) items only
	scopeAll
)

var scopes = map[user.Role]func(v Viewer) scope{
	user.RoleAdministrator: func(Viewer) scope { return scopeAll },
	user.RoleTeacher: func(v Viewer) scope {
		if v.User.ID == v.CourseTeacherID {
			return scopeAll
		}
		return scopePublished
	},
	user.RoleStudent: func(Viewer) scope { return scopePublished },
}

func (v Viewer) scope() (scope, error) {
	fn, ok := scopes[v.User.Role]
	if !ok {
		return scopePublished, errors.Wrapf(core.ErrInvariantViolation, "unknown role %q for user %s", v.User.Role, v.User.ID)
	}
	return fn(v), nil
}

// SeesAll reports whether v is exempt from publication filtering (administrators and the owning teacher).
func (v Viewer) SeesAll() (bool, error) {
	s, err := v.scope()
	return s == scopeAll, err
}

func filter[T any](v Viewer, items []T, visible func(T) bool) ([]T, error) {
	s, err := v.scope()
	if err != nil {
		return nil, err
	}
	if s == scopeAll {
		return items, nil
	}
	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if visible(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// VisibleMaterials returns the materials v may see, in the supplied order (sort_order ascending).
func VisibleMaterials(v Viewer, materials []Material) ([]Material, error) {
	return filter(v, materials, func(m Material) bool { return m.IsPublished })
}

// VisibleQuizzes returns the quizzes v may see at now, in the supplied order (created_at ascending).
func VisibleQuizzes(v Viewer, quizzes []Quiz, now time.Time) ([]Quiz, error) {
	return filter(v, quizzes, func(q Quiz) bool { return QuizOpen(q, now) })
}

// VisibleAssignments returns the assignments v may see, in the supplied order (due_date ascending).
// The due date does not hide an assignment.
func VisibleAssignments(v Viewer, assignments []Assignment) ([]Assignment, error) {
	return filter(v, assignments, func(a Assignment) bool { return a.IsPublished })
}

// QuizOpen is the student-side quiz predicate: published and inside its availability window.
func QuizOpen(q Quiz, now time.Time) bool {
	return q.IsPublished && q.IsAvailable(now)
}
