package content

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core"
)

var (
	ErrQuizNotFound   = fmt.Errorf("quiz %w", core.ErrNotFound)
	ErrNoAttemptsLeft = errors.New("no attempts left")
)

// Repository fetches a course's child collections. Callers filter the results with the Visible* funcs.
type Repository interface {
	// QueryMaterials orders by sort_order then created_at, ascending.
	QueryMaterials(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Material, error)
	// QueryQuizzes orders by created_at ascending.
	QueryQuizzes(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Quiz, error)
	// QueryAssignments orders by due_date ascending.
	QueryAssignments(ctx context.Context, filter AssignmentFilter, exec ...core.DBExecutor) ([]Assignment, error)
	// QuerySubmissions orders by created_at descending.
	QuerySubmissions(ctx context.Context, filter SubmissionFilter, exec ...core.DBExecutor) ([]Submission, error)
	// QueryForums orders pinned forums first, then by last_post_at descending (nulls last).
	QueryForums(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Forum, error)

	GetQuiz(ctx context.Context, id string, exec ...core.DBExecutor) (Quiz, error)
	// QueryQuestions orders by sort_order ascending.
	QueryQuestions(ctx context.Context, quizID string, exec ...core.DBExecutor) ([]Question, error)
	// CreateAttempt stores attempt unless its student already has maxAttempts attempts of the quiz,
	// in which case it returns ErrNoAttemptsLeft. maxAttempts <= 0 means unlimited.
	// Run it inside a transaction: the count and the insert must not interleave with another submit.
	CreateAttempt(ctx context.Context, attempt Attempt, maxAttempts int, exec ...core.DBExecutor) (Attempt, error)
}
