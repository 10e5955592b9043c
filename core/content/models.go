package content

import (
	"strings"
	"time"
)

type MaterialType string

const (
	MaterialText     MaterialType = "text"
	MaterialImage    MaterialType = "image"
	MaterialVideo    MaterialType = "video"
	MaterialDocument MaterialType = "document"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

type Material struct {
	ID          string       `json:"id"`
	CourseID    string       `json:"course_id"`
	UploadedBy  string       `json:"uploaded_by"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Type        MaterialType `json:"type"`
	Content     string       `json:"content,omitempty"`
	FilePath    string       `json:"file_path,omitempty"`
	IsPublished bool         `json:"is_published"`
	SortOrder   int          `json:"sort_order"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Quiz struct {
	ID             string     `json:"id"`
	CourseID       string     `json:"course_id"`
	CreatedBy      string     `json:"created_by"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	TimeLimit      int        `json:"time_limit,omitempty"` // minutes, 0: unlimited
	MaxAttempts    int        `json:"max_attempts"`
	PassingScore   int        `json:"passing_score"` // percentage
	IsPublished    bool       `json:"is_published"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsAvailable reports whether now is inside the quiz availability window. Both bounds are inclusive,
// a missing bound is unbounded on that side, and a window whose start is after its end never matches.
func (q Quiz) IsAvailable(now time.Time) bool {
	if q.AvailableFrom != nil && q.AvailableFrom.After(now) {
		return false
	}
	if q.AvailableUntil != nil && q.AvailableUntil.Before(now) {
		return false
	}
	return true
}

type Question struct {
	ID            string       `json:"id"`
	QuizID        string       `json:"quiz_id"`
	Question      string       `json:"question"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"-"`
	Points        int          `json:"points"`
	SortOrder     int          `json:"sort_order"`
}

// IsCorrect compares answer and the correct answer, ignoring case and surrounding whitespace.
func (q Question) IsCorrect(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
}

type Attempt struct {
	ID           string            `json:"id"`
	QuizID       string            `json:"quiz_id"`
	StudentID    string            `json:"student_id"`
	Answers      map[string]string `json:"answers"` // question ID -> answer
	Score        *float64          `json:"score"`   // percentage
	PointsEarned int               `json:"points_earned"`
	TotalPoints  int               `json:"total_points"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at"`
	IsGraded     bool              `json:"is_graded"`
	CreatedAt    time.Time         `json:"created_at"`
}

type Assignment struct {
	ID                  string    `json:"id"`
	CourseID            string    `json:"course_id"`
	CreatedBy           string    `json:"created_by"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Instructions        string    `json:"instructions,omitempty"`
	MaxPoints           int       `json:"max_points"`
	DueDate             time.Time `json:"due_date"`
	AllowLateSubmission bool      `json:"allow_late_submission"`
	IsPublished         bool      `json:"is_published"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type Submission struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignment_id"`
	StudentID    string     `json:"student_id"`
	Content      string     `json:"content,omitempty"`
	Grade        *float64   `json:"grade"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedBy     string     `json:"graded_by,omitempty"`
	GradedAt     *time.Time `json:"graded_at"`
	IsLate       bool       `json:"is_late"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (s Submission) IsGraded() bool { return s.Grade != nil }

type Forum struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	CreatedBy   string     `json:"created_by"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	IsPinned    bool       `json:"is_pinned"`
	IsLocked    bool       `json:"is_locked"`
	PostsCount  int        `json:"posts_count"`
	LastPostAt  *time.Time `json:"last_post_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Filter narrows content queries. Zero values do not filter.
type Filter struct {
	CourseIDs     []string
	PublishedOnly bool
}

type AssignmentFilter struct {
	Filter
	DueAfter time.Time // exclusive
}

type SubmissionFilter struct {
	AssignmentIDs []string
	UngradedOnly  bool
	// PerAssignmentLimit keeps only the N most recent submissions of each assignment (0: no limit).
	PerAssignmentLimit int
}
