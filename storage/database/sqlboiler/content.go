package boiledrepos

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/content"
)

type materialRow struct {
	ID          string      `boil:"id"`
	CourseID    string      `boil:"course_id"`
	UploadedBy  string      `boil:"uploaded_by"`
	Title       string      `boil:"title"`
	Description null.String `boil:"description"`
	Type        string      `boil:"type"`
	Content     null.String `boil:"content"`
	FilePath    null.String `boil:"file_path"`
	IsPublished bool        `boil:"is_published"`
	SortOrder   int         `boil:"sort_order"`
	CreatedAt   time.Time   `boil:"created_at"`
	UpdatedAt   time.Time   `boil:"updated_at"`
}

type quizRow struct {
	ID             string      `boil:"id"`
	CourseID       string      `boil:"course_id"`
	CreatedBy      string      `boil:"created_by"`
	Title          string      `boil:"title"`
	Description    null.String `boil:"description"`
	TimeLimit      null.Int    `boil:"time_limit"`
	MaxAttempts    int         `boil:"max_attempts"`
	PassingScore   int         `boil:"passing_score"`
	IsPublished    bool        `boil:"is_published"`
	AvailableFrom  null.Time   `boil:"available_from"`
	AvailableUntil null.Time   `boil:"available_until"`
	CreatedAt      time.Time   `boil:"created_at"`
	UpdatedAt      time.Time   `boil:"updated_at"`
}

type questionRow struct {
	ID            string    `boil:"id"`
	QuizID        string    `boil:"quiz_id"`
	Question      string    `boil:"question"`
	Type          string    `boil:"type"`
	Options       null.JSON `boil:"options"`
	CorrectAnswer string    `boil:"correct_answer"`
	Points        int       `boil:"points"`
	SortOrder     int       `boil:"sort_order"`
}

type assignmentRow struct {
	ID                  string      `boil:"id"`
	CourseID            string      `boil:"course_id"`
	CreatedBy           string      `boil:"created_by"`
	Title               string      `boil:"title"`
	Description         string      `boil:"description"`
	Instructions        null.String `boil:"instructions"`
	MaxPoints           int         `boil:"max_points"`
	DueDate             time.Time   `boil:"due_date"`
	AllowLateSubmission bool        `boil:"allow_late_submission"`
	IsPublished         bool        `boil:"is_published"`
	CreatedAt           time.Time   `boil:"created_at"`
	UpdatedAt           time.Time   `boil:"updated_at"`
}

type submissionRow struct {
	ID           string       `boil:"id"`
	AssignmentID string       `boil:"assignment_id"`
	StudentID    string       `boil:"student_id"`
	Content      null.String  `boil:"content"`
	Grade        null.Float64 `boil:"grade"`
	Feedback     null.String  `boil:"feedback"`
	GradedBy     null.String  `boil:"graded_by"`
	GradedAt     null.Time    `boil:"graded_at"`
	IsLate       bool         `boil:"is_late"`
	CreatedAt    time.Time    `boil:"created_at"`
}

type forumRow struct {
	ID          string      `boil:"id"`
	CourseID    string      `boil:"course_id"`
	CreatedBy   string      `boil:"created_by"`
	Title       string      `boil:"title"`
	Description null.String `boil:"description"`
	IsPinned    bool        `boil:"is_pinned"`
	IsLocked    bool        `boil:"is_locked"`
	PostsCount  int         `boil:"posts_count"`
	LastPostAt  null.Time   `boil:"last_post_at"`
	CreatedAt   time.Time   `boil:"created_at"`
}

const (
	materialColumns   = "id, course_id, uploaded_by, title, description, type, content, file_path, is_published, sort_order, created_at, updated_at"
	quizColumns       = "id, course_id, created_by, title, description, time_limit, max_attempts, passing_score, is_published, available_from, available_until, created_at, updated_at"
	questionColumns   = "id, quiz_id, question, type, options, correct_answer, points, sort_order"
	assignmentColumns = "id, course_id, created_by, title, description, instructions, max_points, due_date, allow_late_submission, is_published, created_at, updated_at"
	submissionColumns = "id, assignment_id, student_id, content, grade, feedback, graded_by, graded_at, is_late, created_at"
	forumColumns      = "id, course_id, created_by, title, description, is_pinned, is_locked, posts_count, last_post_at, created_at"
)

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

type contentRepository struct {
	executor
}

var _ content.Repository = (*contentRepository)(nil) // interface compliance check

func NewContentRepository(exec core.DBExecutor) *contentRepository {
	return &contentRepository{executor{db: exec}}
}

// courseMods narrows a content table query; an empty CourseIDs list matches every course.
func courseMods(table, columns string, filter content.Filter) []qm.QueryMod {
	mods := []qm.QueryMod{qm.Select(columns), qm.From(table)}
	if len(filter.CourseIDs) > 0 {
		mods = append(mods, qm.WhereIn("course_id IN ?", validUUIDs(filter.CourseIDs)...))
	}
	if filter.PublishedOnly {
		mods = append(mods, qm.Where("is_published = ?", true))
	}
	return mods
}

// noMatch reports whether the filter names courses that cannot exist.
func noMatch(ids []string) bool {
	return len(ids) > 0 && len(validUUIDs(ids)) == 0
}

func (repo contentRepository) QueryMaterials(ctx context.Context, filter content.Filter, exec ...core.DBExecutor) ([]content.Material, error) {
	if noMatch(filter.CourseIDs) {
		return nil, nil
	}

	var rows []materialRow
	mods := append(courseMods("learning_material", materialColumns, filter), qm.OrderBy("sort_order, created_at, id"))
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}

	materials := make([]content.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, content.Material{
			ID:          row.ID,
			CourseID:    row.CourseID,
			UploadedBy:  row.UploadedBy,
			Title:       row.Title,
			Description: row.Description.String,
			Type:        content.MaterialType(row.Type),
			Content:     row.Content.String,
			FilePath:    row.FilePath.String,
			IsPublished: row.IsPublished,
			SortOrder:   row.SortOrder,
			CreatedAt:   row.CreatedAt.UTC(),
			UpdatedAt:   row.UpdatedAt.UTC(),
		})
	}
	return materials, nil
}

func (row quizRow) unboil() content.Quiz {
	return content.Quiz{
		ID:             row.ID,
		CourseID:       row.CourseID,
		CreatedBy:      row.CreatedBy,
		Title:          row.Title,
		Description:    row.Description.String,
		TimeLimit:      row.TimeLimit.Int,
		MaxAttempts:    row.MaxAttempts,
		PassingScore:   row.PassingScore,
		IsPublished:    row.IsPublished,
		AvailableFrom:  timePtr(row.AvailableFrom),
		AvailableUntil: timePtr(row.AvailableUntil),
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func (repo contentRepository) QueryQuizzes(ctx context.Context, filter content.Filter, exec ...core.DBExecutor) ([]content.Quiz, error) {
	if noMatch(filter.CourseIDs) {
		return nil, nil
	}

	var rows []quizRow
	mods := append(courseMods("quiz", quizColumns, filter), qm.OrderBy("created_at, id"))
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}

	quizzes := make([]content.Quiz, 0, len(rows))
	for _, row := range rows {
		quizzes = append(quizzes, row.unboil())
	}
	return quizzes, nil
}

func (repo contentRepository) QueryAssignments(ctx context.Context, filter content.AssignmentFilter, exec ...core.DBExecutor) ([]content.Assignment, error) {
	if noMatch(filter.CourseIDs) {
		return nil, nil
	}

	mods := courseMods("assignment", assignmentColumns, filter.Filter)
	if !filter.DueAfter.IsZero() {
		mods = append(mods, qm.Where("due_date > ?", filter.DueAfter.UTC()))
	}
	mods = append(mods, qm.OrderBy("due_date, id"))

	var rows []assignmentRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	assignments := make([]content.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, content.Assignment{
			ID:                  row.ID,
			CourseID:            row.CourseID,
			CreatedBy:           row.CreatedBy,
			Title:               row.Title,
			Description:         row.Description,
			Instructions:        row.Instructions.String,
			MaxPoints:           row.MaxPoints,
			DueDate:             row.DueDate.UTC(),
			AllowLateSubmission: row.AllowLateSubmission,
			IsPublished:         row.IsPublished,
			CreatedAt:           row.CreatedAt.UTC(),
			UpdatedAt:           row.UpdatedAt.UTC(),
		})
	}
	return assignments, nil
}

func (repo contentRepository) QuerySubmissions(ctx context.Context, filter content.SubmissionFilter, exec ...core.DBExecutor) ([]content.Submission, error) {
	if noMatch(filter.AssignmentIDs) {
		return nil, nil
	}

	// rank each submission within its assignment, newest first
	inner := []qm.QueryMod{
		qm.Select(submissionColumns + ", ROW_NUMBER() OVER (PARTITION BY assignment_id ORDER BY created_at DESC, id DESC) AS rn"),
		qm.From("submission"),
	}
	if len(filter.AssignmentIDs) > 0 {
		inner = append(inner, qm.WhereIn("assignment_id IN ?", validUUIDs(filter.AssignmentIDs)...))
	}
	if filter.UngradedOnly {
		inner = append(inner, qm.Where("grade IS NULL"))
	}
	sub, args := queries.BuildQuery(newQuery(inner...))

	query := "SELECT " + submissionColumns + " FROM (" + strings.TrimSuffix(sub, ";") + ") ranked"
	if filter.PerAssignmentLimit > 0 {
		args = append(args, filter.PerAssignmentLimit)
		query += " WHERE rn <= $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	var rows []submissionRow
	if err := queries.Raw(query, args...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]content.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, content.Submission{
			ID:           row.ID,
			AssignmentID: row.AssignmentID,
			StudentID:    row.StudentID,
			Content:      row.Content.String,
			Grade:        row.Grade.Ptr(),
			Feedback:     row.Feedback.String,
			GradedBy:     row.GradedBy.String,
			GradedAt:     timePtr(row.GradedAt),
			IsLate:       row.IsLate,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return subs, nil
}

func (repo contentRepository) QueryForums(ctx context.Context, filter content.Filter, exec ...core.DBExecutor) ([]content.Forum, error) {
	if noMatch(filter.CourseIDs) {
		return nil, nil
	}

	var rows []forumRow
	mods := append(
		courseMods("forum", forumColumns, content.Filter{CourseIDs: filter.CourseIDs}),
		qm.OrderBy("is_pinned DESC, last_post_at DESC NULLS LAST, id"),
	)
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying forums")
	}

	forums := make([]content.Forum, 0, len(rows))
	for _, row := range rows {
		forums = append(forums, content.Forum{
			ID:          row.ID,
			CourseID:    row.CourseID,
			CreatedBy:   row.CreatedBy,
			Title:       row.Title,
			Description: row.Description.String,
			IsPinned:    row.IsPinned,
			IsLocked:    row.IsLocked,
			PostsCount:  row.PostsCount,
			LastPostAt:  timePtr(row.LastPostAt),
			CreatedAt:   row.CreatedAt.UTC(),
		})
	}
	return forums, nil
}

func (repo contentRepository) GetQuiz(ctx context.Context, id string, exec ...core.DBExecutor) (content.Quiz, error) {
	if _, err := uuid.Parse(id); err != nil {
		return content.Quiz{}, content.ErrQuizNotFound
	}

	var row quizRow
	err := newQuery(qm.Select(quizColumns), qm.From("quiz"), qm.Where("id = ?", id)).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return content.Quiz{}, trapNoRowsErr(err, content.ErrQuizNotFound, "finding quiz")
	}
	return row.unboil(), nil
}

func (repo contentRepository) QueryQuestions(ctx context.Context, quizID string, exec ...core.DBExecutor) ([]content.Question, error) {
	if _, err := uuid.Parse(quizID); err != nil {
		return nil, nil
	}

	var rows []questionRow
	err := newQuery(
		qm.Select(questionColumns),
		qm.From("quiz_question"),
		qm.Where("quiz_id = ?", quizID),
		qm.OrderBy("sort_order, id"),
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}

	questions := make([]content.Question, 0, len(rows))
	for _, row := range rows {
		var options []string
		if row.Options.Valid {
			if err = row.Options.Unmarshal(&options); err != nil {
				return nil, errors.Wrapf(err, "decoding options of question %s", row.ID)
			}
		}
		questions = append(questions, content.Question{
			ID:            row.ID,
			QuizID:        row.QuizID,
			Question:      row.Question,
			Type:          content.QuestionType(row.Type),
			Options:       options,
			CorrectAnswer: row.CorrectAnswer,
			Points:        row.Points,
			SortOrder:     row.SortOrder,
		})
	}
	return questions, nil
}

func (repo contentRepository) countAttempts(ctx context.Context, exec core.DBExecutor, quizID, studentID string) (int, error) {
	q := newQuery(
		qm.From("quiz_attempt"),
		qm.Where("quiz_id::text = ?", quizID),
		qm.Where("student_id::text = ?", studentID),
	)
	queries.SetCount(q)

	var count int64
	if err := q.QueryRowContext(ctx, exec).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "counting attempts")
	}
	return int(count), nil
}

func (repo contentRepository) CreateAttempt(ctx context.Context, attempt content.Attempt, maxAttempts int, exec ...core.DBExecutor) (content.Attempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return content.Attempt{}, errors.Wrap(err, "encoding answers")
	}
	db := repo.getExec(exec)

	if maxAttempts > 0 {
		// the quiz row lock is held until the caller's transaction ends
		var quizID string
		err = queries.Raw("SELECT id FROM quiz WHERE id = $1 FOR UPDATE", attempt.QuizID).QueryRowContext(ctx, db).Scan(&quizID)
		if err != nil {
			return content.Attempt{}, trapNoRowsErr(err, content.ErrQuizNotFound, "locking quiz")
		}
		count, err := repo.countAttempts(ctx, db, attempt.QuizID, attempt.StudentID)
		if err != nil {
			return content.Attempt{}, err
		}
		if count >= maxAttempts {
			return content.Attempt{}, content.ErrNoAttemptsLeft
		}
	}

	attempt.ID = uuid.New().String()
	_, err = queries.Raw(
		`INSERT INTO quiz_attempt (id, quiz_id, student_id, answers, score, points_earned, total_points, started_at, completed_at, is_graded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		attempt.ID, attempt.QuizID, attempt.StudentID, null.JSONFrom(answers), null.Float64FromPtr(attempt.Score),
		attempt.PointsEarned, attempt.TotalPoints, attempt.StartedAt.UTC(), null.TimeFromPtr(attempt.CompletedAt),
		attempt.IsGraded, attempt.CreatedAt.UTC(),
	).ExecContext(ctx, db)
	if err != nil {
		return content.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return attempt, nil
}
