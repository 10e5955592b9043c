package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password"

type (
	userRow struct {
		ID           string      `db:"id"`
		Name         string      `db:"name"`
		Email        string      `db:"email"`
		Role         user.Role   `db:"role"`
		Bio          null.String `db:"bio"`
		IsActive     bool        `db:"is_active"`
		PasswordHash []byte      `db:"password_hash"`
		CreatedAt    time.Time   `db:"created_at"`
	}

	courseRow struct {
		ID          string    `db:"id"`
		Name        string    `db:"name"`
		Description string    `db:"description"`
		Code        string    `db:"code"`
		GradeLevel  int       `db:"grade_level"`
		TeacherID   string    `db:"teacher_id"`
		IsActive    bool      `db:"is_active"`
		CreatedAt   time.Time `db:"created_at"`
	}

	enrollmentRow struct {
		ID         string    `db:"id"`
		CourseID   string    `db:"course_id"`
		StudentID  string    `db:"student_id"`
		EnrolledAt time.Time `db:"enrolled_at"`
	}

	materialRow struct {
		ID          string               `db:"id"`
		CourseID    string               `db:"course_id"`
		UploadedBy  string               `db:"uploaded_by"`
		Title       string               `db:"title"`
		Type        content.MaterialType `db:"type"`
		Content     string               `db:"content"`
		IsPublished bool                 `db:"is_published"`
		SortOrder   int                  `db:"sort_order"`
	}

	quizRow struct {
		ID             string    `db:"id"`
		CourseID       string    `db:"course_id"`
		CreatedBy      string    `db:"created_by"`
		Title          string    `db:"title"`
		MaxAttempts    int       `db:"max_attempts"`
		PassingScore   int       `db:"passing_score"`
		IsPublished    bool      `db:"is_published"`
		AvailableUntil null.Time `db:"available_until"`
	}

	questionRow struct {
		ID            string               `db:"id"`
		QuizID        string               `db:"quiz_id"`
		Question      string               `db:"question"`
		Type          content.QuestionType `db:"type"`
		CorrectAnswer string               `db:"correct_answer"`
		Points        int                  `db:"points"`
		SortOrder     int                  `db:"sort_order"`
	}

	assignmentRow struct {
		ID          string    `db:"id"`
		CourseID    string    `db:"course_id"`
		CreatedBy   string    `db:"created_by"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		DueDate     time.Time `db:"due_date"`
		IsPublished bool      `db:"is_published"`
	}

	forumRow struct {
		ID        string `db:"id"`
		CourseID  string `db:"course_id"`
		CreatedBy string `db:"created_by"`
		Title     string `db:"title"`
		IsPinned  bool   `db:"is_pinned"`
	}
)

const (
	insertUser = `INSERT INTO "user" (id, name, email, role, bio, is_active, password_hash, created_at, updated_at)
		VALUES (:id, :name, :email, :role, :bio, :is_active, :password_hash, :created_at, :created_at)`
	insertCourse = `INSERT INTO course (id, name, description, code, grade_level, teacher_id, is_active, created_at, updated_at)
		VALUES (:id, :name, :description, :code, :grade_level, :teacher_id, :is_active, :created_at, :created_at)`
	insertEnrollment = `INSERT INTO enrollment (id, course_id, student_id, enrolled_at)
		VALUES (:id, :course_id, :student_id, :enrolled_at)`
	insertMaterial = `INSERT INTO learning_material (id, course_id, uploaded_by, title, type, content, is_published, sort_order)
		VALUES (:id, :course_id, :uploaded_by, :title, :type, :content, :is_published, :sort_order)`
	insertQuiz = `INSERT INTO quiz (id, course_id, created_by, title, max_attempts, passing_score, is_published, available_until)
		VALUES (:id, :course_id, :created_by, :title, :max_attempts, :passing_score, :is_published, :available_until)`
	insertQuestion = `INSERT INTO quiz_question (id, quiz_id, question, type, correct_answer, points, sort_order)
		VALUES (:id, :quiz_id, :question, :type, :correct_answer, :points, :sort_order)`
	insertAssignment = `INSERT INTO assignment (id, course_id, created_by, title, description, due_date, is_published)
		VALUES (:id, :course_id, :created_by, :title, :description, :due_date, :is_published)`
	insertForum = `INSERT INTO forum (id, course_id, created_by, title, is_pinned)
		VALUES (:id, :course_id, :created_by, :title, :is_pinned)`
)

// SeedSummary counts the rows Seed inserted.
type SeedSummary struct {
	Users       int
	Courses     int
	Enrollments int
}

// Seeder loads a demo school: an administrator, teachers, students, courses, enrollments and some course content.
type Seeder struct {
	db   *sqlx.DB
	rand *rand.Rand
	now  time.Time
}

// NewSeeder wraps db; driverName is the database/sql driver db was opened with ("postgres" or "pgx").
func NewSeeder(db *sql.DB, driverName string, seed int64) *Seeder {
	return &Seeder{
		db:   sqlx.NewDb(db, driverName),
		rand: rand.New(rand.NewSource(seed)),
		now:  time.Now().UTC(),
	}
}

func newID() string { return uuid.New().String() }

// Seed inserts everything in a single transaction.
func (s *Seeder) Seed(ctx context.Context) (summary SeedSummary, err error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return summary, errors.Wrap(err, "hashing seed password")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, errors.Wrap(err, "starting transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "committing seed")
	}()

	exec := func(query string, arg interface{}) {
		if err != nil {
			return
		}
		_, err = tx.NamedExecContext(ctx, query, arg)
	}

	newUser := func(name, email string, role user.Role, bio string) userRow {
		u := userRow{
			ID:           newID(),
			Name:         name,
			Email:        email,
			Role:         role,
			Bio:          null.NewString(bio, bio != ""),
			IsActive:     true,
			PasswordHash: hash,
			CreatedAt:    s.now,
		}
		exec(insertUser, u)
		summary.Users++
		return u
	}

	newUser("Admin User", "admin@scilearn.com", user.RoleAdministrator, "")
	sarah := newUser("Dr. Sarah Johnson", "sarah.johnson@scilearn.com", user.RoleTeacher,
		"Biology teacher with 10+ years of experience in junior high education.")
	david := newUser("Mr. David Chen", "david.chen@scilearn.com", user.RoleTeacher,
		"Chemistry and Physics teacher passionate about hands-on learning.")

	students := []userRow{
		newUser("Alex Martinez", "alex.martinez@student.scilearn.com", user.RoleStudent, ""),
		newUser("Emma Thompson", "emma.thompson@student.scilearn.com", user.RoleStudent, ""),
	}
	var teachers []userRow
	for i := 1; i <= 3; i++ {
		teachers = append(teachers, newUser(fmt.Sprintf("Teacher %d", i), fmt.Sprintf("teacher%d@scilearn.com", i), user.RoleTeacher, ""))
	}
	for i := 1; i <= 20; i++ {
		students = append(students, newUser(fmt.Sprintf("Student %d", i), fmt.Sprintf("student%d@student.scilearn.com", i), user.RoleStudent, ""))
	}

	newCourse := func(name, description, code string, grade int, teacher userRow) courseRow {
		c := courseRow{
			ID:          newID(),
			Name:        name,
			Description: description,
			Code:        code,
			GradeLevel:  grade,
			TeacherID:   teacher.ID,
			IsActive:    true,
			CreatedAt:   s.now,
		}
		exec(insertCourse, c)
		summary.Courses++
		return c
	}

	courses := []courseRow{
		newCourse("Grade 7 Life Science", "Introduction to living organisms, cells, and basic biological processes.", "LIF-7-01", 7, sarah),
		newCourse("Grade 8 Physical Science", "Exploring matter, energy, forces, and motion in the physical world.", "PHY-8-01", 8, david),
		newCourse("Grade 9 Chemistry Fundamentals", "Basic chemistry concepts, atomic structure, and chemical reactions.", "CHE-9-01", 9, david),
		newCourse("Grade 7 Earth Science", "Study of Earth's systems, weather, climate, and geological processes.", "EAR-7-01", 7, sarah),
	}
	for i := 1; i <= 6; i++ {
		grade := course.GradeLevels[s.rand.Intn(len(course.GradeLevels))]
		teacher := teachers[s.rand.Intn(len(teachers))]
		courses = append(courses, newCourse(
			fmt.Sprintf("Grade %d Science Elective %d", grade, i), "", fmt.Sprintf("SCI-%d-%02d", grade, i), grade, teacher))
	}

	// every student takes 2 to 4 distinct courses
	for _, student := range students {
		for _, idx := range s.rand.Perm(len(courses))[:2+s.rand.Intn(3)] {
			exec(insertEnrollment, enrollmentRow{ID: newID(), CourseID: courses[idx].ID, StudentID: student.ID, EnrolledAt: s.now})
			summary.Enrollments++
		}
	}

	for _, c := range courses[:4] {
		s.seedContent(c, exec)
	}
	return summary, err
}

func (s *Seeder) seedContent(c courseRow, exec func(string, interface{})) {
	for i, title := range []string{"Course overview", "Week 1 reading", "Lab safety video"} {
		typ := content.MaterialText
		if i == 2 {
			typ = content.MaterialVideo
		}
		exec(insertMaterial, materialRow{
			ID: newID(), CourseID: c.ID, UploadedBy: c.TeacherID, Title: title, Type: typ,
			Content: fmt.Sprintf("%s for %s.", title, c.Name), IsPublished: i < 2, SortOrder: i + 1,
		})
	}

	quiz := quizRow{
		ID: newID(), CourseID: c.ID, CreatedBy: c.TeacherID, Title: "Unit 1 check-in", MaxAttempts: 2, PassingScore: 70,
		IsPublished: true, AvailableUntil: null.TimeFrom(s.now.Add(7 * 24 * time.Hour)),
	}
	exec(insertQuiz, quiz)
	exec(insertQuestion, questionRow{
		ID: newID(), QuizID: quiz.ID, Question: "Science relies on observation and evidence.",
		Type: content.QuestionTrueFalse, CorrectAnswer: "true", Points: 1, SortOrder: 1,
	})
	exec(insertQuestion, questionRow{
		ID: newID(), QuizID: quiz.ID, Question: "Name the step of the scientific method that tests a hypothesis.",
		Type: content.QuestionShortAnswer, CorrectAnswer: "experiment", Points: 2, SortOrder: 2,
	})

	for i := 1; i <= 2; i++ {
		exec(insertAssignment, assignmentRow{
			ID: newID(), CourseID: c.ID, CreatedBy: c.TeacherID, Title: fmt.Sprintf("Homework %d", i),
			Description: "Answer the questions at the end of the chapter.",
			DueDate:     s.now.Add(time.Duration(i*7) * 24 * time.Hour), IsPublished: true,
		})
	}

	exec(insertForum, forumRow{ID: newID(), CourseID: c.ID, CreatedBy: c.TeacherID, Title: "Announcements", IsPinned: true})
	exec(insertForum, forumRow{ID: newID(), CourseID: c.ID, CreatedBy: c.TeacherID, Title: "Questions and answers"})
}
