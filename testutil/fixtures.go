package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/user"
	"github.com/appdotbuilder/junior-science-lms/storage/database/inmem"
)

// ContentStore is a content.Repository that fixtures can write to.
type ContentStore interface {
	content.Repository

	CreateMaterial(m content.Material) content.Material
	CreateQuiz(q content.Quiz) content.Quiz
	CreateQuestion(q content.Question) content.Question
	CreateAssignment(a content.Assignment) content.Assignment
	CreateSubmission(s content.Submission) content.Submission
	CreateForum(f content.Forum) content.Forum
}

// Fixtures creates test data in a fresh in-memory store.
type Fixtures struct {
	t *testing.T

	UserRepo    user.Repository
	CourseRepo  course.Repository
	ContentRepo ContentStore
}

func NewFixtures(t *testing.T) *Fixtures {
	db := inmemdb.Open()
	return &Fixtures{
		t:           t,
		UserRepo:    inmemdb.NewUserRepository(db),
		CourseRepo:  inmemdb.NewCourseRepository(db),
		ContentRepo: inmemdb.NewContentRepository(db),
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (f *Fixtures) CreateUser(name, email, pwd string, role user.Role, createdAt ...time.Time) user.User {
	return CreateUser(f.t, f.UserRepo, name, email, pwd, role, true, createdAt...)
}

func (f *Fixtures) CreateCourse(name, code string, teacher user.User, isActive bool, createdAt ...time.Time) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c, err := f.CourseRepo.CreateCourse(context.Background(), course.Course{
		Name:       name,
		Code:       code,
		GradeLevel: 7,
		TeacherID:  teacher.ID,
		IsActive:   isActive,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	})
	if err != nil {
		f.t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func (f *Fixtures) Enroll(c course.Course, students ...user.User) {
	for _, student := range students {
		_, err := f.CourseRepo.CreateEnrollment(context.Background(), course.Enrollment{
			CourseID:   c.ID,
			StudentID:  student.ID,
			EnrolledAt: time.Now().UTC(),
		})
		if err != nil {
			f.t.Fatalf("Enroll() failed: %v", err)
		}
	}
}

func (f *Fixtures) CreateMaterial(c course.Course, title string, isPublished bool, sortOrder int) content.Material {
	return f.ContentRepo.CreateMaterial(content.Material{
		CourseID:    c.ID,
		UploadedBy:  c.TeacherID,
		Title:       title,
		Type:        content.MaterialText,
		IsPublished: isPublished,
		SortOrder:   sortOrder,
		CreatedAt:   time.Now().UTC(),
	})
}

// CreateQuiz stores q in c; q.CourseID and q.CreatedBy are overwritten.
func (f *Fixtures) CreateQuiz(c course.Course, q content.Quiz) content.Quiz {
	q.CourseID = c.ID
	q.CreatedBy = c.TeacherID
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return f.ContentRepo.CreateQuiz(q)
}

func (f *Fixtures) CreateQuestion(q content.Quiz, question, answer string, points int) content.Question {
	return f.ContentRepo.CreateQuestion(content.Question{
		QuizID:        q.ID,
		Question:      question,
		Type:          content.QuestionShortAnswer,
		CorrectAnswer: answer,
		Points:        points,
	})
}

func (f *Fixtures) CreateAssignment(c course.Course, title string, isPublished bool, dueDate time.Time) content.Assignment {
	return f.ContentRepo.CreateAssignment(content.Assignment{
		CourseID:    c.ID,
		CreatedBy:   c.TeacherID,
		Title:       title,
		MaxPoints:   100,
		DueDate:     dueDate.UTC(),
		IsPublished: isPublished,
		CreatedAt:   time.Now().UTC(),
	})
}

func (f *Fixtures) CreateSubmission(a content.Assignment, student user.User, createdAt time.Time, grade *float64) content.Submission {
	return f.ContentRepo.CreateSubmission(content.Submission{
		AssignmentID: a.ID,
		StudentID:    student.ID,
		Content:      "my answer",
		Grade:        grade,
		CreatedAt:    createdAt.UTC(),
	})
}

func (f *Fixtures) CreateForum(c course.Course, title string, isPinned bool, lastPostAt *time.Time) content.Forum {
	return f.ContentRepo.CreateForum(content.Forum{
		CourseID:   c.ID,
		CreatedBy:  c.TeacherID,
		Title:      title,
		IsPinned:   isPinned,
		LastPostAt: lastPostAt,
		CreatedAt:  time.Now().UTC(),
	})
}
