package course_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/user"
	"github.com/appdotbuilder/junior-science-lms/services/email"
	"github.com/appdotbuilder/junior-science-lms/testutil"
)

const pwd = "Passw0rd!"

type env struct {
	fx      *testutil.Fixtures
	svc     course.Service
	admin   user.User
	teacher user.User
	other   user.User
	student user.User
	course  course.Course
}

func setup(t *testing.T) env {
	fx := testutil.NewFixtures(t)
	usrSvc := user.NewServiceMock(fx.UserRepo, emailsvc.NewConsoleServiceMock())
	e := env{
		fx:      fx,
		svc:     course.NewService(nil, fx.CourseRepo, fx.ContentRepo, usrSvc),
		admin:   fx.CreateUser("Admin", "admin@scilearn.com", pwd, user.RoleAdministrator),
		teacher: fx.CreateUser("Dr. Sarah Johnson", "sarah.johnson@scilearn.com", pwd, user.RoleTeacher),
		other:   fx.CreateUser("Prof. Michael Chen", "michael.chen@scilearn.com", pwd, user.RoleTeacher),
		student: fx.CreateUser("Alex Thompson", "alex.thompson@student.scilearn.com", pwd, user.RoleStudent),
	}
	e.course = fx.CreateCourse("Life Science Fundamentals", "LIF-7-01", e.teacher, true)
	return e
}

func TestShow(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	e.fx.Enroll(e.course, e.student)
	for i, published := range []bool{true, false, true, false, true} {
		e.fx.CreateMaterial(e.course, "material", published, i+1)
	}
	e.fx.CreateQuiz(e.course, content.Quiz{Title: "open", IsPublished: true})
	e.fx.CreateQuiz(e.course, content.Quiz{Title: "draft"})
	e.fx.CreateAssignment(e.course, "overdue", true, now.Add(-24*time.Hour))
	e.fx.CreateAssignment(e.course, "draft", false, now.Add(24*time.Hour))
	lastPost := now.Add(-time.Hour)
	e.fx.CreateForum(e.course, "general", false, nil)
	e.fx.CreateForum(e.course, "questions", false, &lastPost)
	e.fx.CreateForum(e.course, "announcements", true, nil)

	t.Run("enrolled student", func(t *testing.T) {
		detail, err := e.svc.Show(ctx, e.student, e.course.ID)
		require.NoError(t, err)
		require.Len(t, detail.Materials, 3)
		for i, m := range detail.Materials {
			assert.True(t, m.IsPublished)
			if i > 0 {
				assert.Less(t, detail.Materials[i-1].SortOrder, m.SortOrder)
			}
		}
		require.Len(t, detail.Quizzes, 1)
		assert.Equal(t, "open", detail.Quizzes[0].Title)
		require.Len(t, detail.Assignments, 1)
		assert.Equal(t, "overdue", detail.Assignments[0].Title)

		require.Len(t, detail.Forums, 3)
		assert.Equal(t, "announcements", detail.Forums[0].Title)
		assert.Equal(t, "questions", detail.Forums[1].Title)
		assert.Equal(t, "general", detail.Forums[2].Title)

		require.NotNil(t, detail.Teacher)
		assert.Equal(t, e.teacher.ID, detail.Teacher.ID)
		require.Len(t, detail.Enrollments, 1)
		assert.Equal(t, e.student.ID, detail.Enrollments[0].Student.ID)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		detail, err := e.svc.Show(ctx, e.admin, e.course.ID)
		require.NoError(t, err)
		assert.Len(t, detail.Materials, 5)
		assert.Len(t, detail.Quizzes, 2)
		assert.Len(t, detail.Assignments, 2)
	})

	t.Run("owner sees everything", func(t *testing.T) {
		detail, err := e.svc.Show(ctx, e.teacher, e.course.ID)
		require.NoError(t, err)
		assert.Len(t, detail.Materials, 5)
	})

	denied := []struct {
		name   string
		usr    user.User
		reason string
	}{
		{name: "other teacher", usr: e.other, reason: course.ReasonNotOwner},
		{name: "student not enrolled", usr: e.fx.CreateUser("Sam", "sam@student.scilearn.com", pwd, user.RoleStudent), reason: course.ReasonNotEnrolled},
	}
	for _, tt := range denied {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Show(ctx, tt.usr, e.course.ID)
			require.Error(t, err)
			assert.True(t, core.IsForbidden(err))
			var forbidden *core.ForbiddenError
			require.ErrorAs(t, err, &forbidden)
			assert.Equal(t, tt.reason, forbidden.Reason)
		})
	}

	t.Run("not found", func(t *testing.T) {
		_, err := e.svc.Show(ctx, e.admin, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
		assert.True(t, core.IsNotFound(err))
		assert.False(t, core.IsForbidden(err))
	})
}

func TestList(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	inactive := e.fx.CreateCourse("Old Physics", "PHY-8-00", e.teacher, false)
	otherCourse := e.fx.CreateCourse("Chemistry Basics", "CHE-9-01", e.other, true)
	e.fx.Enroll(e.course, e.student)
	e.fx.Enroll(inactive, e.student)

	tests := []struct {
		name string
		usr  user.User
		want []string
	}{
		{name: "admin", usr: e.admin, want: []string{otherCourse.ID, e.course.ID}},
		{name: "teacher", usr: e.teacher, want: []string{e.course.ID}},
		{name: "student", usr: e.student, want: []string{e.course.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := e.svc.List(ctx, tt.usr)
			require.NoError(t, err)
			ids := make([]string, 0, len(listings))
			for _, l := range listings {
				ids = append(ids, l.ID)
				assert.NotNil(t, l.Teacher)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := e.svc.List(ctx, user.User{ID: "x", Role: "guest"})
	assert.ErrorIs(t, err, core.ErrInvariantViolation)
}

func TestCreate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	newCourse := func(teacherID, code string) course.NewCourse {
		return course.NewCourse{Name: "Earth Science", Code: code, GradeLevel: 7, TeacherID: teacherID}
	}

	c, err := e.svc.Create(ctx, e.teacher, newCourse(e.teacher.ID, "EAR-7-01"))
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.IsActive)
	assert.Equal(t, e.teacher.ID, c.TeacherID)

	c, err = e.svc.Create(ctx, e.admin, newCourse(e.other.ID, "EAR-7-02"))
	require.NoError(t, err)
	assert.Equal(t, e.other.ID, c.TeacherID)

	_, err = e.svc.Create(ctx, e.student, newCourse(e.teacher.ID, "EAR-7-03"))
	assert.True(t, core.IsForbidden(err))

	_, err = e.svc.Create(ctx, e.teacher, newCourse(e.other.ID, "EAR-7-04"))
	assert.True(t, core.IsForbidden(err))

	invalid := []struct {
		name  string
		nc    course.NewCourse
		field string
	}{
		{name: "duplicate code", nc: newCourse(e.teacher.ID, "LIF-7-01"), field: "code"},
		{name: "teacher is a student", nc: newCourse(e.student.ID, "EAR-7-05"), field: "teacher_id"},
		{name: "unknown teacher", nc: newCourse("1b4e28ba-2fa1-11d2-883f-0016d3cca427", "EAR-7-06"), field: "teacher_id"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Create(ctx, e.admin, tt.nc)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}

func TestEnroll(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	data := course.NewEnrollment{StudentID: e.student.ID}

	_, err := e.svc.Enroll(ctx, e.other, e.course.ID, data)
	assert.True(t, core.IsForbidden(err))

	_, err = e.svc.Enroll(ctx, e.student, e.course.ID, data)
	assert.True(t, core.IsForbidden(err))

	enr, err := e.svc.Enroll(ctx, e.teacher, e.course.ID, data)
	require.NoError(t, err)
	assert.Equal(t, e.course.ID, enr.CourseID)
	assert.Equal(t, e.student.ID, enr.StudentID)

	_, err = e.svc.Enroll(ctx, e.admin, e.course.ID, data)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "student_id", verr.Fields[0].Field)

	_, err = e.svc.Enroll(ctx, e.admin, e.course.ID, course.NewEnrollment{StudentID: e.other.ID})
	require.ErrorAs(t, err, &verr)

	_, err = e.svc.Enroll(ctx, e.admin, "missing", data)
	assert.True(t, core.IsNotFound(err))

	// now visible to the student
	_, err = e.svc.Show(ctx, e.student, e.course.ID)
	assert.NoError(t, err)
}

func TestSubmitQuizAttempt(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.fx.Enroll(e.course, e.student)

	quiz := e.fx.CreateQuiz(e.course, content.Quiz{Title: "Cells", IsPublished: true, MaxAttempts: 1, PassingScore: 70})
	q1 := e.fx.CreateQuestion(quiz, "Basic unit of life?", "cell", 3)
	e.fx.CreateQuestion(quiz, "Powerhouse of the cell?", "mitochondria", 1)
	closed := e.fx.CreateQuiz(e.course, content.Quiz{Title: "Closed", IsPublished: false})

	_, err := e.svc.SubmitQuizAttempt(ctx, e.teacher, e.course.ID, quiz.ID, nil)
	assert.True(t, core.IsForbidden(err))

	_, err = e.svc.SubmitQuizAttempt(ctx, e.student, e.course.ID, closed.ID, nil)
	assert.True(t, core.IsNotFound(err))

	attempt, err := e.svc.SubmitQuizAttempt(ctx, e.student, e.course.ID, quiz.ID, map[string]string{q1.ID: "Cell"})
	require.NoError(t, err)
	assert.Equal(t, 3, attempt.PointsEarned)
	assert.Equal(t, 4, attempt.TotalPoints)
	require.NotNil(t, attempt.Score)
	assert.Equal(t, 75.0, *attempt.Score)
	assert.True(t, attempt.IsGraded)

	_, err = e.svc.SubmitQuizAttempt(ctx, e.student, e.course.ID, quiz.ID, nil)
	assert.True(t, core.IsForbidden(err))
}

// codeRaceRepo lets a duplicate code through the uniqueness check, as a concurrent insert would.
type codeRaceRepo struct {
	course.Repository
}

func (codeRaceRepo) CheckCodeUniqueness(context.Context, string, string, ...core.DBExecutor) error {
	return nil
}

func TestCreate_codeTakenConcurrently(t *testing.T) {
	e := setup(t)
	usrSvc := user.NewServiceMock(e.fx.UserRepo, emailsvc.NewConsoleServiceMock())
	svc := course.NewService(nil, codeRaceRepo{e.fx.CourseRepo}, e.fx.ContentRepo, usrSvc)

	_, err := svc.Create(context.Background(), e.teacher, course.NewCourse{
		Name: "Life Science", Code: e.course.Code, GradeLevel: 7, TeacherID: e.teacher.ID,
	})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "code", verr.Fields[0].Field)
}

func TestUpdate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.fx.CreateCourse("Chemistry Basics", "CHE-9-01", e.other, true)
	inactive := false

	data := func(teacherID, code string) course.UpdateCourse {
		return course.UpdateCourse{Name: "Life Science II", Description: "cells", Code: code, GradeLevel: 8, TeacherID: teacherID}
	}

	forbidden := []struct {
		name string
		usr  user.User
		uc   course.UpdateCourse
	}{
		{name: "student", usr: e.student, uc: data(e.teacher.ID, "LIF-8-01")},
		{name: "not the owner", usr: e.other, uc: data(e.other.ID, "LIF-8-01")},
		{name: "teacher hands the course over", usr: e.teacher, uc: data(e.other.ID, "LIF-8-01")},
	}
	for _, tt := range forbidden {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Update(ctx, tt.usr, e.course.ID, tt.uc)
			assert.True(t, core.IsForbidden(err), "err = %v", err)
		})
	}

	invalid := []struct {
		name  string
		uc    course.UpdateCourse
		field string
	}{
		{name: "code of another course", uc: data(e.teacher.ID, "che-9-01"), field: "code"},
		{name: "teacher is a student", uc: data(e.student.ID, "LIF-8-01"), field: "teacher_id"},
		{name: "unknown teacher", uc: data("1b4e28ba-2fa1-11d2-883f-0016d3cca427", "LIF-8-01"), field: "teacher_id"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Update(ctx, e.admin, e.course.ID, tt.uc)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	_, err := e.svc.Update(ctx, e.admin, "missing", data(e.teacher.ID, "LIF-8-01"))
	assert.True(t, core.IsNotFound(err))

	// keeping its own code is fine
	uc := data(e.teacher.ID, e.course.Code)
	uc.IsActive = &inactive
	c, err := e.svc.Update(ctx, e.teacher, e.course.ID, uc)
	require.NoError(t, err)
	assert.Equal(t, "Life Science II", c.Name)
	assert.Equal(t, 8, c.GradeLevel)
	assert.False(t, c.IsActive)
	assert.Equal(t, e.course.CreatedAt, c.CreatedAt)

	c, err = e.svc.Update(ctx, e.admin, e.course.ID, data(e.other.ID, "LIF-8-01"))
	require.NoError(t, err)
	assert.Equal(t, e.other.ID, c.TeacherID)
	assert.Equal(t, "LIF-8-01", c.Code)
	assert.False(t, c.IsActive, "is_active is kept when omitted")

	// the old owner lost access
	_, err = e.svc.Show(ctx, e.teacher, e.course.ID)
	assert.True(t, core.IsForbidden(err))
}

func TestDelete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.fx.Enroll(e.course, e.student)
	e.fx.CreateMaterial(e.course, "Cells", true, 1)
	quiz := e.fx.CreateQuiz(e.course, content.Quiz{Title: "Cells", IsPublished: true})
	e.fx.CreateQuestion(quiz, "Basic unit of life?", "cell", 1)
	kept := e.fx.CreateCourse("Chemistry Basics", "CHE-9-01", e.teacher, true)
	e.fx.CreateMaterial(kept, "Atoms", true, 1)

	assert.True(t, core.IsForbidden(e.svc.Delete(ctx, e.student, e.course.ID)))
	assert.True(t, core.IsForbidden(e.svc.Delete(ctx, e.other, e.course.ID)))
	assert.True(t, core.IsNotFound(e.svc.Delete(ctx, e.admin, "missing")))

	require.NoError(t, e.svc.Delete(ctx, e.teacher, e.course.ID))
	assert.True(t, core.IsNotFound(e.svc.Delete(ctx, e.admin, e.course.ID)))

	_, err := e.svc.Show(ctx, e.admin, e.course.ID)
	assert.True(t, core.IsNotFound(err))

	listings, err := e.svc.List(ctx, e.student)
	require.NoError(t, err)
	assert.Empty(t, listings)

	materials, err := e.fx.ContentRepo.QueryMaterials(ctx, content.Filter{})
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, kept.ID, materials[0].CourseID)

	quizzes, err := e.fx.ContentRepo.QueryQuizzes(ctx, content.Filter{})
	require.NoError(t, err)
	assert.Empty(t, quizzes)

	// the code is free again
	_, err = e.svc.Create(ctx, e.teacher, course.NewCourse{Name: "Life Science", Code: e.course.Code, GradeLevel: 7, TeacherID: e.teacher.ID})
	assert.NoError(t, err)
}

func TestSubmitQuizAttempt_concurrent(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.fx.Enroll(e.course, e.student)
	quiz := e.fx.CreateQuiz(e.course, content.Quiz{Title: "Cells", IsPublished: true, MaxAttempts: 3})
	e.fx.CreateQuestion(quiz, "Basic unit of life?", "cell", 1)

	const submits = 30
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		denied    int
	)
	for i := 0; i < submits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.SubmitQuizAttempt(ctx, e.student, e.course.ID, quiz.ID, map[string]string{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case core.IsForbidden(err):
				denied++
			default:
				t.Errorf("SubmitQuizAttempt() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, quiz.MaxAttempts, succeeded)
	assert.Equal(t, submits-quiz.MaxAttempts, denied)
}
