package course

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

var (
	// errors
	ErrNotFound        = fmt.Errorf("course %w", core.ErrNotFound)
	ErrCodeExists      = errors.New("a course with this code already exists")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// CheckCodeUniqueness ignores the course exclID, if any.
		CheckCodeUniqueness(ctx context.Context, code, exclID string, exec ...core.DBExecutor) error
		QueryCourses(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Course, error)
		CountCourses(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (int, error)
		HasEnrollment(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) (bool, error)
		// QueryEnrollments orders by enrolled_at ascending.
		QueryEnrollments(ctx context.Context, courseIDs []string, exec ...core.DBExecutor) ([]Enrollment, error)
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// DeleteCourse also removes the enrollments and content of the course.
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error
		// CreateEnrollment returns ErrAlreadyEnrolled if (CourseID, StudentID) exists.
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
	}

	Service interface {
		List(ctx context.Context, usr user.User) ([]Listing, error)
		Show(ctx context.Context, usr user.User, id string) (Detail, error)
		Create(ctx context.Context, usr user.User, nc NewCourse) (Course, error)
		Update(ctx context.Context, usr user.User, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, usr user.User, id string) error
		Enroll(ctx context.Context, usr user.User, courseID string, ne NewEnrollment) (Enrollment, error)
		SubmitQuizAttempt(ctx context.Context, usr user.User, courseID, quizID string, answers map[string]string) (content.Attempt, error)

		Query(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Course, error)
		Count(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (int, error)
		WithRelations(ctx context.Context, courses []Course, exec ...core.DBExecutor) ([]Listing, error)
	}

	service struct {
		db          core.DB
		repo        Repository
		contentRepo content.Repository
		usrSvc      user.Service
	}
)

var _ Service = (*service)(nil)

// NewService creates a course Service. db may be nil for stores that have no transactions.
func NewService(db core.DB, repo Repository, contentRepo content.Repository, usrSvc user.Service) Service {
	return &service{db: db, repo: repo, contentRepo: contentRepo, usrSvc: usrSvc}
}

var listFilters = map[user.Role]func(usr user.User) QueryFilter{
	user.RoleAdministrator: func(user.User) QueryFilter { return QueryFilter{IsActive: Active()} },
	user.RoleTeacher:       func(usr user.User) QueryFilter { return QueryFilter{TeacherID: usr.ID, IsActive: Active()} },
	user.RoleStudent:       func(usr user.User) QueryFilter { return QueryFilter{StudentID: usr.ID, IsActive: Active()} },
}

// List returns the active courses usr deals with: all of them for administrators,
// the owned ones for teachers and the enrolled ones for students.
func (svc *service) List(ctx context.Context, usr user.User) ([]Listing, error) {
	filterFn, ok := listFilters[usr.Role]
	if !ok {
		return nil, errors.Wrapf(core.ErrInvariantViolation, "unknown role %q for user %s", usr.Role, usr.ID)
	}

	var listings []Listing
	err := core.ReadOnlyTx(ctx, svc.db, func(exec core.DBExecutor) error {
		courses, err := svc.repo.QueryCourses(ctx, filterFn(usr), exec)
		if err != nil {
			return errors.Wrap(err, "querying courses")
		}
		listings, err = svc.WithRelations(ctx, courses, exec)
		return err
	})
	return listings, err
}

func (svc *service) Show(ctx context.Context, usr user.User, id string) (Detail, error) {
	var detail Detail
	err := core.ReadOnlyTx(ctx, svc.db, func(exec core.DBExecutor) error {
		c, err := svc.authorizeView(ctx, usr, id, exec)
		if err != nil {
			return err
		}

		listings, err := svc.WithRelations(ctx, []Course{c}, exec)
		if err != nil {
			return err
		}
		detail.Listing = listings[0]

		now := NowFunc().UTC()
		viewer := content.NewViewer(usr, c.TeacherID)
		filter := content.Filter{CourseIDs: []string{c.ID}}

		materials, err := svc.contentRepo.QueryMaterials(ctx, filter, exec)
		if err != nil {
			return errors.Wrap(err, "querying materials")
		}
		if detail.Materials, err = content.VisibleMaterials(viewer, materials); err != nil {
			return err
		}

		quizzes, err := svc.contentRepo.QueryQuizzes(ctx, filter, exec)
		if err != nil {
			return errors.Wrap(err, "querying quizzes")
		}
		if detail.Quizzes, err = content.VisibleQuizzes(viewer, quizzes, now); err != nil {
			return err
		}

		assignments, err := svc.contentRepo.QueryAssignments(ctx, content.AssignmentFilter{Filter: filter}, exec)
		if err != nil {
			return errors.Wrap(err, "querying assignments")
		}
		if detail.Assignments, err = content.VisibleAssignments(viewer, assignments); err != nil {
			return err
		}

		if detail.Forums, err = svc.contentRepo.QueryForums(ctx, filter, exec); err != nil {
			return errors.Wrap(err, "querying forums")
		}
		return nil
	})
	if err != nil {
		return Detail{}, err
	}
	return detail, nil
}

// authorizeView fetches the course and runs the access guard on it.
func (svc *service) authorizeView(ctx context.Context, usr user.User, id string, exec core.DBExecutor) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id, exec)
	if err != nil {
		return Course{}, err
	}
	isEnrolled, err := svc.repo.HasEnrollment(ctx, c.ID, usr.ID, exec)
	if err != nil {
		return Course{}, errors.Wrap(err, "checking enrollment")
	}
	decision, err := CanViewCourse(usr, c, isEnrolled)
	if err != nil {
		return Course{}, err
	}
	if err := decision.Err(); err != nil {
		return Course{}, err
	}
	return c, nil
}

func (svc *service) Create(ctx context.Context, usr user.User, nc NewCourse) (Course, error) {
	switch {
	case usr.IsAdministrator():
	case usr.IsTeacher():
		if nc.TeacherID != usr.ID {
			return Course{}, core.NewForbiddenError("teachers can only create their own courses")
		}
	default:
		return Course{}, core.NewForbiddenError("only teachers and administrators can create courses")
	}

	var c Course
	err := core.Transaction(ctx, svc.db, func(exec core.DBExecutor) error {
		teacher, err := svc.checkCourseData(ctx, nc, "", exec)
		if err != nil {
			return err
		}

		now := NowFunc().UTC()
		c, err = svc.repo.CreateCourse(ctx, Course{
			Name:        nc.Name,
			Description: nc.Description,
			Code:        nc.Code,
			GradeLevel:  nc.GradeLevel,
			TeacherID:   teacher.ID,
			IsActive:    nc.IsActive == nil || *nc.IsActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, exec)
		return trapCodeExists(err, "creating course")
	})
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

// Update replaces the editable fields of course id. Administrators and the owning teacher may update it;
// a teacher cannot hand the course over to someone else.
func (svc *service) Update(ctx context.Context, usr user.User, id string, uc UpdateCourse) (Course, error) {
	var c Course
	err := core.Transaction(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.GetCourse(ctx, id, exec); err != nil {
			return err
		}
		if !canManage(usr, c) {
			return core.NewForbiddenError(ReasonNotOwner)
		}
		if !usr.IsAdministrator() && uc.TeacherID != usr.ID {
			return core.NewForbiddenError("teachers cannot reassign their courses")
		}

		teacher, err := svc.checkCourseData(ctx, uc, c.ID, exec)
		if err != nil {
			return err
		}

		c.Name = uc.Name
		c.Description = uc.Description
		c.Code = uc.Code
		c.GradeLevel = uc.GradeLevel
		c.TeacherID = teacher.ID
		if uc.IsActive != nil {
			c.IsActive = *uc.IsActive
		}
		c.UpdatedAt = NowFunc().UTC()
		c, err = svc.repo.UpdateCourse(ctx, c, exec)
		return trapCodeExists(err, "updating course")
	})
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

// Delete removes course id with its enrollments and content. Administrators and the owning teacher may delete it.
func (svc *service) Delete(ctx context.Context, usr user.User, id string) error {
	return core.Transaction(ctx, svc.db, func(exec core.DBExecutor) error {
		c, err := svc.repo.GetCourse(ctx, id, exec)
		if err != nil {
			return err
		}
		if !canManage(usr, c) {
			return core.NewForbiddenError(ReasonNotOwner)
		}
		if err = svc.repo.DeleteCourse(ctx, c.ID, exec); err != nil {
			return errors.Wrap(err, "deleting course")
		}
		return nil
	})
}

// checkCourseData validates the references of nc: the teacher must exist and the code be free.
func (svc *service) checkCourseData(ctx context.Context, nc NewCourse, exclID string, exec core.DBExecutor) (user.User, error) {
	users, err := svc.usrSvc.GetByIDs(ctx, []string{nc.TeacherID}, exec)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting teacher")
	}
	teacher, ok := users[nc.TeacherID]
	if !ok {
		return user.User{}, core.NewValidationError(user.ErrNotFound, core.FieldError{Field: "teacher_id", Error: "teacher not found"})
	}
	if !teacher.IsTeacher() {
		return user.User{}, core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
	}
	if err = svc.repo.CheckCodeUniqueness(ctx, nc.Code, exclID, exec); err != nil {
		return user.User{}, trapCodeExists(err, "checking code uniqueness")
	}
	return teacher, nil
}

// trapCodeExists turns ErrCodeExists into a validation error on the code field.
func trapCodeExists(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Cause(err) == ErrCodeExists:
		return core.NewValidationError(err, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	}
	return errors.Wrap(err, msg)
}

func (svc *service) Enroll(ctx context.Context, usr user.User, courseID string, ne NewEnrollment) (Enrollment, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !canManage(usr, c) {
		return Enrollment{}, core.NewForbiddenError(ReasonNotOwner)
	}

	student, err := svc.usrSvc.GetByID(ctx, ne.StudentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return Enrollment{}, errors.Wrap(err, "getting student")
	}
	if !student.IsStudent() {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	}

	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		CourseID:   c.ID,
		StudentID:  student.ID,
		EnrolledAt: NowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: ErrAlreadyEnrolled.Error()})
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

// SubmitQuizAttempt scores answers and records them as a completed attempt of usr.
func (svc *service) SubmitQuizAttempt(ctx context.Context, usr user.User, courseID, quizID string, answers map[string]string) (content.Attempt, error) {
	if !usr.IsStudent() {
		return content.Attempt{}, core.NewForbiddenError("only students can attempt quizzes")
	}

	var attempt content.Attempt
	err := core.Transaction(ctx, svc.db, func(exec core.DBExecutor) error {
		if _, err := svc.authorizeView(ctx, usr, courseID, exec); err != nil {
			return err
		}

		quiz, err := svc.contentRepo.GetQuiz(ctx, quizID, exec)
		if err != nil {
			return err
		}
		now := NowFunc().UTC()
		if quiz.CourseID != courseID || !content.QuizOpen(quiz, now) {
			return content.ErrQuizNotFound
		}

		questions, err := svc.contentRepo.QueryQuestions(ctx, quiz.ID, exec)
		if err != nil {
			return errors.Wrap(err, "querying questions")
		}
		score := content.ScoreAttempt(questions, answers)
		attempt, err = svc.contentRepo.CreateAttempt(ctx, content.Attempt{
			QuizID:       quiz.ID,
			StudentID:    usr.ID,
			Answers:      answers,
			Score:        &score.Percentage,
			PointsEarned: score.PointsEarned,
			TotalPoints:  score.TotalPoints,
			StartedAt:    now,
			CompletedAt:  &now,
			IsGraded:     true,
			CreatedAt:    now,
		}, quiz.MaxAttempts, exec)
		switch {
		case errors.Cause(err) == content.ErrNoAttemptsLeft:
			return core.NewForbiddenError(content.ErrNoAttemptsLeft.Error())
		case err != nil:
			return errors.Wrap(err, "creating attempt")
		}
		return nil
	})
	if err != nil {
		return content.Attempt{}, err
	}
	return attempt, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, exec...)
}

func (svc *service) Count(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (int, error) {
	return svc.repo.CountCourses(ctx, filter, exec...)
}

// WithRelations attaches the teacher and the enrolled students to courses, keeping their order.
func (svc *service) WithRelations(ctx context.Context, courses []Course, exec ...core.DBExecutor) ([]Listing, error) {
	listings := make([]Listing, 0, len(courses))
	if len(courses) == 0 {
		return listings, nil
	}

	courseIDs := make([]string, 0, len(courses))
	userIDs := make([]string, 0, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.ID)
		userIDs = append(userIDs, c.TeacherID)
	}
	enrollments, err := svc.repo.QueryEnrollments(ctx, courseIDs, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	for _, enr := range enrollments {
		userIDs = append(userIDs, enr.StudentID)
	}
	users, err := svc.usrSvc.GetByIDs(ctx, uniqueIDs(userIDs), exec...)
	if err != nil {
		return nil, err
	}

	enrByCourse := make(map[string][]EnrolledStudent, len(courses))
	for _, enr := range enrollments {
		student, ok := users[enr.StudentID]
		if !ok {
			continue
		}
		enrByCourse[enr.CourseID] = append(enrByCourse[enr.CourseID], EnrolledStudent{Enrollment: enr, Student: student.Summary()})
	}
	for _, c := range courses {
		listing := Listing{Course: c, Enrollments: enrByCourse[c.ID]}
		if listing.Enrollments == nil {
			listing.Enrollments = []EnrolledStudent{}
		}
		if teacher, ok := users[c.TeacherID]; ok {
			summary := teacher.Summary()
			listing.Teacher = &summary
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}
