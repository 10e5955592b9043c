package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

var NowFunc = time.Now // mockable

type (
	Service interface {
		// Build returns the dashboard of usr. A nil usr gets the anonymous landing payload.
		Build(ctx context.Context, usr *user.User) (Payload, error)
	}

	service struct {
		appName     string
		db          core.DB
		usrSvc      user.Service
		courseSvc   course.Service
		contentRepo content.Repository
		logger      core.Logger
	}

	builderFunc func(svc *service, ctx context.Context, usr user.User, now time.Time, exec core.DBExecutor) (Payload, error)
)

var _ Service = (*service)(nil)

var builders = map[user.Role]builderFunc{
	user.RoleStudent:       (*service).buildStudent,
	user.RoleTeacher:       (*service).buildTeacher,
	user.RoleAdministrator: (*service).buildAdmin,
}

// NewService creates a dashboard Service. db may be nil for stores that have no transactions.
func NewService(
	conf *core.Config,
	db core.DB,
	usrSvc user.Service,
	courseSvc course.Service,
	contentRepo content.Repository,
	logger core.Logger,
) Service {
	return &service{
		appName:     conf.AppName,
		db:          db,
		usrSvc:      usrSvc,
		courseSvc:   courseSvc,
		contentRepo: contentRepo,
		logger:      logger,
	}
}

func (svc *service) Build(ctx context.Context, usr *user.User) (Payload, error) {
	if usr == nil {
		return svc.buildAnonymous(), nil
	}

	build, ok := builders[usr.Role]
	if !ok {
		err := errors.Wrapf(core.ErrInvariantViolation, "unknown role %q for user %s", usr.Role, usr.ID)
		svc.logger.Error("dashboard.Build: "+err.Error(), err, *usr)
		return Payload{}, err
	}

	now := NowFunc().UTC()
	var payload Payload
	err := core.ReadOnlyTx(ctx, svc.db, func(exec core.DBExecutor) (err error) {
		payload, err = build(svc, ctx, *usr, now, exec)
		return err
	})
	if err != nil {
		return Payload{}, err
	}
	return payload, nil
}

func (svc *service) buildAnonymous() Payload {
	return Payload{
		Kind: KindAnonymous,
		Anonymous: &AnonymousDashboard{
			AppName:     svc.appName,
			Tagline:     "Interactive science learning for grades 7 to 9",
			GradeLevels: course.GradeLevels,
			Roles:       user.Roles,
		},
	}
}

func (svc *service) buildStudent(ctx context.Context, usr user.User, now time.Time, exec core.DBExecutor) (Payload, error) {
	dash := &StudentDashboard{
		EnrolledCourses:     []EnrolledCourse{},
		UpcomingQuizzes:     []content.Quiz{},
		UpcomingAssignments: []content.Assignment{},
	}
	payload := Payload{Kind: KindStudent, Student: dash}

	// upcoming content spans every enrolled course; the course cards only the active ones
	all, err := svc.courseSvc.Query(ctx, course.QueryFilter{StudentID: usr.ID}, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying enrolled courses")
	}
	if len(all) == 0 {
		return payload, nil
	}
	courses := activeOnly(all)
	published := content.Filter{CourseIDs: courseIDs(all), PublishedOnly: true}

	materials, err := svc.contentRepo.QueryMaterials(ctx, published, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying materials")
	}
	materialsByCourse := groupByCourse(materials, func(m content.Material) string { return m.CourseID })
	for _, c := range courses {
		ms := materialsByCourse[c.ID]
		if ms == nil {
			ms = []content.Material{}
		}
		dash.EnrolledCourses = append(dash.EnrolledCourses, EnrolledCourse{Course: c, Materials: ms})
	}

	quizzes, err := svc.contentRepo.QueryQuizzes(ctx, published, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying quizzes")
	}
	dash.UpcomingQuizzes = upcomingQuizzes(quizzes, now, upcomingLimit)

	assignments, err := svc.contentRepo.QueryAssignments(ctx, content.AssignmentFilter{Filter: published, DueAfter: now}, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying assignments")
	}
	dash.UpcomingAssignments = upcomingAssignments(assignments, now, upcomingLimit)

	return payload, nil
}

func (svc *service) buildTeacher(ctx context.Context, usr user.User, _ time.Time, exec core.DBExecutor) (Payload, error) {
	dash := &TeacherDashboard{
		TeachingCourses:   []TeachingCourse{},
		RecentSubmissions: []content.Submission{},
	}
	payload := Payload{Kind: KindTeacher, Teacher: dash}

	// recent submissions span every owned course; the course cards only the active ones
	all, err := svc.courseSvc.Query(ctx, course.QueryFilter{TeacherID: usr.ID}, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying teaching courses")
	}
	if len(all) == 0 {
		return payload, nil
	}
	listings, err := svc.courseSvc.WithRelations(ctx, activeOnly(all), exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "attaching course relations")
	}

	owned := content.Filter{CourseIDs: courseIDs(all)}
	materials, err := svc.contentRepo.QueryMaterials(ctx, owned, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying materials")
	}
	quizzes, err := svc.contentRepo.QueryQuizzes(ctx, owned, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying quizzes")
	}
	assignments, err := svc.contentRepo.QueryAssignments(ctx, content.AssignmentFilter{Filter: owned}, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying assignments")
	}

	materialsByCourse := groupByCourse(materials, func(m content.Material) string { return m.CourseID })
	quizzesByCourse := groupByCourse(quizzes, func(q content.Quiz) string { return q.CourseID })
	assignmentsByCourse := groupByCourse(assignments, func(a content.Assignment) string { return a.CourseID })
	for _, l := range listings {
		tc := TeachingCourse{
			Listing:     l,
			Materials:   materialsByCourse[l.ID],
			Quizzes:     quizzesByCourse[l.ID],
			Assignments: assignmentsByCourse[l.ID],
		}
		if tc.Materials == nil {
			tc.Materials = []content.Material{}
		}
		if tc.Quizzes == nil {
			tc.Quizzes = []content.Quiz{}
		}
		if tc.Assignments == nil {
			tc.Assignments = []content.Assignment{}
		}
		dash.TeachingCourses = append(dash.TeachingCourses, tc)
	}

	if len(assignments) == 0 {
		return payload, nil
	}
	assignmentIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		assignmentIDs = append(assignmentIDs, a.ID)
	}
	subs, err := svc.contentRepo.QuerySubmissions(ctx, content.SubmissionFilter{
		AssignmentIDs:      assignmentIDs,
		UngradedOnly:       true,
		PerAssignmentLimit: submissionsPerAssignment,
	}, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying submissions")
	}
	dash.RecentSubmissions = recentSubmissions(subs, submissionsPerAssignment, recentSubmissionLimit)

	return payload, nil
}

func (svc *service) buildAdmin(ctx context.Context, _ user.User, _ time.Time, exec core.DBExecutor) (Payload, error) {
	var (
		dash = &AdminDashboard{}
		err  error
	)

	if dash.TotalStudents, err = svc.usrSvc.CountByRole(ctx, user.RoleStudent, exec); err != nil {
		return Payload{}, errors.Wrap(err, "counting students")
	}
	if dash.TotalTeachers, err = svc.usrSvc.CountByRole(ctx, user.RoleTeacher, exec); err != nil {
		return Payload{}, errors.Wrap(err, "counting teachers")
	}
	if dash.TotalCourses, err = svc.courseSvc.Count(ctx, course.QueryFilter{IsActive: course.Active()}, exec); err != nil {
		return Payload{}, errors.Wrap(err, "counting courses")
	}

	latest := []core.DBOrdering{{Field: "created_at"}}
	if dash.RecentActivity.RecentUsers, err = svc.usrSvc.Query(ctx, &user.QueryFilter{Limit: recentActivityLimit}, latest, exec); err != nil {
		return Payload{}, errors.Wrap(err, "querying recent users")
	}
	courses, err := svc.courseSvc.Query(ctx, course.QueryFilter{LatestFirst: true, Limit: recentActivityLimit}, exec)
	if err != nil {
		return Payload{}, errors.Wrap(err, "querying recent courses")
	}
	if dash.RecentActivity.RecentCourses, err = svc.courseSvc.WithRelations(ctx, courses, exec); err != nil {
		return Payload{}, errors.Wrap(err, "attaching course relations")
	}

	return Payload{Kind: KindAdmin, Admin: dash}, nil
}

func courseIDs(courses []course.Course) []string {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}

func activeOnly(courses []course.Course) []course.Course {
	active := make([]course.Course, 0, len(courses))
	for _, c := range courses {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active
}

func groupByCourse[T any](items []T, courseID func(T) string) map[string][]T {
	grouped := make(map[string][]T)
	for _, item := range items {
		id := courseID(item)
		grouped[id] = append(grouped[id], item)
	}
	return grouped
}
