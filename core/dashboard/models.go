package dashboard

import (
	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

// Kind tags which of the Payload variants is set.
type Kind string

const (
	KindAnonymous Kind = "anonymous"
	KindStudent   Kind = "student"
	KindTeacher   Kind = "teacher"
	KindAdmin     Kind = "administrator"
)

// Payload is a tagged union: exactly the field matching Kind is non-nil.
type Payload struct {
	Kind      Kind                `json:"kind"`
	Anonymous *AnonymousDashboard `json:"anonymous,omitempty"`
	Student   *StudentDashboard   `json:"student,omitempty"`
	Teacher   *TeacherDashboard   `json:"teacher,omitempty"`
	Admin     *AdminDashboard     `json:"admin,omitempty"`
}

// AnonymousDashboard is the static landing data shown to visitors.
type AnonymousDashboard struct {
	AppName     string          `json:"app_name"`
	Tagline     string          `json:"tagline"`
	GradeLevels []int           `json:"grade_levels"`
	Roles       []user.RoleInfo `json:"roles"`
}

type EnrolledCourse struct {
	course.Course
	Materials []content.Material `json:"materials"`
}

type StudentDashboard struct {
	EnrolledCourses     []EnrolledCourse     `json:"enrolled_courses"`
	UpcomingQuizzes     []content.Quiz       `json:"upcoming_quizzes"`
	UpcomingAssignments []content.Assignment `json:"upcoming_assignments"`
}

type TeachingCourse struct {
	course.Listing
	Materials   []content.Material   `json:"materials"`
	Quizzes     []content.Quiz       `json:"quizzes"`
	Assignments []content.Assignment `json:"assignments"`
}

type TeacherDashboard struct {
	TeachingCourses   []TeachingCourse     `json:"teaching_courses"`
	RecentSubmissions []content.Submission `json:"recent_submissions"`
}

type RecentActivity struct {
	RecentUsers   []user.User      `json:"recent_users"`
	RecentCourses []course.Listing `json:"recent_courses"`
}

type AdminDashboard struct {
	TotalStudents  int            `json:"total_students"`
	TotalTeachers  int            `json:"total_teachers"`
	TotalCourses   int            `json:"total_courses"`
	RecentActivity RecentActivity `json:"recent_activity"`
}
