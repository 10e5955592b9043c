package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

var GradeLevels = []int{7, 8, 9}

type Course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Code        string    `json:"code"`
	GradeLevel  int       `json:"grade_level"`
	TeacherID   string    `json:"teacher_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Enrollment struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	StudentID  string    `json:"student_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// EnrolledStudent is an Enrollment with its student attached.
type EnrolledStudent struct {
	Enrollment
	Student user.Summary `json:"student"`
}

// Listing is a Course with its teacher and enrollments attached.
type Listing struct {
	Course
	Teacher     *user.Summary     `json:"teacher"`
	Enrollments []EnrolledStudent `json:"enrollments"`
}

// Detail is everything the course page shows, already narrowed to what the viewer may see.
type Detail struct {
	Listing
	Materials   []content.Material   `json:"materials"`
	Quizzes     []content.Quiz       `json:"quizzes"`
	Assignments []content.Assignment `json:"assignments"`
	Forums      []content.Forum      `json:"forums"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Code        string `json:"code" validate:"required,max=20"`
	GradeLevel  int    `json:"grade_level" validate:"required,oneof=7 8 9"`
	TeacherID   string `json:"teacher_id" validate:"required"`
	IsActive    *bool  `json:"is_active"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Code = core.CleanString(nc.Code)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return validate.Struct(nc)
}

// UpdateCourse contains the editable fields of a Course. It validates like NewCourse.
type UpdateCourse = NewCourse

type NewEnrollment struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	return validate.Struct(ne)
}

// QueryFilter applies AND operation on its non-zero fields.
type QueryFilter struct {
	TeacherID   string
	StudentID   string // through enrollments
	IsActive    *bool
	LatestFirst bool // created_at descending; default is name ascending
	Limit       int
}

func Active() *bool {
	active := true
	return &active
}
