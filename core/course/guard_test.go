package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

func TestCanViewCourse(t *testing.T) {
	var (
		admin   = user.User{ID: "a", Role: user.RoleAdministrator}
		owner   = user.User{ID: "t1", Role: user.RoleTeacher}
		other   = user.User{ID: "t2", Role: user.RoleTeacher}
		student = user.User{ID: "s", Role: user.RoleStudent}
		course  = Course{ID: "c", TeacherID: owner.ID, IsActive: true}
	)

	tests := []struct {
		name       string
		usr        user.User
		isEnrolled bool
		want       Decision
	}{
		{name: "admin", usr: admin, want: Decision{Allowed: true}},
		{name: "admin enrolled flag ignored", usr: admin, isEnrolled: true, want: Decision{Allowed: true}},
		{name: "owner", usr: owner, want: Decision{Allowed: true}},
		{name: "other teacher", usr: other, want: Decision{Reason: ReasonNotOwner}},
		{name: "other teacher enrolled flag ignored", usr: other, isEnrolled: true, want: Decision{Reason: ReasonNotOwner}},
		{name: "enrolled student", usr: student, isEnrolled: true, want: Decision{Allowed: true}},
		{name: "student", usr: student, want: Decision{Reason: ReasonNotEnrolled}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanViewCourse(tt.usr, course, tt.isEnrolled)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("CanViewCourse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCanViewCourseUnknownRole(t *testing.T) {
	_, err := CanViewCourse(user.User{ID: "x", Role: "principal"}, Course{ID: "c"}, true)
	assert.ErrorIs(t, err, core.ErrInvariantViolation)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := deny(ReasonNotEnrolled).Err()
	require.Error(t, err)
	assert.True(t, core.IsForbidden(err))
	assert.False(t, core.IsNotFound(err))
	assert.Equal(t, ReasonNotEnrolled, err.Error())
}
