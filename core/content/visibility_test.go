package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

var (
	now     = time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
	admin   = user.User{ID: "admin", Role: user.RoleAdministrator}
	teacher = user.User{ID: "teacher", Role: user.RoleTeacher}
	other   = user.User{ID: "other-teacher", Role: user.RoleTeacher}
	student = user.User{ID: "student", Role: user.RoleStudent}
)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestVisibleMaterials(t *testing.T) {
	materials := []Material{
		{ID: "m1", IsPublished: true, SortOrder: 1},
		{ID: "m2", IsPublished: false, SortOrder: 2},
		{ID: "m3", IsPublished: true, SortOrder: 3},
		{ID: "m4", IsPublished: false, SortOrder: 4},
		{ID: "m5", IsPublished: true, SortOrder: 5},
	}

	tests := []struct {
		name   string
		viewer Viewer
		want   []string
	}{
		{name: "admin", viewer: NewViewer(admin, teacher.ID), want: []string{"m1", "m2", "m3", "m4", "m5"}},
		{name: "owning teacher", viewer: NewViewer(teacher, teacher.ID), want: []string{"m1", "m2", "m3", "m4", "m5"}},
		{name: "other teacher", viewer: NewViewer(other, teacher.ID), want: []string{"m1", "m3", "m5"}},
		{name: "student", viewer: NewViewer(student, teacher.ID), want: []string{"m1", "m3", "m5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VisibleMaterials(tt.viewer, materials)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, m := range got {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestVisibleQuizzes(t *testing.T) {
	tests := []struct {
		name string
		quiz Quiz
		want bool
	}{
		{name: "open window", quiz: Quiz{IsPublished: true, AvailableFrom: at(-time.Hour), AvailableUntil: at(time.Hour)}, want: true},
		{name: "unbounded", quiz: Quiz{IsPublished: true}, want: true},
		{name: "only from", quiz: Quiz{IsPublished: true, AvailableFrom: at(-time.Hour)}, want: true},
		{name: "only until", quiz: Quiz{IsPublished: true, AvailableUntil: at(time.Hour)}, want: true},
		{name: "from is now", quiz: Quiz{IsPublished: true, AvailableFrom: at(0)}, want: true},
		{name: "until is now", quiz: Quiz{IsPublished: true, AvailableUntil: at(0)}, want: true},
		{name: "closed", quiz: Quiz{IsPublished: true, AvailableUntil: at(-time.Hour)}, want: false},
		{name: "not yet open", quiz: Quiz{IsPublished: true, AvailableFrom: at(time.Hour)}, want: false},
		{name: "unpublished", quiz: Quiz{IsPublished: false, AvailableFrom: at(-time.Hour), AvailableUntil: at(time.Hour)}, want: false},
		{name: "from after until", quiz: Quiz{IsPublished: true, AvailableFrom: at(2 * time.Hour), AvailableUntil: at(time.Hour)}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VisibleQuizzes(NewViewer(student, teacher.ID), []Quiz{tt.quiz}, now)
			require.NoError(t, err)
			if visible := len(got) == 1; visible != tt.want {
				t.Errorf("VisibleQuizzes() visible = %v, want %v", visible, tt.want)
			}

			// staff always sees it
			got, err = VisibleQuizzes(NewViewer(teacher, teacher.ID), []Quiz{tt.quiz}, now)
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}
}

func TestMisconfiguredQuizNeverVisible(t *testing.T) {
	from, until := now.Add(2*time.Hour), now.Add(time.Hour)
	quiz := Quiz{IsPublished: true, AvailableFrom: &from, AvailableUntil: &until}
	for _, when := range []time.Time{now, until, from, now.Add(90 * time.Minute), now.Add(24 * time.Hour)} {
		if QuizOpen(quiz, when) {
			t.Errorf("QuizOpen(%v) = true, want false", when)
		}
	}
}

func TestVisibleAssignments(t *testing.T) {
	assignments := []Assignment{
		{ID: "overdue", IsPublished: true, DueDate: now.Add(-24 * time.Hour)},
		{ID: "draft", IsPublished: false, DueDate: now.Add(24 * time.Hour)},
		{ID: "upcoming", IsPublished: true, DueDate: now.Add(48 * time.Hour)},
	}
	got, err := VisibleAssignments(NewViewer(student, teacher.ID), assignments)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "overdue", got[0].ID)
	assert.Equal(t, "upcoming", got[1].ID)

	got, err = VisibleAssignments(NewViewer(admin, teacher.ID), assignments)
	require.NoError(t, err)
	assert.Equal(t, assignments, got)
}

func TestUnknownRole(t *testing.T) {
	ghost := user.User{ID: "ghost", Role: "guest"}
	_, err := VisibleMaterials(NewViewer(ghost, teacher.ID), []Material{{ID: "m1", IsPublished: true}})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvariantViolation)
}
