package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/appdotbuilder/junior-science-lms/core/content"
)

var now = time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestUpcomingQuizzes(t *testing.T) {
	quizzes := []content.Quiz{
		{ID: "no-end", IsPublished: true},
		{ID: "late", IsPublished: true, AvailableUntil: ptr(now.Add(72 * time.Hour))},
		{ID: "soon", IsPublished: true, AvailableFrom: ptr(now.Add(-time.Hour)), AvailableUntil: ptr(now.Add(time.Hour))},
		{ID: "closed", IsPublished: true, AvailableUntil: ptr(now.Add(-time.Hour))},
		{ID: "draft", IsPublished: false, AvailableUntil: ptr(now.Add(2 * time.Hour))},
		{ID: "mid", IsPublished: true, AvailableUntil: ptr(now.Add(24 * time.Hour))},
		{ID: "inverted", IsPublished: true, AvailableFrom: ptr(now.Add(2 * time.Hour)), AvailableUntil: ptr(now.Add(time.Hour))},
	}

	got := upcomingQuizzes(quizzes, now, 5)
	ids := make([]string, 0, len(got))
	for _, q := range got {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"soon", "mid", "late", "no-end"}, ids)

	assert.Len(t, upcomingQuizzes(quizzes, now, 2), 2)
}

func TestUpcomingAssignments(t *testing.T) {
	assignments := []content.Assignment{
		{ID: "past", IsPublished: true, DueDate: now.Add(-time.Hour)},
		{ID: "due-now", IsPublished: true, DueDate: now},
		{ID: "later", IsPublished: true, DueDate: now.Add(48 * time.Hour)},
		{ID: "draft", IsPublished: false, DueDate: now.Add(time.Hour)},
		{ID: "next", IsPublished: true, DueDate: now.Add(time.Hour)},
	}
	got := upcomingAssignments(assignments, now, 5)
	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"next", "later"}, ids)
}

func TestRecentSubmissions(t *testing.T) {
	grade := 90.0

	t.Run("two stage cap", func(t *testing.T) {
		var subs []content.Submission
		// A1: 12 ungraded submissions, one hour apart, the oldest 2 dropped by the per-assignment cap
		for i := 0; i < 12; i++ {
			subs = append(subs, content.Submission{
				ID:           fmt.Sprintf("a1-%02d", i),
				AssignmentID: "A1",
				CreatedAt:    now.Add(-time.Duration(i+1) * time.Hour),
			})
		}
		// A2: 1 submission newer than everything in A1
		subs = append(subs, content.Submission{ID: "a2-00", AssignmentID: "A2", CreatedAt: now.Add(-time.Minute)})
		// graded work never shows up
		subs = append(subs, content.Submission{ID: "graded", AssignmentID: "A2", CreatedAt: now, Grade: &grade})

		got := recentSubmissions(subs, submissionsPerAssignment, recentSubmissionLimit)
		ids := make([]string, 0, len(got))
		for _, s := range got {
			ids = append(ids, s.ID)
		}
		assert.Equal(t, []string{"a2-00", "a1-00", "a1-01", "a1-02", "a1-03"}, ids)
	})

	t.Run("per assignment cap", func(t *testing.T) {
		var subs []content.Submission
		for i := 0; i < 12; i++ {
			subs = append(subs, content.Submission{
				ID:           fmt.Sprintf("a1-%02d", i),
				AssignmentID: "A1",
				CreatedAt:    now.Add(-time.Duration(i) * time.Hour),
			})
		}
		got := recentSubmissions(subs, submissionsPerAssignment, 20)
		assert.Len(t, got, submissionsPerAssignment)
		assert.Equal(t, "a1-00", got[0].ID)
		assert.Equal(t, "a1-09", got[len(got)-1].ID)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, recentSubmissions(nil, submissionsPerAssignment, recentSubmissionLimit))
	})
}
