package dashboard

import (
	"sort"
	"time"

	"github.com/appdotbuilder/junior-science-lms/core/content"
)

const (
	upcomingLimit         = 5
	recentSubmissionLimit = 5
	// ungraded submissions kept per assignment before the global cut
	submissionsPerAssignment = 10
	recentActivityLimit      = 5
)

// upcomingQuizzes keeps the open quizzes, soonest closing first (no closing date last), capped at limit.
func upcomingQuizzes(quizzes []content.Quiz, now time.Time, limit int) []content.Quiz {
	open := make([]content.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if content.QuizOpen(q, now) {
			open = append(open, q)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		a, b := open[i].AvailableUntil, open[j].AvailableUntil
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	return capped(open, limit)
}

// upcomingAssignments keeps the published assignments due after now, soonest first, capped at limit.
func upcomingAssignments(assignments []content.Assignment, now time.Time, limit int) []content.Assignment {
	upcoming := make([]content.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.IsPublished && a.DueDate.After(now) {
			upcoming = append(upcoming, a)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].DueDate.Before(upcoming[j].DueDate) })
	return capped(upcoming, limit)
}

// recentSubmissions keeps the perAssignment most recent ungraded submissions of each assignment,
// then returns the limit most recent of those.
func recentSubmissions(subs []content.Submission, perAssignment, limit int) []content.Submission {
	byAssignment := make(map[string][]content.Submission)
	order := make([]string, 0)
	for _, s := range subs {
		if s.IsGraded() {
			continue
		}
		if _, ok := byAssignment[s.AssignmentID]; !ok {
			order = append(order, s.AssignmentID)
		}
		byAssignment[s.AssignmentID] = append(byAssignment[s.AssignmentID], s)
	}

	pool := make([]content.Submission, 0, len(subs))
	for _, id := range order {
		group := byAssignment[id]
		sortNewestFirst(group)
		pool = append(pool, capped(group, perAssignment)...)
	}
	sortNewestFirst(pool)
	return capped(pool, limit)
}

func sortNewestFirst(subs []content.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID > subs[j].ID
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}

func capped[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
