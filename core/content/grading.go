package content

import "math"

type Score struct {
	PointsEarned int     `json:"points_earned"`
	TotalPoints  int     `json:"total_points"`
	Percentage   float64 `json:"percentage"`
}

// Passed reports whether the score reaches passingScore (a percentage).
func (s Score) Passed(passingScore int) bool {
	return s.Percentage >= float64(passingScore)
}

// ScoreAttempt sums the points of correctly answered questions.
// answers maps question IDs to the student's answers; unanswered questions earn nothing.
func ScoreAttempt(questions []Question, answers map[string]string) Score {
	var score Score
	for _, q := range questions {
		score.TotalPoints += q.Points
		if answer, ok := answers[q.ID]; ok && q.IsCorrect(answer) {
			score.PointsEarned += q.Points
		}
	}
	if score.TotalPoints > 0 {
		pct := float64(score.PointsEarned) / float64(score.TotalPoints) * 100
		score.Percentage = math.Round(pct*100) / 100
	}
	return score
}
