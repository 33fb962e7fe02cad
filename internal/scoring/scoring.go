package scoring

import (
	"math"

	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

// QuizScore grades an answer map against the question set.
// Score = round(100 * correct / total). A question counts as correct only on
// exact string equality between the selected option and the stored correct
// answer; unanswered questions never match.
func QuizScore(questions []model.Question, answers map[string]string) float64 {
	total := len(questions)
	if total == 0 {
		return 0
	}

	correct := 0
	for _, q := range questions {
		if selected, ok := answers[q.ID.String()]; ok && selected == q.CorrectOption {
			correct++
		}
	}

	return math.Round(100 * float64(correct) / float64(total))
}

// CodingScore is the client-side fallback when the execution service reports
// pass counts without an authoritative score: round(100 * passed / total).
func CodingScore(passed, total int) float64 {
	if total <= 0 {
		return 0
	}
	if passed < 0 {
		passed = 0
	}
	if passed > total {
		passed = total
	}
	return math.Round(100 * float64(passed) / float64(total))
}
