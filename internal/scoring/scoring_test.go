package scoring

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/mavericks-edu/mavericks-backend/internal/model"
)

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            uuid.New(),
			Prompt:        fmt.Sprintf("question %d", i),
			CorrectOption: fmt.Sprintf("option-%d", i),
		}
	}
	return qs
}

func TestQuizScoreCountsOnlyExactMatches(t *testing.T) {
	qs := makeQuestions(10)

	// 6 correct selections, 4 unanswered.
	answers := make(map[string]string)
	for i := 0; i < 6; i++ {
		answers[qs[i].ID.String()] = qs[i].CorrectOption
	}

	if got := QuizScore(qs, answers); got != 60 {
		t.Fatalf("expected 60, got %v", got)
	}
}

func TestQuizScoreRejectsInexactMatches(t *testing.T) {
	qs := makeQuestions(4)

	answers := map[string]string{
		qs[0].ID.String(): qs[0].CorrectOption,
		qs[1].ID.String(): qs[1].CorrectOption + " ", // trailing space must not match
		qs[2].ID.String(): "OPTION-2",                // case differs
	}

	if got := QuizScore(qs, answers); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
}

func TestQuizScoreFullMarks(t *testing.T) {
	qs := makeQuestions(10)
	answers := make(map[string]string)
	for _, q := range qs {
		answers[q.ID.String()] = q.CorrectOption
	}

	if got := QuizScore(qs, answers); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestQuizScoreEmptyQuestionSet(t *testing.T) {
	if got := QuizScore(nil, map[string]string{"x": "y"}); got != 0 {
		t.Fatalf("expected 0 for empty question set, got %v", got)
	}
}

func TestQuizScoreRounds(t *testing.T) {
	qs := makeQuestions(3)
	answers := map[string]string{
		qs[0].ID.String(): qs[0].CorrectOption,
	}

	// 1/3 → 33.33... → rounds to 33
	if got := QuizScore(qs, answers); got != 33 {
		t.Fatalf("expected 33, got %v", got)
	}

	answers[qs[1].ID.String()] = qs[1].CorrectOption
	// 2/3 → 66.66... → rounds to 67
	if got := QuizScore(qs, answers); got != 67 {
		t.Fatalf("expected 67, got %v", got)
	}
}

func TestCodingScoreFallback(t *testing.T) {
	cases := []struct {
		passed, total int
		want          float64
	}{
		{0, 0, 0},
		{0, 5, 0},
		{5, 5, 100},
		{3, 4, 75},
		{2, 3, 67},
		{7, 5, 100}, // clamped
		{-1, 5, 0},  // clamped
	}
	for _, tc := range cases {
		if got := CodingScore(tc.passed, tc.total); got != tc.want {
			t.Errorf("CodingScore(%d, %d) = %v, want %v", tc.passed, tc.total, got, tc.want)
		}
	}
}
