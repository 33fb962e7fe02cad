package worker

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestAnswerJobWithInvalidUUIDIsDroppedNotRetried(t *testing.T) {
	w := &AnswerWorker{log: zerolog.Nop()}

	// A nil error keeps the caller from requeueing; a returned error would
	// put the unparseable job back at the head of the queue forever.
	job := &AnswerJob{SessionID: "not-a-uuid", QuestionID: uuid.New().String(), Answer: "A"}
	if err := w.persistAnswer(context.Background(), job); err != nil {
		t.Fatalf("expected invalid session id to be dropped, got %v", err)
	}

	job = &AnswerJob{SessionID: uuid.New().String(), QuestionID: "not-a-uuid", Answer: "A"}
	if err := w.persistAnswer(context.Background(), job); err != nil {
		t.Fatalf("expected invalid question id to be dropped, got %v", err)
	}
}
