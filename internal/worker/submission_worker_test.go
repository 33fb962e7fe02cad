package worker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestSubmissionJobWithInvalidUUIDIsDroppedNotRetried(t *testing.T) {
	w := &SubmissionWorker{log: zerolog.Nop()}

	job := &SubmissionJob{SessionID: "not-a-uuid", Type: "MCQ", Score: 40}
	if err := w.persistSubmission(context.Background(), job); err != nil {
		t.Fatalf("expected invalid session id to be dropped, got %v", err)
	}
}
