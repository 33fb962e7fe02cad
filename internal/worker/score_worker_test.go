package worker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestScoreDeltasForSameRowCoalesceIntoOne(t *testing.T) {
	w := &ScoreWorker{log: zerolog.Nop()}
	event := uuid.New()
	other := uuid.New()

	// A participant's quiz and coding deltas landing in the same batch must
	// not produce two upsert rows for one (participant, event) key.
	batch := []*ScoreJob{
		{ParticipantID: 7, EventID: event.String(), Delta: 40},
		{ParticipantID: 9, EventID: other.String(), Delta: 25},
		{ParticipantID: 7, EventID: event.String(), Delta: 60},
	}

	participants, events, deltas := w.coalesce(batch)
	if len(participants) != 2 || len(events) != 2 || len(deltas) != 2 {
		t.Fatalf("expected 2 coalesced rows, got %d/%d/%d", len(participants), len(events), len(deltas))
	}
	if participants[0] != 7 || events[0] != event || deltas[0] != 100 {
		t.Errorf("expected participant 7 summed to 100, got %d/%s/%v", participants[0], events[0], deltas[0])
	}
	if participants[1] != 9 || events[1] != other || deltas[1] != 25 {
		t.Errorf("expected participant 9 with 25, got %d/%s/%v", participants[1], events[1], deltas[1])
	}
}

func TestScoreDeltaWithInvalidUUIDIsDropped(t *testing.T) {
	w := &ScoreWorker{log: zerolog.Nop()}
	event := uuid.New()

	batch := []*ScoreJob{
		{ParticipantID: 1, EventID: "not-a-uuid", Delta: 10},
		{ParticipantID: 2, EventID: event.String(), Delta: 30},
	}

	participants, _, deltas := w.coalesce(batch)
	if len(participants) != 1 {
		t.Fatalf("expected the malformed delta dropped, got %d rows", len(participants))
	}
	if participants[0] != 2 || deltas[0] != 30 {
		t.Errorf("expected participant 2 with 30, got %d/%v", participants[0], deltas[0])
	}
}
