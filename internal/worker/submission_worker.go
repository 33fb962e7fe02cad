package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavericks-edu/mavericks-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SubmissionJob is the queue payload for a graded submission whose
// synchronous write failed. The phase already advanced; this is the retry
// lane that makes the record durable.
type SubmissionJob struct {
	SessionID        string          `json:"session_id"`
	Type             string          `json:"type"`
	Payload          json.RawMessage `json:"payload"`
	Score            float64         `json:"score"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
}

// SubmissionWorker consumes persist_submissions_queue and inserts submission
// records one by one. The (session_id, type) unique key absorbs replays.
type SubmissionWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSubmissionWorker creates a new SubmissionWorker.
func NewSubmissionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "submission_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SubmissionWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistSubmissionsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var job SubmissionJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistSubmission(ctx, &job); err != nil {
		w.log.Error().Err(err).
			Str("session_id", job.SessionID).
			Str("type", job.Type).
			Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *SubmissionWorker) persistSubmission(ctx context.Context, job *SubmissionJob) error {
	// An unparseable ID can never succeed; requeueing it would wedge the
	// queue behind a permanent 5s retry loop. Drop it instead.
	sessionID, err := uuid.Parse(job.SessionID)
	if err != nil {
		w.log.Error().Str("session_id", job.SessionID).Msg("Dropping submission with invalid session UUID")
		return nil
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO submissions (session_id, type, payload, score, time_taken_seconds)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, type) DO NOTHING`,
		sessionID, job.Type, job.Payload, job.Score, job.TimeTakenSeconds,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *SubmissionWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistSubmissionsQueue).Result()
		if err != nil {
			break
		}

		var job SubmissionJob
		if err := json.Unmarshal([]byte(result), &job); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistSubmission(ctx, &job); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
