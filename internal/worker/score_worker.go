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

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second
)

// ScoreJob is the queue payload for one aggregate score delta that failed
// its synchronous write and needs a retry.
type ScoreJob struct {
	ParticipantID int     `json:"participant_id"`
	EventID       string  `json:"event_id"`
	Delta         float64 `json:"delta"`
}

// ScoreWorker consumes persist_scores_queue and applies aggregate score
// deltas in batches. The upsert adds, never overwrites, so replays and
// reordering cannot shrink a total.
type ScoreWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewScoreWorker creates a new ScoreWorker.
func NewScoreWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScoreWorker {
	return &ScoreWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "score_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *ScoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoreWorker started")

	batch := make([]*ScoreJob, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistScoresQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var job ScoreJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed JSON")
				continue
			}

			batch = append(batch, &job)
		}
	}
}

func (w *ScoreWorker) flushSafe(ctx context.Context, batch []*ScoreJob) {
	if len(batch) == 0 {
		return
	}
	if err := w.bulkApply(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk apply failed, requeueing batch")
		w.requeue(ctx, batch)
	}
}

type scoreKey struct {
	participantID int
	eventID       uuid.UUID
}

// coalesce sums deltas per (participant, event). ON CONFLICT DO UPDATE
// rejects a second hit on the same row within one statement (SQLSTATE 21000),
// and a participant's quiz and coding deltas routinely share a batch.
func (w *ScoreWorker) coalesce(batch []*ScoreJob) ([]int, []uuid.UUID, []float64) {
	totals := make(map[scoreKey]float64, len(batch))
	order := make([]scoreKey, 0, len(batch))

	for _, job := range batch {
		eventID, err := uuid.Parse(job.EventID)
		if err != nil {
			w.log.Error().Str("event_id", job.EventID).Msg("Dropping score delta with invalid UUID")
			continue
		}
		key := scoreKey{participantID: job.ParticipantID, eventID: eventID}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += job.Delta
	}

	participantIDs := make([]int, 0, len(order))
	eventIDs := make([]uuid.UUID, 0, len(order))
	deltas := make([]float64, 0, len(order))
	for _, key := range order {
		participantIDs = append(participantIDs, key.participantID)
		eventIDs = append(eventIDs, key.eventID)
		deltas = append(deltas, totals[key])
	}
	return participantIDs, eventIDs, deltas
}

func (w *ScoreWorker) bulkApply(ctx context.Context, batch []*ScoreJob) error {
	participantIDs, eventIDs, deltas := w.coalesce(batch)
	if len(participantIDs) == 0 {
		return nil
	}

	_, err := w.pool.Exec(ctx,
		`INSERT INTO aggregate_scores (participant_id, event_id, total_score)
		 SELECT * FROM UNNEST($1::int[], $2::uuid[], $3::float8[])
		 ON CONFLICT (participant_id, event_id) DO UPDATE
		 SET total_score = aggregate_scores.total_score + EXCLUDED.total_score,
		     updated_at = NOW()`,
		participantIDs, eventIDs, deltas)
	return err
}

func (w *ScoreWorker) requeue(ctx context.Context, items []*ScoreJob) {
	pipe := w.rdb.Pipeline()
	for _, job := range items {
		data, _ := json.Marshal(job)
		pipe.RPush(ctx, config.WorkerKey.PersistScoresQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue score deltas. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed score deltas")
		time.Sleep(2 * time.Second)
	}
}
