package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/config"
)

const (
	RescoreBatchSize    = 20
	RescoreBatchTimeout = 2 * time.Second
	RescorePollTimeout  = 1 * time.Second
	RescoreMaxAttempts  = 3
)

// Rescorer recomputes the finished sessions of an exam.
type Rescorer interface {
	Rescore(ctx context.Context, examID uuid.UUID) (int, error)
}

type rescorePayload struct {
	ExamID  string `json:"exam_id"`
	Attempt int    `json:"attempt"`
}

// RescoreQueue pushes rescore jobs onto the Redis list consumed by RescoreWorker.
type RescoreQueue struct {
	rdb *redis.Client
}

// NewRescoreQueue creates a new RescoreQueue.
func NewRescoreQueue(rdb *redis.Client) *RescoreQueue {
	return &RescoreQueue{rdb: rdb}
}

// EnqueueRescore schedules a rescore of examID.
func (q *RescoreQueue) EnqueueRescore(ctx context.Context, examID uuid.UUID) error {
	return push(ctx, q.rdb, &rescorePayload{ExamID: examID.String()})
}

func push(ctx context.Context, rdb *redis.Client, p *rescorePayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal rescore job: %w", err)
	}
	return rdb.RPush(ctx, config.WorkerKey.RescoreExamsQueue, raw).Err()
}

// RescoreWorker drains the rescore queue. Jobs for the same exam within one
// batch collapse into a single rescore.
type RescoreWorker struct {
	engine Rescorer
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewRescoreWorker creates a worker that feeds queued exams to engine.
func NewRescoreWorker(engine Rescorer, rdb *redis.Client, log zerolog.Logger) *RescoreWorker {
	return &RescoreWorker{
		engine: engine,
		rdb:    rdb,
		log:    log.With().Str("component", "rescore_worker").Logger(),
	}
}

// Start consumes the queue until ctx is cancelled. Jobs still pending at
// shutdown go back onto the queue.
func (w *RescoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("RescoreWorker started")

	batch := make([]*rescorePayload, 0, RescoreBatchSize)
	lastFlush := time.Now()

	for {
		if ctx.Err() != nil {
			w.drain(batch)
			return
		}

		if len(batch) > 0 &&
			(len(batch) >= RescoreBatchSize || time.Since(lastFlush) >= RescoreBatchTimeout) {

			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.drain(batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, RescorePollTimeout, config.WorkerKey.RescoreExamsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(RescorePollTimeout)
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p rescorePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *RescoreWorker) flush(ctx context.Context, batch []*rescorePayload) {
	seen := make(map[string]*rescorePayload, len(batch))
	for _, p := range batch {
		if prev, ok := seen[p.ExamID]; ok && prev.Attempt <= p.Attempt {
			continue
		}
		seen[p.ExamID] = p
	}

	for _, p := range seen {
		if ctx.Err() != nil {
			w.requeue(context.Background(), []*rescorePayload{p})
			continue
		}

		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			w.log.Error().Err(err).Str("exam_id", p.ExamID).Msg("Dropping job with invalid exam id")
			continue
		}

		n, err := w.engine.Rescore(ctx, examID)
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted by shutdown, not a failed attempt.
				w.requeue(context.Background(), []*rescorePayload{p})
				continue
			}
			w.retry(p, err)
			continue
		}

		w.log.Info().Str("exam_id", p.ExamID).Int("sessions", n).Msg("Exam rescored")
	}
}

func (w *RescoreWorker) retry(p *rescorePayload, cause error) {
	p.Attempt++
	if p.Attempt >= RescoreMaxAttempts {
		w.log.Error().Err(cause).Str("exam_id", p.ExamID).Int("attempt", p.Attempt).Msg("Rescore failed, giving up")
		return
	}

	w.log.Warn().Err(cause).Str("exam_id", p.ExamID).Int("attempt", p.Attempt).Msg("Rescore failed, requeueing")
	if err := push(context.Background(), w.rdb, p); err != nil {
		w.log.Error().Err(err).Str("exam_id", p.ExamID).Msg("Requeue failed")
	}
}

func (w *RescoreWorker) drain(batch []*rescorePayload) {
	if len(batch) == 0 {
		return
	}
	w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Requeueing pending jobs...")
	w.requeue(context.Background(), batch)
}

func (w *RescoreWorker) requeue(ctx context.Context, batch []*rescorePayload) {
	for _, p := range batch {
		if err := push(ctx, w.rdb, p); err != nil {
			w.log.Error().Err(err).Str("exam_id", p.ExamID).Msg("Requeue failed")
		}
	}
}
