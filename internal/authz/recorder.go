package authz

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"
)

// TaskTypeRecordDecision is the asynq task type carrying one decision record.
const TaskTypeRecordDecision = "authz:record_decision"

// NewRecordDecisionTask builds the asynq task for a decision record.
func NewRecordDecisionTask(rec Record) (*asynq.Task, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecordDecision, payload), nil
}

// QueueRecorder forwards decision records to the job queue through a bounded
// in-process buffer. Enqueueing never blocks the authorization path: when
// the buffer is full the record is dropped and logged.
type QueueRecorder struct {
	client  *asynq.Client
	queue   chan Record
	logger  *slog.Logger
	done    chan struct{}
	closeMu sync.Once
}

// NewQueueRecorder starts the drain goroutine and returns the recorder.
func NewQueueRecorder(client *asynq.Client, size int, logger *slog.Logger) *QueueRecorder {
	if size <= 0 {
		size = 1024
	}
	r := &QueueRecorder{
		client: client,
		queue:  make(chan Record, size),
		logger: logger,
		done:   make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues the record without blocking. Overflow drops the record.
func (r *QueueRecorder) Record(rec Record) {
	select {
	case r.queue <- rec:
	default:
		if r.logger != nil {
			r.logger.Warn("decision record dropped, queue full",
				slog.Int64("actor_id", rec.ActorID),
				slog.String("resource", rec.Resource),
				slog.String("action", rec.Action))
		}
	}
}

func (r *QueueRecorder) drain() {
	for {
		select {
		case <-r.done:
			return
		case rec := <-r.queue:
			task, err := NewRecordDecisionTask(rec)
			if err != nil {
				r.warn("encode decision record", err)
				continue
			}
			if _, err := r.client.EnqueueContext(context.Background(), task); err != nil {
				r.warn("enqueue decision record", err)
			}
		}
	}
}

// Close stops the drain goroutine. Records still buffered are abandoned;
// the trail is best effort.
func (r *QueueRecorder) Close() {
	r.closeMu.Do(func() { close(r.done) })
}

func (r *QueueRecorder) warn(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, slog.Any("error", err))
	}
}
