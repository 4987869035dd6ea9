package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"histreader/internal/tasks"
)

// AsynqJobClient enqueues fetch tasks and records them to the JobStore.
type AsynqJobClient struct {
	client   *asynq.Client
	jobStore JobStore
}

var _ JobClient = (*AsynqJobClient)(nil)

func NewAsynqJobClient(redisOpts asynq.RedisClientOpt, js JobStore) (*AsynqJobClient, error) {
	if js == nil {
		return nil, fmt.Errorf("JobStore cannot be nil for AsynqJobClient")
	}
	if redisOpts.Addr == "" {
		return nil, fmt.Errorf("redis address is required for AsynqJobClient")
	}
	return &AsynqJobClient{client: asynq.NewClient(redisOpts), jobStore: js}, nil
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// Enqueue enqueues a task and records the event to the JobStore. A failed
// record is logged; the task is already queued at that point.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("AsynqJobClient internal client is not initialized")
	}
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	log.WithFields(log.Fields{"task_id": info.ID, "type": task.Type(), "queue": info.Queue}).Debug("task enqueued")

	jobUUID, err := uuid.Parse(info.ID)
	if err != nil {
		log.Warnf("asynq task id %q is not a UUID; recording job with nil id", info.ID)
	}
	payload, _ := tasks.DecodeFetchArticlePayload(task.Payload())
	params := JobRecordParams{
		JobID:       jobUUID,
		TaskType:    task.Type(),
		Payload:     task.Payload(),
		Queue:       info.Queue,
		Status:      "enqueued",
		RequestedBy: payload.RequestedBy,
	}
	if err := jc.jobStore.RecordJobEnqueue(ctx, params); err != nil {
		log.Errorf("failed to record job enqueue for task %s: %v", info.ID, err)
	}
	return info, nil
}

// EnqueueFetchJob queues one random-article fetch.
func (jc *AsynqJobClient) EnqueueFetchJob(ctx context.Context, requestedBy string) (*asynq.TaskInfo, error) {
	task, err := NewFetchTask(requestedBy, time.Now())
	if err != nil {
		return nil, err
	}
	return jc.Enqueue(ctx, task, asynq.Queue(tasks.QueueDefault), asynq.MaxRetry(0))
}

// NewFetchTask builds a TypeFetchArticle task with a UUID task id.
func NewFetchTask(requestedBy string, at time.Time) (*asynq.Task, error) {
	payload, err := tasks.NewFetchArticlePayload(requestedBy, at)
	if err != nil {
		return nil, fmt.Errorf("encode fetch payload: %w", err)
	}
	return asynq.NewTask(tasks.TypeFetchArticle, payload, asynq.TaskID(uuid.NewString())), nil
}
