package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMalformed 队列里的消息无法解析，原始内容已转入死信列表
var ErrMalformed = errors.New("malformed statement message")

const deadLetterSuffix = ":dead"

// StatementMessage 账单归档任务，日期格式 yyyy-MM-dd
type StatementMessage struct {
	JobID       int64  `json:"job_id"`
	UserID      int64  `json:"user_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Attempt     int    `json:"attempt"`
}

// Queue 基于 redis list 的先进先出队列：LPUSH 入队，BRPOP 出队
type Queue struct {
	client *redis.Client
	name   string
}

func NewQueue(client *redis.Client, name string) *Queue {
	return &Queue{client: client, name: name}
}

func (q *Queue) Name() string { return q.name }

// DeadLetterName 无法解析的消息存放的列表
func (q *Queue) DeadLetterName() string { return q.name + deadLetterSuffix }

func (q *Queue) Push(ctx context.Context, msg *StatementMessage) error {
	if msg.JobID <= 0 {
		return fmt.Errorf("push statement: invalid job id %d", msg.JobID)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("push statement %d: %w", msg.JobID, err)
	}
	return q.client.LPush(ctx, q.name, data).Err()
}

// Pop 阻塞等待一条任务，超时返回 nil, nil
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*StatementMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop %s: %w", q.name, err)
	}
	// BRPOP 返回 [key, value]
	if len(result) != 2 {
		return nil, nil
	}

	var msg StatementMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil || msg.JobID <= 0 {
		if dlErr := q.client.LPush(ctx, q.DeadLetterName(), result[1]).Err(); dlErr != nil {
			return nil, fmt.Errorf("%w: dead letter: %v", ErrMalformed, dlErr)
		}
		return nil, ErrMalformed
	}
	return &msg, nil
}

// Length 待处理任务数
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}
