package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis implements Client on a Redis instance. Each queue is three keys:
// a list of ready message ids, a hash id->body, and a sorted set of
// in-flight ids scored by their visibility deadline. Receive requeues
// expired in-flight ids before popping, which is what makes delivery
// at-least-once across worker crashes.
type Redis struct {
	rdb         *redis.Client
	prefix      string
	visibility  time.Duration
	receiveWait time.Duration
	now         func() time.Time
}

type RedisOptions struct {
	Prefix      string        // key namespace, e.g. "webm2mp4"
	Visibility  time.Duration // redelivery window, default 5m
	ReceiveWait time.Duration // empty-queue wait bound, default 5s
}

// receiveScript pops the next ready id and records its visibility deadline
// in a single server-side step. A worker dying mid-receive therefore leaves
// the id either still ready or already in flight, never in between; the
// expiry sweep covers both states.
var receiveScript = redis.NewScript(`
local id = redis.call('LPOP', KEYS[1])
if not id then
  return false
end
redis.call('ZADD', KEYS[2], ARGV[1], id)
return id
`)

const receivePollInterval = 100 * time.Millisecond

func NewRedis(rdb *redis.Client, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "webm2mp4"
	}
	if opts.Visibility <= 0 {
		opts.Visibility = 5 * time.Minute
	}
	if opts.ReceiveWait <= 0 {
		opts.ReceiveWait = 5 * time.Second
	}
	return &Redis{
		rdb:         rdb,
		prefix:      opts.Prefix,
		visibility:  opts.Visibility,
		receiveWait: opts.ReceiveWait,
		now:         time.Now,
	}
}

func (r *Redis) readyKey(q string) string    { return fmt.Sprintf("%s:%s:ready", r.prefix, q) }
func (r *Redis) bodyKey(q string) string     { return fmt.Sprintf("%s:%s:messages", r.prefix, q) }
func (r *Redis) inflightKey(q string) string { return fmt.Sprintf("%s:%s:inflight", r.prefix, q) }

func (r *Redis) Send(ctx context.Context, q string, body []byte) error {
	id := uuid.NewString()
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.bodyKey(q), id, body)
	pipe.RPush(ctx, r.readyKey(q), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue send %s: %w", q, err)
	}
	return nil
}

// Receive polls for the next message up to the configured wait bound. The
// returned message stays invisible until its deadline; Delete with the
// receipt acknowledges it for good.
func (r *Redis) Receive(ctx context.Context, q string) (*Message, error) {
	waitUntil := time.Now().Add(r.receiveWait)
	poll := r.receiveWait
	if poll > receivePollInterval {
		poll = receivePollInterval
	}

	for {
		if err := r.requeueExpired(ctx, q); err != nil {
			return nil, err
		}

		msg, err := r.receiveOnce(ctx, q)
		if err != nil || msg != nil {
			return msg, err
		}

		if time.Now().After(waitUntil) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}

func (r *Redis) receiveOnce(ctx context.Context, q string) (*Message, error) {
	for {
		deadline := float64(r.now().Add(r.visibility).UnixMilli())
		id, err := receiveScript.Run(ctx, r.rdb,
			[]string{r.readyKey(q), r.inflightKey(q)}, deadline).Text()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("queue receive %s: %w", q, err)
		}

		body, err := r.rdb.HGet(ctx, r.bodyKey(q), id).Bytes()
		if errors.Is(err, redis.Nil) {
			// Stray id with no body, e.g. deleted while a duplicate of it
			// sat on the ready list. Drop it and keep looking.
			_ = r.rdb.ZRem(ctx, r.inflightKey(q), id).Err()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("queue receive %s: %w", q, err)
		}
		return &Message{Body: body, Receipt: id}, nil
	}
}

// requeueExpired pushes in-flight ids whose visibility window elapsed back
// to the front of the ready list.
func (r *Redis) requeueExpired(ctx context.Context, q string) error {
	now := fmt.Sprintf("%d", r.now().UnixMilli())
	ids, err := r.rdb.ZRangeByScore(ctx, r.inflightKey(q), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return fmt.Errorf("queue requeue %s: %w", q, err)
	}
	for _, id := range ids {
		pipe := r.rdb.TxPipeline()
		pipe.ZRem(ctx, r.inflightKey(q), id)
		pipe.LPush(ctx, r.readyKey(q), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("queue requeue %s: %w", q, err)
		}
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, q string, receipt string) error {
	pipe := r.rdb.TxPipeline()
	pipe.ZRem(ctx, r.inflightKey(q), receipt)
	pipe.HDel(ctx, r.bodyKey(q), receipt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue delete %s: %w", q, err)
	}
	return nil
}
