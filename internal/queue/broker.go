package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

// ErrBrokerClosed is returned by Consume once the broker is closed.
var ErrBrokerClosed = errors.New("broker closed")

// Broker carries jobs from the HTTP layer to the workers.
type Broker interface {
	Publish(ctx context.Context, job *Job) error
	// Consume blocks until a job is available or ctx is done.
	Consume(ctx context.Context) (*Job, error)
	Close() error
}

// ChannelBroker is an in-process buffered queue.
type ChannelBroker struct {
	jobs   chan *Job
	closed chan struct{}
	once   sync.Once
}

func NewChannelBroker(size int) *ChannelBroker {
	if size <= 0 {
		size = 100
	}
	return &ChannelBroker{
		jobs:   make(chan *Job, size),
		closed: make(chan struct{}),
	}
}

func (b *ChannelBroker) Publish(ctx context.Context, job *Job) error {
	select {
	case <-b.closed:
		return ErrBrokerClosed
	default:
	}
	select {
	case b.jobs <- job:
		return nil
	case <-b.closed:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChannelBroker) Consume(ctx context.Context) (*Job, error) {
	select {
	case job := <-b.jobs:
		return job, nil
	case <-b.closed:
		return nil, ErrBrokerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *ChannelBroker) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

// RedisBroker pushes JSON jobs onto a Redis list and pops them with BLPOP.
type RedisBroker struct {
	rdb   *goredis.Client
	key   string
	block time.Duration
	log   *logger.Logger
}

// NewRedisBroker connects to addr and verifies the connection with PING.
func NewRedisBroker(addr, password string, db int, key string, log *logger.Logger) (*RedisBroker, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if key == "" {
		key = "quizsplice:jobs"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBroker{
		rdb:   rdb,
		key:   key,
		block: 5 * time.Second,
		log:   log.With("component", "RedisBroker"),
	}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := b.rdb.RPush(ctx, b.key, raw).Err(); err != nil {
		return fmt.Errorf("error adding to queue: %w", err)
	}
	return nil
}

func (b *RedisBroker) Consume(ctx context.Context) (*Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := b.rdb.BLPop(ctx, b.block, b.key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if errors.Is(err, goredis.ErrClosed) {
			return nil, ErrBrokerClosed
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("error reading queue: %w", err)
		}
		// BLPOP answers [key, value]
		if len(res) != 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			b.log.Warn("bad job payload", "error", err)
			continue
		}
		return &job, nil
	}
}

// Len is the number of jobs waiting in the list.
func (b *RedisBroker) Len(ctx context.Context) (int64, error) {
	n, err := b.rdb.LLen(ctx, b.key).Result()
	if err != nil {
		return 0, fmt.Errorf("error getting queue length: %w", err)
	}
	return n, nil
}

func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
