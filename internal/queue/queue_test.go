package queue

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

type fakeRunner struct {
	mu     sync.Mutex
	stages []string
	err    error
	panic  bool
	got    []Job
}

func (f *fakeRunner) RunJob(ctx context.Context, job Job, progress func(string)) (string, error) {
	f.mu.Lock()
	f.got = append(f.got, job)
	f.mu.Unlock()

	if f.panic {
		panic("boom")
	}
	for _, s := range f.stages {
		progress(s)
	}
	if f.err != nil {
		return "", f.err
	}
	return "/generated/outputs/x.mp4", nil
}

func waitTerminal(t *testing.T, tr *Tracker, id string) Job {
	t.Helper()
	ch, cancel := tr.Subscribe(id)
	defer cancel()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case j := <-ch:
			if j.Terminal() {
				return j
			}
		case <-timeout:
			j, _ := tr.Get(id)
			t.Fatalf("job %s did not finish, last status %q", id, j.Status)
		}
	}
}

func startPool(t *testing.T, runner JobRunner) (*WorkerPool, *Tracker) {
	t.Helper()
	tracker := NewTracker()
	broker := NewChannelBroker(10)
	pool := NewWorkerPool(2, broker, tracker, runner, logger.Nop())
	pool.Start(context.Background())
	t.Cleanup(func() {
		broker.Close()
		pool.Stop()
	})
	return pool, tracker
}

func TestWorkerPoolRunsJob(t *testing.T) {
	runner := &fakeRunner{stages: []string{types.StatusTranscribing, types.StatusAnalyzing, types.StatusSplicing}}
	pool, tracker := startPool(t, runner)

	at := int64(5000)
	job, err := pool.Enqueue(context.Background(), "sub1", &at)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != types.StatusQueued {
		t.Errorf("new job should be queued, got %s", job.Status)
	}

	done := waitTerminal(t, tracker, job.ID)
	if done.Status != types.StatusDone || done.OutputURL != "/generated/outputs/x.mp4" {
		t.Errorf("unexpected final job %+v", done)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.got) != 1 || runner.got[0].SubmissionID != "sub1" || *runner.got[0].InsertAtMs != 5000 {
		t.Errorf("runner got %+v", runner.got)
	}
}

func TestWorkerPoolRecordsFailure(t *testing.T) {
	pool, tracker := startPool(t, &fakeRunner{err: errors.New("whisper exploded")})

	job, _ := pool.Enqueue(context.Background(), "sub1", nil)
	done := waitTerminal(t, tracker, job.ID)
	if done.Status != types.StatusFailed || done.Error != "whisper exploded" {
		t.Errorf("unexpected final job %+v", done)
	}
}

func TestWorkerPoolRecoversPanic(t *testing.T) {
	pool, tracker := startPool(t, &fakeRunner{panic: true})

	job, _ := pool.Enqueue(context.Background(), "sub1", nil)
	done := waitTerminal(t, tracker, job.ID)
	if done.Status != types.StatusFailed || done.Error == "" {
		t.Errorf("panic should fail the job, got %+v", done)
	}

	// the worker survives and takes the next job
	job2, _ := pool.Enqueue(context.Background(), "sub2", nil)
	if j := waitTerminal(t, tracker, job2.ID); j.Status != types.StatusFailed {
		t.Errorf("second job should also be processed, got %+v", j)
	}
}

func TestEnqueueOnClosedBroker(t *testing.T) {
	tracker := NewTracker()
	broker := NewChannelBroker(1)
	broker.Close()
	pool := NewWorkerPool(1, broker, tracker, &fakeRunner{}, logger.Nop())

	if _, err := pool.Enqueue(context.Background(), "sub1", nil); !errors.Is(err, ErrBrokerClosed) {
		t.Errorf("expected ErrBrokerClosed, got %v", err)
	}
}

func TestTrackerSubscribe(t *testing.T) {
	tr := NewTracker()
	job := NewJob("sub", nil)
	tr.Put(job)

	ch, cancel := tr.Subscribe(job.ID)
	if first := <-ch; first.Status != types.StatusQueued {
		t.Errorf("subscriber should get the current state first, got %s", first.Status)
	}

	tr.SetStatus(job.ID, types.StatusTranscribing)
	if next := <-ch; next.Status != types.StatusTranscribing {
		t.Errorf("expected transcribing, got %s", next.Status)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	// no subscribers left, must not block or panic
	tr.SetStatus(job.ID, types.StatusDone)

	if j, ok := tr.Get(job.ID); !ok || j.Status != types.StatusDone {
		t.Errorf("Get = %+v, %v", j, ok)
	}
	if _, ok := tr.Get("nope"); ok {
		t.Error("unknown job should not be found")
	}
}

func TestTrackerSlowSubscriberKeepsNewest(t *testing.T) {
	tr := NewTracker()
	job := NewJob("sub", nil)
	tr.Put(job)

	ch, cancel := tr.Subscribe(job.ID)
	defer cancel()

	for i := 0; i < subscriberBuffer*3; i++ {
		tr.SetStatus(job.ID, types.StatusGenerating)
	}
	tr.SetStatus(job.ID, types.StatusDone)

	var last Job
	for len(ch) > 0 {
		last = <-ch
	}
	if last.Status != types.StatusDone {
		t.Errorf("newest state should survive, got %s", last.Status)
	}
}

func TestChannelBrokerConsumeHonoursContext(t *testing.T) {
	b := NewChannelBroker(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := b.Consume(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestRedisBroker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	key := "quizsplice:test:" + NewJob("x", nil).ID
	b, err := NewRedisBroker(addr, "", 0, key, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	at := int64(1234)
	in := NewJob("sub", &at)
	if err := b.Publish(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if n, _ := b.Len(context.Background()); n != 1 {
		t.Errorf("expected 1 queued job, got %d", n)
	}

	out, err := b.Consume(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.ID != in.ID || out.SubmissionID != "sub" || *out.InsertAtMs != 1234 {
		t.Errorf("round trip mismatch: %+v", out)
	}
}
