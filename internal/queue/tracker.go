package queue

import (
	"sync"
	"time"
)

const subscriberBuffer = 16

// Tracker holds job state in memory and fans status changes out to subscribers.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*Job
	subs map[string]map[chan Job]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[string]*Job),
		subs: make(map[string]map[chan Job]struct{}),
	}
}

// Put registers or replaces a job and notifies its subscribers.
func (t *Tracker) Put(job *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := *job
	t.jobs[job.ID] = &cp
	t.notifyLocked(cp)
}

// Get returns a snapshot of the job.
func (t *Tracker) Get(id string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Update mutates a tracked job and notifies subscribers. Unknown ids are ignored.
func (t *Tracker) Update(id string, fn func(*Job)) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	fn(j)
	j.UpdatedAt = time.Now().UTC()
	t.notifyLocked(*j)
	return *j, true
}

// SetStatus moves a job to status.
func (t *Tracker) SetStatus(id, status string) {
	t.Update(id, func(j *Job) { j.Status = status })
}

// Subscribe streams every later change of job id. The current state, if any, is sent first.
// The returned func must be called to release the subscription.
func (t *Tracker) Subscribe(id string) (<-chan Job, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Job, subscriberBuffer)
	if t.subs[id] == nil {
		t.subs[id] = make(map[chan Job]struct{})
	}
	t.subs[id][ch] = struct{}{}
	if j, ok := t.jobs[id]; ok {
		ch <- *j
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs[id], ch)
			if len(t.subs[id]) == 0 {
				delete(t.subs, id)
			}
			close(ch)
		})
	}
}

// notifyLocked never blocks: a slow subscriber loses its oldest queued state, not the newest.
func (t *Tracker) notifyLocked(j Job) {
	for ch := range t.subs[j.ID] {
		select {
		case ch <- j:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- j:
			default:
			}
		}
	}
}
